package logging

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// A Level is a logging priority. Higher levels are more important.
type Level int8

// Logging levels (matching zap core internals).
const (
	// DebugLevel logs are typically voluminous, and are usually disabled in
	// production.
	DebugLevel Level = -1
	// InfoLevel is the default logging priority.
	InfoLevel Level = 0
	// WarnLevel logs are more important than Info, but don't need individual
	// human review.
	WarnLevel Level = 1
	// ErrorLevel logs are high-priority. If an application is running smoothly,
	// it shouldn't generate any error-level logs.
	ErrorLevel Level = 2
	// PanicLevel logs a message, then panics.
	PanicLevel Level = 4
	// FatalLevel logs a message, then calls os.Exit(1).
	FatalLevel Level = 5
)

// ErrInvalidLogLevel signals the level string could not be parsed.
var ErrInvalidLogLevel = errors.New("invalid log level")

func (l Level) String() string {
	return l.ZapLevel().String()
}

// ZapLevel returns the zap core equivalent of this level.
func (l Level) ZapLevel() zapcore.Level {
	return zapcore.Level(l)
}

// ParseLevel turns a level name into a Level.
func ParseLevel(l string) (Level, error) {
	var zl zapcore.Level
	if err := zl.UnmarshalText([]byte(l)); err != nil {
		return InfoLevel, errors.Wrapf(ErrInvalidLogLevel, "value: %s", l)
	}
	return Level(zl), nil
}

// Logger is a thin wrapper over a zap logger that keeps hold of its config
// so named sub-loggers can have their level adjusted independently.
type Logger struct {
	*zap.Logger
	config *zap.Config
	name   string
}

// New creates a new logger from a zap core and its originating config.
func New(core zapcore.Core, cfg *zap.Config) *Logger {
	return &Logger{
		Logger: zap.New(core),
		config: cfg,
	}
}

func (log *Logger) Clone() *Logger {
	newConfig := cloneConfig(log.config)
	newLogger, err := newConfig.Build()
	if err != nil {
		panic(err)
	}
	return &Logger{
		Logger: newLogger,
		config: newConfig,
		name:   log.name,
	}
}

// GetLevel returns the current level of the logger.
func (log *Logger) GetLevel() Level {
	return Level(log.config.Level.Level())
}

func (log *Logger) GetName() string {
	return log.name
}

// Named returns a sub-logger with the given name appended to the parent
// name, e.g. 'matching' -> 'matching.book'.
func (log *Logger) Named(name string) *Logger {
	c := log.Clone()
	newName := name
	if log.name != "" {
		newName = fmt.Sprintf("%s.%s", log.name, name)
	}
	return &Logger{
		Logger: c.Logger.Named(newName),
		config: c.config,
		name:   newName,
	}
}

// SetLevel changes the level of this logger (and only this logger).
func (log *Logger) SetLevel(level Level) {
	if log.config.Level.Level() == level.ZapLevel() {
		return
	}
	log.config.Level.SetLevel(level.ZapLevel())
}

func (log *Logger) With(fields ...zap.Field) *Logger {
	c := log.Clone()
	return &Logger{
		Logger: c.Logger.With(fields...),
		config: c.config,
		name:   c.name,
	}
}

// AtExit flushes the logs before exiting the process. Useful when an
// app shuts down so we store all logging possible. This is meant to be used
// with defer when initializing your logger.
func (log *Logger) AtExit() {
	if log.Logger != nil {
		_ = log.Logger.Sync()
	}
}

func cloneConfig(cfg *zap.Config) *zap.Config {
	c := zap.Config{
		Level:             zap.NewAtomicLevelAt(cfg.Level.Level()),
		Development:       cfg.Development,
		DisableCaller:     cfg.DisableCaller,
		DisableStacktrace: cfg.DisableStacktrace,
		Sampling:          nil,
		Encoding:          cfg.Encoding,
		EncoderConfig:     cfg.EncoderConfig,
		OutputPaths:       cfg.OutputPaths,
		ErrorOutputPaths:  cfg.ErrorOutputPaths,
		InitialFields:     make(map[string]interface{}),
	}
	for k, v := range cfg.InitialFields {
		c.InitialFields[k] = v
	}
	if cfg.Sampling != nil {
		c.Sampling = &zap.SamplingConfig{
			Initial:    cfg.Sampling.Initial,
			Thereafter: cfg.Sampling.Thereafter,
		}
	}
	return &c
}

// NewLoggerFromEnv builds a logger for the given environment ("dev" gets a
// human readable console encoder at debug level, anything else JSON at info).
func NewLoggerFromEnv(env string) *Logger {
	var config zap.Config
	var level zapcore.Level
	/*
		Choices: (with "*" for default)
		CallerEncoder: full*
		DurationEncoder: nanos, seconds*, string
		LevelEncoder: capital, capitalColor, color, lowercase*
		NameEncoder: full*
		TimeEncoder: epoch*, iso8601, millis, nanos
	*/
	switch env {
	case "dev":
		encoderConfig := zapcore.EncoderConfig{
			CallerKey:      "C",
			EncodeCaller:   zapcore.ShortCallerEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
			EncodeLevel:    zapcore.CapitalLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			LevelKey:       "L",
			LineEnding:     "\n",
			MessageKey:     "M",
			NameKey:        "N",
			TimeKey:        "T",
		}
		level = DebugLevel.ZapLevel()
		config = zap.Config{
			Level:            zap.NewAtomicLevelAt(level),
			Development:      true,
			Encoding:         "console",
			EncoderConfig:    encoderConfig,
			OutputPaths:      []string{"stdout"},
			ErrorOutputPaths: []string{"stderr"},
		}
		core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), os.Stdout, level)
		return New(core, &config)
	default:
		encoderConfig := zapcore.EncoderConfig{
			CallerKey:      "caller",
			EncodeCaller:   zapcore.ShortCallerEncoder,
			EncodeDuration: zapcore.SecondsDurationEncoder,
			EncodeLevel:    zapcore.LowercaseLevelEncoder,
			EncodeName:     zapcore.FullNameEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			LevelKey:       "level",
			LineEnding:     "\n",
			MessageKey:     "message",
			NameKey:        "logger",
			StacktraceKey:  "stacktrace",
			TimeKey:        "@timestamp",
		}
		level = InfoLevel.ZapLevel()
		config = zap.Config{
			Level:            zap.NewAtomicLevelAt(level),
			Development:      false,
			Encoding:         "json",
			EncoderConfig:    encoderConfig,
			OutputPaths:      []string{"stdout"},
			ErrorOutputPaths: []string{"stderr"},
		}
		core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), os.Stdout, level)
		return New(core, &config)
	}
}

// NewTestLogger creates a logger suitable for unit tests: console output,
// debug level so tests cover the debug paths.
func NewTestLogger() *Logger {
	return NewLoggerFromEnv("dev")
}

// NewProdLogger creates the logger used outside of dev environments.
func NewProdLogger() *Logger {
	return NewLoggerFromEnv("prod")
}
