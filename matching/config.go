package matching

import (
	"github.com/forgequant/emulator/config/encoding"
	"github.com/forgequant/emulator/logging"
)

// namedLogger is the identifier for package and should ideally match the package name
// this is simply emitted as a hierarchical label e.g. 'matching'.
const namedLogger = "matching"

// Config represent the configuration of the matching engine
type Config struct {
	Level encoding.LogLevel `long:"log-level"`
}

// NewDefaultConfig creates an instance of the package specific configuration.
func NewDefaultConfig() Config {
	return Config{
		Level: encoding.LogLevel{Level: logging.InfoLevel},
	}
}
