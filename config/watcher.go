package config

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/fsnotify/fsnotify"

	"github.com/forgequant/emulator/logging"
)

const namedLogger = "cfgwatcher"

// Watcher is looking for updates in the configuration file.
type Watcher struct {
	log  *logging.Logger
	path string

	mu                 sync.Mutex
	cfg                Config
	cfgUpdateListeners []func(Config)
}

// NewFromFile instantiates a new watcher over the config file in path. The
// watcher goroutine stops when ctx is cancelled.
func NewFromFile(ctx context.Context, log *logging.Logger, path string) (*Watcher, error) {
	log = log.Named(namedLogger)
	// run at debug level, configuration changes are always worth reporting
	log.SetLevel(logging.DebugLevel)

	w := &Watcher{
		log:  log,
		cfg:  NewDefaultConfig(),
		path: filepath.Join(path, configFileName),
	}

	if err := w.load(); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(w.path); err != nil {
		return nil, err
	}

	w.log.Info("config watcher started successfully",
		logging.String("config", w.path))

	go w.watch(ctx, watcher)

	return w, nil
}

// Get returns the last good configuration.
func (w *Watcher) Get() Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cfg
}

// OnConfigUpdate registers a callback invoked after every successful reload.
func (w *Watcher) OnConfigUpdate(fns ...func(Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.cfgUpdateListeners = append(w.cfgUpdateListeners, fns...)
}

func (w *Watcher) load() error {
	cfg := NewDefaultConfig()
	if _, err := toml.DecodeFile(w.path, &cfg); err != nil {
		return err
	}

	w.mu.Lock()
	w.cfg = cfg
	listeners := make([]func(Config), len(w.cfgUpdateListeners))
	copy(listeners, w.cfgUpdateListeners)
	w.mu.Unlock()

	for _, fn := range listeners {
		fn(cfg)
	}
	return nil
}

func (w *Watcher) watch(ctx context.Context, watcher *fsnotify.Watcher) {
	defer watcher.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.log.Debug("configuration updated", logging.String("event", event.Name))
			if err := w.load(); err != nil {
				// keep the last good configuration
				w.log.Error("unable to reload configuration", logging.Error(err))
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			w.log.Error("config watcher error", logging.Error(err))
		}
	}
}
