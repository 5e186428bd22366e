package config

import (
	"sync/atomic"

	"github.com/BurntSushi/toml"
	"github.com/decred/slog"
	"github.com/fsnotify/fsnotify"
	"github.com/solmint/claimengine/build"
	"github.com/solmint/claimengine/internal/engine"
)

var log = build.NewSubLogger("CONF", nil)

// UseLogger installs a new root logger.
func UseLogger(logger slog.Logger) {
	log = logger
}

// TunablesWatcher re-reads the hot-reloadable fields of the config file on
// every fsnotify write event and publishes the result through an
// atomic.Pointer, so engine.New's tunables callback never blocks on a lock.
//
// Only RecencyWindow, PollInterval and PollMaxAttempts are reloaded this
// way (SPEC_FULL.md §9): every other field gates correctness-critical
// behavior (signing keys, split percentages, RPC endpoints) and requires a
// restart.
type TunablesWatcher struct {
	configFile string
	current    atomic.Pointer[engine.Tunables]
	watcher    *fsnotify.Watcher
}

// WatchTunables starts watching configFile for writes, seeding current from
// initial. The returned watcher must be closed by the caller on shutdown.
func WatchTunables(configFile string, initial engine.Tunables) (*TunablesWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(configFile); err != nil {
		w.Close()
		return nil, err
	}

	tw := &TunablesWatcher{configFile: configFile, watcher: w}
	tw.current.Store(&initial)

	go tw.loop()

	return tw, nil
}

func (tw *TunablesWatcher) loop() {
	for {
		select {
		case event, ok := <-tw.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			tw.reload()
		case err, ok := <-tw.watcher.Errors:
			if !ok {
				return
			}
			log.Errorf("config watcher error: %v", err)
		}
	}
}

func (tw *TunablesWatcher) reload() {
	var cfg Config
	if _, err := toml.DecodeFile(tw.configFile, &cfg); err != nil {
		log.Warnf("ignoring unreadable config reload from %s: %v", tw.configFile, err)
		return
	}

	next := cfg.Tunables()
	tw.current.Store(&next)
	log.Infof("reloaded tunables: recencyWindow=%s pollInterval=%s pollMaxAttempts=%d",
		next.RecencyWindow, next.PollInterval, next.PollMaxAttempts)
}

// Get is the func(() engine.Tunables) callback engine.New expects.
func (tw *TunablesWatcher) Get() engine.Tunables {
	return *tw.current.Load()
}

// Close stops the fsnotify watch.
func (tw *TunablesWatcher) Close() error {
	return tw.watcher.Close()
}
