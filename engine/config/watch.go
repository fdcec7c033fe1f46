package config

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads the YAML layer over base whenever path changes on
// disk, invoking onReload with the recomputed Config.
type Watcher struct {
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// WatchYAMLFile starts watching path for writes/creates/renames and
// calls onReload(base overlaid with the new file contents) on each one.
// Parse errors are logged and skipped; the previous good config is left
// in place.
func WatchYAMLFile(path string, base Config, logger *slog.Logger, onReload func(Config)) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config: create watcher: %w", err)
	}
	dir := filepath.Dir(path)
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("config: watch %s: %w", dir, err)
	}

	w := &Watcher{watcher: fw, done: make(chan struct{})}
	go func() {
		defer close(w.done)
		for {
			select {
			case ev, ok := <-fw.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != filepath.Clean(path) {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				cfg, err := LoadYAMLFile(base, path)
				if err != nil {
					logger.Warn("config: reload failed, keeping previous config", "path", path, "error", err)
					continue
				}
				onReload(cfg)
			case err, ok := <-fw.Errors:
				if !ok {
					return
				}
				logger.Warn("config: watcher error", "error", err)
			}
		}
	}()
	return w, nil
}

// Close stops the watcher and waits for its goroutine to exit.
func (w *Watcher) Close() error {
	err := w.watcher.Close()
	<-w.done
	return err
}
