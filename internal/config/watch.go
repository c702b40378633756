package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/alucardeht/memory-bank-mcp/internal/logger"
)

var log = logger.ForComponent("config")

const DefaultReloadWindow = 250 * time.Millisecond

// Watcher reloads a config file when it changes on disk and hands every
// successfully loaded version to onChange. Files that fail to load or
// validate are ignored and the previous config stays in effect.
type Watcher struct {
	path      string
	window    time.Duration
	onChange  func(*Config)
	fsWatcher *fsnotify.Watcher

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
}

func NewWatcher(path string, window time.Duration, onChange func(*Config)) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if window <= 0 {
		window = DefaultReloadWindow
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	// Editors often replace the file, so watch its directory.
	if err := fsWatcher.Add(filepath.Dir(abs)); err != nil {
		fsWatcher.Close()
		return nil, err
	}

	return &Watcher{
		path:      abs,
		window:    window,
		onChange:  onChange,
		fsWatcher: fsWatcher,
	}, nil
}

// Run processes file events until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	defer w.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				w.schedule()
			}
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			log.Warn("config watch error", "error", err)
		}
	}
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.window, w.reload)
}

func (w *Watcher) reload() {
	w.mu.Lock()
	stopped := w.stopped
	w.mu.Unlock()
	if stopped {
		return
	}

	cfg, err := Load(w.path)
	if err != nil {
		log.Warn("config reload rejected", "path", w.path, "error", err)
		return
	}

	log.Info("config reloaded", "path", w.path)
	w.onChange(cfg)
}

func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	return w.fsWatcher.Close()
}
