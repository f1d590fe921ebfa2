// Package watcher turns edits in a notes directory into render requests.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/forPelevin/notereel/internal/document"
	"github.com/forPelevin/notereel/internal/logging"
)

// DefaultDebounce is how long a note must stay quiet before it is handed on.
const DefaultDebounce = time.Second

// OnChange is called with the path of a note that was created or saved.
type OnChange func(path string)

// Watcher monitors one notes directory for note changes.
type Watcher struct {
	dir      string
	callback OnChange
	debounce time.Duration
	logger   *slog.Logger

	mu       sync.Mutex
	timers   map[string]*time.Timer
	stopped  bool
	inflight sync.WaitGroup
}

func New(dir string, debounce time.Duration, logger *slog.Logger, cb OnChange) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Watcher{
		dir:      dir,
		callback: cb,
		debounce: debounce,
		logger:   logger,
		timers:   make(map[string]*time.Timer),
	}
}

// Run watches until ctx ends. Pending debounced callbacks are dropped, and
// callbacks already running have returned by the time Run does.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()
	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	w.logger.Info("watching notes", slog.String("dir", w.dir))
	defer w.stopTimers()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			w.handle(event)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", logging.Error(err))
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}
	if !document.IsNote(event.Name) {
		return
	}
	path := filepath.Clean(event.Name)

	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.timers[path]; ok {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() { w.fire(path) })
}

func (w *Watcher) fire(path string) {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	delete(w.timers, path)
	w.inflight.Add(1)
	w.mu.Unlock()
	defer w.inflight.Done()

	w.logger.Info("note changed", slog.String("path", path))
	w.callback(path)
}

// stopTimers cancels pending callbacks and waits for running ones. A timer
// that already fired but has not taken the lock yet sees stopped and returns.
func (w *Watcher) stopTimers() {
	w.mu.Lock()
	w.stopped = true
	for path, t := range w.timers {
		t.Stop()
		delete(w.timers, path)
	}
	w.mu.Unlock()
	w.inflight.Wait()
}
