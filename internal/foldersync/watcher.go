package foldersync

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/cursorbox/pkg/types"
)

// DefaultDebounce is how long the directory must stay quiet before a
// resync runs.
const DefaultDebounce = 300 * time.Millisecond

// Watcher resyncs the library whenever cursor files in the directory
// change.
type Watcher struct {
	syncer   *Syncer
	debounce time.Duration
	tick     time.Duration
	onSync   func(Result, error)

	mu      sync.Mutex
	pending time.Time // last relevant event; zero when nothing is pending
	stats   WatcherStats
}

// WatcherStats counts watcher activity.
type WatcherStats struct {
	Events int
	Syncs  int
	Errors int
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) { w.debounce = d }
}

// OnSync is called after every debounced sync.
func OnSync(fn func(Result, error)) WatcherOption {
	return func(w *Watcher) { w.onSync = fn }
}

// NewWatcher returns a Watcher driving s.
func NewWatcher(s *Syncer, opts ...WatcherOption) *Watcher {
	w := &Watcher{syncer: s, debounce: DefaultDebounce}
	for _, opt := range opts {
		opt(w)
	}
	w.tick = max(w.debounce/3, 10*time.Millisecond)
	return w
}

// Stats returns a snapshot of the counters.
func (w *Watcher) Stats() WatcherStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

// Run syncs once, then watches the directory until ctx is done. It returns
// nil on cancellation.
func (w *Watcher) Run(ctx context.Context) error {
	log := w.syncer.log.With(zap.String("dir", w.syncer.dir))
	if err := os.MkdirAll(w.syncer.dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", w.syncer.dir, err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	defer fw.Close()
	if err := fw.Add(w.syncer.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.syncer.dir, err)
	}
	log.Info("watching cursors directory")

	w.sync()

	ticker := time.NewTicker(w.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info("watcher stopped")
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			w.handle(ev, log)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			log.Error("watch error", zap.Error(err))
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()

		case <-ticker.C:
			if w.due() {
				w.sync()
			}
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event, log *zap.Logger) {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) &&
		!ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return
	}
	if !types.KindFromPath(ev.Name).IsLibraryFile() {
		return
	}
	log.Debug("cursor file event", zap.String("path", ev.Name), zap.String("op", ev.Op.String()))
	w.mu.Lock()
	w.pending = time.Now()
	w.stats.Events++
	w.mu.Unlock()
}

// due reports whether a pending change has settled, clearing it if so.
func (w *Watcher) due() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.pending.IsZero() || time.Since(w.pending) < w.debounce {
		return false
	}
	w.pending = time.Time{}
	return true
}

func (w *Watcher) sync() {
	res, err := w.syncer.Sync()
	w.mu.Lock()
	w.stats.Syncs++
	if err != nil {
		w.stats.Errors++
	}
	w.mu.Unlock()
	if err != nil {
		w.syncer.log.Error("sync failed", zap.Error(err))
	}
	if w.onSync != nil {
		w.onSync(res, err)
	}
}
