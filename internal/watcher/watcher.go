// Package watcher reports batches of changed source files so watch mode can
// re-run a migration on them.
package watcher

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// EventOp represents the type of file system operation.
type EventOp int

const (
	Create EventOp = iota
	Write
	Remove
	Rename
)

// String returns the string representation of EventOp.
func (op EventOp) String() string {
	switch op {
	case Create:
		return "Create"
	case Write:
		return "Write"
	case Remove:
		return "Remove"
	case Rename:
		return "Rename"
	default:
		return "Unknown"
	}
}

// Filter decides which paths are watched and reported.
type Filter interface {
	// Selected reports whether a changed file should be reported.
	Selected(path string) bool
	// SkipDir reports whether a directory should not be watched.
	SkipDir(path string) bool
}

// Config holds configuration for the file system watcher.
type Config struct {
	Roots  []string
	Filter Filter
	// Debounce is how long the watcher waits after the last change before
	// reporting a batch.
	Debounce time.Duration
	Logger   *slog.Logger
}

// DefaultDebounce is used when Config.Debounce is zero.
const DefaultDebounce = 500 * time.Millisecond

// Watcher watches directory trees and emits debounced batches of changed
// files.
type Watcher struct {
	cfg    Config
	logger *slog.Logger
	fsw    *fsnotify.Watcher
	mu     sync.Mutex
	closed bool
}

// New creates a watcher. Nothing is watched until Start.
func New(cfg Config) *Watcher {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Watcher{cfg: cfg, logger: logger}
}

// Start watches the configured roots and returns a channel of batches. Each
// batch holds the sorted paths of files created or written since the last
// batch. The channel is closed when ctx is done or the watcher is closed.
func (w *Watcher) Start(ctx context.Context) (<-chan []string, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	w.fsw = fsw
	w.mu.Unlock()

	for _, root := range w.cfg.Roots {
		if err := w.addRecursive(root); err != nil {
			fsw.Close()
			return nil, err
		}
	}

	out := make(chan []string, 1)
	go w.eventLoop(ctx, fsw, out)
	return out, nil
}

// Close shuts down the watcher and releases resources.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	if w.fsw != nil {
		return w.fsw.Close()
	}
	return nil
}

func (w *Watcher) addRecursive(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return w.fsw.Add(filepath.Dir(root))
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // skip inaccessible entries
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.cfg.Filter != nil && w.cfg.Filter.SkipDir(path) {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

func (w *Watcher) selected(path string) bool {
	return w.cfg.Filter == nil || w.cfg.Filter.Selected(path)
}

// eventLoop collects changed paths and flushes them once no new change has
// arrived for the debounce window.
func (w *Watcher) eventLoop(ctx context.Context, fsw *fsnotify.Watcher, out chan<- []string) {
	defer close(out)

	pending := make(map[string]bool)
	timer := time.NewTimer(w.cfg.Debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case fsEvent, ok := <-fsw.Events:
			if !ok {
				return
			}
			op, valid := convertOp(fsEvent.Op)
			if !valid || op == Remove || op == Rename {
				continue
			}

			// New directories are watched too.
			if op == Create {
				if info, err := os.Stat(fsEvent.Name); err == nil && info.IsDir() {
					if w.cfg.Filter == nil || !w.cfg.Filter.SkipDir(fsEvent.Name) {
						if err := w.addRecursive(fsEvent.Name); err != nil {
							w.logger.Warn("cannot watch new directory", "path", fsEvent.Name, "error", err)
						}
					}
					continue
				}
			}

			if !w.selected(fsEvent.Name) {
				continue
			}
			w.logger.Debug("file changed", "path", fsEvent.Name, "op", op)
			pending[fsEvent.Name] = true
			timer.Reset(w.cfg.Debounce)

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			batch := make([]string, 0, len(pending))
			for p := range pending {
				batch = append(batch, p)
			}
			sort.Strings(batch)
			pending = make(map[string]bool)
			select {
			case out <- batch:
			case <-ctx.Done():
				return
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}

func convertOp(op fsnotify.Op) (EventOp, bool) {
	switch {
	case op.Has(fsnotify.Create):
		return Create, true
	case op.Has(fsnotify.Write):
		return Write, true
	case op.Has(fsnotify.Remove):
		return Remove, true
	case op.Has(fsnotify.Rename):
		return Rename, true
	default:
		return 0, false
	}
}
