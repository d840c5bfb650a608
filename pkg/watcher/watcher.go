// Package watcher reports debounced changes to a set of files.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is the quiet period after the last event for a file.
const DefaultDebounce = 250 * time.Millisecond

// ErrClosed is returned by Add and Run after Close.
var ErrClosed = errors.New("watcher closed")

// FileWatcher watches files for changes. It watches their directories so
// that editors which save by renaming a new file into place are seen.
type FileWatcher struct {
	watcher  *fsnotify.Watcher
	debounce time.Duration
	log      *zap.Logger

	mu     sync.Mutex
	files  map[string]bool
	dirs   map[string]bool
	timers map[string]*time.Timer
	closed bool
}

// Option configures a FileWatcher.
type Option func(*FileWatcher)

// WithDebounce sets the quiet period. Zero or negative keeps the default.
func WithDebounce(d time.Duration) Option {
	return func(w *FileWatcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the logger for watch errors.
func WithLogger(log *zap.Logger) Option {
	return func(w *FileWatcher) { w.log = log }
}

// New creates a FileWatcher with no files.
func New(opts ...Option) (*FileWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	w := &FileWatcher{
		watcher:  fsw,
		debounce: DefaultDebounce,
		log:      zap.NewNop(),
		files:    make(map[string]bool),
		dirs:     make(map[string]bool),
		timers:   make(map[string]*time.Timer),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.log = w.log.With(zap.String("component", "watcher"))
	return w, nil
}

// Add starts watching files.
func (w *FileWatcher) Add(files ...string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}

	for _, file := range files {
		abs, err := filepath.Abs(file)
		if err != nil {
			return fmt.Errorf("failed to resolve path %s: %w", file, err)
		}
		dir := filepath.Dir(abs)
		if !w.dirs[dir] {
			if err := w.watcher.Add(dir); err != nil {
				return fmt.Errorf("failed to watch %s: %w", dir, err)
			}
			w.dirs[dir] = true
		}
		w.files[abs] = true
	}
	return nil
}

// Files returns the watched files as absolute paths.
func (w *FileWatcher) Files() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.files))
	for f := range w.files {
		out = append(out, f)
	}
	return out
}

// Run calls onChange with the absolute path of each watched file once its
// events have been quiet for the debounce period. It returns when ctx is
// done or the watcher is closed. onChange runs on a timer goroutine and may
// be called concurrently for different files.
func (w *FileWatcher) Run(ctx context.Context, onChange func(path string)) error {
	for {
		select {
		case <-ctx.Done():
			w.stopTimers()
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return ErrClosed
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.schedule(filepath.Clean(event.Name), onChange)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return ErrClosed
			}
			w.log.Warn("watch error", zap.Error(err))
		}
	}
}

func (w *FileWatcher) schedule(path string, onChange func(string)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed || !w.files[path] {
		return
	}

	if timer, ok := w.timers[path]; ok {
		timer.Stop()
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()
		w.log.Debug("file changed", zap.String("path", path))
		onChange(path)
	})
}

func (w *FileWatcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, timer := range w.timers {
		timer.Stop()
		delete(w.timers, path)
	}
}

// Close stops pending callbacks and the underlying watcher.
func (w *FileWatcher) Close() error {
	w.stopTimers()
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()
	return w.watcher.Close()
}
