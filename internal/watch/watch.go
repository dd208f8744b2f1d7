// Package watch implements the File Watcher of spec.md §4.6: detects
// create/modify/delete/rename events under a working-tree root, coalesces
// them per path within a debounce window, and notifies a sink once per
// settled path. Grounded on the teacher's internal/index/watcher.go
// (fsnotify.Watcher, recursive directory registration, Start/Stop
// lifecycle), generalized from the teacher's direct Store/Builder
// coupling to a caller-supplied Sink; the caller (cmd/fae's Engine) owns
// re-extraction, and the watcher touches neither the index nor dispatch.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the coalescing window applied to events on the same
// path before the sink is notified (spec.md §4.6).
const DefaultDebounce = 200 * time.Millisecond

// Op identifies the kind of change observed for a path.
type Op int

const (
	OpCreate Op = iota
	OpWrite
	OpRemove
	OpRename
)

// Event is one debounced, settled filesystem change.
type Event struct {
	Path string
	Op   Op
}

// Sink receives debounced events. Implementations must not block for
// long: the watcher delivers sequentially on its own goroutine.
type Sink func(Event)

// Watcher recursively watches a root directory and delivers debounced
// events to a Sink.
type Watcher struct {
	fs       *fsnotify.Watcher
	debounce time.Duration
	sink     Sink

	mu      sync.Mutex
	timers  map[string]*time.Timer
	pending map[string]Op

	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a Watcher that recursively registers root (and every
// subdirectory) with fsnotify and debounces events for debounce before
// calling sink. debounce <= 0 uses DefaultDebounce.
func New(root string, debounce time.Duration, sink Sink) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		fs:       fsw,
		debounce: debounce,
		sink:     sink,
		timers:   make(map[string]*time.Timer),
		pending:  make(map[string]Op),
	}

	if err := w.addRecursive(root); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // per-file walk errors are not fatal to watch setup
		}
		if d.IsDir() {
			if walkErr := w.fs.Add(path); walkErr != nil {
				return fmt.Errorf("watch %s: %w", path, walkErr)
			}
		}
		return nil
	})
}

// Start begins delivering events until ctx is cancelled or Close is
// called. It blocks until the event loop exits, so callers typically run
// it in its own goroutine.
func (w *Watcher) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})
	defer close(w.done)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case _, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			// Errors surfaced by fsnotify itself (e.g. a removed watch
			// target) are diagnostics, not fatal to the loop.
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	var op Op
	switch {
	case ev.Has(fsnotify.Create):
		op = OpCreate
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			_ = w.fs.Add(ev.Name)
		}
	case ev.Has(fsnotify.Write):
		op = OpWrite
	case ev.Has(fsnotify.Remove):
		op = OpRemove
	case ev.Has(fsnotify.Rename):
		op = OpRename
	default:
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending[ev.Name] = op
	if t, exists := w.timers[ev.Name]; exists {
		t.Reset(w.debounce)
		return
	}
	path := ev.Name
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		finalOp, ok := w.pending[path]
		delete(w.pending, path)
		delete(w.timers, path)
		w.mu.Unlock()
		if ok {
			w.sink(Event{Path: path, Op: finalOp})
		}
	})
}

// Close stops the event loop and releases the underlying fsnotify watch.
func (w *Watcher) Close() error {
	if w.cancel != nil {
		w.cancel()
		<-w.done
	}
	w.mu.Lock()
	for _, t := range w.timers {
		t.Stop()
	}
	w.mu.Unlock()
	return w.fs.Close()
}
