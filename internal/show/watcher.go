package show

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// defaultDebounce collapses the burst of events an editor produces when it
// saves (truncate, write, chmod, rename).
const defaultDebounce = 250 * time.Millisecond

// Logger is the logging interface used by the watcher.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Watcher reloads a FileStore's document when it changes on disk and hands
// the new document to a callback. Writes made through the store itself are
// recognised by fingerprint and ignored, as are edits that leave the content
// unchanged. Invalid documents are logged and skipped.
type Watcher struct {
	store    *FileStore
	onChange func(*Document)
	debounce time.Duration
	logger   Logger

	fsw      *fsnotify.Watcher
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewWatcher creates a watcher for store. Call Start to begin watching.
func NewWatcher(store *FileStore, onChange func(*Document)) *Watcher {
	return &Watcher{
		store:    store,
		onChange: onChange,
		debounce: defaultDebounce,
		logger:   noopLogger{},
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// SetLogger sets the logger.
func (w *Watcher) SetLogger(l Logger) {
	w.logger = l
}

// SetDebounce overrides the quiet period before a reload.
func (w *Watcher) SetDebounce(d time.Duration) {
	w.debounce = d
}

// Start watches the document's directory (so atomic renames are seen) until
// ctx is cancelled or Close is called.
func (w *Watcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	dir := filepath.Dir(w.store.Path())
	if err := fsw.Add(dir); err != nil {
		fsw.Close() //nolint:errcheck // already failing
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	w.fsw = fsw
	go w.run(ctx)
	w.logger.Info("watching show document", "path", w.store.Path())
	return nil
}

// Close stops watching and waits for the loop to exit.
func (w *Watcher) Close() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.stop)
		if w.fsw != nil {
			err = w.fsw.Close()
			<-w.done
		}
	})
	return err
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.done)

	target := filepath.Clean(w.store.Path())
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("show watcher error", "error", err)
		case <-fire:
			fire = nil
			w.reload(ctx)
		}
	}
}

func (w *Watcher) reload(ctx context.Context) {
	before := w.store.LastFingerprint()
	doc, err := w.store.Load(ctx)
	if err != nil {
		w.logger.Error("ignoring invalid show document", "path", w.store.Path(), "error", err)
		return
	}
	if Fingerprint(doc) == before {
		w.logger.Debug("show document unchanged", "path", w.store.Path())
		return
	}
	w.logger.Info("show document changed on disk", "path", w.store.Path())
	w.onChange(doc)
}
