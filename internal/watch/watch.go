// Package watch reports changes to a local model file so the viewer can
// reload it.
package watch

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

// DefaultDebounce is how long the file must stay quiet before a change is
// reported.
const DefaultDebounce = 250 * time.Millisecond

// ErrClosed is returned when using a closed watcher.
var ErrClosed = errors.New("watcher closed")

// Watcher watches one file. It watches the parent directory so that editors
// and exporters replacing the file by rename are still seen.
type Watcher struct {
	fs       *fsnotify.Watcher
	path     string
	debounce time.Duration
	changes  chan struct{}
	log      *zap.Logger

	mu     sync.Mutex
	closed bool
}

// New starts watching path. A debounce of 0 uses DefaultDebounce.
func New(path string, debounce time.Duration, log *zap.Logger) (*Watcher, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watching %s: %w", filepath.Dir(abs), err)
	}

	return &Watcher{
		fs:       fsw,
		path:     abs,
		debounce: debounce,
		changes:  make(chan struct{}, 1),
		log:      log,
	}, nil
}

// Path returns the watched file.
func (w *Watcher) Path() string { return w.path }

// Changes delivers one value per settled burst of writes. Bursts that arrive
// while a value is still unread are merged into it.
func (w *Watcher) Changes() <-chan struct{} { return w.changes }

// Run processes file events until ctx ends or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case e, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if !w.relevant(e) {
				continue
			}
			w.log.Debug("model file event", zap.String("path", e.Name), zap.Stringer("op", e.Op))
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			select {
			case w.changes <- struct{}{}:
			default:
			}

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error", zap.String("path", w.path), zap.Error(err))
		}
	}
}

func (w *Watcher) relevant(e fsnotify.Event) bool {
	if filepath.Clean(e.Name) != w.path {
		return false
	}
	return e.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0
}

// Close stops the watcher. Closing twice returns ErrClosed.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	w.closed = true
	return w.fs.Close()
}
