// Package signals lets another process abort an in-flight run by touching
// .qacoord/signals/abort.
package signals

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ErrAborted is the cancellation cause when an abort signal is received.
var ErrAborted = errors.New("run aborted by signal")

// PollInterval is how often the abort file is stat'ed when fsnotify is
// unavailable or misses an event.
var PollInterval = 500 * time.Millisecond

const abortFile = "abort"

// Dir returns the signals directory of a repository.
func Dir(repoRoot string) string {
	return filepath.Join(repoRoot, ".qacoord", "signals")
}

// Watcher observes the signals directory.
type Watcher struct {
	dir string

	mu     sync.Mutex
	reason string

	fired     chan struct{}
	fireOnce  sync.Once
	done      chan struct{}
	closeOnce sync.Once

	watcher *fsnotify.Watcher
}

// NewWatcher creates the signals directory, clears a stale abort file and
// starts watching. A failing fsnotify setup falls back to polling.
func NewWatcher(repoRoot string) (*Watcher, error) {
	dir := Dir(repoRoot)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	w := &Watcher{
		dir:   dir,
		fired: make(chan struct{}),
		done:  make(chan struct{}),
	}
	w.Clear()

	fw, err := fsnotify.NewWatcher()
	if err == nil {
		if err := fw.Add(dir); err != nil {
			fw.Close()
		} else {
			w.watcher = fw
		}
	}

	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()

	var events <-chan fsnotify.Event
	var errs <-chan error
	if w.watcher != nil {
		events = w.watcher.Events
		errs = w.watcher.Errors
	}

	for {
		select {
		case <-w.done:
			return
		case event, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if filepath.Base(event.Name) == abortFile && event.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				w.check()
			}
		case _, ok := <-errs:
			if !ok {
				errs = nil
			}
		case <-ticker.C:
			w.check()
		}
	}
}

// check stats the abort file and fires when present.
func (w *Watcher) check() bool {
	data, err := os.ReadFile(w.path())
	if err != nil {
		return false
	}
	w.fire(strings.TrimSpace(string(data)))
	return true
}

func (w *Watcher) fire(reason string) {
	w.fireOnce.Do(func() {
		w.mu.Lock()
		w.reason = reason
		w.mu.Unlock()
		close(w.fired)
	})
}

func (w *Watcher) path() string {
	return filepath.Join(w.dir, abortFile)
}

// Aborted returns a channel closed once an abort signal is seen.
func (w *Watcher) Aborted() <-chan struct{} {
	return w.fired
}

// ShouldAbort reports whether an abort has been signalled. It also checks
// the file directly in case the watcher missed it.
func (w *Watcher) ShouldAbort() bool {
	select {
	case <-w.fired:
		return true
	default:
		return w.check()
	}
}

// Reason returns the text written into the abort file, if any.
func (w *Watcher) Reason() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.reason
}

// SendAbort writes the abort file for the repository at repoRoot.
func SendAbort(repoRoot, reason string) error {
	dir := Dir(repoRoot)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	if reason == "" {
		reason = time.Now().Format(time.RFC3339)
	}
	return os.WriteFile(filepath.Join(dir, abortFile), []byte(reason), 0644)
}

// Clear removes the abort file.
func (w *Watcher) Clear() {
	os.Remove(w.path())
}

// Bind returns a context cancelled with ErrAborted when the abort signal
// arrives. The returned cancel function releases the binding.
func (w *Watcher) Bind(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancelCause(parent)
	go func() {
		select {
		case <-w.fired:
			cancel(ErrAborted)
		case <-ctx.Done():
		case <-w.done:
		}
	}()
	return ctx, func() { cancel(context.Canceled) }
}

// Close stops watching. The abort file is left in place.
func (w *Watcher) Close() {
	w.closeOnce.Do(func() {
		close(w.done)
		if w.watcher != nil {
			w.watcher.Close()
		}
	})
}
