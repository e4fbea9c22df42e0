// Package watch reports files created or rewritten in a directory.
package watch

import (
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/baltrad/bdb-go/internal/debug"
)

// DefaultDebounce is how long a file must stay quiet before it is reported
const DefaultDebounce = 500 * time.Millisecond

// Watcher watches a directory for new or modified files
type Watcher struct {
	dir      string
	pattern  string
	callback func(path string) error
	watcher  *fsnotify.Watcher
	done     chan struct{}
	wg       sync.WaitGroup

	// Debounce may be changed before Start
	Debounce time.Duration
}

// NewWatcher creates a watcher calling callback for every file in dir whose
// base name matches pattern, e.g. "*.yaml"
func NewWatcher(dir, pattern string, callback func(path string) error) (*Watcher, error) {
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	absPath, err := filepath.Abs(dir)
	if err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	if err := watcher.Add(absPath); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch directory: %w", err)
	}

	return &Watcher{
		dir:      absPath,
		pattern:  pattern,
		callback: callback,
		watcher:  watcher,
		done:     make(chan struct{}),
		Debounce: DefaultDebounce,
	}, nil
}

func (w *Watcher) matches(path string) bool {
	ok, _ := filepath.Match(w.pattern, filepath.Base(path))
	return ok && filepath.Dir(path) == w.dir
}

// Start reports events in the background until Stop is called. Files
// touched within one debounce window are reported together in name order.
func (w *Watcher) Start() {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()

		debounceTimer := time.NewTimer(w.Debounce)
		debounceTimer.Stop()
		var debounceCh <-chan time.Time
		pending := make(map[string]bool)

		for {
			select {
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
					continue
				}
				path, err := filepath.Abs(event.Name)
				if err != nil || !w.matches(path) {
					continue
				}
				pending[path] = true
				debounceTimer.Reset(w.Debounce)
				debounceCh = debounceTimer.C

			case <-debounceCh:
				paths := make([]string, 0, len(pending))
				for p := range pending {
					paths = append(paths, p)
				}
				sort.Strings(paths)
				pending = make(map[string]bool)
				debounceCh = nil

				for _, p := range paths {
					if err := w.callback(p); err != nil {
						debug.Warn("watch callback failed", "path", p, "error", err)
					}
				}

			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				debug.Warn("watch error", "dir", w.dir, "error", err)

			case <-w.done:
				return
			}
		}
	}()
}

// Stop stops watching and waits for a running callback to return
func (w *Watcher) Stop() error {
	close(w.done)
	err := w.watcher.Close()
	w.wg.Wait()
	return err
}
