// Package watch re-validates deck files when they change on disk.
//
// It monitors the parent directories of the given files and invokes a
// callback after a debounce period. Events within the debounce window are
// coalesced so an editor's write-then-rename sequence fires the callback
// once.
package watch

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"deckfix/internal/errors"
)

// defaultDebounce is the quiet period after the last filesystem event before
// the callback fires.
const defaultDebounce = 500 * time.Millisecond

// Config holds the parameters for a Watcher.
type Config struct {
	// Paths are the deck files to watch. Their parent directories are
	// registered with fsnotify because editors typically replace files via
	// rename, which drops a watch placed on the file itself.
	Paths []string

	// Debounce is the quiet period after the last event before the callback
	// fires. Zero or negative values fall back to defaultDebounce.
	Debounce time.Duration

	// OnChange is called after the debounce window closes with the sorted
	// list of changed files. A nil callback is a no-op.
	OnChange func(ctx context.Context, changed []string) error

	// Stderr receives watcher diagnostics. nil defaults to os.Stderr.
	Stderr io.Writer
}

// Watcher monitors deck files and fires a debounced callback when they
// change. Run must be called exactly once.
type Watcher struct {
	cfg      Config
	fsw      *fsnotify.Watcher
	files    map[string]struct{} // absolute watched file paths
	stderr   io.Writer
	debounce time.Duration
	started  atomic.Bool
}

// New creates a Watcher for the given files. Every path is resolved to an
// absolute path and its parent directory is registered for monitoring.
func New(cfg Config) (*Watcher, error) {
	if len(cfg.Paths) == 0 {
		return nil, errors.NewInvalidRequest("no files to watch")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("create fsnotify watcher: %w", err))
	}

	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	stderr := cfg.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	files := make(map[string]struct{}, len(cfg.Paths))
	dirs := make(map[string]struct{})
	for _, path := range cfg.Paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			fsw.Close()
			return nil, errors.NewInvalidRequest(fmt.Sprintf("invalid path %q: %v", path, err))
		}
		files[abs] = struct{}{}
		dirs[filepath.Dir(abs)] = struct{}{}
	}
	for dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return nil, errors.NewInternal(fmt.Errorf("watch directory %q: %w", dir, err))
		}
	}

	return &Watcher{
		cfg:      cfg,
		fsw:      fsw,
		files:    files,
		stderr:   stderr,
		debounce: debounce,
	}, nil
}

// Files returns the sorted absolute paths being watched.
func (w *Watcher) Files() []string {
	out := make([]string, 0, len(w.files))
	for f := range w.files {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// Run blocks until ctx is cancelled, processing filesystem events and
// dispatching debounced callbacks. It returns nil on clean context
// cancellation. Run must be called exactly once.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return errors.NewInvalidOperation("Run called more than once")
	}

	var (
		mu      sync.Mutex
		pending = make(map[string]struct{})
		timer   *time.Timer
		running atomic.Bool
	)

	// fire drains the pending set and invokes the callback. The skip-if-busy
	// guard prevents concurrent invocations when a callback outlasts the
	// debounce period; the reset keeps the pending set from being lost.
	fire := func() {
		if ctx.Err() != nil {
			return
		}
		if !running.CompareAndSwap(false, true) {
			mu.Lock()
			if timer != nil {
				timer.Reset(w.debounce)
			}
			mu.Unlock()
			return
		}
		defer running.Store(false)

		mu.Lock()
		if len(pending) == 0 {
			mu.Unlock()
			return
		}
		changed := make([]string, 0, len(pending))
		for path := range pending {
			changed = append(changed, path)
		}
		clear(pending)
		mu.Unlock()
		sort.Strings(changed)

		if w.cfg.OnChange != nil {
			if err := w.cfg.OnChange(ctx, changed); err != nil {
				fmt.Fprintf(w.stderr, "watch: callback error: %v\n", err)
			}
		}
	}

	defer func() {
		mu.Lock()
		localTimer := timer
		mu.Unlock()
		if localTimer != nil && !localTimer.Stop() {
			select {
			case <-localTimer.C:
			default:
			}
		}
		if err := w.fsw.Close(); err != nil {
			fmt.Fprintf(w.stderr, "watch: close fsnotify: %v\n", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return errors.NewInternal(fmt.Errorf("fsnotify event channel closed unexpectedly"))
			}
			path := filepath.Clean(evt.Name)
			if _, watched := w.files[path]; !watched {
				continue
			}
			if !evt.Has(fsnotify.Write) && !evt.Has(fsnotify.Create) && !evt.Has(fsnotify.Rename) {
				continue
			}

			mu.Lock()
			pending[path] = struct{}{}
			if timer == nil {
				timer = time.AfterFunc(w.debounce, fire)
			} else {
				timer.Reset(w.debounce)
			}
			mu.Unlock()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.NewInternal(fmt.Errorf("fsnotify error channel closed unexpectedly"))
			}
			fmt.Fprintf(w.stderr, "watch: fsnotify error: %v\n", err)
		}
	}
}
