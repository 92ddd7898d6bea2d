package policy

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// FileWatcher reloads a policy file into a Store when it changes on disk.
// Bursts of events are collapsed by a Debouncer.
type FileWatcher struct {
	path     string
	store    *Store
	watcher  *fsnotify.Watcher
	debounce *Debouncer
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
	reloads int
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewFileWatcher creates a watcher for the policy file at path. A zero
// interval defaults to 100ms.
func NewFileWatcher(path string, store *Store, interval time.Duration) (*FileWatcher, error) {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &FileWatcher{
		path:     path,
		store:    store,
		watcher:  w,
		debounce: NewDebouncer(interval),
		logger:   slog.Default().With("component", "lifecycle.policy.watcher"),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Watch blocks until ctx is cancelled or Stop is called. The parent
// directory is watched so editors that replace the file atomically are
// still seen.
func (fw *FileWatcher) Watch(ctx context.Context) error {
	fw.mu.Lock()
	if fw.running {
		fw.mu.Unlock()
		return fmt.Errorf("watcher already running")
	}
	fw.running = true
	fw.mu.Unlock()

	defer func() {
		fw.mu.Lock()
		fw.running = false
		fw.mu.Unlock()
		close(fw.doneCh)
	}()

	dir := filepath.Dir(fw.path)
	if err := fw.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %q: %w", dir, err)
	}

	fw.logger.Info("policy watcher started", "path", fw.path)

	for {
		select {
		case <-ctx.Done():
			fw.logger.Info("policy watcher stopped (context cancelled)")
			return nil

		case <-fw.stopCh:
			fw.logger.Info("policy watcher stopped")
			return nil

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if !fw.relevant(event) {
				continue
			}
			fw.logger.Debug("policy file event", "path", event.Name, "op", event.Op.String())
			fw.debounce.Trigger(fw.reload)

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			fw.logger.Error("policy watcher error", "error", err)
		}
	}
}

// Reloads returns the number of successful reloads.
func (fw *FileWatcher) Reloads() int {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	return fw.reloads
}

func (fw *FileWatcher) reload() {
	if err := LoadInto(fw.store, fw.path); err != nil {
		// The previous policy set stays in effect.
		fw.logger.Error("policy reload failed", "path", fw.path, "error", err)
		return
	}
	fw.mu.Lock()
	fw.reloads++
	fw.mu.Unlock()
	fw.logger.Info("policy file reloaded", "path", fw.path)
}

func (fw *FileWatcher) relevant(event fsnotify.Event) bool {
	if event.Op&fsnotify.Chmod == fsnotify.Chmod {
		return false
	}
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return false
	}
	return filepath.Clean(event.Name) == filepath.Clean(fw.path) ||
		strings.EqualFold(filepath.Base(event.Name), filepath.Base(fw.path))
}

// Stop stops the watcher and releases the fsnotify handle.
func (fw *FileWatcher) Stop() error {
	fw.mu.Lock()
	running := fw.running
	fw.mu.Unlock()

	if running {
		close(fw.stopCh)
		<-fw.doneCh
	}
	fw.debounce.Stop()

	if err := fw.watcher.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	return nil
}

// Debouncer runs the most recent callback once events have been quiet for
// the configured interval.
type Debouncer struct {
	interval time.Duration
	timer    *time.Timer
	mu       sync.Mutex
	callback func()
	stopped  bool
}

// NewDebouncer creates a new debouncer.
func NewDebouncer(interval time.Duration) *Debouncer {
	return &Debouncer{interval: interval}
}

// Trigger records callback and restarts the quiet-period timer.
func (d *Debouncer) Trigger(callback func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.callback = callback
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.interval, func() {
		d.mu.Lock()
		cb := d.callback
		stopped := d.stopped
		d.mu.Unlock()

		if cb != nil && !stopped {
			cb()
		}
	})
}

// Stop cancels any pending callback. It is safe to call more than once.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.callback = nil
}
