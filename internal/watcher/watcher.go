// Package watcher reloads views when a store changes on disk. It watches the
// directory holding each store path, so files replaced by rename (the
// markdown store's atomic save) or sidecar files (SQLite's -wal) are still
// seen, and batches bursts of events into a single callback.
package watcher

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"dolist/internal/utils"
)

// DefaultDebounceDuration is the default window for batching rapid changes.
const DefaultDebounceDuration = 300 * time.Millisecond

// Config holds file watcher configuration.
type Config struct {
	Paths            []string      // Store files or directories to watch
	DebounceDuration time.Duration // Quiet period before OnChange fires
	OnChange         func()        // Called once per burst of changes
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig(onChange func(), paths ...string) *Config {
	return &Config{
		Paths:            paths,
		DebounceDuration: DefaultDebounceDuration,
		OnChange:         onChange,
	}
}

// target is one watched directory and the entry names that matter in it.
// An empty prefix list means every entry counts.
type target struct {
	dir      string
	prefixes []string
}

// Watcher monitors store files and calls OnChange after changes settle.
type Watcher struct {
	cfg     *Config
	fsw     *fsnotify.Watcher
	targets map[string]*target
	stopCh  chan struct{}
	doneCh  chan struct{}
	started bool
	stopped bool
	mu      sync.Mutex
}

// New creates a new Watcher instance.
func New(cfg *Config) (*Watcher, error) {
	if cfg.DebounceDuration <= 0 {
		cfg.DebounceDuration = DefaultDebounceDuration
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		cfg:     cfg,
		fsw:     fsw,
		targets: resolveTargets(cfg.Paths),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}, nil
}

// resolveTargets maps each path to the directory that must be watched.
// A path that is an existing directory is watched as a whole; anything else
// is treated as a file and matched by name prefix in its parent.
func resolveTargets(paths []string) map[string]*target {
	targets := make(map[string]*target)
	for _, p := range paths {
		if p == "" {
			continue
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			abs = p
		}
		if info, err := os.Stat(abs); err == nil && info.IsDir() {
			targets[abs] = &target{dir: abs}
			continue
		}
		dir, name := filepath.Split(abs)
		dir = filepath.Clean(dir)
		t, ok := targets[dir]
		if !ok {
			t = &target{dir: dir, prefixes: []string{}}
			targets[dir] = t
		}
		if t.prefixes != nil {
			t.prefixes = append(t.prefixes, name)
		}
	}
	return targets
}

// Start begins watching the configured paths.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return fmt.Errorf("watcher has been stopped and cannot be restarted")
	}
	if w.started {
		return fmt.Errorf("watcher already started")
	}

	for dir := range w.targets {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			// The store creates its directory on first write
			utils.Debugf("watcher: skipping missing directory %s", dir)
			continue
		}
		if err := w.fsw.Add(dir); err != nil {
			return fmt.Errorf("failed to watch path %q: %w", dir, err)
		}
	}

	w.started = true
	go w.eventLoop()
	return nil
}

// Stop stops the watcher and waits for the event loop to exit. OnChange is
// not called after Stop returns.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	started := w.started
	close(w.stopCh)
	_ = w.fsw.Close()
	w.mu.Unlock()

	if started {
		<-w.doneCh
	}
}

// relevant reports whether an event names a watched store file.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
		return false
	}
	dir, name := filepath.Split(event.Name)
	t, ok := w.targets[filepath.Clean(dir)]
	if !ok {
		return false
	}
	if t.prefixes == nil {
		return true
	}
	for _, p := range t.prefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// eventLoop processes fsnotify events with debouncing.
func (w *Watcher) eventLoop() {
	defer close(w.doneCh)

	timer := time.NewTimer(w.cfg.DebounceDuration)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-w.stopCh:
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			utils.Debugf("watcher: %s", event)
			// Each event restarts the quiet period
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(w.cfg.DebounceDuration)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			utils.Warnf("watcher: %v", err)

		case <-timer.C:
			if w.cfg.OnChange != nil {
				w.cfg.OnChange()
			}
		}
	}
}
