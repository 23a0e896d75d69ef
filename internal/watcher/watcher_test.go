package watcher

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

// startWatcher starts a watcher over paths and counts OnChange calls
func startWatcher(t *testing.T, debounce time.Duration, paths ...string) (*Watcher, *atomic.Int32) {
	t.Helper()
	var count atomic.Int32
	w, err := New(&Config{
		Paths:            paths,
		DebounceDuration: debounce,
		OnChange:         func() { count.Add(1) },
	})
	if err != nil {
		t.Fatalf("failed to create watcher: %v", err)
	}
	t.Cleanup(w.Stop)
	if err := w.Start(); err != nil {
		t.Fatalf("failed to start watcher: %v", err)
	}
	return w, &count
}

// waitForCount polls until count reaches want or the deadline passes
func waitForCount(t *testing.T, count *atomic.Int32, want int32) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if count.Load() >= want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("OnChange called %d times, want %d", count.Load(), want)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

// TestWatcherDetectsChanges verifies a write to a watched file triggers OnChange
func TestWatcherDetectsChanges(t *testing.T) {
	tmpDir := t.TempDir()
	dbFile := filepath.Join(tmpDir, "dolist.db")
	writeFile(t, dbFile, "initial")

	_, count := startWatcher(t, 50*time.Millisecond, dbFile)

	writeFile(t, dbFile, "modified")
	waitForCount(t, count, 1)
}

// TestWatcherSeesAtomicReplace verifies a file replaced by rename is still seen
func TestWatcherSeesAtomicReplace(t *testing.T) {
	tmpDir := t.TempDir()
	listFile := filepath.Join(tmpDir, "lists.md")
	writeFile(t, listFile, "# Lists\n")

	_, count := startWatcher(t, 50*time.Millisecond, listFile)

	for i := 1; i <= 2; i++ {
		tmp := filepath.Join(tmpDir, ".dolist-tmp.md")
		writeFile(t, tmp, "# Lists\n## Chores\n")
		if err := os.Rename(tmp, listFile); err != nil {
			t.Fatalf("rename: %v", err)
		}
		waitForCount(t, count, int32(i))
		time.Sleep(100 * time.Millisecond)
	}
}

// TestWatcherSeesSidecarFiles verifies files sharing the store prefix count
func TestWatcherSeesSidecarFiles(t *testing.T) {
	tmpDir := t.TempDir()
	dbFile := filepath.Join(tmpDir, "dolist.db")
	writeFile(t, dbFile, "")

	_, count := startWatcher(t, 50*time.Millisecond, dbFile)

	writeFile(t, dbFile+"-wal", "frames")
	waitForCount(t, count, 1)
}

// TestWatcherIgnoresUnrelatedFiles verifies neighbours of a watched file are ignored
func TestWatcherIgnoresUnrelatedFiles(t *testing.T) {
	tmpDir := t.TempDir()
	listFile := filepath.Join(tmpDir, "lists.md")
	writeFile(t, listFile, "")

	_, count := startWatcher(t, 30*time.Millisecond, listFile)

	writeFile(t, filepath.Join(tmpDir, "notes.txt"), "unrelated")
	time.Sleep(200 * time.Millisecond)

	if count.Load() != 0 {
		t.Errorf("expected no OnChange for unrelated file, got %d", count.Load())
	}
}

// TestWatcherDirectory verifies any change inside a watched directory counts
func TestWatcherDirectory(t *testing.T) {
	badgerDir := t.TempDir()

	_, count := startWatcher(t, 50*time.Millisecond, badgerDir)

	writeFile(t, filepath.Join(badgerDir, "000001.vlog"), "value log")
	waitForCount(t, count, 1)
}

// TestWatcherDebounce verifies rapid changes are batched
func TestWatcherDebounce(t *testing.T) {
	tmpDir := t.TempDir()
	dbFile := filepath.Join(tmpDir, "dolist.db")
	writeFile(t, dbFile, "initial")

	_, count := startWatcher(t, 200*time.Millisecond, dbFile)

	// Much shorter gaps than the debounce window
	for i := 0; i < 10; i++ {
		writeFile(t, dbFile, "rapid change "+string(rune('0'+i)))
		time.Sleep(10 * time.Millisecond)
	}

	waitForCount(t, count, 1)
	time.Sleep(300 * time.Millisecond)

	if got := count.Load(); got > 2 {
		t.Errorf("expected at most 2 callbacks from debounced changes, got %d", got)
	}
}

// TestWatcherStopCleanly verifies Stop ends the loop and prevents restarts
func TestWatcherStopCleanly(t *testing.T) {
	tmpDir := t.TempDir()
	dbFile := filepath.Join(tmpDir, "dolist.db")
	writeFile(t, dbFile, "initial")

	w, count := startWatcher(t, 50*time.Millisecond, dbFile)

	w.Stop()
	w.Stop()

	writeFile(t, dbFile, "after stop")
	time.Sleep(150 * time.Millisecond)
	if count.Load() != 0 {
		t.Errorf("OnChange called after Stop: %d", count.Load())
	}

	if err := w.Start(); err == nil {
		t.Error("expected error starting a stopped watcher")
	}
}

// TestWatcherStartTwice verifies a running watcher cannot be started again
func TestWatcherStartTwice(t *testing.T) {
	w, _ := startWatcher(t, 50*time.Millisecond, t.TempDir())
	if err := w.Start(); err == nil {
		t.Error("expected error starting a watcher twice")
	}
}

// TestWatcherNonExistentPath verifies missing directories are skipped
func TestWatcherNonExistentPath(t *testing.T) {
	startWatcher(t, 50*time.Millisecond, "/nonexistent/path/dolist.db")
}

// TestWatcherConfigDefaults verifies default configuration values
func TestWatcherConfigDefaults(t *testing.T) {
	cfg := DefaultConfig(func() {}, "a.db")

	if cfg.DebounceDuration != DefaultDebounceDuration {
		t.Errorf("expected default debounce %v, got %v", DefaultDebounceDuration, cfg.DebounceDuration)
	}
	if cfg.OnChange == nil {
		t.Error("expected OnChange callback to be set")
	}
	if len(cfg.Paths) != 1 || cfg.Paths[0] != "a.db" {
		t.Errorf("Paths = %v", cfg.Paths)
	}

	w, err := New(&Config{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer w.Stop()
	if w.cfg.DebounceDuration != DefaultDebounceDuration {
		t.Errorf("zero debounce should become the default, got %v", w.cfg.DebounceDuration)
	}
}
