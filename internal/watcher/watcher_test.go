package watcher

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestFileWatcher_DebouncesWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "flake.ply")
	if err := os.WriteFile(path, []byte("ply\n"), 0644); err != nil {
		t.Fatal(err)
	}

	fw, err := NewFileWatcher(100 * time.Millisecond)
	if err != nil {
		t.Fatalf("NewFileWatcher failed: %v", err)
	}
	defer fw.Close()

	var calls atomic.Int32
	changed := make(chan string, 4)
	if err := fw.Watch([]string{path}, func(p string) {
		calls.Add(1)
		changed <- p
	}); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}
	fw.Start()

	for i := 0; i < 5; i++ {
		if err := os.WriteFile(path, []byte("ply\ncomment edit\n"), 0644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case got := <-changed:
		want, _ := filepath.Abs(path)
		if got != want {
			t.Errorf("callback path = %s, want %s", got, want)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no change event received")
	}

	time.Sleep(300 * time.Millisecond)
	if n := calls.Load(); n != 1 {
		t.Errorf("expected 1 debounced callback, got %d", n)
	}
}

func TestFileWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	watched := filepath.Join(dir, "a.ply")
	other := filepath.Join(dir, "b.ply")
	os.WriteFile(watched, nil, 0644)

	fw, err := NewFileWatcher(20 * time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	defer fw.Close()

	var calls atomic.Int32
	if err := fw.Watch([]string{watched}, func(string) { calls.Add(1) }); err != nil {
		t.Fatal(err)
	}
	fw.Start()

	os.WriteFile(other, []byte("x"), 0644)
	time.Sleep(200 * time.Millisecond)
	if n := calls.Load(); n != 0 {
		t.Errorf("unwatched file triggered %d callbacks", n)
	}
}

func TestFileWatcher_Unwatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.ply")
	os.WriteFile(path, nil, 0644)

	fw, err := NewFileWatcher(20 * time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	defer fw.Close()

	var calls atomic.Int32
	fw.Watch([]string{path}, func(string) { calls.Add(1) })
	fw.Start()
	if err := fw.Unwatch(path); err != nil {
		t.Fatalf("Unwatch failed: %v", err)
	}

	os.WriteFile(path, []byte("x"), 0644)
	time.Sleep(200 * time.Millisecond)
	if n := calls.Load(); n != 0 {
		t.Errorf("unwatched file triggered %d callbacks", n)
	}
}

func TestFileWatcher_CloseTwice(t *testing.T) {
	fw, err := NewFileWatcher(time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	fw.Start()
	if err := fw.Close(); err != nil {
		t.Errorf("first Close failed: %v", err)
	}
	if err := fw.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
}

func TestFileWatcher_SupersededTimerKeepsNewer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.ply")

	fw, err := NewFileWatcher(10 * time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	defer fw.Close()

	var calls atomic.Int32
	if err := fw.Watch([]string{path}, func(string) { calls.Add(1) }); err != nil {
		t.Fatal(err)
	}

	fw.handleFileChange(path)

	// Hold the lock past the deadline so the first timer fires and waits,
	// then install a newer timer in its place.
	fw.mu.Lock()
	time.Sleep(50 * time.Millisecond)
	newer := time.AfterFunc(time.Hour, func() {})
	defer newer.Stop()
	fw.timers[path] = newer
	fw.mu.Unlock()

	time.Sleep(50 * time.Millisecond)

	fw.mu.Lock()
	got := fw.timers[path]
	fw.mu.Unlock()
	if got != newer {
		t.Error("stale timer removed the newer timer entry")
	}
	if n := calls.Load(); n != 0 {
		t.Errorf("stale timer triggered %d callbacks", n)
	}
}

func TestFileWatcher_CloseCancelsPending(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.ply")

	fw, err := NewFileWatcher(10 * time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}

	var calls atomic.Int32
	if err := fw.Watch([]string{path}, func(string) { calls.Add(1) }); err != nil {
		t.Fatal(err)
	}

	fw.handleFileChange(path)
	if err := fw.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	time.Sleep(50 * time.Millisecond)
	if n := calls.Load(); n != 0 {
		t.Errorf("closed watcher triggered %d callbacks", n)
	}
}
