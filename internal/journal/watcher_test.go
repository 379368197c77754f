package journal

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func TestWatcher_TailsAppendedLines(t *testing.T) {
	dir, fs := journalDir(t)
	offsets := newMemOffsets()
	var c collector

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go Watch(ctx, fs, offsets, dir, quietLogger(), c.handle)

	time.Sleep(100 * time.Millisecond)

	path := filepath.Join(dir, "Journal.2026-10-19T101010.01.log")
	appendLines(t, path, jumpLine+"\n")
	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return c.len() == 1
	}, "new journal not read by watcher")

	appendLines(t, path, musicLine+"\n", scanLine+"\n")
	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return c.len() == 2
	}, "appended scan not read by watcher")

	time.Sleep(300 * time.Millisecond)
	if c.len() != 2 {
		t.Errorf("events = %d, want exactly 2", c.len())
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir, fs := journalDir(t)
	var c collector

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go Watch(ctx, fs, newMemOffsets(), dir, quietLogger(), c.handle)

	time.Sleep(100 * time.Millisecond)
	_ = os.WriteFile(filepath.Join(dir, "Status.json"), []byte(jumpLine+"\n"), 0o644)

	time.Sleep(400 * time.Millisecond)
	if c.len() != 0 {
		t.Errorf("non-journal file produced %d events", c.len())
	}
}

func TestWatcher_StopsOnCancel(t *testing.T) {
	dir, fs := journalDir(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Watch(ctx, fs, newMemOffsets(), dir, quietLogger(), func(Event, []byte) error { return nil }) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
