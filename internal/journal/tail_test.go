package journal

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/starford/orrery/internal/storage"
)

type memOffsets struct {
	mu  sync.Mutex
	off map[string]int64
}

func newMemOffsets() *memOffsets { return &memOffsets{off: make(map[string]int64)} }

func (m *memOffsets) Offset(file string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.off[file], nil
}

func (m *memOffsets) SetOffset(file string, offset int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.off[file] = offset
	return nil
}

type collector struct {
	mu     sync.Mutex
	events []Event
}

func (c *collector) handle(ev Event, _ []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
	return nil
}

func (c *collector) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

const (
	jumpLine  = `{"timestamp":"3310-05-01T12:00:00Z","event":"FSDJump","StarSystem":"Sol","SystemAddress":10477373803,"StarPos":[0,0,0]}`
	scanLine  = `{"timestamp":"3310-05-01T12:01:00Z","event":"Scan","ScanType":"Detailed","BodyName":"Sol","BodyID":0,"StarType":"G","DistanceFromArrivalLS":0}`
	musicLine = `{"timestamp":"3310-05-01T12:01:30Z","event":"Music","MusicTrack":"Exploration"}`
)

func journalDir(t *testing.T) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	fs, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, fs
}

func appendLines(t *testing.T, path string, lines ...string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	for _, l := range lines {
		if _, err := f.WriteString(l); err != nil {
			t.Fatal(err)
		}
	}
}

func TestSync_ReadsFromOffset(t *testing.T) {
	dir, fs := journalDir(t)
	path := filepath.Join(dir, "Journal.2026-10-19T101010.01.log")
	appendLines(t, path, jumpLine+"\n", musicLine+"\n", "not json\n", scanLine+"\n")

	offsets := newMemOffsets()
	var c collector
	if err := Sync(fs, offsets, quietLogger(), c.handle); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if c.len() != 2 {
		t.Fatalf("events = %d, want 2 (jump and scan)", c.len())
	}
	if _, ok := c.events[0].(*Journey); !ok {
		t.Errorf("first event = %T", c.events[0])
	}

	if err := Sync(fs, offsets, quietLogger(), c.handle); err != nil {
		t.Fatalf("second Sync: %v", err)
	}
	if c.len() != 2 {
		t.Errorf("events re-read: %d", c.len())
	}
}

func TestSync_LeavesPartialLine(t *testing.T) {
	dir, fs := journalDir(t)
	path := filepath.Join(dir, "Journal.1.log")
	appendLines(t, path, jumpLine+"\n", scanLine[:20])

	offsets := newMemOffsets()
	var c collector
	_ = Sync(fs, offsets, quietLogger(), c.handle)
	if c.len() != 1 {
		t.Fatalf("events = %d, want 1", c.len())
	}

	appendLines(t, path, scanLine[20:]+"\n")
	_ = Sync(fs, offsets, quietLogger(), c.handle)
	if c.len() != 2 {
		t.Fatalf("events after completing line = %d, want 2", c.len())
	}
	if sc, ok := c.events[1].(*Scan); !ok || sc.BodyName != "Sol" {
		t.Errorf("completed record = %+v", c.events[1])
	}
}

func TestSync_HandlerErrorDoesNotStall(t *testing.T) {
	dir, fs := journalDir(t)
	appendLines(t, filepath.Join(dir, "Journal.1.log"), jumpLine+"\n", scanLine+"\n")

	calls := 0
	h := func(Event, []byte) error {
		calls++
		return errors.New("boom")
	}
	offsets := newMemOffsets()
	_ = Sync(fs, offsets, quietLogger(), h)
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
	if off, _ := offsets.Offset("Journal.1.log"); off == 0 {
		t.Error("offset not advanced past failing records")
	}
}

func TestSync_RereadsTruncatedFile(t *testing.T) {
	dir, fs := journalDir(t)
	path := filepath.Join(dir, "Journal.1.log")
	appendLines(t, path, jumpLine+"\n")

	offsets := newMemOffsets()
	_ = offsets.SetOffset("Journal.1.log", 100000)
	var c collector
	_ = Sync(fs, offsets, quietLogger(), c.handle)
	if c.len() != 1 {
		t.Errorf("events = %d, want 1 after truncation", c.len())
	}
}
