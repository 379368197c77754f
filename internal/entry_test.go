package internal

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const (
	jumpSol = `{"timestamp":"3310-05-01T12:00:00Z","event":"FSDJump","StarSystem":"Sol","SystemAddress":10477373803,"StarPos":[0,0,0]}`
	scanSol = `{"timestamp":"3310-05-01T12:01:00Z","event":"Scan","ScanType":"Detailed","StarSystem":"Sol","SystemAddress":10477373803,"BodyName":"Sol","BodyID":0,"StarType":"G","DistanceFromArrivalLS":0}`
)

func TestReplay_RequiresConfig(t *testing.T) {
	if _, err := Replay(context.Background()); err == nil {
		t.Fatal("Replay without config should fail")
	}
}

func TestReplay_StoresJournalBetweenRuns(t *testing.T) {
	dir := t.TempDir()
	journalDir := filepath.Join(dir, "journal")
	if err := os.Mkdir(journalDir, 0o755); err != nil {
		t.Fatal(err)
	}
	content := strings.Join([]string{jumpSol, scanSol}, "\n") + "\n"
	if err := os.WriteFile(filepath.Join(journalDir, "Journal.2026-01-10T120000.01.log"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := NewDefaultConfig()
	cfg.SQLite.Path = filepath.Join(dir, "orrery.db")
	cfg.Journal.Dir = journalDir
	opts := []Option{WithConfig(cfg), WithLogOutput(io.Discard)}

	first, err := Replay(context.Background(), opts...)
	if err != nil {
		t.Fatalf("first Replay: %v", err)
	}
	if first.Events != 0 {
		t.Errorf("first run replayed %d events from an empty store", first.Events)
	}

	second, err := Replay(context.Background(), opts...)
	if err != nil {
		t.Fatalf("second Replay: %v", err)
	}
	if second.Events != 2 || second.Attached != 2 {
		t.Errorf("second run = %+v, want 2 events attached", second)
	}
}
