// Package testutil provides shared test helpers for setting up journal
// directories and event stores.
package testutil

import (
	"log/slog"
	"os"
	"testing"

	"github.com/starford/orrery/internal/storage"
	"github.com/starford/orrery/internal/store"
)

// TestDB creates a temporary SQLite event store that is automatically cleaned up.
func TestDB(t *testing.T) *store.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "orrery-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := store.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestJournalDir creates a temporary journal directory with a storage.Provider.
func TestJournalDir(t *testing.T) (string, storage.Provider) {
	t.Helper()
	dir := t.TempDir()
	files, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, files
}

// Logger returns a logger that only reports errors.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}
