package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func tempJournalDir(t *testing.T) (string, *FS) {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return dir, fs
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestListOnlyJournalsSorted(t *testing.T) {
	dir, s := tempJournalDir(t)
	writeFile(t, dir, "Journal.2026-10-19T120000.01.log", "b")
	writeFile(t, dir, "Journal.2026-10-18T090000.01.log", "a")
	writeFile(t, dir, "Status.json", "{}")
	writeFile(t, dir, "notes.log", "x")
	if err := os.Mkdir(filepath.Join(dir, "Journal.dir.log"), 0o755); err != nil {
		t.Fatal(err)
	}

	items, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2: %+v", len(items), items)
	}
	if items[0].Name != "Journal.2026-10-18T090000.01.log" || items[0].Size != 1 {
		t.Errorf("first = %+v", items[0])
	}
}

func TestReadFromOffset(t *testing.T) {
	dir, s := tempJournalDir(t)
	writeFile(t, dir, "Journal.1.log", "line one\nline two\n")

	got, err := s.ReadFrom("Journal.1.log", 9)
	if err != nil {
		t.Fatalf("ReadFrom: %v", err)
	}
	if string(got) != "line two\n" {
		t.Errorf("content = %q", got)
	}

	all, _ := s.ReadFrom("Journal.1.log", 0)
	if len(all) != 18 {
		t.Errorf("full read = %d bytes", len(all))
	}

	meta, err := s.Stat("Journal.1.log")
	if err != nil || meta.Size != 18 {
		t.Errorf("Stat = %+v, %v", meta, err)
	}
}

func TestTraversalBlocked(t *testing.T) {
	_, s := tempJournalDir(t)

	cases := []string{
		"../../etc/passwd",
		"../Journal.outside.log",
		"/etc/Journal.x.log",
		"sub/Journal.1.log",
		"Status.json",
	}
	for _, p := range cases {
		if _, err := s.ReadFrom(p, 0); err == nil {
			t.Errorf("expected error for path %q", p)
		}
	}
}

func TestIsJournal(t *testing.T) {
	if !IsJournal("/x/Journal.2026-10-19T101010.01.log") {
		t.Error("journal path rejected")
	}
	if IsJournal("JournalArchive.zip") || IsJournal("Cargo.json") {
		t.Error("non-journal accepted")
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	_, err := NewFS("/tmp/orrery-does-not-exist-" + t.Name())
	if err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "orrery-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	_, err := NewFS(f.Name())
	if err == nil {
		t.Error("expected error when root is a file")
	}
}
