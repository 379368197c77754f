package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Journal files are named Journal.<timestamp>.<part>.log, so lexical order
// is chronological.
const (
	journalPrefix = "Journal."
	journalSuffix = ".log"
)

// IsJournal reports whether a file name looks like a game journal.
func IsJournal(name string) bool {
	base := filepath.Base(name)
	return strings.HasPrefix(base, journalPrefix) && strings.HasSuffix(base, journalSuffix)
}

// FS implements Provider backed by the local file system.
type FS struct {
	root string // absolute path to the journal directory
}

// NewFS creates a new FS provider rooted at the given directory.
// The directory must already exist.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	return &FS{root: abs}, nil
}

// Root returns the absolute journal directory.
func (f *FS) Root() string { return f.root }

// safePath resolves a file name against the root and rejects anything that
// is not a journal file directly inside it.
func (f *FS) safePath(name string) (string, error) {
	cleaned := filepath.Clean(name)
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("storage: absolute paths not allowed: %s", name)
	}
	if cleaned != filepath.Base(cleaned) || cleaned == ".." {
		return "", fmt.Errorf("storage: path escapes journal root: %s", name)
	}
	if !IsJournal(cleaned) {
		return "", fmt.Errorf("storage: not a journal file: %s", name)
	}
	return filepath.Join(f.root, cleaned), nil
}

// List returns metadata for every journal file in the root, sorted by name.
func (f *FS) List() ([]FileMeta, error) {
	entries, err := os.ReadDir(f.root)
	if err != nil {
		return nil, fmt.Errorf("storage: list: %w", err)
	}
	var out []FileMeta
	for _, e := range entries {
		if e.IsDir() || !IsJournal(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("storage: list: %w", err)
		}
		out = append(out, FileMeta{Name: e.Name(), Size: info.Size(), ModTime: info.ModTime()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Stat returns metadata for a single journal file.
func (f *FS) Stat(name string) (FileMeta, error) {
	abs, err := f.safePath(name)
	if err != nil {
		return FileMeta{}, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return FileMeta{}, fmt.Errorf("storage: stat %s: %w", name, err)
	}
	return FileMeta{Name: filepath.Base(abs), Size: info.Size(), ModTime: info.ModTime()}, nil
}

// ReadFrom returns the content of name from offset to the current end of file.
func (f *FS) ReadFrom(name string, offset int64) ([]byte, error) {
	abs, err := f.safePath(name)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", name, err)
	}
	defer file.Close()

	if offset > 0 {
		if _, err := file.Seek(offset, io.SeekStart); err != nil {
			return nil, fmt.Errorf("storage: seek %s: %w", name, err)
		}
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", name, err)
	}
	return data, nil
}
