// Package storage defines read access to the game's journal directory.
package storage

import "time"

// FileMeta describes one journal file.
type FileMeta struct {
	Name    string // file name relative to the journal root
	Size    int64
	ModTime time.Time
}

// Provider is the interface for journal file access.
type Provider interface {
	// List returns every journal file under the root, oldest first.
	List() ([]FileMeta, error)
	// Stat returns metadata for one journal file.
	Stat(name string) (FileMeta, error)
	// ReadFrom returns the bytes of name starting at offset.
	ReadFrom(name string, offset int64) ([]byte, error)
}
