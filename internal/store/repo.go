package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/orrery/internal/checksum"
)

// Record is one persisted journal event.
type Record struct {
	Seq        int64
	Hash       string
	Kind       string
	System     string
	Address    *int64
	Source     string
	Batch      string
	Payload    []byte
	RecordedAt time.Time
}

func (r *Record) normalise() error {
	if len(r.Payload) == 0 {
		return fmt.Errorf("store: empty payload")
	}
	if r.Kind == "" {
		return fmt.Errorf("store: missing kind")
	}
	if r.Hash == "" {
		r.Hash = checksum.Record(r.Payload)
	}
	if r.Source == "" {
		r.Source = "journal"
	}
	if r.RecordedAt.IsZero() {
		r.RecordedAt = time.Now().UTC()
	}
	return nil
}

const insertEventSQL = `
	INSERT OR IGNORE INTO events (hash, kind, system, address, source, batch, payload, recorded_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

// Append stores rec unless an event with the same payload hash is already
// present. It reports whether a row was inserted.
func (db *DB) Append(rec Record) (bool, error) {
	if err := rec.normalise(); err != nil {
		return false, err
	}
	res, err := db.conn.Exec(insertEventSQL,
		rec.Hash, rec.Kind, rec.System, rec.Address, rec.Source, rec.Batch, rec.Payload, rec.RecordedAt)
	if err != nil {
		return false, fmt.Errorf("store: append: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("store: append: %w", err)
	}
	return n > 0, nil
}

// AppendBatch stores recs in one transaction and returns how many were new.
func (db *DB) AppendBatch(recs []Record) (int, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return 0, fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	stmt, err := tx.Prepare(insertEventSQL)
	if err != nil {
		return 0, fmt.Errorf("store: prepare insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for i := range recs {
		rec := &recs[i]
		if err := rec.normalise(); err != nil {
			return 0, err
		}
		res, err := stmt.Exec(rec.Hash, rec.Kind, rec.System, rec.Address, rec.Source, rec.Batch, rec.Payload, rec.RecordedAt)
		if err != nil {
			return 0, fmt.Errorf("store: insert event: %w", err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("store: commit: %w", err)
	}
	return inserted, nil
}

// Each calls fn for every stored event in insertion order. Iteration stops
// at the first error fn returns.
func (db *DB) Each(fn func(Record) error) error {
	rows, err := db.conn.Query(`
		SELECT seq, hash, kind, system, address, source, batch, payload, recorded_at
		FROM events ORDER BY seq`)
	if err != nil {
		return fmt.Errorf("store: each: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			rec     Record
			address sql.NullInt64
		)
		if err := rows.Scan(&rec.Seq, &rec.Hash, &rec.Kind, &rec.System, &address,
			&rec.Source, &rec.Batch, &rec.Payload, &rec.RecordedAt); err != nil {
			return fmt.Errorf("store: scan event: %w", err)
		}
		if address.Valid {
			a := address.Int64
			rec.Address = &a
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Count returns the number of stored events.
func (db *DB) Count() (int, error) {
	var n int
	if err := db.conn.QueryRow(`SELECT count(*) FROM events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("store: count: %w", err)
	}
	return n, nil
}

// CountBatch returns the number of events recorded under an import batch id.
func (db *DB) CountBatch(batch string) (int, error) {
	var n int
	if err := db.conn.QueryRow(`SELECT count(*) FROM events WHERE batch = ?`, batch).Scan(&n); err != nil {
		return 0, fmt.Errorf("store: count batch: %w", err)
	}
	return n, nil
}

// Offset returns the byte offset already consumed from a journal file, or 0
// when the file has not been read yet.
func (db *DB) Offset(file string) (int64, error) {
	var off int64
	err := db.conn.QueryRow(`SELECT position FROM journal_offsets WHERE file = ?`, file).Scan(&off)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("store: offset: %w", err)
	}
	return off, nil
}

// SetOffset records the byte offset consumed from a journal file.
func (db *DB) SetOffset(file string, offset int64) error {
	_, err := db.conn.Exec(`
		INSERT INTO journal_offsets (file, position, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(file) DO UPDATE SET
			position   = excluded.position,
			updated_at = excluded.updated_at
	`, file, offset, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("store: set offset: %w", err)
	}
	return nil
}
