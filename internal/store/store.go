package store

// EventLog defines the persistence operations the service depends on.
// Consumers should depend on this interface rather than the concrete *DB type.
type EventLog interface {
	Append(rec Record) (bool, error)
	AppendBatch(recs []Record) (int, error)
	Each(fn func(Record) error) error
	Count() (int, error)
	CountBatch(batch string) (int, error)
	Offset(file string) (int64, error)
	SetOffset(file string, offset int64) error
	Close() error
}

// Verify *DB satisfies EventLog at compile time.
var _ EventLog = (*DB)(nil)
