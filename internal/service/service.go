// Package service coordinates the event store and the scan tree engine. It is
// the single ingest path shared by the journal watcher, the HTTP API and
// start-up replay.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/starford/orrery/internal/apperr"
	"github.com/starford/orrery/internal/journal"
	"github.com/starford/orrery/internal/parser"
	"github.com/starford/orrery/internal/scantree"
	"github.com/starford/orrery/internal/store"
)

// IngestResult reports what happened to one ingested record.
type IngestResult struct {
	Kind    journal.Kind `json:"kind"`
	Outcome string       `json:"outcome"` // attached, deferred, rejected or duplicate
	Stored  bool         `json:"stored"`
	Error   string       `json:"error,omitempty"`
}

// OutcomeDuplicate marks a record that was already in the event log.
const OutcomeDuplicate = "duplicate"

// Service coordinates persistence and tree operations.
type Service struct {
	engine *scantree.Engine
	events store.EventLog
	logger *slog.Logger
}

// NewService creates a new service over an engine and its event log.
func NewService(engine *scantree.Engine, events store.EventLog, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{engine: engine, events: events, logger: logger}
}

// Engine returns the underlying scan tree engine.
func (s *Service) Engine() *scantree.Engine { return s.engine }

// Ingest decodes one raw journal record, persists it and applies it to the
// tree. Records already in the event log are reported as duplicates and not
// applied again.
func (s *Service) Ingest(_ context.Context, raw []byte) (*IngestResult, error) {
	ev, err := journal.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrInvalid, err)
	}
	return s.apply(ev, raw, "")
}

// HandleJournal implements journal.Handler for tailed journal files.
func (s *Service) HandleJournal(ev journal.Event, raw []byte) error {
	_, err := s.apply(ev, raw, "")
	if errors.Is(err, apperr.ErrInvalid) || errors.Is(err, apperr.ErrConflict) {
		// already logged by the engine
		return nil
	}
	return err
}

func (s *Service) apply(ev journal.Event, raw []byte, batch string) (*IngestResult, error) {
	rec := store.Record{
		Kind:    string(ev.EventKind()),
		Payload: raw,
		Batch:   batch,
	}
	rec.System, rec.Address = systemOf(ev)
	if sc, ok := ev.(*journal.Scan); ok {
		rec.Source = sc.Source.String()
	}

	stored, err := s.events.Append(rec)
	if err != nil {
		return nil, fmt.Errorf("service: persist: %w", err)
	}
	res := &IngestResult{Kind: ev.EventKind(), Stored: stored}
	if !stored {
		res.Outcome = OutcomeDuplicate
		return res, nil
	}

	out, err := s.engine.Process(ev, scantree.SystemInfo{})
	res.Outcome = out.String()
	if err != nil {
		res.Error = err.Error()
		return res, classify(err)
	}
	return res, nil
}

// classify maps engine rejections onto application errors.
func classify(err error) error {
	switch {
	case errors.Is(err, scantree.ErrRenameCollision):
		return fmt.Errorf("%w: %v", apperr.ErrConflict, err)
	case errors.Is(err, parser.ErrUnparseable),
		errors.Is(err, journal.ErrUnsupported),
		errors.Is(err, scantree.ErrNilEvent):
		return fmt.Errorf("%w: %v", apperr.ErrInvalid, err)
	}
	return fmt.Errorf("service: process: %w", err)
}

// systemOf extracts the system name and address an event names, for
// indexing the event log.
func systemOf(ev journal.Event) (string, *int64) {
	switch v := ev.(type) {
	case *journal.Scan:
		return v.StarSystem, v.SystemAddress
	case *journal.Journey:
		return v.StarSystem, v.SystemAddress
	case *journal.ApproachBody:
		return v.StarSystem, v.SystemAddress
	case *journal.Touchdown:
		return v.StarSystem, v.SystemAddress
	case *journal.ScanBaryCentre:
		addr := v.SystemAddress
		return v.StarSystem, &addr
	case *journal.ScanOrganic:
		addr := v.SystemAddress
		return "", &addr
	case *journal.CodexEntry:
		return v.System, v.SystemAddress
	case *journal.FSSDiscoveryScan:
		return v.SystemName, v.SystemAddress
	case *journal.SAASignalsFound:
		return "", v.SystemAddress
	case *journal.FSSBodySignals:
		return "", v.SystemAddress
	case *journal.FSSSignalDiscovered:
		return "", v.SystemAddress
	case *journal.SAAScanComplete:
		return "", v.SystemAddress
	}
	return "", nil
}

// Systems lists every known system.
func (s *Service) Systems(_ context.Context) []scantree.SystemInfo {
	return s.engine.Systems()
}

// System returns the tree of the system named by key (an address or a name).
func (s *Service) System(_ context.Context, key string) (*scantree.SystemView, error) {
	v, ok := s.engine.Tree(scantree.ParseKey(key))
	if !ok {
		return nil, fmt.Errorf("system %q: %w", key, apperr.ErrNotFound)
	}
	return v, nil
}

// Stats aggregates counts and value for one system.
func (s *Service) Stats(_ context.Context, key string, includeWeb bool) (*scantree.Stats, error) {
	st, ok := s.engine.Stats(scantree.ParseKey(key), includeWeb)
	if !ok {
		return nil, fmt.Errorf("system %q: %w", key, apperr.ErrNotFound)
	}
	return &st, nil
}

// Barycentres returns the reconciled display tree for one system.
func (s *Service) Barycentres(_ context.Context, key string) ([]*scantree.NodeView, error) {
	out, ok := s.engine.BarycentreTree(scantree.ParseKey(key))
	if !ok {
		return nil, fmt.Errorf("system %q: %w", key, apperr.ErrNotFound)
	}
	return out, nil
}

// FindBody looks a body up by full name or, when custom is set, by its
// custom name.
func (s *Service) FindBody(_ context.Context, key, name string, custom bool) (*scantree.NodeView, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", apperr.ErrInvalid)
	}
	sys := scantree.ParseKey(key)
	if s.engine.FindSystem(sys) == nil {
		return nil, fmt.Errorf("system %q: %w", key, apperr.ErrNotFound)
	}
	var (
		v  *scantree.NodeView
		ok bool
	)
	if custom {
		v, ok = s.engine.FindNodeByCustomName(sys, name)
	} else {
		v, ok = s.engine.FindNodeByFullName(sys, name)
	}
	if !ok {
		return nil, fmt.Errorf("body %q: %w", name, apperr.ErrNotFound)
	}
	return v, nil
}

// Pending returns the deferred queue size by event kind.
func (s *Service) Pending(_ context.Context) map[journal.Kind]int {
	return s.engine.Pending()
}
