package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/starford/orrery/internal/apperr"
	"github.com/starford/orrery/internal/journal"
	"github.com/starford/orrery/internal/scantree"
	"github.com/starford/orrery/internal/store"
)

// importWorkers bounds how many systems of one import are merged at once.
const importWorkers = 4

// ImportResult summarises one bulk import of web-sourced bodies.
type ImportResult struct {
	Batch    string   `json:"batch"`
	Received int      `json:"received"`
	Stored   int      `json:"stored"`
	Attached int      `json:"attached"`
	Deferred int      `json:"deferred"`
	Rejected int      `json:"rejected"`
	Errors   []string `json:"errors,omitempty"`
}

func (r *ImportResult) add(out scantree.Outcome, err error) {
	switch out {
	case scantree.Attached:
		r.Attached++
	case scantree.Deferred:
		r.Deferred++
	case scantree.Rejected:
		r.Rejected++
		if err != nil {
			r.Errors = append(r.Errors, err.Error())
		}
	}
}

// ImportBodies persists a batch of scans from a web catalogue and merges them
// into their systems. Scans that do not name their own system are assigned
// to sys. Systems are merged concurrently; scans of one system in order.
func (s *Service) ImportBodies(ctx context.Context, sys scantree.SystemInfo, source journal.DataSource, scans []*journal.Scan) (*ImportResult, error) {
	if !source.IsWeb() {
		return nil, fmt.Errorf("%w: source %q is not a web catalogue", apperr.ErrInvalid, source)
	}
	if len(scans) == 0 {
		return nil, fmt.Errorf("%w: no bodies", apperr.ErrInvalid)
	}

	res := &ImportResult{Batch: uuid.NewString(), Received: len(scans)}
	recs := make([]store.Record, 0, len(scans))
	groups := make(map[string][]*journal.Scan)
	var order []string

	for i, sc := range scans {
		if sc == nil || strings.TrimSpace(sc.BodyName) == "" {
			return nil, fmt.Errorf("%w: body %d has no name", apperr.ErrInvalid, i)
		}
		sc.Event = journal.KindScan
		sc.Source = source
		if sc.StarSystem == "" {
			sc.StarSystem = sys.Name
		}
		if sc.SystemAddress == nil {
			sc.SystemAddress = sys.Address
		}
		if sc.StarSystem == "" && sc.SystemAddress == nil {
			return nil, fmt.Errorf("%w: body %q has no system", apperr.ErrInvalid, sc.BodyName)
		}

		raw, err := journal.Encode(sc)
		if err != nil {
			return nil, fmt.Errorf("service: import: %w", err)
		}
		recs = append(recs, store.Record{
			Kind:    string(journal.KindScan),
			System:  sc.StarSystem,
			Address: sc.SystemAddress,
			Source:  source.String(),
			Batch:   res.Batch,
			Payload: raw,
		})

		k := groupKey(sc)
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], sc)
	}

	stored, err := s.events.AppendBatch(recs)
	if err != nil {
		return nil, fmt.Errorf("service: import: %w", err)
	}
	res.Stored = stored

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(importWorkers)
	for _, k := range order {
		group := groups[k]
		g.Go(func() error {
			for _, sc := range group {
				if err := gctx.Err(); err != nil {
					return err
				}
				out, err := s.engine.Process(sc, scantree.SystemInfo{Name: sc.StarSystem, Address: sc.SystemAddress})
				mu.Lock()
				res.add(out, err)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("service: import: %w", err)
	}

	s.logger.Info("service: bodies imported",
		slog.String("batch", res.Batch),
		slog.String("source", source.String()),
		slog.Int("received", res.Received),
		slog.Int("stored", res.Stored),
		slog.Int("attached", res.Attached))
	return res, nil
}

func groupKey(sc *journal.Scan) string {
	if sc.SystemAddress != nil {
		return strconv.FormatInt(*sc.SystemAddress, 10)
	}
	return strings.ToLower(sc.StarSystem)
}
