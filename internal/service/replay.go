package service

import (
	"context"
	"log/slog"

	"github.com/starford/orrery/internal/journal"
	"github.com/starford/orrery/internal/scantree"
	"github.com/starford/orrery/internal/store"
)

// ReplayStats summarises a start-up replay of the event log.
type ReplayStats struct {
	Events   int `json:"events"`
	Attached int `json:"attached"`
	Deferred int `json:"deferred"`
	Rejected int `json:"rejected"`
	Skipped  int `json:"skipped"`
}

// Replay rebuilds the tree from the event log in insertion order. Journal
// records are bound the way they were at arrival time, through the journey
// history; web records keep the system they were imported for.
func (s *Service) Replay(ctx context.Context) (*ReplayStats, error) {
	st := &ReplayStats{}
	err := s.events.Each(func(rec store.Record) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		st.Events++

		ev, err := journal.Decode(rec.Payload)
		if err != nil {
			st.Skipped++
			s.logger.Warn("service: replay skipped record",
				slog.Int64("seq", rec.Seq), slog.String("error", err.Error()))
			return nil
		}

		var sys scantree.SystemInfo
		if src, _ := journal.ParseDataSource(rec.Source); src.IsWeb() {
			sys = scantree.SystemInfo{Name: rec.System, Address: rec.Address}
		}
		out, _ := s.engine.Process(ev, sys)
		switch out {
		case scantree.Attached:
			st.Attached++
		case scantree.Deferred:
			st.Deferred++
		case scantree.Rejected:
			st.Rejected++
		}
		return nil
	})
	if err != nil {
		return st, err
	}

	s.logger.Info("service: replay complete",
		slog.Int("events", st.Events),
		slog.Int("attached", st.Attached),
		slog.Int("deferred", st.Deferred),
		slog.Int("rejected", st.Rejected))
	return st, nil
}
