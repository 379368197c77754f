package scantree

import (
	"log/slog"
	"sync"

	"github.com/starford/orrery/internal/journal"
	"github.com/starford/orrery/internal/parser"
)

type pendingEntry struct {
	kind   journal.Kind
	event  journal.Event
	system SystemInfo
}

// pendingQueue holds events whose target does not exist yet. It is unbounded
// and entries never expire: trees only grow, so they stay valid.
type pendingQueue struct {
	mu      sync.Mutex
	entries []pendingEntry
}

func (q *pendingQueue) push(p pendingEntry) {
	q.mu.Lock()
	q.entries = append(q.entries, p)
	q.mu.Unlock()
}

func (q *pendingQueue) take() []pendingEntry {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.entries
	q.entries = nil
	return out
}

// restore puts entries back ahead of anything queued since take.
func (q *pendingQueue) restore(keep []pendingEntry) {
	if len(keep) == 0 {
		return
	}
	q.mu.Lock()
	q.entries = append(keep, q.entries...)
	q.mu.Unlock()
}

func (q *pendingQueue) counts() map[journal.Kind]int {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make(map[journal.Kind]int)
	for _, p := range q.entries {
		out[p.kind]++
	}
	return out
}

// Pending returns the number of deferred events per kind.
func (e *Engine) Pending() map[journal.Kind]int {
	return e.pending.counts()
}

// replayPending retries every deferred event once. Entries attached by the
// retry are dropped; if any retry created nodes the queue is scanned again.
func (e *Engine) replayPending() {
	e.replayMu.Lock()
	defer e.replayMu.Unlock()

	for {
		entries := e.pending.take()
		if len(entries) == 0 {
			return
		}

		var keep []pendingEntry
		created := 0
		for _, p := range entries {
			r := e.attach(p.event, e.rebind(p.event, p.system), false)
			switch r.outcome {
			case Deferred:
				keep = append(keep, p)
			case Rejected:
				e.logger.Warn("scantree: deferred event rejected",
					slog.String("kind", string(p.kind)),
					slog.String("error", errString(r.err)))
			case Attached:
				created += r.created
				if e.notify != nil {
					e.notify(Change{System: r.system, Kind: p.kind, Created: r.created, Replayed: true})
				}
			}
		}
		e.pending.restore(keep)
		if created == 0 {
			return
		}
	}
}

// rebind retries the system binding of an event deferred without one. A body
// name that starts with a visited system's name wins; otherwise the event
// gets the arrival-time binding against the current history.
func (e *Engine) rebind(ev journal.Event, sys SystemInfo) SystemInfo {
	if sys.Known() {
		return sys
	}
	if _, ok := ev.(*journal.Scan); ok {
		return sys
	}
	if name := bodyNameOf(ev); name != "" {
		history := e.History()
		for i := len(history) - 1; i >= 0; i-- {
			if parser.Related(name, history[i].System.Name) {
				return history[i].System
			}
		}
	}
	return e.bind(ev, sys)
}

func bodyNameOf(ev journal.Event) string {
	switch v := ev.(type) {
	case *journal.SAASignalsFound:
		return v.BodyName
	case *journal.FSSBodySignals:
		return v.BodyName
	case *journal.SAAScanComplete:
		return v.BodyName
	case *journal.ApproachBody:
		return v.Body
	case *journal.Touchdown:
		return v.Body
	}
	return ""
}

func kindOf(ev journal.Event) journal.Kind {
	switch ev.(type) {
	case *journal.Scan:
		return journal.KindScan
	case *journal.SAASignalsFound:
		return journal.KindSAASignalsFound
	case *journal.FSSBodySignals:
		return journal.KindFSSBodySignals
	case *journal.ScanOrganic:
		return journal.KindScanOrganic
	case *journal.SAAScanComplete:
		return journal.KindSAAScanComplete
	case *journal.CodexEntry:
		return journal.KindCodexEntry
	case *journal.ApproachBody:
		return journal.KindApproachBody
	case *journal.Touchdown:
		return journal.KindTouchdown
	case *journal.ScanBaryCentre:
		return journal.KindScanBaryCentre
	case *journal.FSSDiscoveryScan:
		return journal.KindFSSDiscoveryScan
	case *journal.FSSSignalDiscovered:
		return journal.KindFSSSignalDiscovered
	}
	return ev.EventKind()
}
