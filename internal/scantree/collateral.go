package scantree

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/starford/orrery/internal/journal"
)

// Process offers one event to the engine. sys may be empty, in which case the
// binding is taken from the event and then from the most recent journey.
func (e *Engine) Process(ev journal.Event, sys SystemInfo) (Outcome, error) {
	if ev == nil {
		return Rejected, ErrNilEvent
	}
	if sc, ok := ev.(*journal.Scan); ok && sc == nil {
		return Rejected, ErrNilEvent
	}
	if j, ok := ev.(*journal.Journey); ok {
		if j == nil {
			return Rejected, ErrNilEvent
		}
		e.ProcessJourney(j)
		// Scans waiting for any history may resolve now.
		e.replayPending()
		return Attached, nil
	}

	kind := kindOf(ev)
	r := e.attach(ev, e.bind(ev, sys), true)
	switch r.outcome {
	case Rejected:
		e.logger.Warn("scantree: event rejected",
			slog.String("kind", string(kind)),
			slog.String("error", errString(r.err)))
	case Deferred:
		e.logger.Debug("scantree: event deferred", slog.String("kind", string(kind)))
	}
	e.afterAttach(r, kind)
	return r.outcome, r.err
}

// bind resolves the system an event belongs to at arrival time.
func (e *Engine) bind(ev journal.Event, sys SystemInfo) SystemInfo {
	if sys.Known() {
		return sys
	}
	var info SystemInfo
	switch v := ev.(type) {
	case *journal.Scan:
		// Scans go through the best-system resolver instead.
		return SystemInfo{Name: v.StarSystem, Address: v.SystemAddress}
	case *journal.SAASignalsFound:
		info.Address = v.SystemAddress
	case *journal.FSSBodySignals:
		info.Address = v.SystemAddress
	case *journal.SAAScanComplete:
		info.Address = v.SystemAddress
	case *journal.ScanOrganic:
		addr := v.SystemAddress
		info.Address = &addr
	case *journal.ApproachBody:
		info = SystemInfo{Name: v.StarSystem, Address: v.SystemAddress}
	case *journal.Touchdown:
		info = SystemInfo{Name: v.StarSystem, Address: v.SystemAddress}
	case *journal.CodexEntry:
		info = SystemInfo{Name: v.System, Address: v.SystemAddress}
	case *journal.ScanBaryCentre:
		addr := v.SystemAddress
		info = SystemInfo{Name: v.StarSystem, Address: &addr}
	case *journal.FSSDiscoveryScan:
		info = SystemInfo{Name: v.SystemName, Address: v.SystemAddress}
	case *journal.FSSSignalDiscovered:
		info.Address = v.SystemAddress
	}
	if info.Known() {
		return info
	}
	if cur, ok := e.Current(); ok {
		return cur
	}
	return SystemInfo{}
}

// attach runs the kind-specific attach routine. When queue is set, events
// whose target does not exist yet are pushed onto the deferred queue while
// the lock that proved their absence is still held.
func (e *Engine) attach(ev journal.Event, sys SystemInfo, queue bool) attachResult {
	switch v := ev.(type) {
	case *journal.Scan:
		return e.attachScan(v, sys, queue)

	case *journal.SAASignalsFound:
		return e.withNode(ev, sys, v.BodyID, v.BodyName, queue, func(n *ScanNode) {
			for _, s := range v.Signals {
				n.signals = mergeSignal(n.signals, s)
			}
			for _, g := range v.Genuses {
				n.genuses = mergeGenus(n.genuses, g)
			}
		})

	case *journal.FSSBodySignals:
		return e.withNode(ev, sys, v.BodyID, v.BodyName, queue, func(n *ScanNode) {
			for _, s := range v.Signals {
				n.signals = mergeSignal(n.signals, s)
			}
		})

	case *journal.ScanOrganic:
		body := v.Body
		return e.withNode(ev, sys, &body, "", queue, func(n *ScanNode) {
			n.organics = mergeOrganic(n.organics, journal.Organic{
				ScanType: v.ScanType,
				Genus:    v.Genus,
				Species:  v.Species,
				Variant:  v.Variant,
				Time:     v.Timestamp,
			})
		})

	case *journal.SAAScanComplete:
		return e.withNode(ev, sys, v.BodyID, v.BodyName, queue, func(n *ScanNode) {
			n.mapped = true
			n.efficientlyMapped = n.efficientlyMapped || v.Efficient()
		})

	case *journal.CodexEntry:
		return e.attachCodex(v, sys, queue)

	case *journal.ApproachBody:
		return e.attachSurface(ev, sys, v.Body, v.BodyID, journal.SurfaceFeature{
			Kind: journal.KindApproachBody,
			Name: v.Body,
			Time: v.Timestamp,
		}, queue)

	case *journal.Touchdown:
		return e.attachSurface(ev, sys, v.Body, v.BodyID, journal.SurfaceFeature{
			Kind:      journal.KindTouchdown,
			Name:      v.NearestDestination,
			Latitude:  v.Latitude,
			Longitude: v.Longitude,
			Time:      v.Timestamp,
		}, queue)

	case *journal.ScanBaryCentre:
		return e.withSystem(ev, sys, queue, func(sn *SystemNode) {
			b := *v
			sn.barycentres[v.BodyID] = &b
		})

	case *journal.FSSDiscoveryScan:
		return e.withSystem(ev, sys, queue, func(sn *SystemNode) {
			bodies, others := v.BodyCount, v.NonBodyCount
			sn.fssBodyCount = &bodies
			sn.fssNonBodyCount = &others
		})

	case *journal.FSSSignalDiscovered:
		return e.withSystem(ev, sys, queue, func(sn *SystemNode) {
			for _, s := range sn.fssSignals {
				if s.SignalName == v.SignalName && s.SignalType == v.SignalType {
					return
				}
			}
			sn.fssSignals = append(sn.fssSignals, *v)
		})
	}
	return attachResult{
		outcome: Rejected,
		err:     fmt.Errorf("%w: %s", journal.ErrUnsupported, kindOf(ev)),
	}
}

func (e *Engine) postpone(ev journal.Event, sys SystemInfo, queue bool) attachResult {
	if queue {
		e.pending.push(pendingEntry{kind: kindOf(ev), event: ev, system: sys})
	}
	return attachResult{outcome: Deferred, system: sys}
}

// withNode applies fn to an existing node under the system read lock and the
// node lock. Topology is not changed.
func (e *Engine) withNode(ev journal.Event, sys SystemInfo, id *int, name string, queue bool, fn func(*ScanNode)) attachResult {
	if !sys.Known() {
		return e.postpone(ev, sys, queue)
	}

	e.mu.RLock()
	sn := e.lookupLocked(sys)
	if sn == nil {
		r := e.postpone(ev, sys, queue)
		e.mu.RUnlock()
		return r
	}
	sn.mu.RLock()
	e.mu.RUnlock()
	defer sn.mu.RUnlock()

	n := sn.lookup(id, name)
	if n == nil {
		return e.postpone(ev, sys, queue)
	}
	n.mu.Lock()
	fn(n)
	n.mirrorToScan()
	n.mu.Unlock()
	return attachResult{outcome: Attached, system: sn.System}
}

// withSystem applies fn to the system node, creating it if needed.
func (e *Engine) withSystem(ev journal.Event, sys SystemInfo, queue bool, fn func(*SystemNode)) attachResult {
	if !sys.Known() {
		return e.postpone(ev, sys, queue)
	}
	sn := e.GetOrCreateSystem(sys)
	sn.mu.Lock()
	defer sn.mu.Unlock()
	fn(sn)
	return attachResult{outcome: Attached, system: sn.System}
}

// attachSurface records an approach or touchdown. The body is created from
// its name when no scan has placed it yet.
func (e *Engine) attachSurface(ev journal.Event, sys SystemInfo, body string, id *int, f journal.SurfaceFeature, queue bool) attachResult {
	if !sys.Known() {
		return e.postpone(ev, sys, queue)
	}
	sn := e.GetOrCreateSystem(sys)
	sn.mu.Lock()
	defer sn.mu.Unlock()

	created := 0
	n := sn.lookup(id, body)
	if n == nil {
		res, err := e.rules.ParseBody(body, sn.System.Name, e.primaryFor(sn))
		if err != nil {
			return attachResult{outcome: Rejected, err: err, system: sn.System}
		}
		n, created = e.place(sn, res, nil)
		if res.CustomName != "" && n.CustomName == "" {
			n.CustomName = res.CustomName
		}
	}
	if id != nil && n.BodyID == nil {
		if _, taken := sn.byID[*id]; !taken {
			sn.index(n, *id)
		}
	}

	n.mu.Lock()
	n.surfaceFeatures = mergeFeature(n.surfaceFeatures, f)
	n.mirrorToScan()
	n.mu.Unlock()
	return attachResult{outcome: Attached, created: created, system: sn.System}
}

// attachCodex records a codex entry on its system and, when body-scoped, on
// the body. Both records are deduplicated so a replay is harmless.
func (e *Engine) attachCodex(v *journal.CodexEntry, sys SystemInfo, queue bool) attachResult {
	if !sys.Known() {
		return e.postpone(v, sys, queue)
	}
	sn := e.GetOrCreateSystem(sys)
	sn.mu.Lock()
	defer sn.mu.Unlock()

	sn.codex = mergeCodex(sn.codex, *v)
	if v.BodyID == nil {
		return attachResult{outcome: Attached, system: sn.System}
	}
	n, ok := sn.byID[*v.BodyID]
	if !ok {
		return e.postpone(v, sys, queue)
	}
	n.mu.Lock()
	n.codex = mergeCodex(n.codex, *v)
	n.mu.Unlock()
	return attachResult{outcome: Attached, system: sn.System}
}

func mergeSignal(list []journal.Signal, s journal.Signal) []journal.Signal {
	for i := range list {
		if strings.EqualFold(list[i].Type, s.Type) {
			list[i] = s
			return list
		}
	}
	return append(list, s)
}

func mergeGenus(list []journal.Genus, g journal.Genus) []journal.Genus {
	for _, have := range list {
		if have.Genus == g.Genus {
			return list
		}
	}
	return append(list, g)
}

func mergeOrganic(list []journal.Organic, o journal.Organic) []journal.Organic {
	for _, have := range list {
		if have.Species == o.Species && have.ScanType == o.ScanType && have.Time.Equal(o.Time) {
			return list
		}
	}
	return append(list, o)
}

func mergeFeature(list []journal.SurfaceFeature, f journal.SurfaceFeature) []journal.SurfaceFeature {
	for _, have := range list {
		if have.Kind == f.Kind && have.Time.Equal(f.Time) {
			return list
		}
	}
	return append(list, f)
}

func mergeCodex(list []journal.CodexEntry, c journal.CodexEntry) []journal.CodexEntry {
	for _, have := range list {
		if have.EntryID == c.EntryID && have.Timestamp.Equal(c.Timestamp) {
			return list
		}
	}
	return append(list, c)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
