package scantree

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/starford/orrery/internal/journal"
	"github.com/starford/orrery/internal/parser"
)

// Outcome is the result of offering an event to the engine.
type Outcome int

const (
	Attached Outcome = iota
	Deferred
	Rejected
)

func (o Outcome) String() string {
	switch o {
	case Attached:
		return "attached"
	case Deferred:
		return "deferred"
	case Rejected:
		return "rejected"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// MarshalText implements encoding.TextMarshaler.
func (o Outcome) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

// ErrNilEvent is returned when a nil event is offered.
var ErrNilEvent = errors.New("scantree: nil event")

// Engine owns every system tree.
type Engine struct {
	mu        sync.RWMutex
	byAddress map[int64]*SystemNode
	byName    map[string]*SystemNode

	rules  parser.Rules
	logger *slog.Logger
	notify func(Change)

	primaryMu sync.Mutex
	primary   map[*SystemNode]string

	historyMu sync.Mutex
	history   []HistoryEntry
	renames   map[string]string

	// replayMu serialises deferred-queue replays. It is taken before any
	// other engine lock.
	replayMu sync.Mutex
	pending  pendingQueue
}

// Option configures an Engine.
type Option func(*Engine)

// WithRules sets the designation grammar thresholds.
func WithRules(r parser.Rules) Option {
	return func(e *Engine) { e.rules = r }
}

// WithLogger sets the logger used for rejected and rebuilt events.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithRenames registers known system renames, keyed by the name recorded in
// journey events and mapping to the system's current name.
func WithRenames(m map[string]string) Option {
	return func(e *Engine) {
		for from, to := range m {
			e.renames[strings.ToLower(strings.TrimSpace(from))] = strings.TrimSpace(to)
		}
	}
}

// Change reports one event attached to a system tree.
type Change struct {
	System   SystemInfo
	Kind     journal.Kind
	Created  int  // nodes created by the event
	Replayed bool // attached from the deferred queue
}

// WithNotify registers a callback invoked, outside all locks, whenever an
// event was attached to a system.
func WithNotify(fn func(Change)) Option {
	return func(e *Engine) { e.notify = fn }
}

// New creates an empty engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		byAddress: make(map[int64]*SystemNode),
		byName:    make(map[string]*SystemNode),
		rules:     parser.DefaultRules(),
		logger:    slog.Default(),
		primary:   make(map[*SystemNode]string),
		renames:   make(map[string]string),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// lookupLocked finds the node for a system. e.mu must be held.
func (e *Engine) lookupLocked(info SystemInfo) *SystemNode {
	name := strings.ToLower(strings.TrimSpace(info.Name))
	if info.Address != nil {
		if sn, ok := e.byAddress[*info.Address]; ok {
			return sn
		}
		// A node created from its name alone is promoted, not duplicated.
		if sn, ok := e.byName[name]; ok && sn.System.Address == nil {
			return sn
		}
		return nil
	}
	return e.byName[name]
}

// FindSystem returns the node of a known system, or nil.
func (e *Engine) FindSystem(info SystemInfo) *SystemNode {
	if !info.Known() {
		return nil
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lookupLocked(info)
}

// GetOrCreateSystem returns the node for info, creating or promoting it. A
// known position is never replaced by an unknown one.
func (e *Engine) GetOrCreateSystem(info SystemInfo) *SystemNode {
	if !info.Known() {
		return nil
	}
	name := strings.TrimSpace(info.Name)

	e.mu.Lock()
	defer e.mu.Unlock()

	sn := e.lookupLocked(info)
	if sn == nil {
		sn = newSystemNode(SystemInfo{Name: name})
	}

	sn.mu.Lock()
	if info.Address != nil && sn.System.Address == nil {
		addr := *info.Address
		sn.System.Address = &addr
		e.byAddress[addr] = sn
	}
	if sn.System.Name == "" && name != "" {
		sn.System.Name = name
	}
	if info.Pos != nil {
		pos := *info.Pos
		sn.System.Pos = &pos
	}
	sn.mu.Unlock()

	if key := strings.ToLower(name); key != "" {
		if _, ok := e.byName[key]; !ok {
			e.byName[key] = sn
		}
	}
	return sn
}

// Info returns a copy of the system identity.
func (sn *SystemNode) Info() SystemInfo {
	sn.mu.RLock()
	defer sn.mu.RUnlock()
	return sn.System
}

func (e *Engine) primaryFor(sn *SystemNode) string {
	e.primaryMu.Lock()
	defer e.primaryMu.Unlock()
	return e.primary[sn]
}

func (e *Engine) setPrimary(sn *SystemNode, designator string) {
	e.primaryMu.Lock()
	defer e.primaryMu.Unlock()
	e.primary[sn] = designator
}

// ProcessScan merges a scan into its system tree. An empty sys is taken from
// the scan itself and, failing that, from the journey history.
func (e *Engine) ProcessScan(sc *journal.Scan, sys SystemInfo) (Outcome, error) {
	return e.Process(sc, sys)
}

func (e *Engine) attachScan(sc *journal.Scan, sys SystemInfo, queue bool) attachResult {
	if !sys.Known() {
		sys = SystemInfo{Name: sc.StarSystem, Address: sc.SystemAddress}
	}
	if !sys.Known() {
		m, err := e.Resolve(sc.Designation(), sc.SystemAddress)
		switch {
		case errors.Is(err, ErrRenameCollision):
			return attachResult{outcome: Rejected, err: err}
		case err != nil:
			if queue {
				e.pending.push(pendingEntry{kind: journal.KindScan, event: sc})
			}
			return attachResult{outcome: Deferred}
		}
		sys = m.System
	}

	sn := e.GetOrCreateSystem(sys)
	sn.mu.Lock()
	created, err := e.insertScan(sn, sc, true)
	info := sn.System
	sn.mu.Unlock()
	if err != nil {
		return attachResult{outcome: Rejected, err: err, system: info}
	}
	return attachResult{outcome: Attached, created: created, system: info}
}

// insertScan places sc in the tree and merges it. sn.mu must be held for
// writing. It returns the number of nodes created.
func (e *Engine) insertScan(sn *SystemNode, sc *journal.Scan, checkPrimary bool) (int, error) {
	primary := e.primaryFor(sn)
	res, err := e.rules.Parse(sc.Designation(), sn.System.Name, primary)
	if err != nil {
		return 0, err
	}

	if checkPrimary && confirmsPrimary(sc, res, primary) {
		e.setPrimary(sn, res.Rest)
		if sn.hasGuessedStar() {
			return e.rebuild(sn, sc), nil
		}
	}

	var ancestors []journal.Parent
	if sc.Source == journal.SourceJournal {
		ancestors = sc.Parents
	}
	node, created := e.place(sn, res, ancestors)
	e.merge(sn, node, sc, res)
	if sc.IsStar() {
		created += insertBelts(node, sc)
	}
	return created, nil
}

// confirmsPrimary reports whether sc is the arrival star of a multi-star
// system, naming the primary designator. Only journal scans confirm, and a
// confirmed primary is never replaced: web rows without a distance read as 0.
func confirmsPrimary(sc *journal.Scan, res *parser.Result, primary string) bool {
	if primary != "" || sc.Source != journal.SourceJournal {
		return false
	}
	if !sc.IsStar() || sc.DistanceFromArrivalLS != 0 || !res.Related {
		return false
	}
	if utf8.RuneCountInString(res.Rest) != 1 {
		return false
	}
	r, _ := utf8.DecodeRuneInString(res.Rest)
	return r >= 'A' && r <= 'Z'
}

// hasGuessedStar reports whether a root star carries a multi-character name,
// which means bodies were placed before the primary designator was known.
func (sn *SystemNode) hasGuessedStar() bool {
	for _, n := range sn.stars.nodes() {
		if n.isPlaceholder() {
			continue
		}
		if n.Type == NodeStar && utf8.RuneCountInString(n.OwnName) > 1 {
			return true
		}
	}
	return false
}

// place walks res.Elements from the root set, creating missing nodes, and
// returns the terminal node.
func (e *Engine) place(sn *SystemNode, res *parser.Result, ancestors []journal.Parent) (*ScanNode, int) {
	ids := ancestorIDs(res, ancestors)
	set := sn.stars
	var parent *ScanNode
	created := 0
	last := len(res.Elements) - 1

	for level, name := range res.Elements {
		node, ok := set.get(name)
		if !ok {
			node = &ScanNode{
				Type:     nodeTypeAt(res, level),
				OwnName:  name,
				FullName: fullNameOf(sn, parent, name, res),
				Level:    level,
				Parent:   parent,
			}
			set.put(node)
			created++
		}
		if level < last {
			if id, ok := ids[level]; ok {
				sn.index(node, id)
			}
			set = node.childSet()
		}
		parent = node
	}
	return parent, created
}

func nodeTypeAt(res *parser.Result, level int) NodeType {
	switch {
	case level == 0 && res.TopIsBarycentre:
		return NodeBarycentre
	case level == 0:
		return NodeStar
	case res.IsBeltCluster && level == 1:
		return NodeBelt
	case res.IsBeltCluster && level == 2:
		return NodeBeltCluster
	case res.IsRing && level == len(res.Elements)-1:
		return NodeRing
	}
	return NodeBody
}

func fullNameOf(sn *SystemNode, parent *ScanNode, name string, res *parser.Result) string {
	switch {
	case parent != nil:
		return parent.FullName + " " + name
	case !res.Related:
		return name
	case name == parser.MainStar:
		return sn.System.Name
	}
	return sn.System.Name + " " + name
}

// ancestorIDs maps element levels to body ids taken positionally from a
// nearest-first parent chain. Levels are only mapped when the number of body
// ancestors matches the number of intermediate elements.
func ancestorIDs(res *parser.Result, parents []journal.Parent) map[int]int {
	intermediate := len(res.Elements) - 1
	if intermediate <= 0 || len(parents) == 0 {
		return nil
	}
	first := 0
	if res.TopIsBarycentre {
		first = 1
	}
	need := intermediate - first

	var bodies []int
	bary := -1
	for _, p := range parents {
		if p.IsBarycentre() {
			if res.TopIsBarycentre && bary < 0 && len(bodies) == need {
				bary = p.ID
			}
			continue
		}
		bodies = append(bodies, p.ID)
	}
	if len(bodies) != need {
		return nil
	}

	out := make(map[int]int, intermediate)
	for level := first; level < intermediate; level++ {
		out[level] = bodies[intermediate-1-level]
	}
	if bary >= 0 {
		out[0] = bary
	}
	return out
}

// merge applies the better-data-wins rule at the terminal node.
func (e *Engine) merge(sn *SystemNode, node *ScanNode, sc *journal.Scan, res *parser.Result) {
	replace := node.Scan == nil ||
		(sc.Source == journal.SourceJournal && (node.Scan.Source.IsWeb() || node.Scan.ScanType == journal.ScanTypeBasic))

	if sc.BodyID != nil && (replace || node.BodyID == nil) {
		if prev, ok := sn.byID[*sc.BodyID]; ok && prev != node && prev.isPlaceholder() {
			sn.detach(prev)
			node.absorb(prev)
		}
		sn.index(node, *sc.BodyID)
	}

	node.mu.Lock()
	defer node.mu.Unlock()
	if replace {
		node.Scan = sc
		node.Source = sc.Source
		if res.Related {
			node.FullName = strings.TrimSpace(sc.Designation())
		}
		if sc.BodyDesignation != "" && !strings.EqualFold(sc.BodyName, sc.BodyDesignation) {
			node.CustomName = sc.BodyName
		}
		if len(sc.Parents) > 0 && (sc.Source == journal.SourceJournal || node.Ancestors == nil) {
			node.Ancestors = sc.Parents
		}
	}
	node.mirrorToScan()
}

// insertBelts adds the belts listed in a star's ring list as its children.
func insertBelts(star *ScanNode, sc *journal.Scan) int {
	created := 0
	for _, r := range sc.Rings {
		if !r.IsBelt() {
			continue
		}
		name, ok := parser.Rest(r.Name, sc.BodyName)
		if !ok || name == "" {
			name = strings.TrimSpace(r.Name)
		}
		if tokens := strings.Fields(name); len(tokens) == 2 && strings.EqualFold(tokens[1], "belt") {
			name = parser.BeltName(tokens[0])
		}
		set := star.childSet()
		if _, ok := set.get(name); ok {
			continue
		}
		set.put(&ScanNode{
			Type:     NodeBelt,
			OwnName:  name,
			FullName: strings.TrimSpace(r.Name),
			Level:    star.Level + 1,
			Parent:   star,
		})
		created++
	}
	return created
}

// rebuild replaces the whole tree of sn by replaying every payload under the
// primary designator that trigger just confirmed. sn.mu is held for writing,
// so readers observe either the old or the new tree.
func (e *Engine) rebuild(sn *SystemNode, trigger *journal.Scan) int {
	scans := []*journal.Scan{trigger}
	var carried []*ScanNode
	sn.walk(func(n *ScanNode) bool {
		if n.Scan != nil && n.Scan != trigger {
			scans = append(scans, n.Scan)
		}
		n.mu.Lock()
		keep := n.hasCollateral()
		n.mu.Unlock()
		if keep || (n.CustomName != "" && n.Scan == nil) {
			carried = append(carried, n)
		}
		return true
	})

	sn.stars = newChildSet()
	sn.byID = make(map[int]*ScanNode)

	created := 0
	for _, sc := range scans {
		c, err := e.insertScan(sn, sc, false)
		if err != nil {
			e.logger.Warn("scantree: rebuild dropped scan",
				slog.String("system", sn.System.Name),
				slog.String("body", sc.BodyName),
				slog.String("error", err.Error()))
			continue
		}
		created += c
	}

	for _, old := range carried {
		target, c := e.relocate(sn, old)
		created += c
		if target != nil {
			target.absorb(old)
		}
	}

	e.logger.Info("scantree: rebuilt system",
		slog.String("system", sn.System.Name),
		slog.String("primary", e.primaryFor(sn)),
		slog.Int("scans", len(scans)),
		slog.Int("carried", len(carried)))
	return created
}

// relocate finds or creates the node that replaces old after a rebuild.
func (e *Engine) relocate(sn *SystemNode, old *ScanNode) (*ScanNode, int) {
	if old.BodyID != nil {
		if n, ok := sn.byID[*old.BodyID]; ok {
			return n, 0
		}
	}
	primary := e.primaryFor(sn)
	name := old.FullName
	if old.Scan != nil {
		name = old.Scan.Designation()
	}
	res, err := e.rules.ParseBody(name, sn.System.Name, primary)
	if err != nil {
		e.logger.Warn("scantree: rebuild lost collateral",
			slog.String("system", sn.System.Name),
			slog.String("body", old.FullName),
			slog.String("error", err.Error()))
		return nil, 0
	}
	return e.place(sn, res, nil)
}

// attachResult is the internal outcome of one attach attempt.
type attachResult struct {
	outcome Outcome
	created int
	system  SystemInfo
	err     error
}

// afterAttach runs the post-insert steps outside every lock.
func (e *Engine) afterAttach(r attachResult, kind journal.Kind) {
	if r.outcome != Attached {
		return
	}
	if e.notify != nil {
		e.notify(Change{System: r.system, Kind: kind, Created: r.created})
	}
	if r.created > 0 {
		e.replayPending()
	}
}
