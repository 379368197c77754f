package scantree

import (
	"cmp"
	"slices"
	"strconv"
	"strings"

	"github.com/starford/orrery/internal/journal"
)

// NodeView is a detached copy of a node, safe to use after the engine locks
// are released.
type NodeView struct {
	Type              NodeType                 `json:"type"`
	Name              string                   `json:"name"`
	FullName          string                   `json:"full_name"`
	CustomName        string                   `json:"custom_name,omitempty"`
	Level             int                      `json:"level"`
	BodyID            *int                     `json:"body_id,omitempty"`
	Source            journal.DataSource       `json:"source"`
	Scan              *journal.Scan            `json:"scan,omitempty"`
	Signals           []journal.Signal         `json:"signals,omitempty"`
	Genuses           []journal.Genus          `json:"genuses,omitempty"`
	Organics          []journal.Organic        `json:"organics,omitempty"`
	SurfaceFeatures   []journal.SurfaceFeature `json:"surface_features,omitempty"`
	Codex             []journal.CodexEntry     `json:"codex,omitempty"`
	Mapped            bool                     `json:"mapped,omitempty"`
	EfficientlyMapped bool                     `json:"efficiently_mapped,omitempty"`
	Ancestors         []journal.Parent         `json:"ancestors,omitempty"`
	Barycentre        *journal.ScanBaryCentre  `json:"barycentre,omitempty"`
	EstimatedValue    int64                    `json:"estimated_value,omitempty"`
	// Children is nil for a node that never had children and, in flat
	// listings, for every node.
	Children []*NodeView `json:"children,omitempty"`
}

// view copies n. Callers hold the system lock.
func (n *ScanNode) view(deep bool) *NodeView {
	n.mu.Lock()
	v := &NodeView{
		Type:              n.Type,
		Name:              n.OwnName,
		FullName:          n.FullName,
		CustomName:        n.CustomName,
		Level:             n.Level,
		Source:            n.Source,
		Signals:           slices.Clone(n.signals),
		Genuses:           slices.Clone(n.genuses),
		Organics:          slices.Clone(n.organics),
		SurfaceFeatures:   slices.Clone(n.surfaceFeatures),
		Codex:             slices.Clone(n.codex),
		Mapped:            n.mapped,
		EfficientlyMapped: n.efficientlyMapped,
		Ancestors:         slices.Clone(n.Ancestors),
	}
	if n.BodyID != nil {
		id := *n.BodyID
		v.BodyID = &id
	}
	if n.Scan != nil {
		sc := *n.Scan
		sc.Parents = slices.Clone(sc.Parents)
		sc.Rings = slices.Clone(sc.Rings)
		sc.Signals = slices.Clone(sc.Signals)
		sc.Genuses = slices.Clone(sc.Genuses)
		sc.Organics = slices.Clone(sc.Organics)
		sc.SurfaceFeatures = slices.Clone(sc.SurfaceFeatures)
		v.Scan = &sc
		v.EstimatedValue = EstimateValue(&sc)
	}
	n.mu.Unlock()

	if deep && n.children != nil {
		v.Children = make([]*NodeView, 0, n.children.len())
		for _, c := range n.children.nodes() {
			v.Children = append(v.Children, c.view(true))
		}
	}
	return v
}

// SystemView is a detached copy of a system tree.
type SystemView struct {
	System          SystemInfo                    `json:"system"`
	Bodies          []*NodeView                   `json:"bodies"`
	FSSBodyCount    *int                          `json:"fss_body_count,omitempty"`
	FSSNonBodyCount *int                          `json:"fss_non_body_count,omitempty"`
	FSSSignals      []journal.FSSSignalDiscovered `json:"fss_signals,omitempty"`
	Codex           []journal.CodexEntry          `json:"codex,omitempty"`
	Barycentres     []journal.ScanBaryCentre      `json:"barycentres,omitempty"`
}

// ParseKey interprets an external system key: a decimal system address or
// otherwise a system name.
func ParseKey(key string) SystemInfo {
	key = strings.TrimSpace(key)
	if addr, err := strconv.ParseInt(key, 10, 64); err == nil {
		return SystemInfo{Address: &addr}
	}
	return SystemInfo{Name: key}
}

// Systems lists every known system ordered by name.
func (e *Engine) Systems() []SystemInfo {
	e.mu.RLock()
	seen := make(map[*SystemNode]bool)
	var out []SystemInfo
	collect := func(sn *SystemNode) {
		if !seen[sn] {
			seen[sn] = true
			out = append(out, sn.System)
		}
	}
	for _, sn := range e.byAddress {
		collect(sn)
	}
	for _, sn := range e.byName {
		collect(sn)
	}
	e.mu.RUnlock()

	slices.SortFunc(out, func(a, b SystemInfo) int {
		return cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
	return out
}

// Tree returns a copy of a system's tree.
func (e *Engine) Tree(key SystemInfo) (*SystemView, bool) {
	sn := e.FindSystem(key)
	if sn == nil {
		return nil, false
	}
	sn.mu.RLock()
	defer sn.mu.RUnlock()

	v := &SystemView{
		System:     sn.System,
		Bodies:     make([]*NodeView, 0, sn.stars.len()),
		FSSSignals: slices.Clone(sn.fssSignals),
		Codex:      slices.Clone(sn.codex),
	}
	for _, n := range sn.stars.nodes() {
		v.Bodies = append(v.Bodies, n.view(true))
	}
	if sn.fssBodyCount != nil {
		c := *sn.fssBodyCount
		v.FSSBodyCount = &c
	}
	if sn.fssNonBodyCount != nil {
		c := *sn.fssNonBodyCount
		v.FSSNonBodyCount = &c
	}
	for _, b := range sn.barycentres {
		v.Barycentres = append(v.Barycentres, *b)
	}
	slices.SortFunc(v.Barycentres, func(a, b journal.ScanBaryCentre) int { return cmp.Compare(a.BodyID, b.BodyID) })
	return v, true
}

// find returns a deep view of the first node matching fn.
func (e *Engine) find(key SystemInfo, fn func(*ScanNode) bool) (*NodeView, bool) {
	sn := e.FindSystem(key)
	if sn == nil {
		return nil, false
	}
	sn.mu.RLock()
	defer sn.mu.RUnlock()

	var found *ScanNode
	sn.walk(func(n *ScanNode) bool {
		if fn(n) {
			found = n
			return false
		}
		return true
	})
	if found == nil {
		return nil, false
	}
	return found.view(true), true
}

// FindNodeByFullName looks a node up by its system-qualified name.
func (e *Engine) FindNodeByFullName(key SystemInfo, name string) (*NodeView, bool) {
	name = strings.TrimSpace(name)
	return e.find(key, func(n *ScanNode) bool { return strings.EqualFold(n.FullName, name) })
}

// FindNodeByCustomName looks a node up by its custom (renamed) name.
func (e *Engine) FindNodeByCustomName(key SystemInfo, name string) (*NodeView, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, false
	}
	return e.find(key, func(n *ScanNode) bool { return strings.EqualFold(n.CustomName, name) })
}

// FindNodeByScan returns the node holding exactly the payload sc.
func (e *Engine) FindNodeByScan(key SystemInfo, sc *journal.Scan) (*NodeView, bool) {
	if sc == nil {
		return nil, false
	}
	return e.find(key, func(n *ScanNode) bool { return n.Scan == sc })
}

// FindNodeByID uses the body id index.
func (e *Engine) FindNodeByID(key SystemInfo, id int) (*NodeView, bool) {
	sn := e.FindSystem(key)
	if sn == nil {
		return nil, false
	}
	sn.mu.RLock()
	defer sn.mu.RUnlock()
	n, ok := sn.byID[id]
	if !ok {
		return nil, false
	}
	return n.view(true), true
}

// Walk calls fn for every node of a system depth-first, parents first, with
// flat views. It is a snapshot: fn runs after the system lock is released.
// It reports false when the system is unknown.
func (e *Engine) Walk(key SystemInfo, fn func(*NodeView) bool) bool {
	sn := e.FindSystem(key)
	if sn == nil {
		return false
	}
	sn.mu.RLock()
	var views []*NodeView
	sn.walk(func(n *ScanNode) bool {
		views = append(views, n.view(false))
		return true
	})
	sn.mu.RUnlock()

	for _, v := range views {
		if !fn(v) {
			break
		}
	}
	return true
}

// Stats aggregates a system tree.
type Stats struct {
	Nodes          int   `json:"nodes"`
	StarsScanned   int   `json:"stars_scanned"`
	BodiesScanned  int   `json:"bodies_scanned"`
	Mapped         int   `json:"mapped"`
	EstimatedValue int64 `json:"estimated_value"`
	IncludesWeb    bool  `json:"includes_web"`
}

// Stats counts scanned stars and bodies and sums their estimated value. Web
// sourced payloads only count when includeWeb is set.
func (e *Engine) Stats(key SystemInfo, includeWeb bool) (Stats, bool) {
	st := Stats{IncludesWeb: includeWeb}
	ok := e.Walk(key, func(v *NodeView) bool {
		st.Nodes++
		if v.Scan == nil || (!includeWeb && v.Source.IsWeb()) {
			return true
		}
		switch {
		case v.Scan.IsStar():
			st.StarsScanned++
		case v.Type != NodeBeltCluster:
			st.BodiesScanned++
		}
		if v.Mapped {
			st.Mapped++
		}
		st.EstimatedValue += v.EstimatedValue
		return true
	})
	return st, ok
}
