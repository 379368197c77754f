// Package scantree maintains the per-system hierarchy of scanned bodies.
//
// Locking: Engine.mu guards the system indexes, SystemNode.mu guards the
// topology and payloads of one system and ScanNode.mu guards a node's
// collateral. They are always acquired in that order. The primary-star cache,
// the journey history and the deferred queue have their own leaf mutexes that
// are never held while another lock is acquired.
package scantree

import (
	"fmt"
	"strings"
	"sync"

	"github.com/starford/orrery/internal/journal"
)

// NodeType classifies a tree position.
type NodeType int

const (
	NodeStar NodeType = iota
	NodeBarycentre
	NodeBody
	NodeBelt
	NodeBeltCluster
	NodeRing
)

var nodeTypeNames = [...]string{"star", "barycentre", "body", "belt", "beltcluster", "ring"}

func (t NodeType) String() string {
	if int(t) < len(nodeTypeNames) {
		return nodeTypeNames[t]
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (t NodeType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *NodeType) UnmarshalText(b []byte) error {
	for i, n := range nodeTypeNames {
		if n == string(b) {
			*t = NodeType(i)
			return nil
		}
	}
	return fmt.Errorf("scantree: unknown node type %q", b)
}

// Coords is a galactic position in light years.
type Coords struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// SystemInfo identifies a star system. Address and Pos are optional.
type SystemInfo struct {
	Name    string  `json:"name"`
	Address *int64  `json:"address,omitempty"`
	Pos     *Coords `json:"pos,omitempty"`
}

// Known reports whether the info can key a system at all.
func (s SystemInfo) Known() bool { return s.Address != nil || strings.TrimSpace(s.Name) != "" }

// ScanNode is one position in a system tree. Topology fields and Scan are
// guarded by the owning SystemNode's lock; collateral by mu.
type ScanNode struct {
	Type       NodeType
	OwnName    string
	FullName   string
	CustomName string
	Level      int
	// Parent is a non-owning back reference used for upward traversal only.
	Parent *ScanNode

	BodyID *int
	Scan   *journal.Scan
	Source journal.DataSource
	// Ancestors is the nearest-first parent chain from the last journal scan.
	Ancestors []journal.Parent

	// children is nil until a child is first inserted.
	children *childSet

	mu                sync.Mutex
	signals           []journal.Signal
	genuses           []journal.Genus
	organics          []journal.Organic
	surfaceFeatures   []journal.SurfaceFeature
	codex             []journal.CodexEntry
	mapped            bool
	efficientlyMapped bool
}

// Children returns the ordered children, or nil when none were ever added.
// Callers must hold the system lock.
func (n *ScanNode) Children() []*ScanNode {
	if n.children == nil {
		return nil
	}
	return n.children.nodes()
}

func (n *ScanNode) childSet() *childSet {
	if n.children == nil {
		n.children = newChildSet()
	}
	return n.children
}

// hasCollateral must be called with n.mu held.
func (n *ScanNode) hasCollateral() bool {
	return len(n.signals) > 0 || len(n.genuses) > 0 || len(n.organics) > 0 ||
		len(n.surfaceFeatures) > 0 || len(n.codex) > 0 || n.mapped
}

// mirrorToScan copies node collateral onto the scan payload. n.mu must be held.
func (n *ScanNode) mirrorToScan() {
	if n.Scan == nil {
		return
	}
	n.Scan.Signals = n.signals
	n.Scan.Genuses = n.genuses
	n.Scan.Organics = n.organics
	n.Scan.SurfaceFeatures = n.surfaceFeatures
	n.Scan.Mapped = n.mapped
	n.Scan.EfficientlyMapped = n.efficientlyMapped
}

// isPlaceholder reports whether n was created only to hold collateral for a
// body not yet scanned.
func (n *ScanNode) isPlaceholder() bool {
	if n.Scan != nil || n.Type == NodeBelt || n.Type == NodeBeltCluster {
		return false
	}
	return n.children == nil || n.children.len() == 0
}

// absorb moves the collateral of old onto n. Both node locks are taken, old
// first; old is always detached from the live tree at this point.
func (n *ScanNode) absorb(old *ScanNode) {
	old.mu.Lock()
	defer old.mu.Unlock()
	n.mu.Lock()
	defer n.mu.Unlock()

	for _, s := range old.signals {
		n.signals = mergeSignal(n.signals, s)
	}
	for _, g := range old.genuses {
		n.genuses = mergeGenus(n.genuses, g)
	}
	for _, o := range old.organics {
		n.organics = mergeOrganic(n.organics, o)
	}
	n.surfaceFeatures = append(n.surfaceFeatures, old.surfaceFeatures...)
	n.codex = append(n.codex, old.codex...)
	n.mapped = n.mapped || old.mapped
	n.efficientlyMapped = n.efficientlyMapped || old.efficientlyMapped
	if n.Scan == nil {
		n.Source = old.Source
	}
	if n.CustomName == "" {
		n.CustomName = old.CustomName
	}
	n.mirrorToScan()
}

// SystemNode holds the tree of one star system.
type SystemNode struct {
	mu sync.RWMutex

	System      SystemInfo
	stars       *childSet
	byID        map[int]*ScanNode
	barycentres map[int]*journal.ScanBaryCentre

	fssBodyCount    *int
	fssNonBodyCount *int
	fssSignals      []journal.FSSSignalDiscovered
	codex           []journal.CodexEntry
}

func newSystemNode(info SystemInfo) *SystemNode {
	return &SystemNode{
		System:      info,
		stars:       newChildSet(),
		byID:        make(map[int]*ScanNode),
		barycentres: make(map[int]*journal.ScanBaryCentre),
	}
}

// walk visits nodes depth-first, parents before children. It stops early when
// fn returns false. Callers hold sn.mu.
func (sn *SystemNode) walk(fn func(*ScanNode) bool) {
	var visit func(set *childSet) bool
	visit = func(set *childSet) bool {
		for _, n := range set.nodes() {
			if !fn(n) {
				return false
			}
			if n.children != nil && !visit(n.children) {
				return false
			}
		}
		return true
	}
	visit(sn.stars)
}

// index records id for n. A journal-sourced id overrides any previous owner.
func (sn *SystemNode) index(n *ScanNode, id int) {
	if n.BodyID != nil && *n.BodyID != id {
		if sn.byID[*n.BodyID] == n {
			delete(sn.byID, *n.BodyID)
		}
	}
	if prev, ok := sn.byID[id]; ok && prev != n {
		prev.BodyID = nil
	}
	v := id
	n.BodyID = &v
	sn.byID[id] = n
}

// detach unlinks n from its parent set. sn.mu must be held for writing.
func (sn *SystemNode) detach(n *ScanNode) {
	if n.Parent == nil {
		sn.stars.remove(n.OwnName)
	} else if n.Parent.children != nil {
		n.Parent.children.remove(n.OwnName)
	}
	if n.BodyID != nil && sn.byID[*n.BodyID] == n {
		delete(sn.byID, *n.BodyID)
	}
}

// lookup finds a node by body id, falling back to a case-insensitive match of
// full or custom name.
func (sn *SystemNode) lookup(id *int, name string) *ScanNode {
	if id != nil {
		if n, ok := sn.byID[*id]; ok {
			return n
		}
	}
	if name == "" {
		return nil
	}
	var found *ScanNode
	sn.walk(func(n *ScanNode) bool {
		if strings.EqualFold(n.FullName, name) || (n.CustomName != "" && strings.EqualFold(n.CustomName, name)) {
			found = n
			return false
		}
		return true
	})
	return found
}
