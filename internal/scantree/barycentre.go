package scantree

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// BarycentreTree returns a display tree in which bodies sit under the
// barycentres their ancestor chains name. The primary tree is only read.
func (e *Engine) BarycentreTree(key SystemInfo) ([]*NodeView, bool) {
	sn := e.FindSystem(key)
	if sn == nil {
		return nil, false
	}
	sn.mu.RLock()
	defer sn.mu.RUnlock()
	return reconcile(sn), true
}

type baryEntry struct {
	view *NodeView
	keys map[string]bool
}

type reconciler struct {
	sn           *SystemNode
	roots        map[int]*baryEntry
	placeholders map[*NodeView]int
	clones       map[*ScanNode]*NodeView
}

// reconcile builds the barycentre display tree. sn.mu is held for reading.
func reconcile(sn *SystemNode) []*NodeView {
	r := &reconciler{
		sn:           sn,
		roots:        make(map[int]*baryEntry),
		placeholders: make(map[*NodeView]int),
		clones:       make(map[*ScanNode]*NodeView),
	}

	var withChain []*ScanNode
	sn.walk(func(n *ScanNode) bool {
		if len(n.Ancestors) > 0 {
			withChain = append(withChain, n)
		}
		return true
	})

	for _, n := range withChain {
		for i, p := range n.Ancestors {
			if !p.IsBarycentre() {
				continue
			}
			entry := r.root(p.ID)
			child, key := r.immediateChild(n, i)
			if !entry.keys[key] {
				entry.keys[key] = true
				entry.view.Children = append(entry.view.Children, child)
			}
		}
	}

	seen := make(map[int]bool, len(r.roots))
	for id := range r.roots {
		seen[id] = true
	}
	r.rehome()

	var out []*NodeView
	placed := make(map[string]bool)
	for _, id := range slices.Sorted(maps.Keys(r.roots)) {
		v := r.roots[id].view
		if len(v.Children) == 0 {
			continue
		}
		out = append(out, v)
		markPlaced(v, placed)
	}
	for _, n := range sn.stars.nodes() {
		if n.Type == NodeBarycentre && n.BodyID != nil && seen[*n.BodyID] {
			continue
		}
		if !placed[strings.ToLower(n.FullName)] {
			out = append(out, n.view(true))
		}
	}
	return out
}

func (r *reconciler) root(id int) *baryEntry {
	if e, ok := r.roots[id]; ok {
		return e
	}
	v := r.barycentreView(id)
	e := &baryEntry{view: v, keys: make(map[string]bool)}
	r.roots[id] = e
	return e
}

func (r *reconciler) barycentreView(id int) *NodeView {
	bid := id
	v := &NodeView{
		Type:     NodeBarycentre,
		Name:     fmt.Sprintf("Barycentre %d", id),
		FullName: fmt.Sprintf("%s barycentre %d", r.sn.System.Name, id),
		BodyID:   &bid,
	}
	if b, ok := r.sn.barycentres[id]; ok {
		cp := *b
		v.Barycentre = &cp
	}
	return v
}

// immediateChild returns what sits directly below the barycentre at
// position i of n's ancestor chain, with its dedup key.
func (r *reconciler) immediateChild(n *ScanNode, i int) (*NodeView, string) {
	if i == 0 {
		return r.clone(n), "n:" + strings.ToLower(n.FullName)
	}
	prev := n.Ancestors[i-1]
	if prev.IsBarycentre() {
		ph := r.barycentreView(prev.ID)
		r.placeholders[ph] = prev.ID
		return ph, fmt.Sprintf("b:%d", prev.ID)
	}
	if m, ok := r.sn.byID[prev.ID]; ok {
		return r.clone(m), "n:" + strings.ToLower(m.FullName)
	}
	bid := prev.ID
	return &NodeView{
		Type:     NodeBody,
		Name:     fmt.Sprintf("Body %d", prev.ID),
		FullName: fmt.Sprintf("%s body %d", r.sn.System.Name, prev.ID),
		BodyID:   &bid,
	}, fmt.Sprintf("i:%d", prev.ID)
}

func (r *reconciler) clone(n *ScanNode) *NodeView {
	if v, ok := r.clones[n]; ok {
		return v
	}
	v := n.view(true)
	r.clones[n] = v
	return v
}

// rehome moves every root entry that another entry lists as a child into
// that position, until nothing moves. Each move removes one root, so the
// loop terminates even for inconsistent chains.
func (r *reconciler) rehome() {
	for moved := true; moved; {
		moved = false
		ids := slices.Sorted(maps.Keys(r.roots))
		for _, id := range ids {
			for _, other := range ids {
				if other == id {
					continue
				}
				if r.replace(r.roots[other].view, id, r.roots[id].view) {
					delete(r.roots, id)
					moved = true
					break
				}
			}
			if moved {
				break
			}
		}
	}
}

func (r *reconciler) replace(v *NodeView, id int, target *NodeView) bool {
	for i, c := range v.Children {
		if pid, ok := r.placeholders[c]; ok && pid == id {
			v.Children[i] = target
			delete(r.placeholders, c)
			return true
		}
		if r.replace(c, id, target) {
			return true
		}
	}
	return false
}

func markPlaced(v *NodeView, placed map[string]bool) {
	placed[strings.ToLower(v.FullName)] = true
	for _, c := range v.Children {
		markPlaced(c, placed)
	}
}
