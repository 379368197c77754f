package scantree

import (
	"slices"
	"sort"
)

// CompareNames orders sibling element names. When both names share the same
// leading run of letters followed by digits, the shorter digit run sorts
// first so that "B2" precedes "B10" and "2" precedes "10". Otherwise names
// compare lexicographically. It returns -1, 0 or +1.
func CompareNames(a, b string) int {
	pa, pb := alphaPrefix(a), alphaPrefix(b)
	if pa == pb && startsDigit(a[pa:]) && startsDigit(b[pb:]) && a[:pa] == b[:pb] {
		da, db := digitRun(a[pa:]), digitRun(b[pb:])
		if da != db {
			if da < db {
				return -1
			}
			return 1
		}
	}
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func alphaPrefix(s string) int {
	i := 0
	for i < len(s) && (s[i] >= 'a' && s[i] <= 'z' || s[i] >= 'A' && s[i] <= 'Z') {
		i++
	}
	return i
}

func digitRun(s string) int {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	return i
}

func startsDigit(s string) bool { return s != "" && s[0] >= '0' && s[0] <= '9' }

// childSet is an ordered set of nodes keyed by own-name.
type childSet struct {
	byName map[string]*ScanNode
	order  []string
}

func newChildSet() *childSet {
	return &childSet{byName: make(map[string]*ScanNode)}
}

func (c *childSet) get(name string) (*ScanNode, bool) {
	n, ok := c.byName[name]
	return n, ok
}

// put inserts n keeping order. An existing entry with the same name is
// replaced in place.
func (c *childSet) put(n *ScanNode) {
	if _, ok := c.byName[n.OwnName]; ok {
		c.byName[n.OwnName] = n
		return
	}
	c.byName[n.OwnName] = n
	i := sort.Search(len(c.order), func(i int) bool { return CompareNames(c.order[i], n.OwnName) >= 0 })
	c.order = append(c.order, "")
	copy(c.order[i+1:], c.order[i:])
	c.order[i] = n.OwnName
}

func (c *childSet) remove(name string) {
	if _, ok := c.byName[name]; !ok {
		return
	}
	delete(c.byName, name)
	if i := slices.Index(c.order, name); i >= 0 {
		c.order = slices.Delete(c.order, i, i+1)
	}
}

func (c *childSet) len() int { return len(c.order) }

func (c *childSet) nodes() []*ScanNode {
	out := make([]*ScanNode, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.byName[name])
	}
	return out
}
