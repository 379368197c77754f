package scantree

import (
	"reflect"
	"testing"

	"github.com/starford/orrery/internal/journal"
)

func binarySystem(t *testing.T) (*Engine, SystemInfo) {
	t.Helper()
	sys := system("Bin", 3)
	e := New()
	mustAttach(t, e, star("Bin A", 1, 0, nullParent(0)), sys)
	mustAttach(t, e, star("Bin B", 2, 5000, nullParent(0)), sys)
	mustAttach(t, e, body("Bin A 1", 3, starParent(1), nullParent(0)), sys)
	mustAttach(t, e, body("Bin AB 1", 4, nullParent(0)), sys)
	mustAttach(t, e, &journal.ScanBaryCentre{
		Header:        journal.Header{Event: journal.KindScanBaryCentre, Timestamp: ts},
		StarSystem:    "Bin",
		SystemAddress: 3,
		BodyID:        0,
		SemiMajorAxis: 1.5e11,
	}, SystemInfo{})
	return e, sys
}

func TestBarycentreTree_GroupsUnderBarycentre(t *testing.T) {
	e, sys := binarySystem(t)

	out, ok := e.BarycentreTree(sys)
	if !ok {
		t.Fatal("system not found")
	}
	if len(out) != 1 {
		t.Fatalf("roots = %d, want 1: %+v", len(out), out)
	}
	root := out[0]
	if root.Type != NodeBarycentre || root.BodyID == nil || *root.BodyID != 0 {
		t.Fatalf("root = %+v", root)
	}
	if root.Barycentre == nil || root.Barycentre.SemiMajorAxis != 1.5e11 {
		t.Errorf("barycentre event not attached: %+v", root.Barycentre)
	}

	var names []string
	for _, c := range root.Children {
		names = append(names, c.FullName)
	}
	if want := []string{"Bin A", "Bin AB 1", "Bin B"}; !reflect.DeepEqual(names, want) {
		t.Errorf("children = %q, want %q", names, want)
	}
	if a := root.Children[0]; len(a.Children) != 1 || a.Children[0].FullName != "Bin A 1" {
		t.Errorf("star A lost its planet: %+v", a.Children)
	}
}

func TestBarycentreTree_RehomesNestedBarycentres(t *testing.T) {
	sys := system("Tri", 4)
	e := New()
	mustAttach(t, e, body("Tri 5", 5, nullParent(2), nullParent(1)), sys)

	out, _ := e.BarycentreTree(sys)
	if len(out) == 0 {
		t.Fatal("empty display tree")
	}
	outer := out[0]
	if outer.BodyID == nil || *outer.BodyID != 1 {
		t.Fatalf("outer = %+v", outer)
	}
	if len(outer.Children) != 1 || outer.Children[0].BodyID == nil || *outer.Children[0].BodyID != 2 {
		t.Fatalf("inner barycentre not re-homed: %+v", outer.Children)
	}
	inner := outer.Children[0]
	if len(inner.Children) != 1 || inner.Children[0].FullName != "Tri 5" {
		t.Errorf("inner children = %+v", inner.Children)
	}
	for _, r := range out[1:] {
		if r.Type == NodeBarycentre {
			t.Errorf("barycentre %v left at the root", *r.BodyID)
		}
	}
}

func TestBarycentreTree_NonDestructive(t *testing.T) {
	e, sys := binarySystem(t)
	before, _ := e.Tree(sys)

	out, _ := e.BarycentreTree(sys)
	out[0].Children = append(out[0].Children, &NodeView{Name: "scribble"})
	out[0].Children[0].Children = nil
	out[0].Children[0].Name = "changed"

	after, _ := e.Tree(sys)
	if !reflect.DeepEqual(before, after) {
		t.Error("reconciliation changed the primary tree")
	}
}

func TestBarycentreTree_NoBarycentres(t *testing.T) {
	sol := system("Sol", 1)
	e := New()
	mustAttach(t, e, star("Sol", 0, 0), sol)
	mustAttach(t, e, body("Sol 1", 1, starParent(0)), sol)

	out, _ := e.BarycentreTree(sol)
	if len(out) != 1 || out[0].FullName != "Sol" || len(out[0].Children) != 1 {
		t.Errorf("plain tree = %+v", out)
	}
	if _, ok := e.BarycentreTree(SystemInfo{Name: "Nowhere"}); ok {
		t.Error("unknown system reported ok")
	}
}
