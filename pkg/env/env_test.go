package env

import (
	"testing"

	"github.com/kristofer/scheme/pkg/value"
)

func TestAllocateAssignsStableIndices(t *testing.T) {
	e := New(nil)

	xi := e.Allocate("x", value.Int(1))
	yi := e.Allocate("y", value.Int(2))

	if xi != 0 || yi != 1 {
		t.Fatalf("expected indices 0,1, got %d,%d", xi, yi)
	}
	if e.Read(xi).AsInt() != 1 {
		t.Errorf("expected x=1, got %v", e.Read(xi))
	}
	if e.Read(yi).AsInt() != 2 {
		t.Errorf("expected y=2, got %v", e.Read(yi))
	}
}

func TestAllocateIsIdempotent(t *testing.T) {
	e := New(nil)

	first := e.Allocate("x", value.Int(1))
	second := e.Allocate("x", value.Int(99))

	if first != second {
		t.Fatalf("expected re-allocating the same name to return the same index, got %d then %d", first, second)
	}
	if e.Read(first).AsInt() != 99 {
		t.Errorf("expected re-allocating to overwrite the slot, got %v", e.Read(first))
	}
}

func TestAllocateUndefinedDoesNotOverwrite(t *testing.T) {
	e := New(nil)

	idx := e.Allocate("x", value.Int(7))
	e.Allocate("x", value.Undefined)

	if e.Read(idx).AsInt() != 7 {
		t.Errorf("expected re-allocating with the undefined sentinel to leave the slot alone, got %v", e.Read(idx))
	}
}

func TestFindIsNotInherited(t *testing.T) {
	parent := New(nil)
	parent.Allocate("x", value.Int(1))
	child := New(parent)

	if _, ok := child.Find("x"); ok {
		t.Errorf("expected Find to search only the local frame, found x in child")
	}
	if _, ok := parent.Find("x"); !ok {
		t.Errorf("expected x to be found in parent")
	}
}

func TestLookupLocationWalksParents(t *testing.T) {
	grandparent := New(nil)
	grandparent.Allocate("g", value.Int(1))
	parent := New(grandparent)
	parent.Allocate("p", value.Int(2))
	child := New(parent)
	child.Allocate("c", value.Int(3))

	loc, ok := child.LookupLocation("c")
	if !ok || loc.Depth != 0 {
		t.Fatalf("expected c at depth 0, got %+v ok=%v", loc, ok)
	}
	loc, ok = child.LookupLocation("p")
	if !ok || loc.Depth != 1 {
		t.Fatalf("expected p at depth 1, got %+v ok=%v", loc, ok)
	}
	loc, ok = child.LookupLocation("g")
	if !ok || loc.Depth != 2 {
		t.Fatalf("expected g at depth 2, got %+v ok=%v", loc, ok)
	}
	if _, ok := child.LookupLocation("missing"); ok {
		t.Errorf("expected missing name to be unbound")
	}
}

func TestEnvAtWalksParents(t *testing.T) {
	grandparent := New(nil)
	parent := New(grandparent)
	child := New(parent)

	if child.EnvAt(0) != child {
		t.Errorf("expected EnvAt(0) to return the environment itself")
	}
	if child.EnvAt(1) != parent {
		t.Errorf("expected EnvAt(1) to return the parent")
	}
	if child.EnvAt(2) != grandparent {
		t.Errorf("expected EnvAt(2) to return the grandparent")
	}
}

func TestAssignWritesByIndex(t *testing.T) {
	e := New(nil)
	idx := e.Allocate("x", value.Int(1))
	e.Assign(idx, value.Int(42))

	if e.Read(idx).AsInt() != 42 {
		t.Errorf("expected x=42 after Assign, got %v", e.Read(idx))
	}
}

func TestNamesReturnsAllocationOrder(t *testing.T) {
	e := New(nil)
	e.Allocate("a", value.Int(1))
	e.Allocate("b", value.Int(2))
	e.Allocate("c", value.Int(3))

	names := e.Names()
	want := []string{"a", "b", "c"}
	if len(names) != len(want) {
		t.Fatalf("expected %d names, got %d", len(want), len(names))
	}
	for i, n := range want {
		if names[i] != n {
			t.Errorf("names[%d] = %q, want %q", i, names[i], n)
		}
	}
}

func TestDuplicateCopiesSlotsNotParent(t *testing.T) {
	parent := New(nil)
	template := New(parent)
	template.Allocate("x", value.Int(1))

	activation := template.Duplicate()
	activation.Assign(0, value.Int(99))

	if template.Read(0).AsInt() != 1 {
		t.Errorf("expected mutating the duplicate to leave the template untouched, got %v", template.Read(0))
	}
	if activation.Read(0).AsInt() != 99 {
		t.Errorf("expected the duplicate's own slot to hold 99, got %v", activation.Read(0))
	}
	if activation.Parent != parent {
		t.Errorf("expected the duplicate to share the same parent pointer")
	}

	activation.Allocate("y", value.Int(2))
	if _, ok := template.Find("y"); ok {
		t.Errorf("expected allocating into the duplicate to not affect the template's index map")
	}
}
