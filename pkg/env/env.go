// Package env implements the lexical environment chain that threads
// through both compile time and run time, grounded in skime's env.py.
package env

import "github.com/kristofer/scheme/pkg/value"

// Environment is an ordered, named slot table chained to a lexical
// parent. Slot indices are stable once allocated.
type Environment struct {
	Parent *Environment
	names  []string
	slots  []value.Value
	index  map[string]int
}

// New creates an empty environment with the given lexical parent (nil
// for the top level).
func New(parent *Environment) *Environment {
	return &Environment{Parent: parent, index: make(map[string]int)}
}

// Allocate is idempotent: re-using a name returns its existing index.
// The value is written iff provided (not the undefined sentinel).
func (e *Environment) Allocate(name string, v value.Value) int {
	if idx, ok := e.index[name]; ok {
		if !v.IsUndefined() {
			e.slots[idx] = v
		}
		return idx
	}
	idx := len(e.slots)
	e.names = append(e.names, name)
	if v.IsUndefined() {
		e.slots = append(e.slots, value.Undefined)
	} else {
		e.slots = append(e.slots, v)
	}
	e.index[name] = idx
	return idx
}

// Assign is an unchecked store by index.
func (e *Environment) Assign(idx int, v value.Value) {
	e.slots[idx] = v
}

// Read returns the value at idx.
func (e *Environment) Read(idx int) value.Value {
	return e.slots[idx]
}

// Find returns the slot index of name in this environment only, or
// (-1, false) if not present here.
func (e *Environment) Find(name string) (int, bool) {
	idx, ok := e.index[name]
	if !ok {
		return -1, false
	}
	return idx, true
}

// Location names the (depth, index) of a binding found by walking
// parents from some starting environment.
type Location struct {
	Depth int
	Index int
}

// LookupLocation walks parents and returns the nearest binding's
// location, or ok=false if name is unbound anywhere in the chain.
func (e *Environment) LookupLocation(name string) (Location, bool) {
	depth := 0
	for cur := e; cur != nil; cur = cur.Parent {
		if idx, ok := cur.index[name]; ok {
			return Location{Depth: depth, Index: idx}, true
		}
		depth++
	}
	return Location{}, false
}

// EnvAt walks depth parents up from e.
func (e *Environment) EnvAt(depth int) *Environment {
	cur := e
	for i := 0; i < depth; i++ {
		cur = cur.Parent
	}
	return cur
}

// Names returns the slot names in allocation order (used by the
// debugger's locals view).
func (e *Environment) Names() []string {
	return e.names
}

// Duplicate makes a shallow copy of slots plus the same parent
// pointer, used to materialise a procedure activation from its
// compile-time template without mutating the template.
func (e *Environment) Duplicate() *Environment {
	cp := &Environment{
		Parent: e.Parent,
		names:  append([]string(nil), e.names...),
		slots:  append([]value.Value(nil), e.slots...),
		index:  make(map[string]int, len(e.index)),
	}
	for k, v := range e.index {
		cp.index[k] = v
	}
	return cp
}
