// Package builder is the compile-time collector of instructions,
// labels, and literals, grounded in skime's compiler/builder.py: it
// accepts logical emissions with symbolic operands (label names for
// jumps, literal values for pushes, local names for loads/stores),
// peephole-folds trivial literals, and resolves everything into a
// flat Code on Generate.
package builder

import (
	"fmt"

	"github.com/kristofer/scheme/pkg/env"
	"github.com/kristofer/scheme/pkg/iset"
	"github.com/kristofer/scheme/pkg/value"
)

// Code is the generated output of a Builder: a flat instruction
// stream addressed by instruction index, a deduplicated literal pool,
// and the environment template the instructions were compiled
// against.
type Code struct {
	Instructions []iset.Instruction
	Literals     []value.Value
	Env          *env.Environment
}

// ProcWrapper turns a freshly generated child Code plus its arity into
// a runtime Value of kind KindProcedure. Builder has no Procedure type
// of its own (that lives in pkg/vm, which imports pkg/builder); the
// wrapper is supplied by whichever package does own Procedure so that
// PushProc's literal can hold an actual callable Value.
type ProcWrapper func(code *Code, fixedArgc int, restArg bool) value.Value

type jumpFixup struct {
	instrIdx int
	label    string
}

type procMarker struct {
	instrIdx  int // index of the PushLiteral instruction to fill in
	literal   int // reserved literal slot
	child     *Builder
	fixedArgc int
	restArg   bool
}

// Builder accumulates one procedure's (or the top level's) code.
type Builder struct {
	env         *env.Environment
	wrap        ProcWrapper
	instrs      []iset.Instruction
	labels      map[string]int
	pendingJump []jumpFixup
	literals    []value.Value
	procs       []procMarker
}

// New creates a root Builder compiling against env with the given
// procedure-literal wrapper.
func New(environment *env.Environment, wrap ProcWrapper) *Builder {
	return &Builder{
		env:    environment,
		wrap:   wrap,
		labels: make(map[string]int),
	}
}

func (b *Builder) Env() *env.Environment { return b.env }

func (b *Builder) here() int { return len(b.instrs) }

func (b *Builder) emit(i iset.Instruction) int {
	idx := len(b.instrs)
	b.instrs = append(b.instrs, i)
	return idx
}

// EmitPushLiteral folds true/false/0/1/empty-list into dedicated
// single-word opcodes; everything else goes through the literal pool.
func (b *Builder) EmitPushLiteral(v value.Value) {
	switch {
	case v.Kind == value.KindBoolean && v.AsBool():
		b.emit(iset.Instruction{Op: iset.PushTrue})
	case v.Kind == value.KindBoolean && !v.AsBool():
		b.emit(iset.Instruction{Op: iset.PushFalse})
	case v.Kind == value.KindInteger && v.AsInt() == 0:
		b.emit(iset.Instruction{Op: iset.Push0})
	case v.Kind == value.KindInteger && v.AsInt() == 1:
		b.emit(iset.Instruction{Op: iset.Push1})
	case v.IsNil():
		b.emit(iset.Instruction{Op: iset.PushNil})
	default:
		idx := b.addLiteral(v)
		b.emit(iset.Instruction{Op: iset.PushLiteral, A: idx})
	}
}

// addLiteral dedupes by type-and-value equality; object kinds
// (procedures, etc.) are never deduped since each is unique.
func (b *Builder) addLiteral(v value.Value) int {
	switch v.Kind {
	case value.KindInteger, value.KindReal, value.KindString, value.KindBoolean:
		for i, lit := range b.literals {
			if lit.Kind == v.Kind && value.Eqv(lit, v) {
				return i
			}
		}
	case value.KindSymbol:
		for i, lit := range b.literals {
			if lit.Kind == value.KindSymbol && lit.AsSymbol() == v.AsSymbol() {
				return i
			}
		}
	}
	b.literals = append(b.literals, v)
	return len(b.literals) - 1
}

// AddLiteral adds v to the literal pool without peephole folding or
// dedup, returning its index. Used for values that are never trivial
// constants (procedures, dynamic closures).
func (b *Builder) AddLiteral(v value.Value) int {
	b.literals = append(b.literals, v)
	return len(b.literals) - 1
}

func (b *Builder) EmitSimple(op iset.Opcode) { b.emit(iset.Instruction{Op: op}) }

func (b *Builder) EmitA(op iset.Opcode, a int) { b.emit(iset.Instruction{Op: op, A: a}) }

func (b *Builder) EmitAB(op iset.Opcode, a, b2 int) { b.emit(iset.Instruction{Op: op, A: a, B: b2}) }

// DefLocal allocates a name in the current environment, returning its
// stable index (idempotent on repeat names).
func (b *Builder) DefLocal(name string) int {
	return b.env.Allocate(name, value.Undefined)
}

// DefLabel records name as pointing at the current instruction
// position. Duplicate labels are a builder error.
func (b *Builder) DefLabel(name string) error {
	if _, exists := b.labels[name]; exists {
		return fmt.Errorf("duplicate label: %s", name)
	}
	b.labels[name] = b.here()
	return nil
}

// Goto family: emit a jump to a label not yet necessarily defined;
// resolved at Generate.
func (b *Builder) Goto(label string) {
	idx := b.emit(iset.Instruction{Op: iset.Goto})
	b.pendingJump = append(b.pendingJump, jumpFixup{idx, label})
}

func (b *Builder) GotoIfFalse(label string) {
	idx := b.emit(iset.Instruction{Op: iset.GotoIfFalse})
	b.pendingJump = append(b.pendingJump, jumpFixup{idx, label})
}

func (b *Builder) GotoIfNotFalse(label string) {
	idx := b.emit(iset.Instruction{Op: iset.GotoIfNotFalse})
	b.pendingJump = append(b.pendingJump, jumpFixup{idx, label})
}

// EmitLocal resolves name's (depth,index) via lookup_location and
// emits the matching load/store opcode. action is "push" or "set".
// dynamic selects the dynamic_* family used by macro-expanded code
// evaluating against a use-site environment rather than the lexically
// enclosing one.
func (b *Builder) EmitLocal(action, name string, dynamic bool) error {
	loc, ok := b.env.LookupLocation(name)
	if !ok {
		return fmt.Errorf("unbound variable: %s", name)
	}
	push := action == "push"
	switch {
	case dynamic && loc.Depth == 0:
		op := iset.DynamicPushLocal
		if !push {
			op = iset.DynamicSetLocal
		}
		b.EmitA(op, loc.Index)
	case dynamic:
		op := iset.DynamicPushLocalDepth
		if !push {
			op = iset.DynamicSetLocalDepth
		}
		b.EmitAB(op, loc.Depth, loc.Index)
	case loc.Depth == 0:
		op := iset.PushLocal
		if !push {
			op = iset.SetLocal
		}
		b.EmitA(op, loc.Index)
	default:
		op := iset.PushLocalDepth
		if !push {
			op = iset.SetLocalDepth
		}
		b.EmitAB(op, loc.Depth, loc.Index)
	}
	return nil
}

// PushProc creates a child Builder whose environment's parent is this
// Builder's environment, with params pre-allocated at indices
// 0..len(params)-1 (the rest param, if any, occupies the last index).
// It reserves a literal slot and emits the parent's PushLiteral/
// fix_lexical pair right away, recording the pair's position so that
// at Generate time the child is generated, wrapped into a Procedure
// value, and stored in the reserved literal slot.
func (b *Builder) PushProc(params []string, restArg bool) *Builder {
	child := New(env.New(b.env), b.wrap)
	for _, p := range params {
		child.DefLocal(p)
	}
	idx := len(b.literals)
	b.literals = append(b.literals, value.Undefined) // reserved
	instrIdx := b.emit(iset.Instruction{Op: iset.PushLiteral, A: idx})
	b.emit(iset.Instruction{Op: iset.FixLexical})
	fixedArgc := len(params)
	if restArg {
		fixedArgc--
	}
	b.procs = append(b.procs, procMarker{
		instrIdx:  instrIdx,
		literal:   idx,
		child:     child,
		fixedArgc: fixedArgc,
		restArg:   restArg,
	})
	return child
}

// Generate resolves labels and pending procedure literals into a
// finished Code.
func (b *Builder) Generate() (*Code, error) {
	for _, m := range b.procs {
		childCode, err := m.child.Generate()
		if err != nil {
			return nil, err
		}
		if b.wrap == nil {
			return nil, fmt.Errorf("builder: no procedure wrapper configured")
		}
		b.literals[m.literal] = b.wrap(childCode, m.fixedArgc, m.restArg)
	}
	for _, fix := range b.pendingJump {
		target, ok := b.labels[fix.label]
		if !ok {
			return nil, fmt.Errorf("undefined label: %s", fix.label)
		}
		b.instrs[fix.instrIdx].A = target
	}
	return &Code{
		Instructions: b.instrs,
		Literals:     b.literals,
		Env:          b.env,
	}, nil
}
