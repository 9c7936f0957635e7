// Package iset declares the fixed instruction set the Builder emits and
// the VM dispatches, grounded in the teacher's bytecode.go encoding
// style (an Opcode enum plus an Instruction carrying its operands) and
// generalized from Smalltalk message sends to Scheme's locals/control/
// call opcodes per the Scheme core's instruction-set contract.
package iset

// Opcode identifies one dispatch action. Each declares its own operand
// arity via Arity below. Code is addressed by instruction index, so the
// VM's dispatch loop advances IP by one instruction unless the action
// itself sets IP (jumps, call, ret, call_cc).
type Opcode int

const (
	// Stack
	PushLiteral Opcode = iota
	PushTrue
	PushFalse
	Push0
	Push1
	PushNil
	Dup
	Pop

	// Locals, current frame
	PushLocal
	SetLocal

	// Locals, ancestor frame: resolve by walking A parents then
	// indexing B.
	PushLocalDepth
	SetLocalDepth

	// Dynamic locals: used by macro-expanded code that must resolve
	// in the use-site environment captured by a dynamic closure.
	DynamicPushLocal
	DynamicSetLocal
	DynamicPushLocalDepth
	DynamicSetLocalDepth

	// Control flow. "false" means the boolean #f value, never the
	// empty list or 0.
	Goto
	GotoIfFalse
	GotoIfNotFalse

	// Call discipline
	Call
	TailCall
	Ret

	// Continuations
	CallCC

	// Lexical fix-up: bind the lexical parent of the top-of-stack
	// procedure/closure.
	FixLexical
	FixLexicalDepth
	FixLexicalPop

	// Macro support: evaluate a dynamic closure in its captured env.
	DynamicEval
)

var names = map[Opcode]string{
	PushLiteral:           "push_literal",
	PushTrue:              "push_true",
	PushFalse:             "push_false",
	Push0:                 "push_0",
	Push1:                 "push_1",
	PushNil:               "push_nil",
	Dup:                   "dup",
	Pop:                   "pop",
	PushLocal:             "push_local",
	SetLocal:              "set_local",
	PushLocalDepth:        "push_local_depth",
	SetLocalDepth:         "set_local_depth",
	DynamicPushLocal:      "dynamic_push_local",
	DynamicSetLocal:       "dynamic_set_local",
	DynamicPushLocalDepth: "dynamic_push_local_depth",
	DynamicSetLocalDepth:  "dynamic_set_local_depth",
	Goto:                  "goto",
	GotoIfFalse:           "goto_if_false",
	GotoIfNotFalse:        "goto_if_not_false",
	Call:                  "call",
	TailCall:              "tail_call",
	Ret:                   "ret",
	CallCC:                "call_cc",
	FixLexical:            "fix_lexical",
	FixLexicalDepth:       "fix_lexical_depth",
	FixLexicalPop:         "fix_lexical_pop",
	DynamicEval:           "dynamic_eval",
}

func (op Opcode) String() string {
	if n, ok := names[op]; ok {
		return n
	}
	return "unknown"
}

// Arity is the number of int operand words an instruction of this
// opcode carries (0, 1, or 2).
func (op Opcode) Arity() int {
	switch op {
	case PushTrue, PushFalse, Push0, Push1, PushNil, Dup, Pop, Ret, CallCC, FixLexical, FixLexicalPop, DynamicEval:
		return 0
	case PushLiteral, PushLocal, SetLocal, DynamicPushLocal, DynamicSetLocal,
		Goto, GotoIfFalse, GotoIfNotFalse, Call, TailCall, FixLexicalDepth:
		return 1
	case PushLocalDepth, SetLocalDepth, DynamicPushLocalDepth, DynamicSetLocalDepth:
		return 2
	default:
		return 0
	}
}

// Instruction is one bytecode word plus up to two operands. A is the
// sole operand for arity-1 opcodes (a literal index, a local index, a
// jump target, an argc); for arity-2 opcodes A is the depth and B is
// the index.
type Instruction struct {
	Op Opcode
	A  int
	B  int
}

// Len returns the instruction's word length (opcode word plus operand
// words) in a flat word encoding. The VM does not use it to advance IP,
// since jump targets and IP are instruction indices.
func (i Instruction) Len() int { return 1 + i.Op.Arity() }
