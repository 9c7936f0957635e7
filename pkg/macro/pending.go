package macro

import (
	"github.com/kristofer/scheme/pkg/env"
	"github.com/kristofer/scheme/pkg/value"
)

// PendingClosure marks a template-expansion leaf that came from a
// pattern-variable capture: a fragment of the use-site form that must
// be compiled and evaluated against the use-site environment rather
// than the environment the surrounding macro body compiles in. The
// compiler discovers these with AsPending during its normal recursive
// walk of an expanded form and compiles them into a vm.DynamicClosure
// (see pkg/compiler's generateDynamic).
type PendingClosure struct {
	Expr   value.Value
	UseEnv *env.Environment
}

// Wrap boxes a captured use-site fragment. Self-evaluating atoms
// (numbers, strings, booleans, the empty list) are never wrapped:
// they contain no free identifiers, so hygiene is a non-issue for
// them and splicing them directly keeps the common case cheap.
func Wrap(v value.Value, useEnv *env.Environment) value.Value {
	switch v.Kind {
	case value.KindInteger, value.KindReal, value.KindComplex, value.KindString, value.KindBoolean, value.KindNil:
		return v
	default:
		return value.Obj(value.KindDynamicClosure, &PendingClosure{Expr: v, UseEnv: useEnv})
	}
}

func AsPending(v value.Value) *PendingClosure {
	p, _ := v.Payload().(*PendingClosure)
	return p
}
