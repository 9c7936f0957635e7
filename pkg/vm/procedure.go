package vm

import (
	"github.com/kristofer/scheme/pkg/builder"
	"github.com/kristofer/scheme/pkg/env"
	"github.com/kristofer/scheme/pkg/value"
)

// Procedure carries a compile-time environment template (parameters
// pre-allocated at slots 0..argc-1), immutable code, a fixed argument
// count, and a rest-argument flag. Its lexical parent is env.Parent;
// for a lambda created at run time the parent is patched to the
// caller's environment by fix_lexical.
type Procedure struct {
	Code      *builder.Code
	FixedArgc int
	RestArg   bool
	Name      string // best-effort, for debugger/trace display
}

func (p *Procedure) SetLexicalParent(parent any) {
	p.Code.Env.Parent = parent.(*env.Environment)
}

// WrapProcedure is the builder.ProcWrapper that turns a generated
// builder.Code into a callable Procedure Value.
func WrapProcedure(code *builder.Code, fixedArgc int, restArg bool) value.Value {
	return value.Obj(value.KindProcedure, &Procedure{Code: code, FixedArgc: fixedArgc, RestArg: restArg})
}

func AsProcedure(v value.Value) *Procedure {
	p, _ := v.Payload().(*Procedure)
	return p
}
