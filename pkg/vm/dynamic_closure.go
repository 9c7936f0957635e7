package vm

import (
	"github.com/kristofer/scheme/pkg/builder"
	"github.com/kristofer/scheme/pkg/env"
	"github.com/kristofer/scheme/pkg/value"
)

// DynamicClosure captures an s-expression together with the lexical
// environment of its use site (via Code.Env), so that when a macro
// expansion is compiled and run, identifiers from the use-site scope
// resolve against that scope rather than the macro definition scope.
// dynamic_eval runs Code directly against Code.Env (already a concrete
// runtime environment, not a template requiring duplication).
type DynamicClosure struct {
	Code *builder.Code
}

func (d *DynamicClosure) SetLexicalParent(parent any) {
	d.Code.Env.Parent = parent.(*env.Environment)
}

func WrapDynamicClosure(code *builder.Code) value.Value {
	return value.Obj(value.KindDynamicClosure, &DynamicClosure{Code: code})
}

func AsDynamicClosure(v value.Value) *DynamicClosure {
	d, _ := v.Payload().(*DynamicClosure)
	return d
}
