package vm

import (
	"testing"

	"github.com/kristofer/scheme/pkg/builder"
	"github.com/kristofer/scheme/pkg/env"
	"github.com/kristofer/scheme/pkg/iset"
	"github.com/kristofer/scheme/pkg/value"
)

func addPrimitive() *Primitive {
	return &Primitive{
		Name: "+",
		Min:  2,
		Max:  2,
		Fn: func(_ *VM, args []value.Value) (value.Value, error) {
			return value.Int(args[0].AsInt() + args[1].AsInt()), nil
		},
	}
}

func TestCheckArityBounds(t *testing.T) {
	p := addPrimitive()
	if err := p.CheckArity(2); err != nil {
		t.Errorf("expected arity 2 to be accepted, got %v", err)
	}
	if err := p.CheckArity(1); err == nil {
		t.Errorf("expected arity 1 to be rejected for a 2-argument primitive")
	}
	if err := p.CheckArity(3); err == nil {
		t.Errorf("expected arity 3 to be rejected for a 2-argument primitive")
	}
}

func TestRunCallsPrimitiveArgsThenCallee(t *testing.T) {
	e := env.New(nil)
	code := &builder.Code{
		Instructions: []iset.Instruction{
			{Op: iset.PushLiteral, A: 0}, // arg 1
			{Op: iset.PushLiteral, A: 1}, // arg 2
			{Op: iset.PushLiteral, A: 2}, // callee, on top per the call convention
			{Op: iset.Call, A: 2},
			{Op: iset.Ret},
		},
		Literals: []value.Value{value.Int(3), value.Int(4), WrapPrimitive(addPrimitive())},
		Env:      e,
	}

	machine := New(e)
	result, err := machine.Run(code)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.AsInt() != 7 {
		t.Errorf("expected 7, got %v", result)
	}
}

func TestRunWithImplicitReturnOfEmptyStack(t *testing.T) {
	e := env.New(nil)
	code := &builder.Code{Instructions: nil, Literals: nil, Env: e}

	result, err := New(e).Run(code)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !result.IsNil() {
		t.Errorf("expected nil for an empty instruction stream, got %v", result)
	}
}

func TestCallingNonCallableIsAnError(t *testing.T) {
	e := env.New(nil)
	code := &builder.Code{
		Instructions: []iset.Instruction{
			{Op: iset.PushLiteral, A: 0},
			{Op: iset.Call, A: 0},
			{Op: iset.Ret},
		},
		Literals: []value.Value{value.Int(5)},
		Env:      e,
	}

	if _, err := New(e).Run(code); err == nil {
		t.Errorf("expected calling an integer to error")
	}
}

func TestCallWithWrongArgCountErrors(t *testing.T) {
	e := env.New(nil)
	code := &builder.Code{
		Instructions: []iset.Instruction{
			{Op: iset.PushLiteral, A: 0}, // single arg
			{Op: iset.PushLiteral, A: 1}, // callee (wants 2 args)
			{Op: iset.Call, A: 1},
			{Op: iset.Ret},
		},
		Literals: []value.Value{value.Int(3), WrapPrimitive(addPrimitive())},
		Env:      e,
	}

	if _, err := New(e).Run(code); err == nil {
		t.Errorf("expected a wrong-arg-count call to error")
	}
}

func TestApplyRunsAProcedureToCompletion(t *testing.T) {
	root := env.New(nil)
	procEnv := env.New(root)
	procEnv.Allocate("x", value.Undefined)
	procCode := &builder.Code{
		Instructions: []iset.Instruction{
			{Op: iset.PushLocal, A: 0},
			{Op: iset.Push1},
			{Op: iset.PushLiteral, A: 0},
			{Op: iset.Call, A: 2},
			{Op: iset.Ret},
		},
		Literals: []value.Value{WrapPrimitive(addPrimitive())},
		Env:      procEnv,
	}
	proc := &Procedure{Code: procCode, FixedArgc: 1, Name: "inc"}

	machine := New(root)
	result, err := machine.Apply(value.Obj(value.KindProcedure, proc), []value.Value{value.Int(41)})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if result.AsInt() != 42 {
		t.Errorf("expected 42, got %v", result)
	}
}

func TestApplyRestoresCurrentContext(t *testing.T) {
	root := env.New(nil)
	machine := New(root)
	machine.Current = &Context{ProcName: "<marker>"}

	prim := WrapPrimitive(addPrimitive())
	if _, err := machine.Apply(prim, []value.Value{value.Int(1), value.Int(2)}); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if machine.Current == nil || machine.Current.ProcName != "<marker>" {
		t.Errorf("expected Apply to restore the prior Current context")
	}
}
