// Package vm implements the stack virtual machine: it owns the active
// execution context, dispatches instructions, and implements calls,
// tail calls, returns, and continuation capture/restore. Grounded in
// the teacher's single-dispatch-loop style (pkg/vm/vm.go's Run/send)
// generalized from Smalltalk message sends to this instruction set's
// call/tail_call/ret/call_cc convention.
package vm

import (
	"github.com/kristofer/scheme/pkg/builder"
	"github.com/kristofer/scheme/pkg/env"
	"github.com/kristofer/scheme/pkg/iset"
	"github.com/kristofer/scheme/pkg/value"
)

// VM holds the one active Context and the top-level environment.
type VM struct {
	Global   *env.Environment
	Current  *Context
	Debugger *Debugger
}

// New creates a VM rooted at the given top-level environment.
func New(global *env.Environment) *VM {
	vm := &VM{Global: global}
	vm.Debugger = NewDebugger(vm)
	return vm
}

// Run evaluates a top-level Form/Procedure-shaped Code against its own
// code.Env and returns its value, per spec.md's Form.eval.
func (vm *VM) Run(code *builder.Code) (value.Value, error) {
	ctx := &Context{ProcName: "<top-level>", Code: code, Env: code.Env, IP: 0}
	prevTop := vm.Current
	vm.Current = ctx
	result, err := vm.loop()
	vm.Current = prevTop
	return result, err
}

// loop is the dispatch loop: it reads the instruction at ctx.IP, advances
// IP to the next instruction, then performs the action — unless
// the action itself sets IP (jump/call/ret/call_cc), which it does by
// overwriting vm.Current and/or vm.Current.IP after the pre-advance.
// It returns when a ret pops the outermost context (Prev == nil).
func (vm *VM) loop() (value.Value, error) {
	for {
		ctx := vm.Current
		if ctx.IP >= len(ctx.Code.Instructions) {
			// Implicit return of top-of-stack at end of a body with
			// no explicit ret (e.g. the synthesized top-level Form).
			if len(ctx.Stack) == 0 {
				return value.Nil, nil
			}
			return ctx.peek(), nil
		}

		if vm.Debugger.ShouldPause() {
			if !vm.Debugger.InteractivePrompt(ctx.Code) {
				return value.Undefined, vm.miscError("execution aborted from debugger")
			}
		}

		instr := ctx.Code.Instructions[ctx.IP]
		ctx.IP++

		done, result, err := vm.step(ctx, instr)
		if err != nil {
			return value.Undefined, err
		}
		if done {
			return result, nil
		}
	}
}

// step executes one instruction. done=true means the whole Run call
// should return result (the outermost context has just been popped).
func (vm *VM) step(ctx *Context, instr iset.Instruction) (done bool, result value.Value, err error) {
	switch instr.Op {
	case iset.PushLiteral:
		ctx.push(ctx.Code.Literals[instr.A])
	case iset.PushTrue:
		ctx.push(value.True)
	case iset.PushFalse:
		ctx.push(value.False)
	case iset.Push0:
		ctx.push(value.Int(0))
	case iset.Push1:
		ctx.push(value.Int(1))
	case iset.PushNil:
		ctx.push(value.Nil)
	case iset.Dup:
		ctx.push(ctx.peek())
	case iset.Pop:
		ctx.pop()

	case iset.PushLocal:
		ctx.push(ctx.Env.Read(instr.A))
	case iset.SetLocal:
		ctx.Env.Assign(instr.A, ctx.peek())
	case iset.PushLocalDepth:
		ctx.push(ctx.Env.EnvAt(instr.A).Read(instr.B))
	case iset.SetLocalDepth:
		ctx.Env.EnvAt(instr.A).Assign(instr.B, ctx.peek())

	case iset.DynamicPushLocal:
		ctx.push(ctx.Env.Read(instr.A))
	case iset.DynamicSetLocal:
		ctx.Env.Assign(instr.A, ctx.peek())
	case iset.DynamicPushLocalDepth:
		ctx.push(ctx.Env.EnvAt(instr.A).Read(instr.B))
	case iset.DynamicSetLocalDepth:
		ctx.Env.EnvAt(instr.A).Assign(instr.B, ctx.peek())

	case iset.Goto:
		ctx.IP = instr.A
	case iset.GotoIfFalse:
		if !ctx.pop().IsTrue() {
			ctx.IP = instr.A
		}
	case iset.GotoIfNotFalse:
		if ctx.pop().IsTrue() {
			ctx.IP = instr.A
		}

	case iset.Call, iset.TailCall:
		callee := ctx.pop()
		args := ctx.popN(instr.A)
		d, r, e := vm.dispatch(callee, args, instr.Op == iset.TailCall)
		return d, r, e

	case iset.Ret:
		v := ctx.pop()
		if ctx.Prev == nil {
			return true, v, nil
		}
		vm.Current = ctx.Prev
		vm.Current.push(v)

	case iset.CallCC:
		callee := ctx.pop()
		captured := ctx.clone()
		cont := WrapContinuation(captured)
		d, r, e := vm.dispatch(callee, []value.Value{cont}, false)
		return d, r, e

	case iset.FixLexical:
		fixLexical(ctx.peek(), ctx.Env)
	case iset.FixLexicalDepth:
		fixLexical(ctx.peek(), ctx.Env.EnvAt(instr.A))
	case iset.FixLexicalPop:
		fixLexical(ctx.peek(), ctx.Env)
		ctx.pop()

	case iset.DynamicEval:
		closureVal := ctx.pop()
		dc := AsDynamicClosure(closureVal)
		if dc == nil {
			return false, value.Undefined, vm.miscError("dynamic_eval: not a dynamic closure")
		}
		sub := &Context{ProcName: "<dynamic>", Code: dc.Code, Env: dc.Code.Env, IP: 0, Prev: ctx}
		vm.Current = sub

	default:
		return false, value.Undefined, vm.miscError("unknown opcode: %v", instr.Op)
	}
	return false, value.Undefined, nil
}

func fixLexical(v value.Value, parent *env.Environment) {
	if lp, ok := v.Payload().(value.LexicalPatchable); ok {
		lp.SetLexicalParent(parent)
	}
}

// dispatch implements the call semantics shared by call, tail_call,
// and the call_cc invocation of its argument: Primitive is invoked
// in-place and its result pushed (call) or returned to the caller's
// Context (tail_call); Procedure pushes (call) or replaces-in-place (tail_call) a
// Context; Continuation always replaces the current Context with a
// fresh copy of its captured frame (a continuation may be multi-shot).
func (vm *VM) dispatch(callee value.Value, args []value.Value, tail bool) (done bool, result value.Value, err error) {
	switch callee.Kind {
	case value.KindPrimitive:
		prim := AsPrimitive(callee)
		if prim == nil {
			return false, value.Undefined, vm.miscError("call: not a primitive")
		}
		if e := prim.CheckArity(len(args)); e != nil {
			return false, value.Undefined, e
		}
		v, e := prim.Fn(vm, args)
		if e != nil {
			return false, value.Undefined, e
		}
		if tail {
			ctx := vm.Current
			if ctx.Prev == nil {
				return true, v, nil
			}
			vm.Current = ctx.Prev
		}
		vm.Current.push(v)
		return false, value.Undefined, nil

	case value.KindProcedure:
		proc := AsProcedure(callee)
		if proc == nil {
			return false, value.Undefined, vm.miscError("call: not a procedure")
		}
		activation, e := bindArgs(proc, args)
		if e != nil {
			return false, value.Undefined, e
		}
		name := proc.Name
		if name == "" {
			name = "<lambda>"
		}
		if tail {
			ctx := vm.Current
			ctx.Code = proc.Code
			ctx.Env = activation
			ctx.IP = 0
			ctx.Stack = nil
			ctx.ProcName = name
		} else {
			vm.Current = &Context{ProcName: name, Code: proc.Code, Env: activation, IP: 0, Prev: vm.Current}
		}
		return false, value.Undefined, nil

	case value.KindContinuation:
		cont := AsContinuation(callee)
		if cont == nil || len(args) != 1 {
			return false, value.Undefined, vm.miscError("call: continuations take exactly one argument")
		}
		resumed := cont.Ctx.clone()
		resumed.ContinuationID = cont.ID.String()
		resumed.push(args[0])
		vm.Current = resumed
		return false, value.Undefined, nil

	default:
		return false, value.Undefined, vm.miscError("call: %s is not callable", callee.Kind)
	}
}

// bindArgs duplicates the procedure's environment template and binds
// fixed parameters by index, plus the rest parameter (if any) to a
// freshly built proper list of surplus arguments.
func bindArgs(proc *Procedure, args []value.Value) (*env.Environment, error) {
	if proc.RestArg {
		if len(args) < proc.FixedArgc {
			return nil, wrongArgNumber(proc.Name, proc.FixedArgc, len(args))
		}
	} else if len(args) != proc.FixedArgc {
		return nil, wrongArgNumber(proc.Name, proc.FixedArgc, len(args))
	}
	activation := proc.Code.Env.Duplicate()
	for i := 0; i < proc.FixedArgc; i++ {
		activation.Assign(i, args[i])
	}
	if proc.RestArg {
		rest := value.Nil
		for i := len(args) - 1; i >= proc.FixedArgc; i-- {
			rest = value.Cons(args[i], rest)
		}
		activation.Assign(proc.FixedArgc, rest)
	}
	return activation, nil
}

// Apply is the host-facing re-entry point (spec.md §6's apply, and the
// apply/map primitives' re-entry into the VM). It runs callee(args...)
// to completion, including nested call/cc, and returns its value.
func (vm *VM) Apply(callee value.Value, args []value.Value) (value.Value, error) {
	switch callee.Kind {
	case value.KindPrimitive:
		prim := AsPrimitive(callee)
		if e := prim.CheckArity(len(args)); e != nil {
			return value.Undefined, e
		}
		return prim.Fn(vm, args)
	case value.KindProcedure:
		proc := AsProcedure(callee)
		activation, e := bindArgs(proc, args)
		if e != nil {
			return value.Undefined, e
		}
		saved := vm.Current
		vm.Current = &Context{ProcName: proc.Name, Code: proc.Code, Env: activation, IP: 0}
		result, err := vm.loop()
		vm.Current = saved
		return result, err
	default:
		return value.Undefined, vm.miscError("apply: %s is not callable", callee.Kind)
	}
}
