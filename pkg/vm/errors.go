package vm

import "github.com/kristofer/scheme/pkg/schemeerr"

// trace walks the Context chain from vm.Current outward, in the
// same spirit as the teacher's newRuntimeError walking vm.callStack.
func (vm *VM) trace() []schemeerr.Frame {
	var frames []schemeerr.Frame
	for c := vm.Current; c != nil; c = c.Prev {
		frames = append(frames, schemeerr.Frame{ProcName: c.ProcName, IP: c.IP})
	}
	return frames
}

func (vm *VM) wrongArgNumber(proc string, want, got int) error {
	return schemeerr.NewWrongArgNumber(proc, want, got).WithTrace(vm.trace())
}

func (vm *VM) wrongArgType(proc string, argIdx int, want, got string) error {
	return schemeerr.NewWrongArgType(proc, argIdx, want, got).WithTrace(vm.trace())
}

// TypeError is wrongArgType exported for use by primitives registered
// from outside this package (pkg/primitives), which only has the VM
// handle passed into its Fn, not package-internal access.
func (vm *VM) TypeError(proc string, argIdx int, want, got string) error {
	return vm.wrongArgType(proc, argIdx, want, got)
}

func (vm *VM) miscError(format string, args ...any) error {
	return schemeerr.NewMiscError(format, args...).WithTrace(vm.trace())
}

// wrongArgNumber is a package-level helper for use before a VM handle
// is available (e.g. Primitive.CheckArity called ahead of dispatch).
func wrongArgNumber(proc string, want, got int) error {
	return schemeerr.NewWrongArgNumber(proc, want, got)
}
