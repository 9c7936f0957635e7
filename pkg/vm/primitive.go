package vm

import "github.com/kristofer/scheme/pkg/value"

// Primitive is a native callable plus a (min,max) arity, -1 meaning
// unbounded. Invoked with the VM handle as first implicit argument so
// it may re-enter the VM (apply, map, call/cc's continuation target).
type Primitive struct {
	Name string
	Min  int
	Max  int // -1 = unbounded
	Fn   func(vm *VM, args []value.Value) (value.Value, error)
}

func WrapPrimitive(p *Primitive) value.Value {
	return value.Obj(value.KindPrimitive, p)
}

func AsPrimitive(v value.Value) *Primitive {
	p, _ := v.Payload().(*Primitive)
	return p
}

func (p *Primitive) CheckArity(got int) error {
	if got < p.Min || (p.Max >= 0 && got > p.Max) {
		want := p.Min
		if p.Max != p.Min {
			want = p.Max
		}
		return wrongArgNumber(p.Name, want, got)
	}
	return nil
}
