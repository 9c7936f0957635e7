package engine

import (
	"fmt"
	"reflect"

	"github.com/kristofer/scheme/pkg/value"
	"github.com/kristofer/scheme/pkg/vm"
)

// ToScheme converts a Go value into its Scheme representation per
// SPEC_FULL.md §6.4's bridge rules: scalars pass through, slices become
// pair chains, maps become association lists of (key . value) pairs, a
// bare value.Value passes through unchanged, a Go func is wrapped into
// a Primitive that forwards the call through Engine.Apply, and anything
// else is boxed as an opaque value.HostObject.
func (e *Engine) ToScheme(host any) (value.Value, error) {
	switch h := host.(type) {
	case value.Value:
		return h, nil
	case nil:
		return value.Nil, nil
	case bool:
		return value.Bool(h), nil
	case int:
		return value.Int(int64(h)), nil
	case int64:
		return value.Int(h), nil
	case float64:
		return value.Real(h), nil
	case string:
		return value.Str(h), nil
	}

	rv := reflect.ValueOf(host)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		items := make([]value.Value, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			v, err := e.ToScheme(rv.Index(i).Interface())
			if err != nil {
				return value.Undefined, err
			}
			items[i] = v
		}
		return value.List(items...), nil

	case reflect.Map:
		result := value.Nil
		keys := rv.MapKeys()
		for i := len(keys) - 1; i >= 0; i-- {
			k, err := e.ToScheme(keys[i].Interface())
			if err != nil {
				return value.Undefined, err
			}
			v, err := e.ToScheme(rv.MapIndex(keys[i]).Interface())
			if err != nil {
				return value.Undefined, err
			}
			result = value.Cons(value.Cons(k, v), result)
		}
		return result, nil

	case reflect.Func:
		fn := host
		prim := &vm.Primitive{
			Name: "<host-func>",
			Min:  0,
			Max:  -1,
			Fn: func(machine *vm.VM, args []value.Value) (value.Value, error) {
				goArgs := make([]any, len(args))
				for i, a := range args {
					v, err := e.FromScheme(a)
					if err != nil {
						return value.Undefined, err
					}
					goArgs[i] = v
				}
				result, err := callHostFunc(fn, goArgs)
				if err != nil {
					return value.Undefined, err
				}
				return e.ToScheme(result)
			},
		}
		return vm.WrapPrimitive(prim), nil
	}

	return value.WrapHostObject(host), nil
}

// callHostFunc invokes an arbitrary Go func value reflectively, taking
// its first return value only (a second error-typed return, if any,
// propagates as the call's error) — just enough to let a host function
// with a conventional (T, error) or T signature serve as a primitive.
func callHostFunc(fn any, args []any) (any, error) {
	rv := reflect.ValueOf(fn)
	in := make([]reflect.Value, len(args))
	for i, a := range args {
		if a == nil {
			in[i] = reflect.Zero(rv.Type().In(i))
			continue
		}
		in[i] = reflect.ValueOf(a)
	}
	out := rv.Call(in)
	if len(out) == 0 {
		return nil, nil
	}
	last := out[len(out)-1]
	if last.Type().Implements(reflect.TypeOf((*error)(nil)).Elem()) {
		if !last.IsNil() {
			return nil, last.Interface().(error)
		}
		if len(out) == 1 {
			return nil, nil
		}
		return out[0].Interface(), nil
	}
	return out[0].Interface(), nil
}

// FromScheme converts a Scheme Value back into a plain Go value:
// scalars unwrap to their Go types, a proper list unwraps to []any, a
// HostObject unboxes to its original Go value, and everything else
// (procedures, primitives, continuations, macros, improper pairs)
// passes through as a bare value.Value for the host to inspect further.
func (e *Engine) FromScheme(v value.Value) (any, error) {
	switch v.Kind {
	case value.KindNil:
		return []any{}, nil
	case value.KindBoolean:
		return v.IsTrue(), nil
	case value.KindInteger:
		return v.AsInt(), nil
	case value.KindReal:
		return v.AsReal(), nil
	case value.KindString:
		return v.AsString(), nil
	case value.KindSymbol:
		return v.AsSymbol().Name, nil
	case value.KindHostObject:
		ho := value.AsHostObject(v)
		if ho == nil {
			return nil, fmt.Errorf("FromScheme: malformed host-object")
		}
		return ho.Obj, nil
	case value.KindPair:
		if parts, ok := value.ToSlice(v); ok {
			out := make([]any, len(parts))
			for i, p := range parts {
				gv, err := e.FromScheme(p)
				if err != nil {
					return nil, err
				}
				out[i] = gv
			}
			return out, nil
		}
		return v, nil
	default:
		return v, nil
	}
}
