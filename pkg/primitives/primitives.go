// Package primitives implements the bootstrap set of native procedures
// loaded into a fresh VM's root environment: arithmetic, comparison,
// pair/list operations, predicates, apply/map, and symbol/string/number
// conversions. Grounded in skime's prim.py naming and arity-checked
// wrapper, registered in the teacher's func(vm, args) primitive shape
// (pkg/vm/primitives.go) rather than skime's *args Python signature.
package primitives

import (
	"fmt"
	"strconv"

	"github.com/kristofer/scheme/pkg/env"
	"github.com/kristofer/scheme/pkg/value"
	"github.com/kristofer/scheme/pkg/vm"
)

// Install registers the bootstrap primitive set into root, the
// top-level Environment a fresh VM is constructed with.
func Install(root *env.Environment) {
	for _, p := range table {
		root.Allocate(p.Name, vm.WrapPrimitive(p))
	}
}

var table = []*vm.Primitive{
	{Name: "+", Min: 0, Max: -1, Fn: primPlus},
	{Name: "-", Min: 1, Max: -1, Fn: primMinus},
	{Name: "*", Min: 0, Max: -1, Fn: primMul},
	{Name: "/", Min: 1, Max: -1, Fn: primDiv},
	{Name: "=", Min: 1, Max: -1, Fn: primNumCompare("=", func(a, b float64) bool { return a == b })},
	{Name: "<", Min: 1, Max: -1, Fn: primNumCompare("<", func(a, b float64) bool { return a < b })},
	{Name: ">", Min: 1, Max: -1, Fn: primNumCompare(">", func(a, b float64) bool { return a > b })},
	{Name: "<=", Min: 1, Max: -1, Fn: primNumCompare("<=", func(a, b float64) bool { return a <= b })},
	{Name: ">=", Min: 1, Max: -1, Fn: primNumCompare(">=", func(a, b float64) bool { return a >= b })},
	{Name: "equal?", Min: 2, Max: 2, Fn: primEqual},
	{Name: "eq?", Min: 2, Max: 2, Fn: primEq},
	{Name: "eqv?", Min: 2, Max: 2, Fn: primEqv},
	{Name: "not", Min: 1, Max: 1, Fn: primNot},

	{Name: "car", Min: 1, Max: 1, Fn: primCar},
	{Name: "cdr", Min: 1, Max: 1, Fn: primCdr},
	{Name: "cons", Min: 2, Max: 2, Fn: primCons},
	{Name: "pair?", Min: 1, Max: 1, Fn: primPairP},
	{Name: "null?", Min: 1, Max: 1, Fn: primNullP},
	{Name: "list", Min: 0, Max: -1, Fn: primList},
	{Name: "list?", Min: 1, Max: 1, Fn: primListP},
	{Name: "length", Min: 1, Max: 1, Fn: primLength},
	{Name: "reverse", Min: 1, Max: 1, Fn: primReverse},
	{Name: "append", Min: 0, Max: -1, Fn: primAppend},
	{Name: "set-car!", Min: 2, Max: 2, Fn: primSetCar},
	{Name: "set-cdr!", Min: 2, Max: 2, Fn: primSetCdr},

	{Name: "apply", Min: 1, Max: -1, Fn: primApply},
	{Name: "map", Min: 2, Max: -1, Fn: primMap},
	{Name: "for-each", Min: 2, Max: -1, Fn: primForEach},

	{Name: "symbol->string", Min: 1, Max: 1, Fn: primSymbolToString},
	{Name: "string->symbol", Min: 1, Max: 1, Fn: primStringToSymbol},
	{Name: "number->string", Min: 1, Max: 1, Fn: primNumberToString},
	{Name: "string->number", Min: 1, Max: 1, Fn: primStringToNumber},

	{Name: "boolean?", Min: 1, Max: 1, Fn: typePred(value.KindBoolean)},
	{Name: "symbol?", Min: 1, Max: 1, Fn: typePred(value.KindSymbol)},
	{Name: "string?", Min: 1, Max: 1, Fn: typePred(value.KindString)},
	{Name: "procedure?", Min: 1, Max: 1, Fn: primProcedureP},
	{Name: "number?", Min: 1, Max: 1, Fn: primNumberP},
	{Name: "integer?", Min: 1, Max: 1, Fn: typePred(value.KindInteger)},
	{Name: "undefined?", Min: 1, Max: 1, Fn: typePred(value.KindUndefined)},
}

func numOf(v value.Value) (float64, bool) {
	switch v.Kind {
	case value.KindInteger:
		return float64(v.AsInt()), true
	case value.KindReal:
		return v.AsReal(), true
	default:
		return 0, false
	}
}

// isAllInt reports whether every argument is an exact integer, so that
// arithmetic over an all-integer argument list stays exact.
func isAllInt(args []value.Value) bool {
	for _, a := range args {
		if a.Kind != value.KindInteger {
			return false
		}
	}
	return true
}

func primPlus(machine *vm.VM, args []value.Value) (value.Value, error) {
	if isAllInt(args) {
		var sum int64
		for _, a := range args {
			sum += a.AsInt()
		}
		return value.Int(sum), nil
	}
	var sum float64
	for i, a := range args {
		f, ok := numOf(a)
		if !ok {
			return value.Undefined, machine.TypeError("+", i, "number", a.Kind.String())
		}
		sum += f
	}
	return value.Real(sum), nil
}

func primMul(machine *vm.VM, args []value.Value) (value.Value, error) {
	if isAllInt(args) {
		var prod int64 = 1
		for _, a := range args {
			prod *= a.AsInt()
		}
		return value.Int(prod), nil
	}
	prod := 1.0
	for i, a := range args {
		f, ok := numOf(a)
		if !ok {
			return value.Undefined, machine.TypeError("*", i, "number", a.Kind.String())
		}
		prod *= f
	}
	return value.Real(prod), nil
}

func primMinus(machine *vm.VM, args []value.Value) (value.Value, error) {
	if len(args) == 1 {
		if args[0].Kind == value.KindInteger {
			return value.Int(-args[0].AsInt()), nil
		}
		f, ok := numOf(args[0])
		if !ok {
			return value.Undefined, machine.TypeError("-", 0, "number", args[0].Kind.String())
		}
		return value.Real(-f), nil
	}
	if isAllInt(args) {
		n := args[0].AsInt()
		for _, a := range args[1:] {
			n -= a.AsInt()
		}
		return value.Int(n), nil
	}
	f, ok := numOf(args[0])
	if !ok {
		return value.Undefined, machine.TypeError("-", 0, "number", args[0].Kind.String())
	}
	for i, a := range args[1:] {
		g, ok := numOf(a)
		if !ok {
			return value.Undefined, machine.TypeError("-", i+1, "number", a.Kind.String())
		}
		f -= g
	}
	return value.Real(f), nil
}

func primDiv(machine *vm.VM, args []value.Value) (value.Value, error) {
	f, ok := numOf(args[0])
	if !ok {
		return value.Undefined, machine.TypeError("/", 0, "number", args[0].Kind.String())
	}
	if len(args) == 1 {
		return value.Real(1.0 / f), nil
	}
	if isAllInt(args) {
		n, exact := args[0].AsInt(), true
		for _, a := range args[1:] {
			d := a.AsInt()
			if d == 0 || n%d != 0 {
				exact = false
				break
			}
			n /= d
		}
		if exact {
			return value.Int(n), nil
		}
	}
	for i, a := range args[1:] {
		g, ok := numOf(a)
		if !ok {
			return value.Undefined, machine.TypeError("/", i+1, "number", a.Kind.String())
		}
		f /= g
	}
	return value.Real(f), nil
}

// primNumCompare builds a variadic chained comparison primitive (each
// adjacent pair must satisfy cmp), matching skime's less/more/etc.
func primNumCompare(name string, cmp func(a, b float64) bool) func(*vm.VM, []value.Value) (value.Value, error) {
	return func(machine *vm.VM, args []value.Value) (value.Value, error) {
		prev, ok := numOf(args[0])
		if !ok {
			return value.Undefined, machine.TypeError(name, 0, "number", args[0].Kind.String())
		}
		for i, a := range args[1:] {
			cur, ok := numOf(a)
			if !ok {
				return value.Undefined, machine.TypeError(name, i+1, "number", a.Kind.String())
			}
			if !cmp(prev, cur) {
				return value.False, nil
			}
			prev = cur
		}
		return value.True, nil
	}
}

func primEqual(_ *vm.VM, args []value.Value) (value.Value, error) {
	return value.Bool(value.Equal(args[0], args[1])), nil
}

func primEq(_ *vm.VM, args []value.Value) (value.Value, error) {
	return value.Bool(value.Eq(args[0], args[1])), nil
}

func primEqv(_ *vm.VM, args []value.Value) (value.Value, error) {
	return value.Bool(value.Eqv(args[0], args[1])), nil
}

func primNot(_ *vm.VM, args []value.Value) (value.Value, error) {
	return value.Bool(!args[0].IsTrue()), nil
}

func primCar(machine *vm.VM, args []value.Value) (value.Value, error) {
	if args[0].Kind != value.KindPair {
		return value.Undefined, machine.TypeError("car", 0, "pair", args[0].Kind.String())
	}
	return args[0].AsPair().First, nil
}

func primCdr(machine *vm.VM, args []value.Value) (value.Value, error) {
	if args[0].Kind != value.KindPair {
		return value.Undefined, machine.TypeError("cdr", 0, "pair", args[0].Kind.String())
	}
	return args[0].AsPair().Rest, nil
}

func primCons(_ *vm.VM, args []value.Value) (value.Value, error) {
	return value.Cons(args[0], args[1]), nil
}

func primPairP(_ *vm.VM, args []value.Value) (value.Value, error) {
	return value.Bool(args[0].Kind == value.KindPair), nil
}

func primNullP(_ *vm.VM, args []value.Value) (value.Value, error) {
	return value.Bool(args[0].IsNil()), nil
}

func primList(_ *vm.VM, args []value.Value) (value.Value, error) {
	return value.List(args...), nil
}

// primListP detects circular lists with Floyd's tortoise-and-hare, the
// same algorithm skime's prim_list_p uses.
func primListP(_ *vm.VM, args []value.Value) (value.Value, error) {
	slow, fast := args[0], args[0]
	for {
		if fast.IsNil() {
			return value.True, nil
		}
		if fast.Kind != value.KindPair {
			return value.False, nil
		}
		fast = fast.AsPair().Rest
		if fast.IsNil() {
			return value.True, nil
		}
		if fast.Kind != value.KindPair {
			return value.False, nil
		}
		fast = fast.AsPair().Rest
		slow = slow.AsPair().Rest
		if fast.Kind == value.KindPair && slow.Kind == value.KindPair && fast.AsPair() == slow.AsPair() {
			return value.False, nil
		}
	}
}

func primLength(machine *vm.VM, args []value.Value) (value.Value, error) {
	n := value.Length(args[0])
	if n < 0 {
		return value.Undefined, machine.TypeError("length", 0, "list", args[0].Kind.String())
	}
	return value.Int(int64(n)), nil
}

func primReverse(machine *vm.VM, args []value.Value) (value.Value, error) {
	parts, ok := value.ToSlice(args[0])
	if !ok {
		return value.Undefined, machine.TypeError("reverse", 0, "list", args[0].Kind.String())
	}
	result := value.Nil
	for _, p := range parts {
		result = value.Cons(p, result)
	}
	return result, nil
}

func primAppend(machine *vm.VM, args []value.Value) (value.Value, error) {
	if len(args) == 0 {
		return value.Nil, nil
	}
	result := args[len(args)-1]
	for i := len(args) - 2; i >= 0; i-- {
		parts, ok := value.ToSlice(args[i])
		if !ok {
			return value.Undefined, machine.TypeError("append", i, "list", args[i].Kind.String())
		}
		for j := len(parts) - 1; j >= 0; j-- {
			result = value.Cons(parts[j], result)
		}
	}
	return result, nil
}

func primSetCar(machine *vm.VM, args []value.Value) (value.Value, error) {
	if args[0].Kind != value.KindPair {
		return value.Undefined, machine.TypeError("set-car!", 0, "pair", args[0].Kind.String())
	}
	args[0].AsPair().First = args[1]
	return value.Undefined, nil
}

func primSetCdr(machine *vm.VM, args []value.Value) (value.Value, error) {
	if args[0].Kind != value.KindPair {
		return value.Undefined, machine.TypeError("set-cdr!", 0, "pair", args[0].Kind.String())
	}
	args[0].AsPair().Rest = args[1]
	return value.Undefined, nil
}

// primApply re-enters the VM per spec.md §6: (apply proc a b (c d))
// calls proc with args a, b, c, d — the last argument supplies the
// tail of the call's argument list.
func primApply(machine *vm.VM, args []value.Value) (value.Value, error) {
	proc := args[0]
	rest := args[1:]
	if len(rest) == 0 {
		return machine.Apply(proc, nil)
	}
	fixed := rest[:len(rest)-1]
	tail, ok := value.ToSlice(rest[len(rest)-1])
	if !ok {
		return value.Undefined, machine.TypeError("apply", len(args)-1, "list", rest[len(rest)-1].Kind.String())
	}
	callArgs := append(append([]value.Value{}, fixed...), tail...)
	return machine.Apply(proc, callArgs)
}

// primMap applies proc across parallel lists, stopping at the shortest,
// and collects the results into a fresh list.
func primMap(machine *vm.VM, args []value.Value) (value.Value, error) {
	proc := args[0]
	lists := append([]value.Value{}, args[1:]...)
	var results []value.Value
	for {
		callArgs := make([]value.Value, len(lists))
		done := false
		for i, l := range lists {
			if l.Kind != value.KindPair {
				done = true
				break
			}
			callArgs[i] = l.AsPair().First
			lists[i] = l.AsPair().Rest
		}
		if done {
			break
		}
		v, err := machine.Apply(proc, callArgs)
		if err != nil {
			return value.Undefined, err
		}
		results = append(results, v)
	}
	return value.List(results...), nil
}

// primForEach is map's side-effecting sibling: same iteration, the
// return value discarded, always yielding undefined.
func primForEach(machine *vm.VM, args []value.Value) (value.Value, error) {
	proc := args[0]
	lists := append([]value.Value{}, args[1:]...)
	for {
		callArgs := make([]value.Value, len(lists))
		done := false
		for i, l := range lists {
			if l.Kind != value.KindPair {
				done = true
				break
			}
			callArgs[i] = l.AsPair().First
			lists[i] = l.AsPair().Rest
		}
		if done {
			break
		}
		if _, err := machine.Apply(proc, callArgs); err != nil {
			return value.Undefined, err
		}
	}
	return value.Undefined, nil
}

func primSymbolToString(machine *vm.VM, args []value.Value) (value.Value, error) {
	if args[0].Kind != value.KindSymbol {
		return value.Undefined, machine.TypeError("symbol->string", 0, "symbol", args[0].Kind.String())
	}
	return value.Str(args[0].AsSymbol().Name), nil
}

func primStringToSymbol(machine *vm.VM, args []value.Value) (value.Value, error) {
	if args[0].Kind != value.KindString {
		return value.Undefined, machine.TypeError("string->symbol", 0, "string", args[0].Kind.String())
	}
	return value.Sym(args[0].AsString()), nil
}

func primNumberToString(machine *vm.VM, args []value.Value) (value.Value, error) {
	n := args[0]
	switch n.Kind {
	case value.KindInteger:
		return value.Str(strconv.FormatInt(n.AsInt(), 10)), nil
	case value.KindReal:
		return value.Str(fmt.Sprintf("%g", n.AsReal())), nil
	default:
		return value.Undefined, machine.TypeError("number->string", 0, "number", n.Kind.String())
	}
}

func primStringToNumber(machine *vm.VM, args []value.Value) (value.Value, error) {
	if args[0].Kind != value.KindString {
		return value.Undefined, machine.TypeError("string->number", 0, "string", args[0].Kind.String())
	}
	s := args[0].AsString()
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return value.Int(n), nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return value.Real(f), nil
	}
	return value.False, nil
}

func typePred(k value.Kind) func(*vm.VM, []value.Value) (value.Value, error) {
	return func(_ *vm.VM, args []value.Value) (value.Value, error) {
		return value.Bool(args[0].Kind == k), nil
	}
}

func primNumberP(_ *vm.VM, args []value.Value) (value.Value, error) {
	k := args[0].Kind
	return value.Bool(k == value.KindInteger || k == value.KindReal || k == value.KindComplex), nil
}

func primProcedureP(_ *vm.VM, args []value.Value) (value.Value, error) {
	k := args[0].Kind
	return value.Bool(k == value.KindProcedure || k == value.KindPrimitive || k == value.KindContinuation), nil
}
