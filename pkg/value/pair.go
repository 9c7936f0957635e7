package value

// Pair is the binary cell (first . rest). Chains terminated by the
// empty list form proper lists; mutation of First/Rest is observable.
type Pair struct {
	First Value
	Rest  Value
}

func Cons(first, rest Value) Value {
	return PairValue(&Pair{First: first, Rest: rest})
}

// List builds a proper list from the given values.
func List(vs ...Value) Value {
	result := Nil
	for i := len(vs) - 1; i >= 0; i-- {
		result = Cons(vs[i], result)
	}
	return result
}

// ToSlice walks a proper list into a Go slice. It returns ok=false if
// the list is improper (a non-nil, non-pair tail).
func ToSlice(v Value) (vals []Value, ok bool) {
	for v.Kind == KindPair {
		p := v.AsPair()
		vals = append(vals, p.First)
		v = p.Rest
	}
	return vals, v.IsNil()
}

// Length returns the number of cells in a proper list, or -1 if v is
// not a proper list.
func Length(v Value) int {
	n := 0
	for v.Kind == KindPair {
		n++
		v = v.AsPair().Rest
	}
	if !v.IsNil() {
		return -1
	}
	return n
}
