package value

import "testing"

func TestIsTrueOnlyHashFIsFalse(t *testing.T) {
	falsy := []Value{False}
	truthy := []Value{True, Int(0), Str(""), Nil, Real(0)}

	for _, v := range falsy {
		if v.IsTrue() {
			t.Errorf("%v: expected IsTrue() == false", v)
		}
	}
	for _, v := range truthy {
		if !v.IsTrue() {
			t.Errorf("%v: expected IsTrue() == true", v)
		}
	}
}

func TestSymInterns(t *testing.T) {
	a := Sym("foo")
	b := Sym("foo")
	if a.AsSymbol() != b.AsSymbol() {
		t.Errorf("expected Sym(\"foo\") to return the same interned pointer twice")
	}
	c := Sym("bar")
	if a.AsSymbol() == c.AsSymbol() {
		t.Errorf("expected distinct names to intern to distinct pointers")
	}
}

func TestEqIsIdentityNotStructural(t *testing.T) {
	listA := List(Int(1), Int(2))
	listB := List(Int(1), Int(2))
	if Eq(listA, listB) {
		t.Errorf("expected Eq to be false for two distinct but structurally-equal pairs")
	}
	if !Eq(Int(5), Int(5)) {
		t.Errorf("expected Eq to hold for equal small integers")
	}
	if !Eq(Sym("x"), Sym("x")) {
		t.Errorf("expected Eq to hold for the same interned symbol")
	}
}

func TestEqvCoercesIntegerAndReal(t *testing.T) {
	if !Eqv(Int(3), Real(3.0)) {
		t.Errorf("expected Eqv(3, 3.0) to hold")
	}
	if Eqv(Int(3), Real(3.5)) {
		t.Errorf("expected Eqv(3, 3.5) to be false")
	}
}

func TestEqualIsStructural(t *testing.T) {
	listA := List(Int(1), List(Int(2), Int(3)))
	listB := List(Int(1), List(Int(2), Int(3)))
	if !Equal(listA, listB) {
		t.Errorf("expected Equal to hold for structurally-equal nested lists")
	}
	if !Equal(Str("hi"), Str("hi")) {
		t.Errorf("expected Equal to hold for equal strings")
	}
	listC := List(Int(1), Int(2), Int(3))
	if Equal(listA, listC) {
		t.Errorf("expected Equal to fail for differently-shaped lists")
	}
}

func TestConsAndToSlice(t *testing.T) {
	l := List(Int(1), Int(2), Int(3))
	parts, ok := ToSlice(l)
	if !ok || len(parts) != 3 {
		t.Fatalf("expected a 3-element proper list, got %v ok=%v", parts, ok)
	}
	for i, want := range []int64{1, 2, 3} {
		if parts[i].AsInt() != want {
			t.Errorf("parts[%d] = %d, want %d", i, parts[i].AsInt(), want)
		}
	}
}

func TestToSliceRejectsImproperList(t *testing.T) {
	improper := Cons(Int(1), Cons(Int(2), Int(3)))
	_, ok := ToSlice(improper)
	if ok {
		t.Errorf("expected ToSlice to report ok=false for an improper list")
	}
}

func TestLengthOfProperAndImproperLists(t *testing.T) {
	if got := Length(List(Int(1), Int(2))); got != 2 {
		t.Errorf("Length = %d, want 2", got)
	}
	if got := Length(Nil); got != 0 {
		t.Errorf("Length(Nil) = %d, want 0", got)
	}
	improper := Cons(Int(1), Int(2))
	if got := Length(improper); got != -1 {
		t.Errorf("Length(improper) = %d, want -1", got)
	}
}

func TestWriteRoundTripsLiterals(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{Nil, "()"},
		{True, "#t"},
		{False, "#f"},
		{Int(42), "42"},
		{Str("hi"), `"hi"`},
		{Sym("x"), "x"},
		{List(Int(1), Int(2)), "(1 2)"},
	}
	for _, tt := range tests {
		if got := tt.v.Write(); got != tt.want {
			t.Errorf("Write() = %q, want %q", got, tt.want)
		}
	}
}

func TestWriteDottedPair(t *testing.T) {
	p := Cons(Int(1), Int(2))
	if got := p.Write(); got != "(1 . 2)" {
		t.Errorf("Write() = %q, want %q", got, "(1 . 2)")
	}
}

func TestDisplayUnquotesStrings(t *testing.T) {
	if got := Str("hi").Display(); got != "hi" {
		t.Errorf("Display() = %q, want %q", got, "hi")
	}
	if got := Int(5).Display(); got != "5" {
		t.Errorf("Display() = %q, want %q", got, "5")
	}
}
