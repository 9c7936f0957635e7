package reader

import (
	"testing"

	"github.com/kristofer/scheme/pkg/value"
)

func mustParseOne(t *testing.T, src string) value.Value {
	t.Helper()
	forms, err := ParseAll(src, "<test>")
	if err != nil {
		t.Fatalf("ParseAll(%q): %v", src, err)
	}
	if len(forms) != 1 {
		t.Fatalf("ParseAll(%q): got %d forms, want 1", src, len(forms))
	}
	return forms[0]
}

func TestParseDatum_Atoms(t *testing.T) {
	if v := mustParseOne(t, "42"); v.AsInt() != 42 {
		t.Fatalf("got %v", v)
	}
	if v := mustParseOne(t, "-3.5"); v.Kind != value.KindReal || v.AsReal() != -3.5 {
		t.Fatalf("got %v", v)
	}
	if v := mustParseOne(t, `"hi"`); v.Kind != value.KindString || v.AsString() != "hi" {
		t.Fatalf("got %v", v)
	}
	if v := mustParseOne(t, "#t"); !v.IsTrue() {
		t.Fatalf("got %v", v)
	}
	if v := mustParseOne(t, "foo"); v.Kind != value.KindSymbol || v.AsSymbol().Name != "foo" {
		t.Fatalf("got %v", v)
	}
}

func TestParseDatum_List(t *testing.T) {
	v := mustParseOne(t, "(+ 1 2)")
	parts, ok := value.ToSlice(v)
	if !ok || len(parts) != 3 {
		t.Fatalf("got %v", v.Write())
	}
	if parts[0].AsSymbol().Name != "+" || parts[1].AsInt() != 1 || parts[2].AsInt() != 2 {
		t.Fatalf("got %v", v.Write())
	}
}

func TestParseDatum_DottedPair(t *testing.T) {
	v := mustParseOne(t, "(a . b)")
	p := v.AsPair()
	if p.First.AsSymbol().Name != "a" || p.Rest.AsSymbol().Name != "b" {
		t.Fatalf("got %v", v.Write())
	}
}

func TestParseDatum_QuoteAbbreviations(t *testing.T) {
	cases := map[string]string{
		"'x":  "quote",
		"`x":  "quasiquote",
		",x":  "unquote",
		",@x": "unquote-splicing",
	}
	for src, wantHead := range cases {
		v := mustParseOne(t, src)
		parts, ok := value.ToSlice(v)
		if !ok || len(parts) != 2 {
			t.Fatalf("%s: got %v", src, v.Write())
		}
		if parts[0].AsSymbol().Name != wantHead {
			t.Fatalf("%s: head = %s, want %s", src, parts[0].AsSymbol().Name, wantHead)
		}
		if parts[1].AsSymbol().Name != "x" {
			t.Fatalf("%s: inner = %v", src, parts[1].Write())
		}
	}
}

func TestParseDatum_Nested(t *testing.T) {
	v := mustParseOne(t, "(let ((x 1) (y 2)) (+ x y))")
	parts, ok := value.ToSlice(v)
	if !ok || len(parts) != 3 {
		t.Fatalf("got %v", v.Write())
	}
	if parts[0].AsSymbol().Name != "let" {
		t.Fatalf("got %v", v.Write())
	}
}

func TestParseAll_MultipleForms(t *testing.T) {
	forms, err := ParseAll("(define x 1) (define y 2) (+ x y)", "<test>")
	if err != nil {
		t.Fatalf("ParseAll: %v", err)
	}
	if len(forms) != 3 {
		t.Fatalf("got %d forms, want 3", len(forms))
	}
}

func TestParseDatum_UnterminatedListError(t *testing.T) {
	_, err := ParseAll("(+ 1 2", "<test>")
	if err == nil {
		t.Fatalf("expected error for unterminated list")
	}
}
