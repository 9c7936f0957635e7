package macro

import (
	"testing"

	"github.com/kristofer/scheme/pkg/env"
	"github.com/kristofer/scheme/pkg/reader"
	"github.com/kristofer/scheme/pkg/value"
)

func parse(t *testing.T, src string) value.Value {
	t.Helper()
	v, err := reader.New(src, "<test>").ParseDatum()
	if err != nil {
		t.Fatalf("parse(%q) failed: %v", src, err)
	}
	return v
}

func compileOneRule(t *testing.T, name, literals, rule string) *Macro {
	t.Helper()
	clause := parse(t, rule)
	m, err := Compile(name, env.New(nil), parse(t, literals), []value.Value{clause})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	return m
}

func mustExpand(t *testing.T, m *Macro, use string) value.Value {
	t.Helper()
	form := parse(t, use)
	out, err := m.Expand(env.New(nil), form)
	if err != nil {
		t.Fatalf("Expand(%q) failed: %v", use, err)
	}
	return out
}

func TestExpandSimpleSubstitution(t *testing.T) {
	m := compileOneRule(t, "my-add", "()", "((_ a b) (+ a b))")
	out := mustExpand(t, m, "(my-add 1 2)")

	parts, ok := value.ToSlice(out)
	if !ok || len(parts) != 3 {
		t.Fatalf("expected a 3-element list, got %v", out)
	}
	if parts[0].AsSymbol().Name != "+" {
		t.Errorf("expected head '+', got %v", parts[0])
	}
	if parts[1].AsInt() != 1 || parts[2].AsInt() != 2 {
		t.Errorf("expected substituted args (1 2), got (%v %v)", parts[1], parts[2])
	}
}

func TestExpandWithEllipsis(t *testing.T) {
	m := compileOneRule(t, "my-list", "()", "((_ x ...) (list x ...))")
	out := mustExpand(t, m, "(my-list 1 2 3)")

	parts, ok := value.ToSlice(out)
	if !ok || len(parts) != 4 {
		t.Fatalf("expected (list 1 2 3), got %v", out)
	}
	if parts[0].AsSymbol().Name != "list" {
		t.Errorf("expected head 'list', got %v", parts[0])
	}
	for i, want := range []int64{1, 2, 3} {
		if parts[i+1].AsInt() != want {
			t.Errorf("parts[%d] = %v, want %d", i+1, parts[i+1], want)
		}
	}
}

func TestExpandNestedEllipsis(t *testing.T) {
	m := compileOneRule(t, "my-pairs", "()", "((_ (a b) ...) (list (list a b) ...))")
	out := mustExpand(t, m, "(my-pairs (1 2) (3 4))")

	parts, ok := value.ToSlice(out)
	if !ok || len(parts) != 3 {
		t.Fatalf("expected (list (list 1 2) (list 3 4)), got %v", out)
	}
	first, ok := value.ToSlice(parts[1])
	if !ok || len(first) != 3 || first[1].AsInt() != 1 || first[2].AsInt() != 2 {
		t.Errorf("expected first sub-list (list 1 2), got %v", parts[1])
	}
}

func TestLiteralMustMatchByName(t *testing.T) {
	m := compileOneRule(t, "my-cond", "(else)", "((_ c r (else e)) (if c r e))")

	form := parse(t, "(my-cond #t 1 (else 2))")
	if _, err := m.Expand(env.New(nil), form); err != nil {
		t.Fatalf("expected the literal 'else' to match, got error: %v", err)
	}

	bad := parse(t, "(my-cond #t 1 (other 2))")
	if _, err := m.Expand(env.New(nil), bad); err == nil {
		t.Errorf("expected a mismatched literal keyword to fail to match")
	}
}

func TestMultipleRulesTriedInOrder(t *testing.T) {
	oneArg := parse(t, "((_ a) (list a))")
	twoArgs := parse(t, "((_ a b) (list a b))")
	m, err := Compile("my-fn", env.New(nil), parse(t, "()"), []value.Value{oneArg, twoArgs})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	out := mustExpand(t, m, "(my-fn 1 2)")
	parts, ok := value.ToSlice(out)
	if !ok || len(parts) != 3 {
		t.Fatalf("expected the 2-arg rule to match (list 1 2), got %v", out)
	}
	if parts[1].AsInt() != 1 || parts[2].AsInt() != 2 {
		t.Errorf("expected (list 1 2), got %v", out)
	}
}

func TestExpandFailsWhenNoRuleMatches(t *testing.T) {
	m := compileOneRule(t, "my-add", "()", "((_ a b) (+ a b))")
	if _, err := m.Expand(env.New(nil), parse(t, "(my-add 1 2 3)")); err == nil {
		t.Errorf("expected a 3-argument use to fail to match a 2-argument pattern")
	}
}
