// Package macro compiles a syntax-rules body into matcher trees and
// template trees, grounded in skime's macro.py. It transforms a
// use-site form into a rewritten s-expression; pattern-variable
// captures are wrapped in PendingClosure markers (see pending.go) so
// the compiler can later preserve the use-site lexical environment for
// them, since the DynamicClosure/SymbolClosure classes referenced by
// skime's compiler.py are absent from the retained source snapshot and
// are synthesized here directly from the specification's prose.
package macro

import (
	"fmt"

	"github.com/kristofer/scheme/pkg/env"
	"github.com/kristofer/scheme/pkg/value"
)

// MatchError is the internal control-flow signal raised when a
// pattern fails to match; the rule iterator catches it to try the
// next rule, never surfacing it to the user.
type MatchError struct{ Reason string }

func (e *MatchError) Error() string { return e.Reason }

func fail(format string, args ...any) error {
	return &MatchError{Reason: fmt.Sprintf(format, args...)}
}

// Ellipsis is an ordered sequence of captures, one entry per match of
// an ellipsis-repeated sub-pattern. Entries are either a value.Value
// (terminal capture) or a nested *Ellipsis (one level of nesting per
// "...").
type Ellipsis struct {
	Items []any
}

// MatchDict maps a pattern-variable name to its capture: a
// value.Value for a plain match, or *Ellipsis for one captured under
// one or more "...".
type MatchDict map[string]any

// Matcher is implemented by every pattern-tree node.
type Matcher interface {
	// Match consumes form (one datum, or for the top Sequence matcher
	// the whole use-site list) and records captures into dict. useEnv
	// and defEnv are the use-site and macro-definition environments,
	// needed by Literal to compare binding identity.
	Match(form value.Value, dict MatchDict, useEnv, defEnv *env.Environment) error
}

// ConstantMatcher matches by structural equality (numbers, strings,
// booleans, the empty list).
type ConstantMatcher struct{ Value value.Value }

func (m ConstantMatcher) Match(form value.Value, dict MatchDict, useEnv, defEnv *env.Environment) error {
	if !value.Equal(m.Value, form) {
		return fail("expected constant %s, got %s", m.Value.Write(), form.Write())
	}
	return nil
}

// LiteralMatcher matches a symbol whose lookup location in the
// use-site environment equals the lookup location of the same name in
// the definition environment (or both are unbound).
type LiteralMatcher struct{ Name string }

func (m LiteralMatcher) Match(form value.Value, dict MatchDict, useEnv, defEnv *env.Environment) error {
	if form.Kind != value.KindSymbol || form.AsSymbol().Name != m.Name {
		return fail("expected literal %s", m.Name)
	}
	useLoc, useOK := useEnv.LookupLocation(m.Name)
	defLoc, defOK := defEnv.LookupLocation(m.Name)
	if useOK != defOK {
		return fail("literal %s: binding mismatch between use and definition site", m.Name)
	}
	if useOK && useLoc != defLoc {
		return fail("literal %s: binding mismatch between use and definition site", m.Name)
	}
	return nil
}

// VariableMatcher captures whatever form matches.
type VariableMatcher struct{ Name string }

func (m VariableMatcher) Match(form value.Value, dict MatchDict, useEnv, defEnv *env.Environment) error {
	dict[m.Name] = form
	return nil
}

// UnderscoreMatcher matches one datum, discarding it.
type UnderscoreMatcher struct{}

func (UnderscoreMatcher) Match(form value.Value, dict MatchDict, useEnv, defEnv *env.Environment) error {
	return nil
}

// RestMatcher wraps a matcher that consumes the improper-list tail.
type RestMatcher struct{ Inner Matcher }

func (m RestMatcher) Match(form value.Value, dict MatchDict, useEnv, defEnv *env.Environment) error {
	return m.Inner.Match(form, dict, useEnv, defEnv)
}

// SequenceMatcher matches a list in order. EllipsisAt, if >= 0, names
// the index of Elements whose matcher may repeat zero or more times;
// Elements before it are a fixed prefix, Elements after it (excluding
// the ellipsis element itself) are a fixed suffix that must match the
// tail of the list.
type SequenceMatcher struct {
	Elements   []Matcher
	EllipsisAt int // -1 if no element repeats
	Tail       Matcher // nil for a proper list pattern
}

func (m SequenceMatcher) Match(form value.Value, dict MatchDict, useEnv, defEnv *env.Environment) error {
	items, properTail := flattenForMatch(form)

	prefixLen := len(m.Elements)
	suffixLen := 0
	if m.EllipsisAt >= 0 {
		prefixLen = m.EllipsisAt
		suffixLen = len(m.Elements) - m.EllipsisAt - 1
	}
	if m.EllipsisAt < 0 {
		if len(items) != prefixLen {
			return fail("expected %d elements, got %d", prefixLen, len(items))
		}
	} else if len(items) < prefixLen+suffixLen {
		return fail("expected at least %d elements, got %d", prefixLen+suffixLen, len(items))
	}

	for i := 0; i < prefixLen; i++ {
		if err := m.Elements[i].Match(items[i], dict, useEnv, defEnv); err != nil {
			return err
		}
	}

	if m.EllipsisAt >= 0 {
		repeated := m.Elements[m.EllipsisAt]
		repeatCount := len(items) - prefixLen - suffixLen
		vars := variablesIn(repeated)
		bags := make(map[string]*Ellipsis, len(vars))
		for _, v := range vars {
			bags[v] = &Ellipsis{}
		}
		for i := 0; i < repeatCount; i++ {
			sub := MatchDict{}
			if err := repeated.Match(items[prefixLen+i], sub, useEnv, defEnv); err != nil {
				return err
			}
			for _, v := range vars {
				bags[v].Items = append(bags[v].Items, sub[v])
			}
		}
		for _, v := range vars {
			dict[v] = bags[v]
		}
		for i := 0; i < suffixLen; i++ {
			if err := m.Elements[m.EllipsisAt+1+i].Match(items[prefixLen+repeatCount+i], dict, useEnv, defEnv); err != nil {
				return err
			}
		}
	}

	if m.Tail != nil {
		return m.Tail.Match(properTail, dict, useEnv, defEnv)
	}
	if !properTail.IsNil() {
		return fail("improper list where proper list pattern expected")
	}
	return nil
}

// flattenForMatch walks a (possibly improper) list into its elements
// plus whatever remains at the tail (Nil for a proper list).
func flattenForMatch(v value.Value) ([]value.Value, value.Value) {
	var items []value.Value
	for v.Kind == value.KindPair {
		p := v.AsPair()
		items = append(items, p.First)
		v = p.Rest
	}
	return items, v
}

// variablesIn collects every pattern-variable name a matcher tree can
// bind, used to seed per-iteration Ellipsis bags.
func variablesIn(m Matcher) []string {
	switch t := m.(type) {
	case VariableMatcher:
		return []string{t.Name}
	case RestMatcher:
		return variablesIn(t.Inner)
	case SequenceMatcher:
		var names []string
		for _, e := range t.Elements {
			names = append(names, variablesIn(e)...)
		}
		if t.Tail != nil {
			names = append(names, variablesIn(t.Tail)...)
		}
		return names
	default:
		return nil
	}
}
