package macro

import (
	"github.com/kristofer/scheme/pkg/env"
	"github.com/kristofer/scheme/pkg/value"
)

// WrapMacro boxes a compiled Macro as a runtime Value so it can be
// stored in an environment slot like any other binding.
func WrapMacro(m *Macro) value.Value { return value.Obj(value.KindMacro, m) }

func AsMacro(v value.Value) *Macro {
	m, _ := v.Payload().(*Macro)
	return m
}

// SyntaxRule is one (pattern, template) clause of a syntax-rules body.
type SyntaxRule struct {
	Matcher  Matcher
	Template Template
}

// Macro is the compiled form of a syntax-rules body: literal symbols
// (never rewritten, matched by binding identity) and an ordered
// sequence of rules, tried in order.
type Macro struct {
	Name     string
	DefEnv   *env.Environment
	Literals map[string]bool
	Rules    []*SyntaxRule
}

// Compile builds a Macro from the literal-identifier list and
// (pattern template) clauses of a (syntax-rules (lits...) (pat tmpl)...)
// form, as they appear in parsed s-expression form.
func Compile(name string, defEnv *env.Environment, literalsForm value.Value, clauses []value.Value) (*Macro, error) {
	litNames, ok := value.ToSlice(literalsForm)
	if !ok {
		return nil, fail("syntax-rules: malformed literals list")
	}
	literals := make(map[string]bool, len(litNames))
	for _, l := range litNames {
		if l.Kind != value.KindSymbol {
			return nil, fail("syntax-rules: literal list must contain symbols")
		}
		literals[l.AsSymbol().Name] = true
	}

	m := &Macro{Name: name, DefEnv: defEnv, Literals: literals}
	for _, clause := range clauses {
		parts, ok := value.ToSlice(clause)
		if !ok || len(parts) != 2 {
			return nil, fail("syntax-rules: each rule must be (pattern template)")
		}
		matcher, err := compilePattern(parts[0], literals, true)
		if err != nil {
			return nil, err
		}
		vars := map[string]bool{}
		for _, v := range variablesIn(matcher) {
			vars[v] = true
		}
		tmpl, err := compileTemplate(parts[1], vars)
		if err != nil {
			return nil, err
		}
		m.Rules = append(m.Rules, &SyntaxRule{Matcher: matcher, Template: tmpl})
	}
	return m, nil
}

// Expand tries each rule in order against form (a use-site call whose
// head is the macro keyword), returning the rewritten expression of
// the first rule whose pattern matches. If every rule fails to match,
// the caller (the compiler) should raise a user-visible SyntaxError;
// MatchError itself is never user-visible.
func (m *Macro) Expand(useEnv *env.Environment, form value.Value) (value.Value, error) {
	var lastErr error
	for _, rule := range m.Rules {
		dict := MatchDict{}
		if err := rule.Matcher.Match(form, dict, useEnv, m.DefEnv); err != nil {
			lastErr = err
			continue
		}
		return rule.Template.Expand(dict, useEnv, nil)
	}
	if lastErr == nil {
		lastErr = fail("no matching rule")
	}
	return value.Undefined, lastErr
}

// compilePattern builds a Matcher tree. isTop is true only for the
// outermost pattern of a rule, whose head position conventionally
// matches (and discards) the macro keyword itself via "_".
func compilePattern(pat value.Value, literals map[string]bool, isTop bool) (Matcher, error) {
	switch pat.Kind {
	case value.KindSymbol:
		name := pat.AsSymbol().Name
		if name == "_" {
			return UnderscoreMatcher{}, nil
		}
		if literals[name] {
			return LiteralMatcher{Name: name}, nil
		}
		return VariableMatcher{Name: name}, nil
	case value.KindPair:
		return compileSequencePattern(pat, literals, isTop)
	case value.KindNil:
		return ConstantMatcher{Value: value.Nil}, nil
	default:
		return ConstantMatcher{Value: pat}, nil
	}
}

func compileSequencePattern(pat value.Value, literals map[string]bool, isTop bool) (Matcher, error) {
	var elements []Matcher
	ellipsisAt := -1
	cur := pat
	first := true
	for cur.Kind == value.KindPair {
		p := cur.AsPair()
		elemPat := p.First
		if first && isTop {
			elemPat = value.Sym("_")
		}
		first = false

		// Peek: does the next cell hold the "..." marker?
		if p.Rest.Kind == value.KindPair {
			nextHead := p.Rest.AsPair().First
			if nextHead.Kind == value.KindSymbol && nextHead.AsSymbol().Name == "..." {
				if ellipsisAt != -1 {
					return nil, fail("syntax-rules: more than one '...' in a single pattern sequence")
				}
				m, err := compilePattern(elemPat, literals, false)
				if err != nil {
					return nil, err
				}
				elements = append(elements, m)
				ellipsisAt = len(elements) - 1
				cur = p.Rest.AsPair().Rest
				continue
			}
		}
		m, err := compilePattern(elemPat, literals, false)
		if err != nil {
			return nil, err
		}
		elements = append(elements, m)
		cur = p.Rest
	}
	var tail Matcher
	if !cur.IsNil() {
		tm, err := compilePattern(cur, literals, false)
		if err != nil {
			return nil, err
		}
		tail = RestMatcher{Inner: tm}
	}
	return SequenceMatcher{Elements: elements, EllipsisAt: ellipsisAt, Tail: tail}, nil
}

// compileTemplate builds a Template tree; vars names the pattern
// variables bound by the rule's matcher (everything else is an
// ordinary identifier reference, IsPattern=false).
func compileTemplate(tmpl value.Value, vars map[string]bool) (Template, error) {
	switch tmpl.Kind {
	case value.KindSymbol:
		name := tmpl.AsSymbol().Name
		return VariableTemplate{Name: name, IsPattern: vars[name]}, nil
	case value.KindPair:
		return compileSequenceTemplate(tmpl, vars)
	case value.KindNil:
		return ConstantTemplate{Value: value.Nil}, nil
	default:
		return ConstantTemplate{Value: tmpl}, nil
	}
}

func compileSequenceTemplate(tmpl value.Value, vars map[string]bool) (Template, error) {
	var elements []ellipsisElement
	cur := tmpl
	for cur.Kind == value.KindPair {
		p := cur.AsPair()
		sub, err := compileTemplate(p.First, vars)
		if err != nil {
			return nil, err
		}
		nflatten := 0
		rest := p.Rest
		for rest.Kind == value.KindPair {
			head := rest.AsPair().First
			if head.Kind == value.KindSymbol && head.AsSymbol().Name == "..." {
				nflatten++
				rest = rest.AsPair().Rest
				continue
			}
			break
		}
		elements = append(elements, ellipsisElement{Sub: sub, NFlatten: nflatten})
		cur = rest
	}
	var tail Template
	if !cur.IsNil() {
		t, err := compileTemplate(cur, vars)
		if err != nil {
			return nil, err
		}
		tail = t
	}
	return SequenceTemplate{Elements: elements, Tail: tail}, nil
}
