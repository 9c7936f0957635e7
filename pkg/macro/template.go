package macro

import (
	"fmt"

	"github.com/kristofer/scheme/pkg/env"
	"github.com/kristofer/scheme/pkg/value"
)

// Template is implemented by every template-tree node. Expand renders
// one output datum given the capture dictionary from a successful
// match, the use-site environment (for wrapping pattern-variable
// fragments), and idx, the current ellipsis iteration indices in
// effect (outermost first) for descending into nested Ellipsis bags.
type Template interface {
	Expand(dict MatchDict, useEnv *env.Environment, idx []int) (value.Value, error)
}

// ConstantTemplate expands to itself.
type ConstantTemplate struct{ Value value.Value }

func (t ConstantTemplate) Expand(dict MatchDict, useEnv *env.Environment, idx []int) (value.Value, error) {
	return t.Value, nil
}

// VariableTemplate looks up by name in the match dict and descends
// into the capture bag by the current ellipsis indices.
type VariableTemplate struct {
	Name      string
	IsPattern bool // false: not a captured pattern variable, just an identifier reference
}

func (t VariableTemplate) Expand(dict MatchDict, useEnv *env.Environment, idx []int) (value.Value, error) {
	if !t.IsPattern {
		return value.Sym(t.Name), nil
	}
	captured, ok := dict[t.Name]
	if !ok {
		return value.Undefined, fmt.Errorf("syntax-rules: unbound pattern variable %s in template", t.Name)
	}
	v, err := descend(captured, idx)
	if err != nil {
		return value.Undefined, err
	}
	return Wrap(v, useEnv), nil
}

// descend walks into nested Ellipsis bags by the given indices.
func descend(captured any, idx []int) (value.Value, error) {
	for _, i := range idx {
		bag, ok := captured.(*Ellipsis)
		if !ok {
			// No more ellipsis nesting on this variable: it is used
			// at a shallower depth than the template's "..." count,
			// which is legal (the variable just doesn't vary at this
			// level) — stop descending.
			break
		}
		if i >= len(bag.Items) {
			return value.Undefined, fmt.Errorf("syntax-rules: ellipsis index out of range")
		}
		captured = bag.Items[i]
	}
	if bag, ok := captured.(*Ellipsis); ok {
		_ = bag
		return value.Undefined, fmt.Errorf("syntax-rules: ellipsis variable used without enough '...' in template")
	}
	return captured.(value.Value), nil
}

// SequenceTemplate recursively expands its elements (each optionally
// repeated by NFlatten levels of "...") and prepends them onto the
// expanded Tail.
type SequenceTemplate struct {
	Elements []ellipsisElement
	Tail     Template // nil for a proper-list template
}

type ellipsisElement struct {
	Sub       Template
	NFlatten  int // number of trailing "..." tokens after this element
}

func (t SequenceTemplate) Expand(dict MatchDict, useEnv *env.Environment, idx []int) (value.Value, error) {
	var items []value.Value
	for _, el := range t.Elements {
		expanded, err := expandRepeated(el.Sub, el.NFlatten, dict, useEnv, idx)
		if err != nil {
			return value.Undefined, err
		}
		items = append(items, expanded...)
	}
	tail := value.Nil
	if t.Tail != nil {
		var err error
		tail, err = t.Tail.Expand(dict, useEnv, idx)
		if err != nil {
			return value.Undefined, err
		}
	}
	result := tail
	for i := len(items) - 1; i >= 0; i-- {
		result = value.Cons(items[i], result)
	}
	return result, nil
}

// expandRepeated expands sub once (nflatten==0) or repeats it the
// common length of every ellipsis variable it mentions (nflatten>0),
// recursing for nflatten>1 (nested "... ...").
func expandRepeated(sub Template, nflatten int, dict MatchDict, useEnv *env.Environment, idx []int) ([]value.Value, error) {
	if nflatten == 0 {
		v, err := sub.Expand(dict, useEnv, idx)
		if err != nil {
			return nil, err
		}
		return []value.Value{v}, nil
	}
	k, err := repeatCount(sub, dict, idx)
	if err != nil {
		return nil, err
	}
	var out []value.Value
	for i := 0; i < k; i++ {
		items, err := expandRepeated(sub, nflatten-1, dict, useEnv, append(append([]int(nil), idx...), i))
		if err != nil {
			return nil, err
		}
		out = append(out, items...)
	}
	return out, nil
}

// repeatCount finds the common ellipsis-bag length among every
// pattern variable sub mentions at the current nesting depth; siblings
// must agree or the template is malformed.
func repeatCount(t Template, dict MatchDict, idx []int) (int, error) {
	count := -1
	var walk func(Template) error
	walk = func(t Template) error {
		switch n := t.(type) {
		case VariableTemplate:
			if !n.IsPattern {
				return nil
			}
			captured, ok := dict[n.Name]
			if !ok {
				return nil
			}
			for _, i := range idx {
				bag, ok := captured.(*Ellipsis)
				if !ok {
					return nil
				}
				if i >= len(bag.Items) {
					return fmt.Errorf("syntax-rules: ellipsis index out of range for %s", n.Name)
				}
				captured = bag.Items[i]
			}
			bag, ok := captured.(*Ellipsis)
			if !ok {
				return nil
			}
			if count == -1 {
				count = len(bag.Items)
			} else if count != len(bag.Items) {
				return fmt.Errorf("syntax-rules: mismatched ellipsis lengths for %s", n.Name)
			}
		case SequenceTemplate:
			for _, el := range n.Elements {
				if err := walk(el.Sub); err != nil {
					return err
				}
			}
			if n.Tail != nil {
				return walk(n.Tail)
			}
		}
		return nil
	}
	if err := walk(t); err != nil {
		return 0, err
	}
	if count == -1 {
		return 0, fmt.Errorf("syntax-rules: '...' with no ellipsis pattern variable beneath it")
	}
	return count, nil
}
