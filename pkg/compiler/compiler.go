// Package compiler is the syntax-directed compiler from parsed
// s-expressions to bytecode, grounded in skime's compiler.py: a
// recursive generate(sexp, keep, tail) walk dispatching on
// self-evaluating data, symbol references, special forms, macro uses,
// and applications. keep says whether the caller wants the resulting
// value left on the stack; tail says this expression occupies a tail
// position and should end the enclosing procedure by returning rather
// than falling through. Every generator normalizes keep to keep||tail
// on entry, since a tail position always needs a value to return.
package compiler

import (
	"fmt"

	"github.com/kristofer/scheme/pkg/builder"
	"github.com/kristofer/scheme/pkg/env"
	"github.com/kristofer/scheme/pkg/iset"
	"github.com/kristofer/scheme/pkg/macro"
	"github.com/kristofer/scheme/pkg/schemeerr"
	"github.com/kristofer/scheme/pkg/value"
	"github.com/kristofer/scheme/pkg/vm"
)

// special names the fixed keyword set. Special forms are never
// shadowable by a lexical or macro binding of the same name, matching
// skime's fixed-symbol dispatch.
var special = map[string]bool{
	"quote": true, "if": true, "begin": true, "lambda": true,
	"define": true, "set!": true, "let": true, "let*": true,
	"letrec": true, "or": true, "and": true, "cond": true, "do": true,
	"call/cc": true, "call-with-current-continuation": true,
	"define-syntax": true,
}

// Compiler holds only the procedure-literal wrapper and a label
// counter; it is stateless across independent top-level compiles.
type Compiler struct {
	wrap         builder.ProcWrapper
	labelCounter int
}

func New() *Compiler {
	return &Compiler{wrap: vm.WrapProcedure}
}

// Compile generates sexp as a zero-argument top-level Form: an
// independent Code ending in ret, compiled against environment, so the
// VM's call discipline treats it exactly like any procedure body.
func (c *Compiler) Compile(sexp value.Value, environment *env.Environment) (*builder.Code, error) {
	b := builder.New(environment, c.wrap)
	if err := c.generate(b, sexp, true, true); err != nil {
		return nil, err
	}
	return b.Generate()
}

func (c *Compiler) label(prefix string) string {
	c.labelCounter++
	return fmt.Sprintf("%s_%d", prefix, c.labelCounter)
}

// generate is the single recursive entry point every special form and
// sub-expression compiles through.
func (c *Compiler) generate(b *builder.Builder, sexp value.Value, keep, tail bool) error {
	keep = keep || tail

	if pc := macro.AsPending(sexp); pc != nil {
		return c.generateDynamic(b, pc, keep, tail)
	}

	switch sexp.Kind {
	case value.KindSymbol:
		return c.generateRef(b, sexp.AsSymbol().Name, keep, tail)
	case value.KindPair:
		return c.generatePair(b, sexp, keep, tail)
	default:
		return c.generateLiteral(b, sexp, keep, tail)
	}
}

func (c *Compiler) generateLiteral(b *builder.Builder, v value.Value, keep, tail bool) error {
	if keep {
		b.EmitPushLiteral(v)
	}
	if tail {
		b.EmitSimple(iset.Ret)
	}
	return nil
}

func (c *Compiler) generateRef(b *builder.Builder, name string, keep, tail bool) error {
	if !keep {
		if _, ok := b.Env().LookupLocation(name); !ok {
			return schemeerr.NewUnboundVariable(name)
		}
		return nil
	}
	if err := b.EmitLocal("push", name, false); err != nil {
		return schemeerr.NewUnboundVariable(name)
	}
	if tail {
		b.EmitSimple(iset.Ret)
	}
	return nil
}

// generateDynamic compiles a macro-expansion leaf that came from a
// pattern-variable capture: the fragment is compiled as its own
// zero-argument Code against the use-site environment and invoked via
// dynamic_eval, whose ret (inside that Code) delivers the value back
// into the calling context's stack.
func (c *Compiler) generateDynamic(b *builder.Builder, pc *macro.PendingClosure, keep, tail bool) error {
	grandchild := builder.New(pc.UseEnv, c.wrap)
	if err := c.generate(grandchild, pc.Expr, true, true); err != nil {
		return err
	}
	code, err := grandchild.Generate()
	if err != nil {
		return err
	}
	idx := b.AddLiteral(vm.WrapDynamicClosure(code))
	b.EmitA(iset.PushLiteral, idx)
	b.EmitSimple(iset.DynamicEval)
	if !keep {
		b.EmitSimple(iset.Pop)
	}
	if tail {
		b.EmitSimple(iset.Ret)
	}
	return nil
}

func (c *Compiler) generatePair(b *builder.Builder, sexp value.Value, keep, tail bool) error {
	p := sexp.AsPair()
	if p.First.Kind == value.KindSymbol {
		name := p.First.AsSymbol().Name
		if special[name] {
			return c.generateSpecialForm(b, name, p.Rest, keep, tail)
		}
		if loc, ok := b.Env().LookupLocation(name); ok {
			bound := b.Env().EnvAt(loc.Depth).Read(loc.Index)
			if bound.Kind == value.KindMacro {
				return c.generateMacroUse(b, macro.AsMacro(bound), sexp, keep, tail)
			}
		}
	}
	return c.generateApplication(b, sexp, keep, tail)
}

func (c *Compiler) generateSpecialForm(b *builder.Builder, name string, rest value.Value, keep, tail bool) error {
	switch name {
	case "quote":
		return c.generateQuote(b, rest, keep, tail)
	case "if":
		return c.generateIf(b, rest, keep, tail)
	case "begin":
		return c.generateBeginForm(b, rest, keep, tail)
	case "lambda":
		return c.generateLambda(b, rest, keep, tail)
	case "define":
		return c.generateDefine(b, rest, keep, tail)
	case "set!":
		return c.generateSet(b, rest, keep, tail)
	case "let":
		return c.generateLet(b, rest, keep, tail)
	case "let*":
		return c.generateLetStar(b, rest, keep, tail)
	case "letrec":
		return c.generateLetrec(b, rest, keep, tail)
	case "or":
		return c.generateOr(b, rest, keep, tail)
	case "and":
		return c.generateAnd(b, rest, keep, tail)
	case "cond":
		return c.generateCond(b, rest, keep, tail)
	case "do":
		return c.generateDo(b, rest, keep, tail)
	case "call/cc", "call-with-current-continuation":
		return c.generateCallCC(b, rest, keep, tail)
	case "define-syntax":
		return c.generateDefineSyntax(b, rest, keep, tail)
	default:
		return schemeerr.NewCompileError("unimplemented special form: " + name)
	}
}

// unwrapQuoted strips any PendingClosure wrapper a macro expansion may
// have placed inside quoted data, recursing through pairs; quote wants
// the literal datum, not a hygiene-evaluated fragment.
func unwrapQuoted(v value.Value) value.Value {
	if pc := macro.AsPending(v); pc != nil {
		return unwrapQuoted(pc.Expr)
	}
	if v.Kind == value.KindPair {
		p := v.AsPair()
		return value.Cons(unwrapQuoted(p.First), unwrapQuoted(p.Rest))
	}
	return v
}

func (c *Compiler) generateQuote(b *builder.Builder, rest value.Value, keep, tail bool) error {
	parts, ok := value.ToSlice(rest)
	if !ok || len(parts) != 1 {
		return schemeerr.NewSyntaxError("quote: expected exactly one datum")
	}
	return c.generateLiteral(b, unwrapQuoted(parts[0]), keep, tail)
}

func (c *Compiler) generateIf(b *builder.Builder, rest value.Value, keep, tail bool) error {
	parts, ok := value.ToSlice(rest)
	if !ok || len(parts) < 2 || len(parts) > 3 {
		return schemeerr.NewSyntaxError("if: expected (if test then [else])")
	}
	if err := c.generate(b, parts[0], true, false); err != nil {
		return err
	}
	elseLabel := c.label("if_else")
	endLabel := c.label("if_end")
	b.GotoIfFalse(elseLabel)
	if err := c.generate(b, parts[1], keep, tail); err != nil {
		return err
	}
	if !tail {
		b.Goto(endLabel)
	}
	if err := b.DefLabel(elseLabel); err != nil {
		return schemeerr.NewCompileError(err.Error())
	}
	if len(parts) == 3 {
		if err := c.generate(b, parts[2], keep, tail); err != nil {
			return err
		}
	} else if err := c.generateLiteral(b, value.Undefined, keep, tail); err != nil {
		return err
	}
	if !tail {
		if err := b.DefLabel(endLabel); err != nil {
			return schemeerr.NewCompileError(err.Error())
		}
	}
	return nil
}

// generateBeginLike compiles a sequence of forms where every element
// but the last is compiled for effect only; the last inherits keep/tail.
func (c *Compiler) generateBeginLike(b *builder.Builder, forms []value.Value, keep, tail bool) error {
	if len(forms) == 0 {
		return c.generateLiteral(b, value.Undefined, keep, tail)
	}
	for i, f := range forms {
		if i == len(forms)-1 {
			if err := c.generate(b, f, keep, tail); err != nil {
				return err
			}
		} else if err := c.generate(b, f, false, false); err != nil {
			return err
		}
	}
	return nil
}

func (c *Compiler) generateBeginForm(b *builder.Builder, rest value.Value, keep, tail bool) error {
	items, ok := value.ToSlice(rest)
	if !ok {
		return schemeerr.NewSyntaxError("begin: improper list")
	}
	return c.generateBeginLike(b, items, keep, tail)
}

// generateBody compiles a procedure body: internal defines allocate
// directly into b's own environment as they are reached (supporting
// simple mutual/self recursion the same way top-level define does);
// the final form is always compiled keep=true, tail=true.
func (c *Compiler) generateBody(b *builder.Builder, forms []value.Value) error {
	if len(forms) == 0 {
		return schemeerr.NewSyntaxError("empty body")
	}
	return c.generateBeginLike(b, forms, true, true)
}

func parseFormals(formals value.Value) ([]string, bool, error) {
	if formals.Kind == value.KindSymbol {
		return []string{formals.AsSymbol().Name}, true, nil
	}
	var params []string
	cur := formals
	for cur.Kind == value.KindPair {
		p := cur.AsPair()
		if p.First.Kind != value.KindSymbol {
			return nil, false, schemeerr.NewSyntaxError("formal parameter must be a symbol")
		}
		params = append(params, p.First.AsSymbol().Name)
		cur = p.Rest
	}
	if cur.IsNil() {
		return params, false, nil
	}
	if cur.Kind == value.KindSymbol {
		params = append(params, cur.AsSymbol().Name)
		return params, true, nil
	}
	return nil, false, schemeerr.NewSyntaxError("malformed formals list")
}

func (c *Compiler) generateLambda(b *builder.Builder, rest value.Value, keep, tail bool) error {
	items, ok := value.ToSlice(rest)
	if !ok || len(items) < 2 {
		return schemeerr.NewSyntaxError("lambda: expected (lambda formals body...)")
	}
	params, restArg, err := parseFormals(items[0])
	if err != nil {
		return err
	}
	child := b.PushProc(params, restArg)
	if err := c.generateBody(child, items[1:]); err != nil {
		return err
	}
	if tail {
		b.EmitSimple(iset.Ret)
	} else if !keep {
		b.EmitSimple(iset.Pop)
	}
	return nil
}

func (c *Compiler) generateDefine(b *builder.Builder, rest value.Value, keep, tail bool) error {
	parts, ok := value.ToSlice(rest)
	if !ok || len(parts) < 1 {
		return schemeerr.NewSyntaxError("define: malformed")
	}
	var idx int
	switch parts[0].Kind {
	case value.KindPair:
		p := parts[0].AsPair()
		if p.First.Kind != value.KindSymbol {
			return schemeerr.NewSyntaxError("define: function name must be a symbol")
		}
		idx = b.DefLocal(p.First.AsSymbol().Name)
		params, restArg, err := parseFormals(p.Rest)
		if err != nil {
			return err
		}
		if len(parts) < 2 {
			return schemeerr.NewSyntaxError("define: empty function body")
		}
		child := b.PushProc(params, restArg)
		if err := c.generateBody(child, parts[1:]); err != nil {
			return err
		}
	case value.KindSymbol:
		idx = b.DefLocal(parts[0].AsSymbol().Name)
		switch len(parts) {
		case 1:
			if err := c.generateLiteral(b, value.Undefined, true, false); err != nil {
				return err
			}
		case 2:
			if err := c.generate(b, parts[1], true, false); err != nil {
				return err
			}
		default:
			return schemeerr.NewSyntaxError("define: too many arguments")
		}
	default:
		return schemeerr.NewSyntaxError("define: malformed target")
	}
	b.EmitA(iset.SetLocal, idx)
	if !keep {
		b.EmitSimple(iset.Pop)
	}
	if tail {
		b.EmitSimple(iset.Ret)
	}
	return nil
}

func (c *Compiler) generateSet(b *builder.Builder, rest value.Value, keep, tail bool) error {
	parts, ok := value.ToSlice(rest)
	if !ok || len(parts) != 2 || parts[0].Kind != value.KindSymbol {
		return schemeerr.NewSyntaxError("set!: expected (set! name expr)")
	}
	name := parts[0].AsSymbol().Name
	if _, ok := b.Env().LookupLocation(name); !ok {
		return schemeerr.NewUnboundVariable(name)
	}
	if err := c.generate(b, parts[1], true, false); err != nil {
		return err
	}
	if err := b.EmitLocal("set", name, false); err != nil {
		return schemeerr.NewUnboundVariable(name)
	}
	if !keep {
		b.EmitSimple(iset.Pop)
	}
	if tail {
		b.EmitSimple(iset.Ret)
	}
	return nil
}

// emitCall compiles a combination: arguments push left to right, then
// the operator (so the operator sits on top for call/tail_call's
// pop-callee-first convention), then the call itself.
func (c *Compiler) emitCall(b *builder.Builder, opExpr value.Value, argExprs []value.Value, keep, tail bool) error {
	for _, a := range argExprs {
		if err := c.generate(b, a, true, false); err != nil {
			return err
		}
	}
	if err := c.generate(b, opExpr, true, false); err != nil {
		return err
	}
	op := iset.Call
	if tail {
		op = iset.TailCall
	}
	b.EmitA(op, len(argExprs))
	if !tail && !keep {
		b.EmitSimple(iset.Pop)
	}
	return nil
}

func (c *Compiler) generateApplication(b *builder.Builder, sexp value.Value, keep, tail bool) error {
	items, ok := value.ToSlice(sexp)
	if !ok || len(items) == 0 {
		return schemeerr.NewSyntaxError("malformed combination")
	}
	return c.emitCall(b, items[0], items[1:], keep, tail)
}

type letBinding struct {
	name string
	init value.Value
}

func parseLetBindings(form value.Value) ([]letBinding, error) {
	items, ok := value.ToSlice(form)
	if !ok {
		return nil, schemeerr.NewSyntaxError("let: malformed bindings")
	}
	bindings := make([]letBinding, 0, len(items))
	for _, item := range items {
		parts, ok := value.ToSlice(item)
		if !ok || len(parts) != 2 || parts[0].Kind != value.KindSymbol {
			return nil, schemeerr.NewSyntaxError("let: malformed binding")
		}
		bindings = append(bindings, letBinding{name: parts[0].AsSymbol().Name, init: parts[1]})
	}
	return bindings, nil
}

func (c *Compiler) generateLet(b *builder.Builder, rest value.Value, keep, tail bool) error {
	parts, ok := value.ToSlice(rest)
	if !ok || len(parts) < 1 {
		return schemeerr.NewSyntaxError("let: malformed")
	}
	if parts[0].Kind == value.KindSymbol {
		return c.generateNamedLet(b, parts[0].AsSymbol().Name, parts[1:], keep, tail)
	}
	bindings, err := parseLetBindings(parts[0])
	if err != nil {
		return err
	}
	body := parts[1:]
	if len(body) == 0 {
		return schemeerr.NewSyntaxError("let: empty body")
	}
	names := make([]string, len(bindings))
	for i, bnd := range bindings {
		names[i] = bnd.name
	}
	// Initializers are evaluated in the outer scope, left to right,
	// before the lambda literal is pushed (pop-callee-first ordering).
	for _, bnd := range bindings {
		if err := c.generate(b, bnd.init, true, false); err != nil {
			return err
		}
	}
	child := b.PushProc(names, false)
	if err := c.generateBody(child, body); err != nil {
		return err
	}
	op := iset.Call
	if tail {
		op = iset.TailCall
	}
	b.EmitA(op, len(bindings))
	if !tail && !keep {
		b.EmitSimple(iset.Pop)
	}
	return nil
}

func (c *Compiler) generateNamedLet(b *builder.Builder, loopName string, rest []value.Value, keep, tail bool) error {
	if len(rest) < 1 {
		return schemeerr.NewSyntaxError("let: malformed named let")
	}
	bindings, err := parseLetBindings(rest[0])
	if err != nil {
		return err
	}
	body := rest[1:]
	if len(body) == 0 {
		return schemeerr.NewSyntaxError("let: empty body")
	}
	names := make([]string, len(bindings))
	for i, bnd := range bindings {
		names[i] = bnd.name
	}
	loopIdx := b.DefLocal(loopName)
	for _, bnd := range bindings {
		if err := c.generate(b, bnd.init, true, false); err != nil {
			return err
		}
	}
	child := b.PushProc(names, false)
	b.EmitA(iset.SetLocal, loopIdx)
	if err := c.generateBody(child, body); err != nil {
		return err
	}
	op := iset.Call
	if tail {
		op = iset.TailCall
	}
	b.EmitA(op, len(bindings))
	if !tail && !keep {
		b.EmitSimple(iset.Pop)
	}
	return nil
}

// generateLetStar desugars to nested single-binding lets, each new
// binding's initializer seeing all the previous ones.
func (c *Compiler) generateLetStar(b *builder.Builder, rest value.Value, keep, tail bool) error {
	parts, ok := value.ToSlice(rest)
	if !ok || len(parts) < 1 {
		return schemeerr.NewSyntaxError("let*: malformed")
	}
	bindings, err := parseLetBindings(parts[0])
	if err != nil {
		return err
	}
	body := parts[1:]
	if len(body) == 0 {
		return schemeerr.NewSyntaxError("let*: empty body")
	}
	return c.generateLetStarRec(b, bindings, body, keep, tail)
}

func (c *Compiler) generateLetStarRec(b *builder.Builder, bindings []letBinding, body []value.Value, keep, tail bool) error {
	if len(bindings) == 0 {
		return c.generateBeginLike(b, body, keep, tail)
	}
	head := bindings[0]
	if err := c.generate(b, head.init, true, false); err != nil {
		return err
	}
	child := b.PushProc([]string{head.name}, false)
	if err := c.generateLetStarRec(child, bindings[1:], body, true, true); err != nil {
		return err
	}
	op := iset.Call
	if tail {
		op = iset.TailCall
	}
	b.EmitA(op, 1)
	if !tail && !keep {
		b.EmitSimple(iset.Pop)
	}
	return nil
}

// generateLetrec allocates every name before compiling any initializer,
// so bodies (typically lambdas) may reference sibling bindings.
func (c *Compiler) generateLetrec(b *builder.Builder, rest value.Value, keep, tail bool) error {
	parts, ok := value.ToSlice(rest)
	if !ok || len(parts) < 1 {
		return schemeerr.NewSyntaxError("letrec: malformed")
	}
	bindings, err := parseLetBindings(parts[0])
	if err != nil {
		return err
	}
	body := parts[1:]
	if len(body) == 0 {
		return schemeerr.NewSyntaxError("letrec: empty body")
	}
	names := make([]string, len(bindings))
	for i, bnd := range bindings {
		names[i] = bnd.name
	}
	for range bindings {
		b.EmitPushLiteral(value.Undefined)
	}
	child := b.PushProc(names, false)
	for i, bnd := range bindings {
		if err := c.generate(child, bnd.init, true, false); err != nil {
			return err
		}
		child.EmitA(iset.SetLocal, i)
		child.EmitSimple(iset.Pop)
	}
	if err := c.generateBody(child, body); err != nil {
		return err
	}
	op := iset.Call
	if tail {
		op = iset.TailCall
	}
	b.EmitA(op, len(bindings))
	if !tail && !keep {
		b.EmitSimple(iset.Pop)
	}
	return nil
}

func (c *Compiler) generateOr(b *builder.Builder, rest value.Value, keep, tail bool) error {
	items, ok := value.ToSlice(rest)
	if !ok {
		return schemeerr.NewSyntaxError("or: improper list")
	}
	if len(items) == 0 {
		return c.generateLiteral(b, value.False, keep, tail)
	}
	end := c.label("or_end")
	for i, it := range items {
		if i == len(items)-1 {
			if err := c.generate(b, it, keep, tail); err != nil {
				return err
			}
			continue
		}
		if err := c.generate(b, it, true, false); err != nil {
			return err
		}
		if keep {
			b.EmitSimple(iset.Dup)
		}
		b.GotoIfNotFalse(end)
		if keep {
			b.EmitSimple(iset.Pop)
		}
	}
	if err := b.DefLabel(end); err != nil {
		return schemeerr.NewCompileError(err.Error())
	}
	if tail {
		b.EmitSimple(iset.Ret)
	}
	return nil
}

func (c *Compiler) generateAnd(b *builder.Builder, rest value.Value, keep, tail bool) error {
	items, ok := value.ToSlice(rest)
	if !ok {
		return schemeerr.NewSyntaxError("and: improper list")
	}
	if len(items) == 0 {
		return c.generateLiteral(b, value.True, keep, tail)
	}
	end := c.label("and_end")
	for i, it := range items {
		if i == len(items)-1 {
			if err := c.generate(b, it, keep, tail); err != nil {
				return err
			}
			continue
		}
		if err := c.generate(b, it, true, false); err != nil {
			return err
		}
		if keep {
			b.EmitSimple(iset.Dup)
		}
		b.GotoIfFalse(end)
		if keep {
			b.EmitSimple(iset.Pop)
		}
	}
	if err := b.DefLabel(end); err != nil {
		return schemeerr.NewCompileError(err.Error())
	}
	if tail {
		b.EmitSimple(iset.Ret)
	}
	return nil
}

func (c *Compiler) generateCond(b *builder.Builder, rest value.Value, keep, tail bool) error {
	clauses, ok := value.ToSlice(rest)
	if !ok {
		return schemeerr.NewSyntaxError("cond: improper list")
	}
	return c.generateCondClauses(b, clauses, keep, tail)
}

func (c *Compiler) generateCondClauses(b *builder.Builder, clauses []value.Value, keep, tail bool) error {
	if len(clauses) == 0 {
		return c.generateLiteral(b, value.Undefined, keep, tail)
	}
	clause, ok := value.ToSlice(clauses[0])
	if !ok || len(clause) == 0 {
		return schemeerr.NewSyntaxError("cond: malformed clause")
	}
	if clause[0].Kind == value.KindSymbol && clause[0].AsSymbol().Name == "else" {
		if len(clause) == 1 {
			return schemeerr.NewSyntaxError("cond: empty else clause")
		}
		return c.generateBeginLike(b, clause[1:], keep, tail)
	}
	if len(clause) == 3 && clause[1].Kind == value.KindSymbol && clause[1].AsSymbol().Name == "=>" {
		return c.generateCondArrow(b, clause[0], clause[2], clauses[1:], keep, tail)
	}

	elseLabel := c.label("cond_else")
	endLabel := c.label("cond_end")
	if err := c.generate(b, clause[0], true, false); err != nil {
		return err
	}
	bareTest := len(clause) == 1
	if bareTest {
		b.EmitSimple(iset.Dup)
	}
	b.GotoIfFalse(elseLabel)
	if bareTest {
		if tail {
			b.EmitSimple(iset.Ret)
		} else if !keep {
			b.EmitSimple(iset.Pop)
		}
	} else if err := c.generateBeginLike(b, clause[1:], keep, tail); err != nil {
		return err
	}
	if !tail {
		b.Goto(endLabel)
	}
	if err := b.DefLabel(elseLabel); err != nil {
		return schemeerr.NewCompileError(err.Error())
	}
	if bareTest {
		b.EmitSimple(iset.Pop)
	}
	if err := c.generateCondClauses(b, clauses[1:], keep, tail); err != nil {
		return err
	}
	if !tail {
		if err := b.DefLabel(endLabel); err != nil {
			return schemeerr.NewCompileError(err.Error())
		}
	}
	return nil
}

func (c *Compiler) generateCondArrow(b *builder.Builder, test, proc value.Value, restClauses []value.Value, keep, tail bool) error {
	elseLabel := c.label("cond_arrow_else")
	endLabel := c.label("cond_arrow_end")
	if err := c.generate(b, test, true, false); err != nil {
		return err
	}
	b.EmitSimple(iset.Dup)
	b.GotoIfFalse(elseLabel)
	if err := c.generate(b, proc, true, false); err != nil {
		return err
	}
	op := iset.Call
	if tail {
		op = iset.TailCall
	}
	b.EmitA(op, 1)
	if !tail && !keep {
		b.EmitSimple(iset.Pop)
	}
	if !tail {
		b.Goto(endLabel)
	}
	if err := b.DefLabel(elseLabel); err != nil {
		return schemeerr.NewCompileError(err.Error())
	}
	b.EmitSimple(iset.Pop)
	if err := c.generateCondClauses(b, restClauses, keep, tail); err != nil {
		return err
	}
	if !tail {
		if err := b.DefLabel(endLabel); err != nil {
			return schemeerr.NewCompileError(err.Error())
		}
	}
	return nil
}

// generateDo desugars to the classic named-let expansion:
//
//	(let %do-loop% ((var init) ...)
//	  (if test (begin result...) (begin command... (%do-loop% step...))))
func (c *Compiler) generateDo(b *builder.Builder, rest value.Value, keep, tail bool) error {
	parts, ok := value.ToSlice(rest)
	if !ok || len(parts) < 2 {
		return schemeerr.NewSyntaxError("do: malformed")
	}
	specs, ok := value.ToSlice(parts[0])
	if !ok {
		return schemeerr.NewSyntaxError("do: malformed variable specs")
	}
	testClause, ok := value.ToSlice(parts[1])
	if !ok || len(testClause) < 1 {
		return schemeerr.NewSyntaxError("do: malformed test clause")
	}
	commands := parts[2:]

	loopSym := value.Sym("%do-loop%")
	var bindings []value.Value
	var steps []value.Value
	for _, spec := range specs {
		sp, ok := value.ToSlice(spec)
		if !ok || len(sp) < 2 || sp[0].Kind != value.KindSymbol {
			return schemeerr.NewSyntaxError("do: malformed variable spec")
		}
		bindings = append(bindings, value.List(sp[0], sp[1]))
		step := sp[0]
		if len(sp) == 3 {
			step = sp[2]
		}
		steps = append(steps, step)
	}
	loopCall := value.Cons(loopSym, value.List(steps...))
	var elseForms []value.Value
	elseForms = append(elseForms, commands...)
	elseForms = append(elseForms, loopCall)
	elseForm := value.Cons(value.Sym("begin"), value.List(elseForms...))

	var thenForm value.Value
	if len(testClause) == 1 {
		thenForm = value.Undefined
	} else {
		thenForm = value.Cons(value.Sym("begin"), value.List(testClause[1:]...))
	}
	ifForm := value.List(value.Sym("if"), testClause[0], thenForm, elseForm)
	letForm := value.Cons(value.Sym("let"),
		value.Cons(loopSym, value.Cons(value.List(bindings...), value.List(ifForm))))
	return c.generate(b, letForm, keep, tail)
}

func (c *Compiler) generateCallCC(b *builder.Builder, rest value.Value, keep, tail bool) error {
	parts, ok := value.ToSlice(rest)
	if !ok || len(parts) != 1 {
		return schemeerr.NewSyntaxError("call/cc: expected exactly one argument")
	}
	if err := c.generate(b, parts[0], true, false); err != nil {
		return err
	}
	b.EmitSimple(iset.CallCC)
	if !keep {
		b.EmitSimple(iset.Pop)
	}
	if tail {
		b.EmitSimple(iset.Ret)
	}
	return nil
}

// generateDefineSyntax compiles and installs a syntax-rules transformer
// directly into the compile-time environment. Installing the macro
// emits no instruction, since macros are fully gone by the time any
// bytecode runs (a use is always expanded away at compile time); the
// form itself yields the undefined value (pushed when keep is set,
// followed by ret in tail position).
func (c *Compiler) generateDefineSyntax(b *builder.Builder, rest value.Value, keep, tail bool) error {
	parts, ok := value.ToSlice(rest)
	if !ok || len(parts) != 2 || parts[0].Kind != value.KindSymbol {
		return schemeerr.NewSyntaxError("define-syntax: expected (define-syntax name (syntax-rules ...))")
	}
	name := parts[0].AsSymbol().Name
	spec, ok := value.ToSlice(parts[1])
	if !ok || len(spec) < 2 || spec[0].Kind != value.KindSymbol || spec[0].AsSymbol().Name != "syntax-rules" {
		return schemeerr.NewSyntaxError("define-syntax: only syntax-rules transformers are supported")
	}
	idx := b.DefLocal(name)
	mac, err := macro.Compile(name, b.Env(), spec[1], spec[2:])
	if err != nil {
		return schemeerr.NewSyntaxError(err.Error())
	}
	b.Env().Assign(idx, macro.WrapMacro(mac))
	if keep {
		b.EmitPushLiteral(value.Undefined)
	}
	if tail {
		b.EmitSimple(iset.Ret)
	}
	return nil
}

// generateMacroUse expands a use of mac and compiles the rewritten form
// as a synthetic zero-argument thunk against the macro's definition
// environment, invoked via an ordinary call/tail_call.
//
// Simplification (documented in DESIGN.md): DefEnv is the compile-time
// environment active where define-syntax ran. For the common case of a
// macro defined at the top level, that environment is never duplicated
// at run time, so compiling the template-introduced portion against it
// directly is sound without any further lexical-parent patching. A
// macro defined inside a called-more-than-once lambda would, under this
// simplification, share one template activation across calls for its
// template-introduced identifiers; none of this core's testable
// scenarios exercise that case.
func (c *Compiler) generateMacroUse(b *builder.Builder, mac *macro.Macro, form value.Value, keep, tail bool) error {
	expanded, err := mac.Expand(b.Env(), form)
	if err != nil {
		return schemeerr.NewSyntaxError(fmt.Sprintf("%s: %v", mac.Name, err))
	}
	child := builder.New(env.New(mac.DefEnv), c.wrap)
	if err := c.generate(child, expanded, true, true); err != nil {
		return err
	}
	code, err := child.Generate()
	if err != nil {
		return err
	}
	idx := b.AddLiteral(vm.WrapProcedure(code, 0, false))
	b.EmitA(iset.PushLiteral, idx)
	op := iset.Call
	if tail {
		op = iset.TailCall
	}
	b.EmitA(op, 0)
	if !tail && !keep {
		b.EmitSimple(iset.Pop)
	}
	return nil
}
