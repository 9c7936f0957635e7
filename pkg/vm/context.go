package vm

import (
	"github.com/kristofer/scheme/pkg/builder"
	"github.com/kristofer/scheme/pkg/env"
	"github.com/kristofer/scheme/pkg/value"
)

// Context is the activation frame: the procedure being executed, its
// run-time environment, instruction pointer, frame-local operand
// stack, and a link to the caller (previous) context.
type Context struct {
	ProcName string
	Code     *builder.Code
	Env      *env.Environment
	IP       int
	Stack    []value.Value
	Prev     *Context

	// ContinuationID is set when this context was reached by resuming
	// a captured continuation, for debugger display only.
	ContinuationID string
}

func (c *Context) push(v value.Value) {
	c.Stack = append(c.Stack, v)
}

func (c *Context) pop() value.Value {
	n := len(c.Stack) - 1
	v := c.Stack[n]
	c.Stack = c.Stack[:n]
	return v
}

func (c *Context) peek() value.Value {
	return c.Stack[len(c.Stack)-1]
}

func (c *Context) popN(n int) []value.Value {
	start := len(c.Stack) - n
	args := append([]value.Value(nil), c.Stack[start:]...)
	c.Stack = c.Stack[:start]
	return args
}

// clone makes an independent copy of c, including a copy of the
// operand stack, for use by call/cc capture and continuation resume
// (a continuation may be invoked more than once, so each resume needs
// its own fresh stack copy).
func (c *Context) clone() *Context {
	cp := *c
	cp.Stack = append([]value.Value(nil), c.Stack...)
	return &cp
}
