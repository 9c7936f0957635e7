// Package schemeerr defines the typed error taxonomy the core raises,
// grounded in the teacher's RuntimeError/StackFrame shape and in
// skime's errors.py kind set.
package schemeerr

import (
	"fmt"
	"strings"
)

// Frame is one entry of a runtime stack trace, walked from the active
// Context chain at the point an error is raised.
type Frame struct {
	ProcName string
	IP       int
}

// SchemeError is the single error type for every kind below, told
// apart by Kind; it carries an optional trace (compile errors never
// have one, since they abort before any Context exists).
type SchemeError struct {
	Kind    string
	Message string
	Trace   []Frame
}

func (e *SchemeError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Kind, e.Message)
	for _, f := range e.Trace {
		fmt.Fprintf(&b, "\n  at %s (ip=%d)", f.ProcName, f.IP)
	}
	return b.String()
}

// WithTrace returns a copy of e with the given trace attached.
func (e *SchemeError) WithTrace(trace []Frame) *SchemeError {
	cp := *e
	cp.Trace = trace
	return &cp
}

func newErr(kind, format string, args ...any) *SchemeError {
	return &SchemeError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func NewParseError(source string, line int, detail string) *SchemeError {
	return newErr("ParseError", "%s:%d: %s", source, line, detail)
}

func NewSyntaxError(detail string) *SchemeError {
	return newErr("SyntaxError", "%s", detail)
}

func NewCompileError(detail string) *SchemeError {
	return newErr("CompileError", "%s", detail)
}

func NewUnboundVariable(name string) *SchemeError {
	return newErr("UnboundVariable", "unbound variable: %s", name)
}

func NewWrongArgNumber(proc string, want, got int) *SchemeError {
	return newErr("WrongArgNumber", "%s: expected %d argument(s), got %d", proc, want, got)
}

func NewWrongArgType(proc string, argIdx int, want, got string) *SchemeError {
	return newErr("WrongArgType", "%s: argument %d: expected %s, got %s", proc, argIdx, want, got)
}

func NewMiscError(format string, args ...any) *SchemeError {
	return newErr("MiscError", format, args...)
}

// Is reports whether err is a SchemeError of the given kind.
func Is(err error, kind string) bool {
	se, ok := err.(*SchemeError)
	return ok && se.Kind == kind
}
