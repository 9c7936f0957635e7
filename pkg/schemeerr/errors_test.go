package schemeerr

import (
	"strings"
	"testing"
)

func TestErrorMessagesIncludeKindAndDetail(t *testing.T) {
	tests := []struct {
		err  *SchemeError
		want string
	}{
		{NewParseError("<test>", 3, "unexpected EOF"), "ParseError: <test>:3: unexpected EOF"},
		{NewSyntaxError("malformed let binding"), "SyntaxError: malformed let binding"},
		{NewCompileError("unimplemented special form: foo"), "CompileError: unimplemented special form: foo"},
		{NewUnboundVariable("x"), "UnboundVariable: unbound variable: x"},
		{NewWrongArgNumber("car", 1, 2), "WrongArgNumber: car: expected 1 argument(s), got 2"},
		{NewWrongArgType("car", 0, "pair", "integer"), "WrongArgType: car: argument 0: expected pair, got integer"},
		{NewMiscError("division by zero"), "MiscError: division by zero"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}

func TestWithTraceAttachesFramesWithoutMutatingOriginal(t *testing.T) {
	base := NewUnboundVariable("y")
	traced := base.WithTrace([]Frame{{ProcName: "f", IP: 4}, {ProcName: "<top-level>", IP: 9}})

	if strings.Contains(base.Error(), "at f") {
		t.Errorf("expected the original error to be unaffected by WithTrace, got %q", base.Error())
	}
	want := "UnboundVariable: unbound variable: y\n  at f (ip=4)\n  at <top-level> (ip=9)"
	if got := traced.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestIsMatchesKind(t *testing.T) {
	err := NewWrongArgNumber("cdr", 1, 0)
	if !Is(err, "WrongArgNumber") {
		t.Errorf("expected Is(err, \"WrongArgNumber\") to hold")
	}
	if Is(err, "SyntaxError") {
		t.Errorf("expected Is(err, \"SyntaxError\") to be false")
	}
	if Is(nil, "WrongArgNumber") {
		t.Errorf("expected Is(nil, ...) to be false")
	}
}
