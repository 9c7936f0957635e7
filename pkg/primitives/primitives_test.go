package primitives_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kristofer/scheme/pkg/compiler"
	"github.com/kristofer/scheme/pkg/env"
	"github.com/kristofer/scheme/pkg/primitives"
	"github.com/kristofer/scheme/pkg/reader"
	"github.com/kristofer/scheme/pkg/value"
	"github.com/kristofer/scheme/pkg/vm"
)

func evalString(t *testing.T, src string) value.Value {
	t.Helper()
	root := env.New(nil)
	primitives.Install(root)
	datum, err := reader.New(src, "<test>").ParseDatum()
	require.NoError(t, err)
	c := compiler.New()
	code, err := c.Compile(datum, root)
	require.NoError(t, err)
	machine := vm.New(root)
	result, err := machine.Run(code)
	require.NoError(t, err)
	return result
}

func TestArithmeticPrimitives(t *testing.T) {
	require.Equal(t, int64(6), evalString(t, "(+ 1 2 3)").AsInt())
	require.Equal(t, int64(-4), evalString(t, "(- 1 2 3)").AsInt())
	require.Equal(t, int64(24), evalString(t, "(* 2 3 4)").AsInt())
	require.InDelta(t, 2.5, evalString(t, "(/ 5 2)").AsReal(), 1e-9)
	require.Equal(t, int64(-5), evalString(t, "(- 5)").AsInt())
}

func TestComparisonPrimitives(t *testing.T) {
	require.True(t, evalString(t, "(< 1 2 3)").IsTrue())
	require.False(t, evalString(t, "(< 1 3 2)").IsTrue())
	require.True(t, evalString(t, "(= 2 2 2)").IsTrue())
	require.True(t, evalString(t, "(equal? (list 1 2) (list 1 2))").IsTrue())
	require.False(t, evalString(t, "(eq? (list 1) (list 1))").IsTrue())
}

func TestPairAndListPrimitives(t *testing.T) {
	require.Equal(t, int64(1), evalString(t, "(car (cons 1 2))").AsInt())
	require.Equal(t, int64(2), evalString(t, "(cdr (cons 1 2))").AsInt())
	require.Equal(t, int64(3), evalString(t, "(length (list 1 2 3))").AsInt())
	require.True(t, evalString(t, "(null? (list))").IsTrue())
	require.True(t, evalString(t, "(list? (list 1 2 3))").IsTrue())
	require.False(t, evalString(t, "(list? (cons 1 2))").IsTrue())

	reversed := evalString(t, "(reverse (list 1 2 3))")
	parts, ok := value.ToSlice(reversed)
	require.True(t, ok)
	require.Equal(t, []int64{3, 2, 1}, []int64{parts[0].AsInt(), parts[1].AsInt(), parts[2].AsInt()})

	appended := evalString(t, "(append (list 1 2) (list 3 4))")
	parts, ok = value.ToSlice(appended)
	require.True(t, ok)
	require.Len(t, parts, 4)
}

func TestSetCarCdrMutatesInPlace(t *testing.T) {
	result := evalString(t, "(let ((p (cons 1 2))) (set-car! p 99) (car p))")
	require.Equal(t, int64(99), result.AsInt())
}

func TestApplyAndMap(t *testing.T) {
	require.Equal(t, int64(6), evalString(t, "(apply + (list 1 2 3))").AsInt())
	doubled := evalString(t, "(map (lambda (x) (* x 2)) (list 1 2 3))")
	parts, ok := value.ToSlice(doubled)
	require.True(t, ok)
	require.Equal(t, int64(2), parts[0].AsInt())
	require.Equal(t, int64(4), parts[1].AsInt())
	require.Equal(t, int64(6), parts[2].AsInt())
}

func TestSymbolStringConversions(t *testing.T) {
	require.Equal(t, "foo", evalString(t, "(symbol->string 'foo)").AsString())
	require.Equal(t, "foo", evalString(t, "(string->symbol \"foo\")").AsSymbol().Name)
	require.Equal(t, "42", evalString(t, "(number->string 42)").AsString())
	require.Equal(t, int64(42), evalString(t, `(string->number "42")`).AsInt())
}

func TestTypePredicates(t *testing.T) {
	require.True(t, evalString(t, "(procedure? car)").IsTrue())
	require.True(t, evalString(t, "(procedure? (lambda (x) x))").IsTrue())
	require.True(t, evalString(t, "(number? 3.14)").IsTrue())
	require.True(t, evalString(t, "(integer? 3)").IsTrue())
	require.False(t, evalString(t, "(integer? 3.5)").IsTrue())
	require.True(t, evalString(t, "(not #f)").IsTrue())
}
