package compiler_test

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/ncalc/pkg/compiler"
	"github.com/agenthands/ncalc/pkg/compiler/ast"
	"github.com/agenthands/ncalc/pkg/compiler/python"
	"github.com/agenthands/ncalc/pkg/core/diag"
	"github.com/agenthands/ncalc/pkg/core/value"
	"github.com/agenthands/ncalc/pkg/vm"
)

// exprGen writes random well-formed expressions. Literals are never zero, so
// a zero divisor can only come from a computed value. Python binds % like *
// while this parser groups it with + and -, so % is only written inside its
// own parentheses where both readings agree.
type exprGen struct {
	r *rand.Rand
	b strings.Builder
}

func (g *exprGen) expr(depth int) {
	g.term(depth)
	for n := g.r.IntN(3); n > 0; n-- {
		g.b.WriteString([]string{" + ", " - ", " * ", " / "}[g.r.IntN(4)])
		g.term(depth)
	}
}

func (g *exprGen) term(depth int) {
	switch {
	case depth <= 0 || g.r.IntN(3) == 0:
		if g.r.IntN(4) == 0 {
			fmt.Fprintf(&g.b, "%d.%d", g.r.IntN(99)+1, g.r.IntN(10))
		} else {
			fmt.Fprintf(&g.b, "%d", g.r.IntN(999)+1)
		}
	case g.r.IntN(5) == 0:
		g.b.WriteByte('(')
		g.term(depth - 1)
		g.b.WriteString(" % ")
		g.term(depth - 1)
		g.b.WriteByte(')')
	case g.r.IntN(2) == 0:
		g.b.WriteByte('(')
		g.expr(depth - 1)
		g.b.WriteByte(')')
	default:
		g.b.WriteString([]string{"-", "+"}[g.r.IntN(2)])
		g.term(depth - 1)
	}
}

// corpus returns n reproducible sources.
func corpus(t testing.TB, n int) []string {
	t.Helper()
	g := &exprGen{r: rand.New(rand.NewPCG(7, 11))}
	out := make([]string, 0, n)
	for range n {
		g.b.Reset()
		g.expr(4)
		out = append(out, g.b.String())
	}
	return out
}

func TestAgreesWithPythonParser(t *testing.T) {
	for _, src := range corpus(t, 500) {
		want, refErr := python.Eval(src)
		got, err := compiler.Eval(src)

		if refErr != nil {
			require.ErrorIs(t, refErr, python.ErrDivisionByZero, src)
			assert.ErrorIs(t, err, vm.ErrDivisionByZero, src)
			continue
		}
		require.NoError(t, err, src)
		assert.Equal(t, value.Format(want), got, src)
	}
}

func TestTreeShapeMatchesPythonParser(t *testing.T) {
	for _, src := range corpus(t, 300) {
		want, err := python.Format(src)
		require.NoError(t, err, src)

		expr, err := compiler.Parse(src)
		require.NoError(t, err, src)
		assert.Equal(t, want, ast.Format(expr), src)
	}
}

func FuzzCompileExecute(f *testing.F) {
	for _, seed := range []string{
		"(1 + 2) * 3",
		"-(3 + 2)",
		"5 / 0",
		"(1 + 2",
		"1 2",
		"(1 + 2))",
		"2 + 3 % 2 * 4",
		"$x = sin(1)",
		"9999999999999999999999999999999999999 * 1",
		"é + 1",
	} {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, src string) {
		got, err := compiler.Eval(src)
		if err != nil {
			d, ok := diag.As(err)
			require.True(t, ok, "error is not a diagnostic: %T %v", err, err)
			require.NotEmpty(t, d.Message, src)
			require.NoError(t, d.Render(&strings.Builder{}, nil), src)
			return
		}
		require.NotEmpty(t, got, src)
	})
}
