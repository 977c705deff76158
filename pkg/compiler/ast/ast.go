package ast

import (
	"strings"

	"github.com/agenthands/ncalc/pkg/compiler/lexer"
	"github.com/agenthands/ncalc/pkg/core/value"
)

// Expr is a node of the expression tree. The set of implementations is closed.
type Expr interface {
	// Pos returns the 1-based end offset of the token that introduced the node.
	Pos() uint32
	exprNode()
}

// Number is a numeric literal.
type Number struct {
	Offset uint32
	Value  float64
}

func (n *Number) Pos() uint32 { return n.Offset }
func (n *Number) exprNode()   {}

// Negative is unary minus.
type Negative struct {
	Token lexer.Token
	X     Expr
}

func (n *Negative) Pos() uint32 { return n.Token.Offset }
func (n *Negative) exprNode()   {}

// Positive is unary plus.
type Positive struct {
	Token lexer.Token
	X     Expr
}

func (p *Positive) Pos() uint32 { return p.Token.Offset }
func (p *Positive) exprNode()   {}

// Operator is a binary arithmetic operation.
type Operator struct {
	Op    lexer.Token
	Left  Expr
	Right Expr
}

func (o *Operator) Pos() uint32 { return o.Op.Offset }
func (o *Operator) exprNode()   {}

// Symbol returns the source spelling of a binary operator kind.
func Symbol(k lexer.Kind) string {
	switch k {
	case lexer.KindPlus:
		return "+"
	case lexer.KindMinus:
		return "-"
	case lexer.KindMult:
		return "*"
	case lexer.KindDiv:
		return "/"
	case lexer.KindMod:
		return "%"
	}
	return "?"
}

// Format renders the tree in prefix form, e.g. "(+ (* 3 2) 1)".
func Format(e Expr) string {
	var b strings.Builder
	writePrefix(&b, e)
	return b.String()
}

func writePrefix(b *strings.Builder, e Expr) {
	switch n := e.(type) {
	case *Number:
		b.WriteString(value.Format(n.Value))
	case *Negative:
		b.WriteByte('-')
		writePrefix(b, n.X)
	case *Positive:
		b.WriteByte('+')
		writePrefix(b, n.X)
	case *Operator:
		b.WriteByte('(')
		b.WriteString(Symbol(n.Op.Kind))
		b.WriteByte(' ')
		writePrefix(b, n.Left)
		b.WriteByte(' ')
		writePrefix(b, n.Right)
		b.WriteByte(')')
	}
}

// Infix renders the tree as fully parenthesized infix source that parses back
// to an equivalent tree.
func Infix(e Expr) string {
	var b strings.Builder
	writeInfix(&b, e)
	return b.String()
}

func writeInfix(b *strings.Builder, e Expr) {
	switch n := e.(type) {
	case *Number:
		b.WriteString(value.Format(n.Value))
	case *Negative:
		b.WriteString("-(")
		writeInfix(b, n.X)
		b.WriteByte(')')
	case *Positive:
		b.WriteString("+(")
		writeInfix(b, n.X)
		b.WriteByte(')')
	case *Operator:
		b.WriteByte('(')
		writeInfix(b, n.Left)
		b.WriteByte(' ')
		b.WriteString(Symbol(n.Op.Kind))
		b.WriteByte(' ')
		writeInfix(b, n.Right)
		b.WriteByte(')')
	}
}

// Walk visits e and its descendants in post-order.
func Walk(e Expr, visit func(Expr)) {
	switch n := e.(type) {
	case *Negative:
		Walk(n.X, visit)
	case *Positive:
		Walk(n.X, visit)
	case *Operator:
		Walk(n.Left, visit)
		Walk(n.Right, visit)
	case nil:
		return
	}
	visit(e)
}
