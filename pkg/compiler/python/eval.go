// Package python evaluates arithmetic through gpython's parser. It shares no
// code with the native lexer and parser and serves as an independent
// reference for them.
package python

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/go-python/gpython/ast"
	"github.com/go-python/gpython/parser"
	"github.com/go-python/gpython/py"

	"github.com/agenthands/ncalc/pkg/core/value"
)

var (
	ErrSyntax         = errors.New("python: syntax error")
	ErrUnsupported    = errors.New("python: unsupported expression")
	ErrDivisionByZero = errors.New("python: division by zero")
)

// Parse reads src as a single Python expression.
func Parse(src string) (ast.Expr, error) {
	mod, err := parser.Parse(strings.NewReader(src), "<string>", py.EvalMode)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSyntax, err)
	}

	expression, ok := mod.(*ast.Expression)
	if !ok {
		return nil, fmt.Errorf("%w: expected *ast.Expression, got %T", ErrUnsupported, mod)
	}
	return expression.Body, nil
}

// Eval folds src in float64 with the calculator's semantics: true division
// and a remainder that takes the sign of the dividend.
func Eval(src string) (float64, error) {
	expr, err := Parse(src)
	if err != nil {
		return 0, err
	}
	return eval(expr)
}

// Format renders src in the same prefix form as the native ast.Format.
func Format(src string) (string, error) {
	expr, err := Parse(src)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	if err := writePrefix(&b, expr); err != nil {
		return "", err
	}
	return b.String(), nil
}

func eval(expr ast.Expr) (float64, error) {
	switch e := expr.(type) {
	case *ast.Num:
		return number(e)

	case *ast.UnaryOp:
		x, err := eval(e.Operand)
		if err != nil {
			return 0, err
		}
		switch e.Op {
		case ast.USub:
			return -x, nil
		case ast.UAdd:
			return x, nil
		}
		return 0, fmt.Errorf("%w: unary %v", ErrUnsupported, e.Op)

	case *ast.BinOp:
		l, err := eval(e.Left)
		if err != nil {
			return 0, err
		}
		r, err := eval(e.Right)
		if err != nil {
			return 0, err
		}
		switch e.Op {
		case ast.Add:
			return l + r, nil
		case ast.Sub:
			return l - r, nil
		case ast.Mult:
			return l * r, nil
		case ast.Div, ast.Modulo:
			if r == 0 {
				return 0, ErrDivisionByZero
			}
			if e.Op == ast.Div {
				return l / r, nil
			}
			return math.Mod(l, r), nil
		}
		return 0, fmt.Errorf("%w: operator %v", ErrUnsupported, e.Op)
	}
	return 0, fmt.Errorf("%w: %T", ErrUnsupported, expr)
}

// number converts an int, big int or float literal. Integers wider than
// int64 come back as *py.BigInt.
func number(n *ast.Num) (float64, error) {
	switch v := n.N.(type) {
	case py.Int:
		return float64(v), nil
	case py.Float:
		return float64(v), nil
	case *py.BigInt:
		f, _ := new(big.Float).SetInt((*big.Int)(v)).Float64()
		return f, nil
	}
	return 0, fmt.Errorf("%w: literal %T", ErrUnsupported, n.N)
}

func writePrefix(b *strings.Builder, expr ast.Expr) error {
	switch e := expr.(type) {
	case *ast.Num:
		f, err := number(e)
		if err != nil {
			return err
		}
		b.WriteString(value.Format(f))
		return nil

	case *ast.UnaryOp:
		switch e.Op {
		case ast.USub:
			b.WriteByte('-')
		case ast.UAdd:
			b.WriteByte('+')
		default:
			return fmt.Errorf("%w: unary %v", ErrUnsupported, e.Op)
		}
		return writePrefix(b, e.Operand)

	case *ast.BinOp:
		sym, ok := symbols[e.Op]
		if !ok {
			return fmt.Errorf("%w: operator %v", ErrUnsupported, e.Op)
		}
		b.WriteByte('(')
		b.WriteString(sym)
		b.WriteByte(' ')
		if err := writePrefix(b, e.Left); err != nil {
			return err
		}
		b.WriteByte(' ')
		if err := writePrefix(b, e.Right); err != nil {
			return err
		}
		b.WriteByte(')')
		return nil
	}
	return fmt.Errorf("%w: %T", ErrUnsupported, expr)
}

var symbols = map[ast.OperatorNumber]string{
	ast.Add:    "+",
	ast.Sub:    "-",
	ast.Mult:   "*",
	ast.Div:    "/",
	ast.Modulo: "%",
}
