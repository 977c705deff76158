package parser

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/agenthands/ncalc/pkg/compiler/ast"
	"github.com/agenthands/ncalc/pkg/compiler/lexer"
	"github.com/agenthands/ncalc/pkg/core/diag"
)

var (
	ErrUnexpectedEOF   = errors.New("parser: unexpected end of input")
	ErrUnexpectedToken = errors.New("parser: unexpected token")
	ErrNumParse        = errors.New("parser: invalid number")
	ErrUnclosedBracket = errors.New("parser: unclosed bracket")
)

const helpOperations = "type help for a list of valid operations"

// bindingPower returns the (left, right) binding powers of an operator. The
// left value doubles as the operand power of the prefix forms of + and -.
// % shares the additive right power, so it groups left to right with + and -.
func bindingPower(k lexer.Kind) (uint8, uint8) {
	switch k {
	case lexer.KindPlus, lexer.KindMinus:
		return 3, 1
	case lexer.KindMult, lexer.KindDiv:
		return 0, 2
	case lexer.KindMod:
		return 0, 1
	}
	return 0, 0
}

// Parser builds an expression tree from the scanner's tokens using
// precedence climbing. It looks at most one token ahead.
type Parser struct {
	scanner *lexer.Scanner
	src     string

	peekTok lexer.Token
	hasPeek bool
}

func NewParser(s *lexer.Scanner, src string) *Parser {
	return &Parser{
		scanner: s,
		src:     src,
	}
}

func (p *Parser) next() (lexer.Token, bool) {
	if p.hasPeek {
		p.hasPeek = false
		return p.peekTok, true
	}
	return p.scanner.Next()
}

func (p *Parser) peek() (lexer.Token, bool) {
	if !p.hasPeek {
		tok, ok := p.scanner.Next()
		if !ok {
			return lexer.Token{}, false
		}
		p.peekTok, p.hasPeek = tok, true
	}
	return p.peekTok, true
}

// Parse reads the longest expression at the start of the input. Tokens that
// cannot continue it are left unread and ignored.
func (p *Parser) Parse() (ast.Expr, error) {
	return p.ParseExpr(0)
}

// ParseExpr parses an expression whose infix operators bind tighter than
// minBP. Tokens that cannot continue the expression are left unconsumed.
func (p *Parser) ParseExpr(minBP uint8) (ast.Expr, error) {
	tok, ok := p.next()
	if !ok {
		return nil, &diag.Diagnostic{
			Err:     ErrUnexpectedEOF,
			Message: "unexpected end of input",
			Help:    "try writing a complete expression (" + helpOperations + ")",
		}
	}

	var lhs ast.Expr
	switch tok.Kind {
	case lexer.KindNumber:
		num, err := strconv.ParseFloat(tok.Text, 64)
		// out of range literals keep the rounded value (±Inf or 0)
		if err != nil && !errors.Is(err, strconv.ErrRange) {
			return nil, p.fail(ErrNumParse, tok, "failed to parse number", "try entering a valid number", "this number")
		}
		lhs = &ast.Number{Offset: tok.Offset, Value: num}

	case lexer.KindLparen:
		inner, err := p.ParseExpr(0)
		if err != nil {
			return nil, err
		}
		closing, ok := p.next()
		if !ok || closing.Kind != lexer.KindRparen {
			return nil, p.fail(ErrUnclosedBracket, tok, "unclosed bracket", "add the matching ')'", "opened here")
		}
		lhs = inner

	case lexer.KindMinus:
		prefix, _ := bindingPower(tok.Kind)
		x, err := p.ParseExpr(prefix)
		if err != nil {
			return nil, err
		}
		lhs = &ast.Negative{Token: tok, X: x}

	case lexer.KindPlus:
		prefix, _ := bindingPower(tok.Kind)
		x, err := p.ParseExpr(prefix)
		if err != nil {
			return nil, err
		}
		lhs = &ast.Positive{Token: tok, X: x}

	default:
		return nil, p.unexpected(tok, "this token here")
	}

	for {
		op, ok := p.peek()
		if !ok || !op.Kind.IsArithmetic() {
			break
		}
		_, right := bindingPower(op.Kind)
		if right <= minBP {
			break
		}
		p.next()

		rhs, err := p.ParseExpr(right)
		if err != nil {
			return nil, err
		}
		lhs = &ast.Operator{Op: op, Left: lhs, Right: rhs}
	}

	return lhs, nil
}

func (p *Parser) unexpected(tok lexer.Token, label string) error {
	help := helpOperations
	switch tok.Kind {
	case lexer.KindIdentifier, lexer.KindVar, lexer.KindEqual,
		lexer.KindSin, lexer.KindCos, lexer.KindTan, lexer.KindLog, lexer.KindPow:
		help = "variables, assignment and named functions are not evaluated"
	}
	return p.fail(ErrUnexpectedToken, tok, fmt.Sprintf("unexpected token %q", tok.Text), help, label)
}

func (p *Parser) fail(err error, tok lexer.Token, msg, help, label string) error {
	return &diag.Diagnostic{
		Err:     err,
		Message: msg,
		Help:    help,
		Label:   label,
		Source:  p.src,
		Span:    &diag.Span{Offset: tok.Start(), Length: tok.Len()},
	}
}
