package emitter

import (
	"errors"
	"fmt"

	"github.com/agenthands/ncalc/pkg/compiler/ast"
	"github.com/agenthands/ncalc/pkg/compiler/lexer"
	"github.com/agenthands/ncalc/pkg/core/value"
	"github.com/agenthands/ncalc/pkg/vm"
)

var (
	ErrTooManyConstants = errors.New("emitter: too many constants")
	ErrUnknownOperator  = errors.New("emitter: unknown operator")
)

// Emitter lowers an expression tree to stack code in post-order: operands
// first, then the operation that consumes them.
type Emitter struct {
	instructions []uint32
	constants    []value.Value
	err          error
}

func NewEmitter() *Emitter {
	return &Emitter{}
}

// Emit returns the program for expr, terminated by a single RET.
func (e *Emitter) Emit(expr ast.Expr) (*vm.Bytecode, error) {
	e.instructions = nil
	e.constants = nil
	e.err = nil

	ast.Walk(expr, e.emitNode)
	if e.err != nil {
		return nil, e.err
	}

	e.emitOp(vm.OP_RET, 0)

	return &vm.Bytecode{
		Instructions: e.instructions,
		Constants:    e.constants,
	}, nil
}

func (e *Emitter) emitNode(node ast.Expr) {
	if e.err != nil {
		return
	}
	switch n := node.(type) {
	case *ast.Number:
		idx, err := e.addConstant(value.Of(n.Offset, n.Value))
		if err != nil {
			e.err = err
			return
		}
		e.emitOp(vm.OP_PUSH_C, idx)
	case *ast.Negative:
		e.emitOp(vm.OP_NEG, 0)
	case *ast.Positive:
		e.emitOp(vm.OP_NOOP, 0)
	case *ast.Operator:
		op, ok := opcode(n.Op.Kind)
		if !ok {
			e.err = fmt.Errorf("%w: %s", ErrUnknownOperator, n.Op.Kind)
			return
		}
		e.emitOp(op, 0)
	}
}

func opcode(k lexer.Kind) (uint8, bool) {
	switch k {
	case lexer.KindPlus:
		return vm.OP_ADD, true
	case lexer.KindMinus:
		return vm.OP_SUB, true
	case lexer.KindMult:
		return vm.OP_MUL, true
	case lexer.KindDiv:
		return vm.OP_DIV, true
	case lexer.KindMod:
		return vm.OP_MOD, true
	}
	return 0, false
}

func (e *Emitter) emitOp(op uint8, arg uint32) {
	e.instructions = append(e.instructions, vm.Encode(op, arg))
}

// addConstant appends without deduplication: every literal keeps the offset
// of its own token.
func (e *Emitter) addConstant(v value.Value) (uint32, error) {
	if len(e.constants) > vm.MaxArg {
		return 0, fmt.Errorf("%w: more than %d literals", ErrTooManyConstants, vm.MaxArg+1)
	}
	e.constants = append(e.constants, v)
	return uint32(len(e.constants) - 1), nil
}
