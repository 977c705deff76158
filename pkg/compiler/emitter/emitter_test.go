package emitter_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/ncalc/pkg/compiler/ast"
	"github.com/agenthands/ncalc/pkg/compiler/emitter"
	"github.com/agenthands/ncalc/pkg/compiler/lexer"
	"github.com/agenthands/ncalc/pkg/compiler/parser"
	"github.com/agenthands/ncalc/pkg/vm"
)

func TestEmitterListings(t *testing.T) {
	tests := []struct {
		src  string
		want []string
	}{
		{"7", []string{
			"0000 PUSH_C 0 (7 @1)",
			"0001 RET",
		}},
		{"(1 + 2) * 3", []string{
			"0000 PUSH_C 0 (1 @2)",
			"0001 PUSH_C 1 (2 @6)",
			"0002 ADD",
			"0003 PUSH_C 2 (3 @11)",
			"0004 MUL",
			"0005 RET",
		}},
		{"-(3 + 2)", []string{
			"0000 PUSH_C 0 (3 @3)",
			"0001 PUSH_C 1 (2 @7)",
			"0002 ADD",
			"0003 NEG",
			"0004 RET",
		}},
		{"+5", []string{
			"0000 PUSH_C 0 (5 @2)",
			"0001 NOOP",
			"0002 RET",
		}},
		{"20 % 10 / 4 - 1", []string{
			"0000 PUSH_C 0 (20 @2)",
			"0001 PUSH_C 1 (10 @7)",
			"0002 PUSH_C 2 (4 @11)",
			"0003 DIV",
			"0004 MOD",
			"0005 PUSH_C 3 (1 @15)",
			"0006 SUB",
			"0007 RET",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			p := parser.NewParser(lexer.NewScanner(tt.src), tt.src)
			expr, err := p.Parse()
			require.NoError(t, err)

			bc, err := emitter.NewEmitter().Emit(expr)
			require.NoError(t, err)
			assert.Empty(t, cmp.Diff(tt.want, vm.Disassemble(bc)), "listing mismatch (-want +got)")
		})
	}
}

func TestEmitterSingleReturn(t *testing.T) {
	src := "1 + 2 + 3 + 4"
	expr, err := parser.NewParser(lexer.NewScanner(src), src).Parse()
	require.NoError(t, err)
	bc, err := emitter.NewEmitter().Emit(expr)
	require.NoError(t, err)

	rets := 0
	for _, instr := range bc.Instructions {
		if op, _ := vm.Decode(instr); op == vm.OP_RET {
			rets++
		}
	}
	assert.Equal(t, 1, rets, "expected exactly one RET")
	op, _ := vm.Decode(bc.Instructions[len(bc.Instructions)-1])
	assert.Equal(t, vm.OpName(vm.OP_RET), vm.OpName(op), "expected RET last")
	assert.Len(t, bc.Constants, 4, "expected one constant per literal")
}

func TestEmitterReusable(t *testing.T) {
	e := emitter.NewEmitter()

	first, err := e.Emit(&ast.Number{Offset: 1, Value: 1})
	require.NoError(t, err)
	second, err := e.Emit(&ast.Number{Offset: 1, Value: 2})
	require.NoError(t, err)

	assert.Empty(t, cmp.Diff([]string{"0000 PUSH_C 0 (1 @1)", "0001 RET"}, vm.Disassemble(first)), "first program changed (-want +got)")
	assert.Len(t, second.Constants, 1, "expected a fresh constant pool")
}

func TestEmitterUnknownOperator(t *testing.T) {
	expr := &ast.Operator{
		Op:    lexer.Token{Kind: lexer.KindEqual, Offset: 3, Text: "="},
		Left:  &ast.Number{Offset: 1, Value: 1},
		Right: &ast.Number{Offset: 5, Value: 2},
	}
	_, err := emitter.NewEmitter().Emit(expr)
	require.ErrorIs(t, err, emitter.ErrUnknownOperator)
}
