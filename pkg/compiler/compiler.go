// Package compiler turns one line of arithmetic into a program for the stack
// machine and runs it.
package compiler

import (
	"log/slog"

	"github.com/agenthands/ncalc/pkg/compiler/ast"
	"github.com/agenthands/ncalc/pkg/compiler/emitter"
	"github.com/agenthands/ncalc/pkg/compiler/lexer"
	"github.com/agenthands/ncalc/pkg/compiler/parser"
	"github.com/agenthands/ncalc/pkg/core/diag"
	"github.com/agenthands/ncalc/pkg/vm"
)

// Parse builds the expression tree for source without lowering it.
func Parse(source string) (ast.Expr, error) {
	p := parser.NewParser(lexer.NewScanner(source), source)
	return p.Parse()
}

// Compile lexes, parses and lowers source. Errors are *diag.Diagnostic.
func Compile(source string) (*vm.Bytecode, error) {
	expr, err := Parse(source)
	if err != nil {
		slog.Debug("parse failed", slog.String("source", source), slog.Any("err", err))
		return nil, err
	}

	bc, err := emitter.NewEmitter().Emit(expr)
	if err != nil {
		return nil, &diag.Diagnostic{
			Err:     err,
			Message: "failed to compile expression",
			Help:    "split the expression into smaller parts",
		}
	}

	slog.Debug("compiled",
		slog.Int("instructions", len(bc.Instructions)),
		slog.Int("constants", len(bc.Constants)))
	return bc, nil
}

// Eval compiles source and executes it on a pooled machine.
func Eval(source string) (string, error) {
	bc, err := Compile(source)
	if err != nil {
		return "", err
	}

	m := vm.GetMachine()
	defer vm.PutMachine(m)

	m.Reset(source, bc)
	return m.Execute()
}
