package vm

import (
	"fmt"

	"github.com/agenthands/ncalc/pkg/core/value"
)

// Bytecode represents the compiled output of one expression.
type Bytecode struct {
	Instructions []uint32
	Constants    []value.Value
}

// Disassemble renders one line per instruction.
func Disassemble(bc *Bytecode) []string {
	if bc == nil {
		return nil
	}
	lines := make([]string, 0, len(bc.Instructions))
	for ip, instr := range bc.Instructions {
		op, arg := Decode(instr)
		line := fmt.Sprintf("%04d %s", ip, OpName(op))
		if op == OP_PUSH_C {
			if int(arg) < len(bc.Constants) {
				c := bc.Constants[arg]
				line = fmt.Sprintf("%s %d (%s @%d)", line, arg, c.Format(), c.Offset)
			} else {
				line = fmt.Sprintf("%s %d (?)", line, arg)
			}
		}
		lines = append(lines, line)
	}
	return lines
}
