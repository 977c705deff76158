package vm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/ncalc/pkg/core/diag"
	"github.com/agenthands/ncalc/pkg/core/value"
	"github.com/agenthands/ncalc/pkg/vm"
)

// program builds "PUSH a; PUSH b; op; RET" for the source "a op b".
func program(a, b float64, aOff, bOff uint32, op uint8) *vm.Bytecode {
	return &vm.Bytecode{
		Instructions: []uint32{
			vm.Encode(vm.OP_PUSH_C, 0),
			vm.Encode(vm.OP_PUSH_C, 1),
			vm.Encode(op, 0),
			vm.Encode(vm.OP_RET, 0),
		},
		Constants: []value.Value{value.Of(aOff, a), value.Of(bOff, b)},
	}
}

func TestMachineBinaryOps(t *testing.T) {
	tests := []struct {
		name string
		op   uint8
		want string
	}{
		{"add", vm.OP_ADD, "30"},
		{"sub", vm.OP_SUB, "10"},
		{"mul", vm.OP_MUL, "200"},
		{"div", vm.OP_DIV, "2"},
		{"mod", vm.OP_MOD, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := vm.New("20 ? 10", program(20, 10, 2, 7, tt.op))
			got, err := m.Execute()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, vm.StateReturned, m.State())
		})
	}
}

func TestMachineNegate(t *testing.T) {
	bc := &vm.Bytecode{
		Instructions: []uint32{
			vm.Encode(vm.OP_PUSH_C, 0),
			vm.Encode(vm.OP_NEG, 0),
			vm.Encode(vm.OP_NOOP, 0),
			vm.Encode(vm.OP_RET, 0),
		},
		Constants: []value.Value{value.Of(2, 5)},
	}

	got, err := vm.New("-5", bc).Execute()
	require.NoError(t, err)
	assert.Equal(t, "-5", got)
}

func TestMachineDivisionByZero(t *testing.T) {
	tests := []struct {
		src     string
		bc      *vm.Bytecode
		snippet string
	}{
		{"5 / 0", program(5, 0, 1, 5, vm.OP_DIV), "5 / 0"},
		{"10 / 0", program(10, 0, 2, 6, vm.OP_DIV), "10 / 0"},
		{"100 % 0", program(100, 0, 3, 7, vm.OP_MOD), "100 % 0"},
		{"1 + 25 / 0", program(25, 0, 6, 10, vm.OP_DIV), "25 / 0"},
		{"0 / 0", program(0, 0, 1, 5, vm.OP_DIV), "0 / 0"},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			m := vm.New(tt.src, tt.bc)
			_, err := m.Execute()
			require.ErrorIs(t, err, vm.ErrDivisionByZero)

			d, ok := diag.As(err)
			require.True(t, ok, "expected a diagnostic, got %T", err)
			assert.Equal(t, tt.snippet, d.Snippet())
			assert.NotEmpty(t, d.Help)
			assert.Equal(t, vm.StateFaulted, m.State())
		})
	}
}

func TestMachineNonZeroDivisorOnlyChecksDivision(t *testing.T) {
	for _, op := range []uint8{vm.OP_ADD, vm.OP_SUB, vm.OP_MUL} {
		_, err := vm.New("5 ? 0", program(5, 0, 1, 5, op)).Execute()
		assert.NoError(t, err, vm.OpName(op))
	}
}

func TestMachineStackOverflow(t *testing.T) {
	code := make([]uint32, 0, vm.StackDepth+2)
	for i := 0; i <= vm.StackDepth; i++ {
		code = append(code, vm.Encode(vm.OP_PUSH_C, 0))
	}
	code = append(code, vm.Encode(vm.OP_RET, 0))

	m := vm.New("1", &vm.Bytecode{Instructions: code, Constants: []value.Value{value.Of(1, 1)}})
	_, err := m.Execute()
	require.ErrorIs(t, err, vm.ErrStackOverflow)
	assert.Equal(t, vm.StackDepth, m.Stack.Len())
}

func TestMachineStackUnderflow(t *testing.T) {
	tests := []struct {
		name string
		code []uint32
	}{
		{"ret on empty stack", []uint32{vm.Encode(vm.OP_RET, 0)}},
		{"binary with one operand", []uint32{vm.Encode(vm.OP_PUSH_C, 0), vm.Encode(vm.OP_ADD, 0), vm.Encode(vm.OP_RET, 0)}},
		{"negate on empty stack", []uint32{vm.Encode(vm.OP_NEG, 0), vm.Encode(vm.OP_RET, 0)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bc := &vm.Bytecode{Instructions: tt.code, Constants: []value.Value{value.Of(1, 1)}}
			_, err := vm.New("1", bc).Execute()
			require.ErrorIs(t, err, vm.ErrStackUnderflow)
		})
	}
}

func TestMachineNoReturn(t *testing.T) {
	tests := []struct {
		name string
		bc   *vm.Bytecode
	}{
		{"nil program", nil},
		{"empty program", &vm.Bytecode{}},
		{"falls off the end", &vm.Bytecode{
			Instructions: []uint32{vm.Encode(vm.OP_PUSH_C, 0)},
			Constants:    []value.Value{value.Of(1, 1)},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := vm.New("1", tt.bc).Execute()
			require.ErrorIs(t, err, vm.ErrNoReturnOpcode)
		})
	}
}

func TestMachineMalformedProgram(t *testing.T) {
	unknown := &vm.Bytecode{Instructions: []uint32{vm.Encode(0xEE, 0)}}
	_, err := vm.New("", unknown).Execute()
	assert.ErrorIs(t, err, vm.ErrUnknownOpcode)

	badConst := &vm.Bytecode{Instructions: []uint32{vm.Encode(vm.OP_PUSH_C, 3), vm.Encode(vm.OP_RET, 0)}}
	_, err = vm.New("", badConst).Execute()
	assert.ErrorIs(t, err, vm.ErrInvalidConstant)
}

func TestMachineExecutesOnce(t *testing.T) {
	m := vm.New("20 + 10", program(20, 10, 2, 7, vm.OP_ADD))
	_, err := m.Execute()
	require.NoError(t, err)

	_, err = m.Execute()
	require.ErrorIs(t, err, vm.ErrNotReady)
	assert.Equal(t, vm.StateReturned, m.State(), "rejected call must not change state")

	m.Reset("20 - 10", program(20, 10, 2, 7, vm.OP_SUB))
	got, err := m.Execute()
	require.NoError(t, err)
	assert.Equal(t, "10", got)
}

func TestMachineReset(t *testing.T) {
	m := vm.New("1", program(1, 2, 1, 1, vm.OP_ADD))
	require.NoError(t, m.Stack.Push(value.Of(1, 7)))
	m.IP = 3

	m.Reset("", nil)

	assert.Zero(t, m.IP)
	assert.Zero(t, m.Stack.Len())
	assert.Nil(t, m.Code)
	assert.Nil(t, m.Constants)
	assert.Equal(t, vm.StateReady, m.State())
}

func TestMachinePool(t *testing.T) {
	m := vm.GetMachine()
	m.Reset("2 * 4", program(2, 4, 1, 5, vm.OP_MUL))
	got, err := m.Execute()
	vm.PutMachine(m)

	require.NoError(t, err)
	assert.Equal(t, "8", got)
}

func TestStack(t *testing.T) {
	var s vm.Stack

	_, err := s.Pop()
	assert.ErrorIs(t, err, vm.ErrStackUnderflow, "empty stack")

	for i := 0; i < vm.StackDepth; i++ {
		require.NoError(t, s.Push(value.Computed(float64(i))), "push %d", i)
	}
	assert.ErrorIs(t, s.Push(value.Computed(0)), vm.ErrStackOverflow, "push at capacity")

	v, err := s.Pop()
	require.NoError(t, err)
	assert.Equal(t, float64(vm.StackDepth-1), v.Num, "LIFO order")
}
