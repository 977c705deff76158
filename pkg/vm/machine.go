package vm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/agenthands/ncalc/pkg/core/diag"
	"github.com/agenthands/ncalc/pkg/core/value"
)

var (
	ErrStackOverflow   = errors.New("vm: stack overflow")
	ErrStackUnderflow  = errors.New("vm: stack underflow")
	ErrDivisionByZero  = errors.New("vm: division by zero")
	ErrNoReturnOpcode  = errors.New("vm: no return opcode")
	ErrUnknownOpcode   = errors.New("vm: unknown opcode")
	ErrInvalidConstant = errors.New("vm: invalid constant index")
	ErrNotReady        = errors.New("vm: machine is not ready")
)

// State is the lifecycle position of a Machine.
type State uint8

const (
	StateReady State = iota
	StateRunning
	StateReturned
	StateFaulted
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StateReturned:
		return "returned"
	case StateFaulted:
		return "faulted"
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

// Machine executes one compiled expression against a bounded value stack.
// The source text is kept only to locate runtime faults.
type Machine struct {
	Stack Stack

	IP        int      // Instruction Pointer
	Code      []uint32 // Bytecode instructions
	Constants []value.Value

	Source string

	state State
}

// New binds a program to the source it was compiled from.
func New(source string, bc *Bytecode) *Machine {
	m := &Machine{}
	m.Reset(source, bc)
	return m
}

// Reset re-arms the machine for a new program (sync.Pool compliant).
func (m *Machine) Reset(source string, bc *Bytecode) {
	m.Stack.Reset()
	m.IP = 0
	m.Source = source
	m.Code = nil
	m.Constants = nil
	if bc != nil {
		m.Code = bc.Instructions
		m.Constants = bc.Constants
	}
	m.state = StateReady
}

// State reports where the machine is in its lifecycle.
func (m *Machine) State() State {
	return m.state
}

var machinePool = sync.Pool{
	New: func() any { return new(Machine) },
}

// GetMachine takes a machine from the pool. Bind a program with Reset.
func GetMachine() *Machine {
	return machinePool.Get().(*Machine)
}

// PutMachine returns a machine to the pool.
func PutMachine(m *Machine) {
	m.Reset("", nil)
	machinePool.Put(m)
}

// Execute runs the program until the first RET and returns the formatted
// result. A machine executes once; Reset it to run again.
func (m *Machine) Execute() (result string, err error) {
	if m.state != StateReady {
		return "", &diag.Diagnostic{
			Err:     ErrNotReady,
			Message: fmt.Sprintf("machine is %s", m.state),
			Help:    "reset the machine before executing another program",
		}
	}
	if m.IP >= len(m.Code) {
		m.state = StateFaulted
		return "", m.noReturn()
	}

	m.state = StateRunning
	defer func() {
		if err != nil {
			m.state = StateFaulted
			return
		}
		m.state = StateReturned
	}()

	trace := slog.Default().Enabled(context.Background(), slog.LevelDebug)

	for m.IP < len(m.Code) {
		op, arg := Decode(m.Code[m.IP])
		if trace {
			slog.Debug("vm step",
				slog.Int("ip", m.IP),
				slog.String("op", OpName(op)),
				slog.Int("stack-size", m.Stack.Len()))
		}
		m.IP++

		switch op {
		case OP_PUSH_C:
			if int(arg) >= len(m.Constants) {
				return "", &diag.Diagnostic{
					Err:     ErrInvalidConstant,
					Message: fmt.Sprintf("constant %d does not exist", arg),
					Help:    "the program was not produced by the compiler",
				}
			}
			if err := m.Stack.Push(m.Constants[arg]); err != nil {
				return "", m.stackFault(err)
			}

		case OP_ADD, OP_SUB, OP_MUL, OP_DIV, OP_MOD:
			if err := m.binary(op); err != nil {
				return "", err
			}

		case OP_NEG:
			v, err := m.Stack.Pop()
			if err != nil {
				return "", m.stackFault(err)
			}
			if err := m.Stack.Push(v.Negate()); err != nil {
				return "", m.stackFault(err)
			}

		case OP_NOOP:

		case OP_RET:
			v, err := m.Stack.Pop()
			if err != nil {
				return "", m.stackFault(err)
			}
			if trace {
				slog.Debug("vm returned", slog.Float64("value", v.Num), slog.Int("stack-size", m.Stack.Len()))
			}
			return v.Format(), nil

		default:
			return "", &diag.Diagnostic{
				Err:     ErrUnknownOpcode,
				Message: fmt.Sprintf("unknown opcode 0x%02x at %d", op, m.IP-1),
				Help:    "the program was not produced by the compiler",
			}
		}
	}

	return "", m.noReturn()
}

func (m *Machine) binary(op uint8) error {
	right, err := m.Stack.Pop()
	if err != nil {
		return m.stackFault(err)
	}
	left, err := m.Stack.Pop()
	if err != nil {
		return m.stackFault(err)
	}

	res, err := binaryOp(op, left.Num, right.Num)
	if errors.Is(err, ErrDivisionByZero) {
		span := divisionSpan(left, right, len(m.Source))
		return &diag.Diagnostic{
			Err:     ErrDivisionByZero,
			Message: "division by zero",
			Help:    "try to divide by anything other than zero",
			Label:   "this part here",
			Source:  m.Source,
			Span:    &span,
		}
	}
	if err != nil {
		return &diag.Diagnostic{Err: err, Message: err.Error()}
	}

	if err := m.Stack.Push(value.Computed(res)); err != nil {
		return m.stackFault(err)
	}
	return nil
}

// binaryOp applies one arithmetic opcode. Only DIV and MOD check the divisor.
func binaryOp(op uint8, l, r float64) (float64, error) {
	switch op {
	case OP_ADD:
		return l + r, nil
	case OP_SUB:
		return l - r, nil
	case OP_MUL:
		return l * r, nil
	case OP_DIV, OP_MOD:
		if r == 0 {
			return 0, ErrDivisionByZero
		}
		if op == OP_DIV {
			return l / r, nil
		}
		return math.Mod(l, r), nil
	}
	return 0, ErrUnknownOpcode
}

// divisionSpan estimates the source region covering both operands of a
// faulting division. The left operand's width is guessed from its magnitude,
// so fractional or computed operands can be located imprecisely.
func divisionSpan(left, right value.Value, srcLen int) diag.Span {
	start := int(left.Offset) - digitWidth(left.Num)
	if start < 0 {
		start = 0
	}
	end := int(right.Offset)
	if end <= start || end > srcLen {
		end = srcLen
	}
	if start > end {
		start = end
	}
	return diag.Span{Offset: start, Length: end - start}
}

func digitWidth(x float64) int {
	x = math.Abs(x)
	if x == 0 {
		return 1
	}
	l := math.Log10(x)
	if math.IsInf(l, 0) || math.IsNaN(l) {
		return 1
	}
	return int(math.Floor(math.Abs(l))) + 1
}

func (m *Machine) stackFault(err error) error {
	d := &diag.Diagnostic{Err: err}
	switch {
	case errors.Is(err, ErrStackOverflow):
		d.Message = "stack overflow"
		d.Help = fmt.Sprintf("the expression holds more than %d pending values; reduce its nesting", StackDepth)
	case errors.Is(err, ErrStackUnderflow):
		d.Message = "stack underflow"
		d.Help = "the program consumed more values than it produced"
	default:
		d.Message = err.Error()
	}
	return d
}

func (m *Machine) noReturn() error {
	return &diag.Diagnostic{
		Err:     ErrNoReturnOpcode,
		Message: "no return opcode emitted",
		Help:    "every program must end with a RET instruction",
	}
}
