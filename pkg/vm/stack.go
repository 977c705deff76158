package vm

import "github.com/agenthands/ncalc/pkg/core/value"

// StackDepth is the fixed capacity of the value stack.
const StackDepth = 1024

// Stack is a fixed-capacity LIFO of value slots. 0 <= top <= StackDepth.
type Stack struct {
	items [StackDepth]value.Value
	top   int
}

// Push adds a value, failing with ErrStackOverflow at capacity.
func (s *Stack) Push(v value.Value) error {
	if s.top >= StackDepth {
		return ErrStackOverflow
	}
	s.items[s.top] = v
	s.top++
	return nil
}

// Pop removes the top value, failing with ErrStackUnderflow when empty.
func (s *Stack) Pop() (value.Value, error) {
	if s.top <= 0 {
		return value.Value{}, ErrStackUnderflow
	}
	s.top--
	return s.items[s.top], nil
}

// Len returns the number of values on the stack.
func (s *Stack) Len() int {
	return s.top
}

// Reset empties the stack and zeroes its slots.
func (s *Stack) Reset() {
	clear(s.items[:s.top])
	s.top = 0
}
