package value

import (
	"math"
	"strconv"
)

// Value is a single stack slot: a number plus the source offset of the token
// that produced it. Offset 0 marks a value computed at runtime.
type Value struct {
	Offset uint32
	Num    float64
}

// Of builds a slot for a literal ending at offset.
func Of(offset uint32, num float64) Value {
	return Value{Offset: offset, Num: num}
}

// Computed builds a slot that no longer maps to a single source token.
func Computed(num float64) Value {
	return Value{Num: num}
}

// Negate flips the sign and keeps the originating offset.
func (v Value) Negate() Value {
	return Value{Offset: v.Offset, Num: -v.Num}
}

// Format returns the textual result of the value.
func (v Value) Format() string {
	return Format(v.Num)
}

// Format renders f without an exponent using the fewest digits that round-trip.
// Non-finite values render as inf, -inf and NaN.
func Format(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
