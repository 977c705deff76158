package vm

// Instructions are packed into a uint32: the opcode in the top 8 bits and a
// 24-bit argument below it.
const (
	OP_NOOP   uint8 = 0x01
	OP_PUSH_C uint8 = 0x02
	OP_ADD    uint8 = 0x10
	OP_SUB    uint8 = 0x11
	OP_MUL    uint8 = 0x12
	OP_DIV    uint8 = 0x13
	OP_MOD    uint8 = 0x14
	OP_NEG    uint8 = 0x15
	OP_RET    uint8 = 0x23
)

// MaxArg is the largest argument an instruction can carry.
const MaxArg = 0x00FFFFFF

var opNames = map[uint8]string{
	OP_NOOP:   "NOOP",
	OP_PUSH_C: "PUSH_C",
	OP_ADD:    "ADD",
	OP_SUB:    "SUB",
	OP_MUL:    "MUL",
	OP_DIV:    "DIV",
	OP_MOD:    "MOD",
	OP_NEG:    "NEG",
	OP_RET:    "RET",
}

// Encode packs an opcode and its argument.
func Encode(op uint8, arg uint32) uint32 {
	return (uint32(op) << 24) | (arg & MaxArg)
}

// Decode splits an instruction into opcode and argument.
func Decode(instr uint32) (uint8, uint32) {
	return uint8(instr >> 24), instr & MaxArg
}

// OpName returns the mnemonic of op.
func OpName(op uint8) string {
	if name, ok := opNames[op]; ok {
		return name
	}
	return "UNKNOWN"
}
