package lexer

// Kind represents the type of token identified by the scanner.
type Kind uint8

const (
	KindIllegal Kind = iota
	KindPlus
	KindMinus
	KindDiv
	KindMult
	KindMod
	KindEqual  // =
	KindLparen // (
	KindRparen // )
	KindNumber
	KindIdentifier
	KindVar // $
	KindSin
	KindCos
	KindTan
	KindLog
	KindPow
)

var kindNames = [...]string{
	KindIllegal:    "Illegal",
	KindPlus:       "Plus",
	KindMinus:      "Minus",
	KindDiv:        "Div",
	KindMult:       "Mult",
	KindMod:        "Mod",
	KindEqual:      "Equal",
	KindLparen:     "Lparen",
	KindRparen:     "Rparen",
	KindNumber:     "Number",
	KindIdentifier: "Identifier",
	KindVar:        "Var",
	KindSin:        "Sin",
	KindCos:        "Cos",
	KindTan:        "Tan",
	KindLog:        "Log",
	KindPow:        "Pow",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Kind(?)"
}

// IsArithmetic reports whether k is a binary arithmetic operator.
func (k Kind) IsArithmetic() bool {
	switch k {
	case KindPlus, KindMinus, KindDiv, KindMult, KindMod:
		return true
	}
	return false
}

// Token represents a lexical unit pointing back to the source.
// Offset is the 1-based position just past the token's last byte.
type Token struct {
	Kind   Kind
	Offset uint32
	Text   string
}

// Start returns the 0-based byte offset of the token's first byte.
func (t Token) Start() int {
	return int(t.Offset) - len(t.Text)
}

// Len returns the token's width in bytes.
func (t Token) Len() int {
	return len(t.Text)
}
