package lexer

import (
	"iter"
	"unicode"
	"unicode/utf8"
)

// Scanner performs lexical analysis on a single source line.
type Scanner struct {
	source string
	cursor int
}

// NewScanner creates a new scanner for the given source.
func NewScanner(source string) *Scanner {
	return &Scanner{source: source}
}

// Reset re-initializes the scanner with new source for reuse.
func (s *Scanner) Reset(source string) {
	s.source = source
	s.cursor = 0
}

// Source returns the text being scanned.
func (s *Scanner) Source() string {
	return s.source
}

// Next returns the next token. The second result is false once the source is
// exhausted; there is no end-of-input token.
func (s *Scanner) Next() (Token, bool) {
	s.skipWhitespace()

	if s.cursor >= len(s.source) {
		return Token{}, false
	}

	start := s.cursor
	ch, size := utf8.DecodeRuneInString(s.source[s.cursor:])

	if isDigit(ch) {
		return s.scanNumber(), true
	}
	if isIdentStart(ch) {
		return s.scanIdentifier(), true
	}

	s.cursor += size
	kind := KindIllegal
	switch ch {
	case '(':
		kind = KindLparen
	case ')':
		kind = KindRparen
	case '+':
		kind = KindPlus
	case '-':
		kind = KindMinus
	case '*':
		kind = KindMult
	case '/':
		kind = KindDiv
	case '%':
		kind = KindMod
	case '$':
		kind = KindVar
	case '=':
		kind = KindEqual
	}

	return s.token(kind, start), true
}

// Tokens returns the token sequence of source. Every range over the result
// scans from the beginning.
func Tokens(source string) iter.Seq[Token] {
	return func(yield func(Token) bool) {
		s := NewScanner(source)
		for {
			tok, ok := s.Next()
			if !ok || !yield(tok) {
				return
			}
		}
	}
}

func (s *Scanner) token(kind Kind, start int) Token {
	return Token{Kind: kind, Offset: uint32(s.cursor), Text: s.source[start:s.cursor]}
}

func (s *Scanner) skipWhitespace() {
	for s.cursor < len(s.source) {
		ch, size := utf8.DecodeRuneInString(s.source[s.cursor:])
		if !unicode.IsSpace(ch) {
			break
		}
		s.cursor += size
	}
}

// scanNumber reads digits with at most one fractional part. A trailing '.' is
// kept so the parser can judge the text.
func (s *Scanner) scanNumber() Token {
	start := s.cursor
	s.skipDigits()
	if s.cursor < len(s.source) && s.source[s.cursor] == '.' {
		s.cursor++
		s.skipDigits()
	}
	return s.token(KindNumber, start)
}

func (s *Scanner) skipDigits() {
	for s.cursor < len(s.source) && isDigit(rune(s.source[s.cursor])) {
		s.cursor++
	}
}

func (s *Scanner) scanIdentifier() Token {
	start := s.cursor
	for s.cursor < len(s.source) && isIdentPart(rune(s.source[s.cursor])) {
		s.cursor++
	}

	kind := KindIdentifier
	switch s.source[start:s.cursor] {
	case "sin":
		kind = KindSin
	case "cos":
		kind = KindCos
	case "tan":
		kind = KindTan
	case "log":
		kind = KindLog
	case "pow":
		kind = KindPow
	}

	return s.token(kind, start)
}

func isDigit(ch rune) bool {
	return ch >= '0' && ch <= '9'
}

func isIdentStart(ch rune) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_'
}

func isIdentPart(ch rune) bool {
	return isIdentStart(ch) || isDigit(ch)
}
