// Package diag defines the source-annotated error reported by every stage of
// the pipeline and renders it with a caret underline.
package diag

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// Span is a byte range in the source: Offset is 0-based, Length in bytes.
type Span struct {
	Offset int
	Length int
}

// End returns the byte offset just past the span.
func (s Span) End() int {
	return s.Offset + s.Length
}

// Diagnostic is a user-facing failure. Err is the package sentinel it wraps so
// callers can classify it with errors.Is.
type Diagnostic struct {
	Err     error
	Message string
	Help    string
	Label   string
	Source  string
	Span    *Span // nil when there is nothing to point at
}

func (d *Diagnostic) Error() string {
	if d.Span == nil {
		return d.Message
	}
	return fmt.Sprintf("%s (at %d:%d)", d.Message, d.Span.Offset, d.Span.Length)
}

func (d *Diagnostic) Unwrap() error {
	return d.Err
}

// Snippet returns the source text covered by the span.
func (d *Diagnostic) Snippet() string {
	if d.Span == nil {
		return ""
	}
	start, end := clamp(d.Span.Offset, 0, len(d.Source)), clamp(d.Span.End(), 0, len(d.Source))
	return d.Source[start:end]
}

// As extracts the Diagnostic from err, if any.
func As(err error) (*Diagnostic, bool) {
	var d *Diagnostic
	if errors.As(err, &d) {
		return d, true
	}
	return nil, false
}

// Palette holds the escape sequences used when rendering. A nil palette
// renders plain text.
type Palette struct {
	Error string
	Caret string
	Help  string
	Reset string
}

func (p *Palette) paint(code, s string) string {
	if p == nil || code == "" {
		return s
	}
	return code + s + p.Reset
}

// Render writes the message, the source line with the span underlined, and the
// help text.
func (d *Diagnostic) Render(w io.Writer, p *Palette) error {
	var b strings.Builder
	b.WriteString(p.paint(codeOf(p, "error"), "error:"))
	b.WriteString(" ")
	b.WriteString(d.Message)
	b.WriteString("\n")

	if d.Span != nil && d.Source != "" {
		line := strings.TrimRight(d.Source, "\r\n")
		start := clamp(d.Span.Offset, 0, len(line))
		end := clamp(d.Span.End(), start, len(line))

		pad := utf8.RuneCountInString(line[:start])
		width := utf8.RuneCountInString(line[start:end])
		if width == 0 {
			width = 1
		}

		b.WriteString("  | ")
		b.WriteString(line)
		b.WriteString("\n  | ")
		b.WriteString(strings.Repeat(" ", pad))
		b.WriteString(p.paint(codeOf(p, "caret"), strings.Repeat("^", width)))
		if d.Label != "" {
			b.WriteString(" ")
			b.WriteString(d.Label)
		}
		b.WriteString("\n")
	}

	if d.Help != "" {
		b.WriteString(p.paint(codeOf(p, "help"), "help:"))
		b.WriteString(" ")
		b.WriteString(d.Help)
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func codeOf(p *Palette, part string) string {
	if p == nil {
		return ""
	}
	switch part {
	case "error":
		return p.Error
	case "caret":
		return p.Caret
	default:
		return p.Help
	}
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
