package repl

import (
	"bufio"
	"io"
	"os"
	"sync"

	"golang.org/x/term"

	"github.com/agenthands/ncalc/pkg/config"
	"github.com/agenthands/ncalc/pkg/core/diag"
)

// LineReader yields one input line at a time. ReadLine returns io.EOF when
// the input is exhausted. A reader that also implements io.Closer is closed
// when a session is cancelled, and Close should release a pending ReadLine.
type LineReader interface {
	ReadLine() (string, error)
	SetPrompt(prompt string)
}

// scanReader reads plain lines and writes the prompt itself, for pipes and
// files.
type scanReader struct {
	scanner *bufio.Scanner
	in      io.Reader
	out     io.Writer
	prompt  string
}

func newScanReader(in io.Reader, out io.Writer) *scanReader {
	return &scanReader{scanner: bufio.NewScanner(in), in: in, out: out}
}

// Close closes the input if it is closable. Pipes then fail the pending read.
func (r *scanReader) Close() error {
	if c, ok := r.in.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (r *scanReader) SetPrompt(prompt string) {
	r.prompt = prompt
}

func (r *scanReader) ReadLine() (string, error) {
	if r.prompt != "" {
		io.WriteString(r.out, r.prompt)
	}
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return r.scanner.Text(), nil
}

// terminalReader puts a TTY in raw mode and edits lines with x/term, which
// also gives in-session recall with the arrow keys.
type terminalReader struct {
	*term.Terminal
	fd    int
	state *term.State

	closeOnce sync.Once
	closeErr  error
}

func newTerminalReader(in *os.File, out io.Writer) (*terminalReader, error) {
	fd := int(in.Fd())
	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, err
	}
	t := term.NewTerminal(struct {
		io.Reader
		io.Writer
	}{in, out}, "")
	return &terminalReader{Terminal: t, fd: fd, state: state}, nil
}

// Close restores the terminal to its original mode. Only the first call
// restores; later calls return the same result.
func (r *terminalReader) Close() error {
	r.closeOnce.Do(func() {
		r.closeErr = term.Restore(r.fd, r.state)
	})
	return r.closeErr
}

// isTerminal reports whether v is a file attached to a TTY.
func isTerminal(v any) (*os.File, bool) {
	f, ok := v.(*os.File)
	if !ok {
		return nil, false
	}
	return f, term.IsTerminal(int(f.Fd()))
}

var vt100 = term.EscapeCodes{
	Black:   []byte{keyEscape, '[', '3', '0', 'm'},
	Red:     []byte{keyEscape, '[', '3', '1', 'm'},
	Green:   []byte{keyEscape, '[', '3', '2', 'm'},
	Yellow:  []byte{keyEscape, '[', '3', '3', 'm'},
	Blue:    []byte{keyEscape, '[', '3', '4', 'm'},
	Magenta: []byte{keyEscape, '[', '3', '5', 'm'},
	Cyan:    []byte{keyEscape, '[', '3', '6', 'm'},
	White:   []byte{keyEscape, '[', '3', '7', 'm'},
	Reset:   []byte{keyEscape, '[', '0', 'm'},
}

const keyEscape = 27

// palette maps terminal escape codes onto diagnostic colors. A nil result
// renders plain text.
func palette(e *term.EscapeCodes) *diag.Palette {
	if e == nil {
		return nil
	}
	return &diag.Palette{
		Error: string(e.Red),
		Caret: string(e.Yellow),
		Help:  string(e.Cyan),
		Reset: string(e.Reset),
	}
}

// Palette resolves a color mode for diagnostics written to w outside a
// session. It returns nil when colors are off.
func Palette(mode string, w io.Writer) *diag.Palette {
	_, tty := isTerminal(w)
	if mode == config.ColorAlways || (mode == config.ColorAuto && tty) {
		return palette(&vt100)
	}
	return nil
}
