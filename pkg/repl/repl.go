// Package repl runs the interactive read-eval-print loop on top of the
// compiler and the stack machine.
package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
	"unicode"

	"golang.org/x/term"

	"github.com/agenthands/ncalc/pkg/compiler"
	"github.com/agenthands/ncalc/pkg/compiler/ast"
	"github.com/agenthands/ncalc/pkg/config"
	"github.com/agenthands/ncalc/pkg/core/diag"
	"github.com/agenthands/ncalc/pkg/history"
	"github.com/agenthands/ncalc/pkg/vm"
)

const helpText = `Enter an arithmetic expression such as (1 + 2) * 3.
Operators: + - * / % and parentheses; + and - also work as prefixes.
Commands:
  help                  show this message
  history               list evaluated lines
  history write [file]  save the history
  history load [file]   replace the history from a file
  history clear         forget the history
  ast <expr>            show the parsed tree
  dis <expr>            show the compiled program
  quit, exit            leave
`

// Options configures a REPL. Zero values fall back to the process streams
// and config.Default.
type Options struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer

	// Reader replaces the line reader built from In.
	Reader LineReader

	Prompt      string
	Color       string // config.ColorAuto, ColorAlways or ColorNever
	History     *history.Log
	HistoryFile string
}

// REPL owns the session state: history and the outcome of the last line.
type REPL struct {
	opts Options

	out    io.Writer
	errOut io.Writer
	reader LineReader
	closer io.Closer
	colors *term.EscapeCodes

	failed bool
}

func New(opts Options) *REPL {
	def := config.Default()
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Err == nil {
		opts.Err = os.Stderr
	}
	if opts.Prompt == "" {
		opts.Prompt = def.Prompt
	}
	if opts.Color == "" {
		opts.Color = def.Color
	}
	if opts.HistoryFile == "" {
		opts.HistoryFile = def.HistoryFile
	}
	if opts.History == nil {
		opts.History = history.New(".", def.HistoryMaxBytes)
	}
	return &REPL{
		opts:   opts,
		out:    opts.Out,
		errOut: opts.Err,
	}
}

// History returns the session history.
func (r *REPL) History() *history.Log {
	return r.opts.History
}

// Failed reports whether the last non-empty line failed.
func (r *REPL) Failed() bool {
	return r.failed
}

// Run reads and executes lines until EOF, quit or exit. Cancelling ctx ends
// the loop with ctx.Err() and closes the line reader if it is an io.Closer.
func (r *REPL) Run(ctx context.Context) error {
	if err := r.open(); err != nil {
		return err
	}
	if r.closer != nil {
		defer r.closer.Close()
	}

	for {
		r.reader.SetPrompt(r.prompt())

		line, err := r.readLine(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if quit := r.Exec(line); quit {
			return nil
		}
	}
}

func (r *REPL) open() error {
	if r.reader != nil {
		return nil
	}

	_, outTTY := isTerminal(r.opts.Out)
	switch {
	case r.opts.Reader != nil:
		r.reader = r.opts.Reader
	default:
		if f, ok := isTerminal(r.opts.In); ok {
			t, err := newTerminalReader(f, r.opts.Out)
			if err != nil {
				return fmt.Errorf("repl: %w", err)
			}
			// raw mode: all output goes through the terminal for \r\n handling
			r.reader, r.closer = t, t
			r.out, r.errOut = t, t
			if r.opts.Color != config.ColorNever {
				r.colors = t.Escape
			}
			slog.Debug("repl started", slog.Bool("terminal", true))
			return nil
		}
		r.reader = newScanReader(r.opts.In, r.opts.Out)
	}

	if r.opts.Color == config.ColorAlways || (r.opts.Color == config.ColorAuto && outTTY) {
		r.colors = &vt100
	}
	slog.Debug("repl started", slog.Bool("terminal", false))
	return nil
}

// closeGrace bounds how long a cancelled session waits for a closed reader
// to give up its pending ReadLine.
const closeGrace = 100 * time.Millisecond

type readResult struct {
	line string
	err  error
}

func (r *REPL) readLine(ctx context.Context) (string, error) {
	ch := make(chan readResult, 1)
	go func() {
		line, err := r.reader.ReadLine()
		ch <- readResult{line, err}
	}()

	select {
	case <-ctx.Done():
		r.interrupt(ch)
		return "", ctx.Err()
	case res := <-ch:
		return res.line, res.err
	}
}

// interrupt closes the reader so the goroutine blocked in ReadLine can
// return, and waits for it before the terminal is restored. A TTY read cannot
// be interrupted portably, so the wait is bounded.
func (r *REPL) interrupt(pending <-chan readResult) {
	c, ok := r.reader.(io.Closer)
	if !ok {
		return
	}
	if err := c.Close(); err != nil {
		slog.Debug("close line reader", slog.Any("err", err))
	}

	timer := time.NewTimer(closeGrace)
	defer timer.Stop()
	select {
	case <-pending:
	case <-timer.C:
		slog.Debug("line reader still blocked after close")
	}
}

// prompt is green after a success and red after a failure.
func (r *REPL) prompt() string {
	p := r.opts.Prompt
	if r.colors != nil {
		code := r.colors.Green
		if r.failed {
			code = r.colors.Red
		}
		p = string(code) + p + string(r.colors.Reset)
	}
	return p + " "
}

// Exec handles one input line and reports whether the session should end.
// Empty lines are ignored and leave the prompt state unchanged.
func (r *REPL) Exec(line string) (quit bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}

	switch fields[0] {
	case "quit", "exit":
		return true
	case "help":
		io.WriteString(r.out, helpText)
		r.failed = false
	case "history":
		r.historyCommand(fields[1:])
	case "ast":
		r.showTree(argument(line, "ast"))
	case "dis":
		r.showProgram(argument(line, "dis"))
	default:
		r.eval(line)
	}
	return false
}

func (r *REPL) eval(line string) {
	result, err := compiler.Eval(line)
	if err != nil {
		r.report(err)
		return
	}
	fmt.Fprintln(r.out, result)
	r.opts.History.Add(line, result)
	r.failed = false
}

func (r *REPL) showTree(src string) {
	expr, err := compiler.Parse(src)
	if err != nil {
		r.report(err)
		return
	}
	fmt.Fprintln(r.out, ast.Format(expr))
	r.failed = false
}

func (r *REPL) showProgram(src string) {
	bc, err := compiler.Compile(src)
	if err != nil {
		r.report(err)
		return
	}
	for _, line := range vm.Disassemble(bc) {
		fmt.Fprintln(r.out, line)
	}
	r.failed = false
}

func (r *REPL) historyCommand(args []string) {
	h := r.opts.History

	path := r.opts.HistoryFile
	if len(args) > 1 {
		path = args[1]
	}

	if len(args) == 0 {
		fmt.Fprintln(r.out, "---------HISTORY-----------")
		for i, entry := range h.Entries() {
			fmt.Fprintf(r.out, "%d: %s\n", i+1, entry)
		}
		fmt.Fprintln(r.out, "---------------------------")
		r.failed = false
		return
	}

	switch args[0] {
	case "write":
		if err := h.Write(path); err != nil {
			r.report(err)
			return
		}
		fmt.Fprintf(r.out, "History written to %s.\n", path)
	case "load":
		if err := h.Load(path); err != nil {
			r.report(err)
			return
		}
		fmt.Fprintf(r.out, "History loaded from %s.\n", path)
	case "clear":
		h.Clear()
		fmt.Fprintln(r.out, "History cleared.")
	default:
		r.report(fmt.Errorf("unknown history subcommand %q (try write, load or clear)", args[0]))
		return
	}
	r.failed = false
}

func (r *REPL) report(err error) {
	r.failed = true
	if d, ok := diag.As(err); ok {
		if rerr := d.Render(r.errOut, palette(r.colors)); rerr != nil {
			slog.Error("render diagnostic", slog.Any("err", rerr), slog.String("diagnostic", d.Error()))
		}
		return
	}
	fmt.Fprintf(r.errOut, "error: %v\n", err)
}

// argument returns the text after a leading command word, keeping the
// expression's own spacing.
func argument(line, command string) string {
	rest := strings.TrimLeftFunc(line, unicode.IsSpace)
	return strings.TrimPrefix(rest, command)
}
