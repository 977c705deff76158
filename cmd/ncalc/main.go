package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/agenthands/ncalc/pkg/compiler"
	"github.com/agenthands/ncalc/pkg/compiler/python"
	"github.com/agenthands/ncalc/pkg/config"
	"github.com/agenthands/ncalc/pkg/core/diag"
	"github.com/agenthands/ncalc/pkg/core/value"
	"github.com/agenthands/ncalc/pkg/history"
	"github.com/agenthands/ncalc/pkg/repl"
)

const usage = `Usage:
  ncalc [repl] [flags]             start the interactive calculator
  ncalc eval [-check] [flags] <expr>...  evaluate expressions and exit

Flags:
  -config path      YAML settings file
  -log-level level  debug, info, warn or error
  -color mode       auto, always or never
  -history path     history file used by "history write" and "history load"
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cmd := "repl"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}

	switch cmd {
	case "repl":
		return runRepl(ctx, args, stdin, stdout, stderr)
	case "eval":
		return runEval(args, stdout, stderr)
	case "help":
		fmt.Fprint(stdout, usage)
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n%s", cmd, usage)
		return 2
	}
}

// globalFlags are accepted by every subcommand and override the config file.
type globalFlags struct {
	config   string
	logLevel string
	color    string
	history  string
}

func (g *globalFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&g.config, "config", "", "YAML settings file")
	fs.StringVar(&g.logLevel, "log-level", "", "debug, info, warn or error")
	fs.StringVar(&g.color, "color", "", "auto, always or never")
	fs.StringVar(&g.history, "history", "", "history file")
}

func (g *globalFlags) load() (config.Config, error) {
	cfg := config.Default()
	if g.config != "" {
		var err error
		if cfg, err = config.Load(g.config); err != nil {
			return config.Config{}, err
		}
	}
	if g.logLevel != "" {
		cfg.LogLevel = g.logLevel
	}
	if g.color != "" {
		cfg.Color = g.color
	}
	if g.history != "" {
		cfg.HistoryFile = g.history
	}
	return cfg, cfg.Validate()
}

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }
	return fs
}

func setupLogging(cfg config.Config, stderr io.Writer) {
	handler := slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()})
	slog.SetDefault(slog.New(handler))
}

func runRepl(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var g globalFlags
	fs := newFlagSet("repl", stderr)
	g.register(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(stderr, "repl takes no arguments, got %q\n", fs.Args())
		return 2
	}

	cfg, err := g.load()
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	setupLogging(cfg, stderr)

	r := repl.New(repl.Options{
		In:          stdin,
		Out:         stdout,
		Err:         stderr,
		Prompt:      cfg.Prompt,
		Color:       cfg.Color,
		History:     history.New(filepath.Dir(cfg.HistoryFile), cfg.HistoryMaxBytes),
		HistoryFile: filepath.Base(cfg.HistoryFile),
	})
	if err := r.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}

func runEval(args []string, stdout, stderr io.Writer) int {
	var g globalFlags
	fs := newFlagSet("eval", stderr)
	g.register(fs)
	check := fs.Bool("check", false, "also evaluate with the Python reference parser and compare")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}

	cfg, err := g.load()
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	setupLogging(cfg, stderr)
	colors := repl.Palette(cfg.Color, stderr)

	for _, src := range fs.Args() {
		result, err := compiler.Eval(src)
		if err != nil {
			if d, ok := diag.As(err); ok {
				if rerr := d.Render(stderr, colors); rerr != nil {
					slog.Error("render diagnostic", slog.Any("err", rerr), slog.String("diagnostic", d.Error()))
				}
			} else {
				fmt.Fprintf(stderr, "error: %v\n", err)
			}
			return 1
		}

		if *check {
			if err := crossCheck(src, result); err != nil {
				fmt.Fprintf(stderr, "error: %v\n", err)
				return 1
			}
		}
		fmt.Fprintln(stdout, result)
	}
	return 0
}

// crossCheck compares a result with the Python reference evaluator.
func crossCheck(src, result string) error {
	ref, err := python.Eval(src)
	if err != nil {
		return fmt.Errorf("reference evaluator rejected %q: %w", src, err)
	}
	if want := value.Format(ref); want != result {
		return fmt.Errorf("check failed for %q: got %s, reference %s", src, result, want)
	}
	return nil
}
