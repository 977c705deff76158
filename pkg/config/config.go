// Package config loads the optional ncalc.yml settings file.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

var ErrInvalid = errors.New("config: invalid configuration")

const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// Config holds the REPL and CLI settings. Zero-valued keys in a file keep
// their defaults.
type Config struct {
	HistoryFile     string `yaml:"history_file"`
	HistoryMaxBytes int    `yaml:"history_max_bytes"`
	Color           string `yaml:"color"`
	LogLevel        string `yaml:"log_level"`
	Prompt          string `yaml:"prompt"`
}

func Default() Config {
	return Config{
		HistoryFile:     "history.txt",
		HistoryMaxBytes: 1 << 20,
		Color:           ColorAuto,
		LogLevel:        "warn",
		Prompt:          ">>",
	}
}

// ValidationError aggregates config validation failures.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("config validation failed:")
	for _, issue := range e.Issues {
		b.WriteString("\n- ")
		b.WriteString(issue)
	}
	return b.String()
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalid
}

// Load reads and validates the file at path on top of Default.
func Load(path string) (Config, error) {
	if path == "" {
		return Config{}, fmt.Errorf("config: empty path")
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: resolve %s: %w", path, err)
	}
	file, err := os.Open(absPath)
	if err != nil {
		return Config{}, fmt.Errorf("config: open %s: %w", absPath, err)
	}
	defer file.Close()

	cfg, err := Parse(file)
	if err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", absPath, err)
	}
	return cfg, nil
}

// Parse decodes YAML from r on top of Default. Unknown keys are rejected and
// an empty document yields the defaults.
func Parse(r io.Reader) (Config, error) {
	cfg := Default()

	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)

	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var issues []string
	switch c.Color {
	case ColorAuto, ColorAlways, ColorNever:
	default:
		issues = append(issues, fmt.Sprintf("color %q must be one of auto, always, never", c.Color))
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		issues = append(issues, fmt.Sprintf("log_level %q must be one of debug, info, warn, error", c.LogLevel))
	}
	if c.HistoryMaxBytes <= 0 {
		issues = append(issues, fmt.Sprintf("history_max_bytes must be positive, got %d", c.HistoryMaxBytes))
	}
	if strings.TrimSpace(c.HistoryFile) == "" {
		issues = append(issues, "history_file must not be empty")
	}
	if len(issues) > 0 {
		return &ValidationError{Issues: issues}
	}
	return nil
}

// SlogLevel returns the configured level, falling back to warn.
func (c Config) SlogLevel() slog.Level {
	lvl, err := parseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelWarn
	}
	return lvl
}

func parseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	err := lvl.UnmarshalText([]byte(s))
	return lvl, err
}
