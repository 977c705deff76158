// Package history keeps the lines evaluated in a session and persists them
// as "<input> = <result>" lines inside a jailed directory.
package history

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

var (
	ErrPathEscape   = errors.New("history: path escape violation")
	ErrFileTooLarge = errors.New("history: file size limit exceeded")
)

// Log is an in-memory history with file I/O restricted to Root.
type Log struct {
	Root     string
	MaxBytes int

	entries []string
}

func New(root string, maxBytes int) *Log {
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	return &Log{
		Root:     root,
		MaxBytes: maxBytes,
	}
}

// Add records a successful evaluation. Only the first line of input is kept.
func (l *Log) Add(input, result string) {
	line, _, _ := strings.Cut(input, "\n")
	l.entries = append(l.entries, strings.TrimSpace(line)+" = "+result)
}

// Entries returns a copy of the recorded lines, oldest first.
func (l *Log) Entries() []string {
	return slices.Clone(l.entries)
}

func (l *Log) Len() int {
	return len(l.entries)
}

func (l *Log) Clear() {
	l.entries = nil
}

// Write stores all entries joined by newlines at path, relative to Root.
func (l *Log) Write(path string) error {
	target, err := l.resolve(path)
	if err != nil {
		return err
	}

	content := strings.Join(l.entries, "\n")
	if len(content) > l.MaxBytes {
		return fmt.Errorf("%w: %d bytes, limit %d", ErrFileTooLarge, len(content), l.MaxBytes)
	}

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("history: write %s: %w", path, err)
	}
	if err := os.WriteFile(target, []byte(content), 0644); err != nil {
		return fmt.Errorf("history: write %s: %w", path, err)
	}

	slog.Debug("history written", slog.String("path", target), slog.Int("entries", len(l.entries)))
	return nil
}

// Load replaces the entries with the non-empty lines of the file at path.
func (l *Log) Load(path string) error {
	target, err := l.resolve(path)
	if err != nil {
		return err
	}

	info, err := os.Stat(target)
	if err != nil {
		return fmt.Errorf("history: load %s: %w", path, err)
	}
	if info.Size() > int64(l.MaxBytes) {
		return fmt.Errorf("%w: %d bytes, limit %d", ErrFileTooLarge, info.Size(), l.MaxBytes)
	}

	data, err := os.ReadFile(target)
	if err != nil {
		return fmt.Errorf("history: load %s: %w", path, err)
	}

	var entries []string
	for line := range strings.Lines(string(data)) {
		line = strings.TrimRight(line, "\r\n")
		if line != "" {
			entries = append(entries, line)
		}
	}
	l.entries = entries

	slog.Debug("history loaded", slog.String("path", target), slog.Int("entries", len(entries)))
	return nil
}

// resolve jails path under Root.
func (l *Log) resolve(path string) (string, error) {
	target := filepath.Join(l.Root, filepath.Clean(path))
	rel, err := filepath.Rel(l.Root, target)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrPathEscape, path)
	}
	return target, nil
}
