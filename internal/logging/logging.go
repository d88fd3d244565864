// Package logging builds the process logger. The language server owns
// stdout for the protocol, so logs go to stderr or a file through a buffer
// that is flushed once per check cycle.
package logging

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

type Config struct {
	Level  slog.Level
	JSON   bool
	Output io.Writer // defaults to stderr
	File   string    // when set, logs go to this file instead of Output
}

// Logger is a slog.Logger whose output is buffered until Flush.
type Logger struct {
	*slog.Logger
	out  *bufferedWriter
	file *os.File
}

// New builds a logger. A file that cannot be opened falls back to Output
// and the error is returned alongside a usable logger.
func New(cfg Config) (*Logger, error) {
	var (
		w    io.Writer = cfg.Output
		file *os.File
		err  error
	)
	if w == nil {
		w = os.Stderr
	}
	if cfg.File != "" {
		file, err = openFile(cfg.File)
		if err == nil {
			w = file
		}
	}
	out := &bufferedWriter{w: bufio.NewWriterSize(w, 32*1024)}
	opts := &slog.HandlerOptions{Level: cfg.Level}
	var h slog.Handler
	if cfg.JSON {
		h = slog.NewJSONHandler(out, opts)
	} else {
		h = slog.NewTextHandler(out, opts)
	}
	return &Logger{Logger: slog.New(h), out: out, file: file}, err
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return &Logger{Logger: slog.New(slog.DiscardHandler), out: &bufferedWriter{w: bufio.NewWriter(io.Discard)}}
}

// Flush writes buffered records to the underlying output.
func (l *Logger) Flush() error {
	return l.out.Flush()
}

// Close flushes and closes the log file, if any.
func (l *Logger) Close() error {
	err := l.Flush()
	if l.file != nil {
		err = errors.Join(err, l.file.Close())
	}
	return err
}

// ParseLevel accepts debug, info, warn and error.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level: %q (expected: debug|info|warn|error)", s)
	}
}

func openFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}

type bufferedWriter struct {
	mu sync.Mutex
	w  *bufio.Writer
}

func (b *bufferedWriter) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.w.Write(p)
}

func (b *bufferedWriter) Flush() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.w.Flush()
}
