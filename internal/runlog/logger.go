// Package runlog is the run-wide event sink. Every record is written
// synchronously to the durable log file and to the console stream.
package runlog

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/waabox/stagerun/internal/domain"
)

// Config holds logger settings.
type Config struct {
	Level  Level
	Format Format
	// FilePath is the durable log, opened for append. Empty disables it.
	FilePath string
	// Console receives the live stream. Nil disables it.
	Console io.Writer
}

// Logger wraps slog with the attributes the runner logs.
type Logger struct {
	slog *slog.Logger
	file *os.File
}

// Open creates the log file's parent directory, opens the file for append and
// builds a logger that writes to it and to cfg.Console.
func Open(cfg Config) (*Logger, error) {
	var writers []io.Writer
	var file *os.File
	if cfg.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0o755); err != nil {
			return nil, fmt.Errorf("creating log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.FilePath, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		file = f
		writers = append(writers, f)
	}
	if cfg.Console != nil {
		writers = append(writers, cfg.Console)
	}
	var out io.Writer = io.Discard
	if len(writers) > 0 {
		out = io.MultiWriter(writers...)
	}
	l := New(out, cfg.Level, cfg.Format)
	l.file = file
	return l, nil
}

// New creates a logger writing to w.
func New(w io.Writer, level Level, format Format) *Logger {
	opts := &slog.HandlerOptions{Level: level.slogLevel()}
	var handler slog.Handler
	if format == FormatJSON {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return &Logger{slog: slog.New(handler)}
}

// Discard returns a logger that drops every record.
func Discard() *Logger {
	return New(io.Discard, LevelError, FormatText)
}

// With returns a logger that adds args to every record.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{slog: l.slog.With(args...), file: l.file}
}

// WithError adds the error and, for the runner's typed errors, the fields
// that identify what failed.
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	args := []any{"error", err.Error()}
	var (
		missing *domain.MissingArtifactError
		spawn   *domain.SpawnError
		failure *domain.StageFailureError
		timeout *domain.TimeoutError
		cfgErr  *domain.ConfigError
	)
	switch {
	case errors.As(err, &missing):
		args = append(args, "kind", "missing_artifact", "pattern", missing.Pattern, "dir", missing.Dir)
	case errors.As(err, &spawn):
		args = append(args, "kind", "spawn_failure")
	case errors.As(err, &failure):
		args = append(args, "kind", "stage_failure", "exit_code", failure.ExitCode)
	case errors.As(err, &timeout):
		args = append(args, "kind", "timeout", "timeout", timeout.Timeout.String())
	case errors.As(err, &cfgErr):
		args = append(args, "kind", "configuration", "field", cfgErr.Field)
	}
	return l.With(args...)
}

func (l *Logger) Debug(msg string, args ...any) { l.slog.Debug(msg, args...) }

func (l *Logger) Info(msg string, args ...any) { l.slog.Info(msg, args...) }

func (l *Logger) Warn(msg string, args ...any) { l.slog.Warn(msg, args...) }

func (l *Logger) Error(msg string, args ...any) { l.slog.Error(msg, args...) }

// Close closes the durable log file, if one was opened.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}
