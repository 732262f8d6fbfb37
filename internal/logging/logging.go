// Package logging wraps log/slog with the level and format conventions the
// daemon's CLI surface exposes (spec §6 --log-level/--log-format), mirroring
// the teacher's slog-based Logger wrapper.
package logging

import (
	"io"
	"log/slog"
	"strings"
)

// Logger is the daemon-wide logging surface. Every actor holds one.
type Logger struct {
	base *slog.Logger
}

// New wraps an slog.Logger. A nil base falls back to slog.Default().
func New(base *slog.Logger) *Logger {
	if base == nil {
		base = slog.Default()
	}
	return &Logger{base: base}
}

// Build constructs a Logger from the --log-level/--log-format CLI flags
// (spec §6). Level "trace" folds into slog's Debug level — slog has no
// separate trace level, and the daemon never needs finer granularity than
// that in practice.
func Build(w io.Writer, level, format string) *Logger {
	handlerOpts := &slog.HandlerOptions{Level: parseLevel(level)}
	var handler slog.Handler
	switch strings.ToLower(format) {
	case "simple":
		// simple: no source location, matches Rust env_logger's terse format.
		handler = slog.NewTextHandler(w, handlerOpts)
	default:
		// full: source location included, matches env_logger's full format.
		handlerOpts.AddSource = true
		handler = slog.NewTextHandler(w, handlerOpts)
	}
	return New(slog.New(handler))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "trace", "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (l *Logger) Debug(msg string, attrs ...any) { l.base.Debug(msg, attrs...) }
func (l *Logger) Info(msg string, attrs ...any)  { l.base.Info(msg, attrs...) }
func (l *Logger) Warn(msg string, attrs ...any)  { l.base.Warn(msg, attrs...) }
func (l *Logger) Error(msg string, attrs ...any) { l.base.Error(msg, attrs...) }

// With returns a Logger that always includes the given attrs, for
// per-actor context (e.g. With("actor", "data-netlink")).
func (l *Logger) With(attrs ...any) *Logger {
	return New(l.base.With(attrs...))
}
