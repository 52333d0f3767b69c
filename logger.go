package vamana

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with vamana-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithDimension adds a dimension field to the logger.
func (l *Logger) WithDimension(dim int) *Logger {
	return &Logger{
		Logger: l.Logger.With("dimension", dim),
	}
}

// WithCount adds a count field to the logger.
func (l *Logger) WithCount(count int) *Logger {
	return &Logger{
		Logger: l.Logger.With("count", count),
	}
}

// LogWrite logs a graph finalize pass.
func (l *Logger) LogWrite(ctx context.Context, nodes, neighbors int64, elapsed time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "graph write failed",
			"nodes", nodes,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "graph write completed",
			"nodes", nodes,
			"neighbors", neighbors,
			"elapsed", elapsed,
		)
	}
}

// LogPrune logs the pruning totals of a finalize pass.
func (l *Logger) LogPrune(ctx context.Context, prunes, before, after int64) {
	if prunes == 0 {
		return
	}
	l.DebugContext(ctx, "neighbor lists pruned",
		"prunes", prunes,
		"neighbors_before", before,
		"neighbors_after", after,
	)
}

// LogSnapshot logs a snapshot save.
func (l *Logger) LogSnapshot(ctx context.Context, path string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "snapshot failed",
			"path", path,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "snapshot saved",
			"path", path,
		)
	}
}

// LogArchive logs an archive upload.
func (l *Logger) LogArchive(ctx context.Context, prefix string, parts int, bytes int64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "archive failed",
			"prefix", prefix,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "archive uploaded",
			"prefix", prefix,
			"parts", parts,
			"bytes", bytes,
		)
	}
}
