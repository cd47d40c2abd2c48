package evolatent

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with session-specific context.
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
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// WithSession adds the session id to the logger.
func (l *Logger) WithSession(id string) *Logger {
	return &Logger{
		Logger: l.Logger.With("session", id),
	}
}

// WithStep adds a step field to the logger.
func (l *Logger) WithStep(step int) *Logger {
	return &Logger{
		Logger: l.Logger.With("step", step),
	}
}

// LogGenerate logs the outcome of a state transition.
func (l *Logger) LogGenerate(ctx context.Context, kind string, step int, rate float64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "generate failed",
			"kind", kind,
			"step", step,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "generate completed",
			"kind", kind,
			"step", step,
			"mutation_rate", rate,
		)
	}
}

// LogRender logs a renderer call.
func (l *Logger) LogRender(ctx context.Context, count int, duration time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "render failed",
			"count", count,
			"duration", duration,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "render completed",
			"count", count,
			"duration", duration,
		)
	}
}

// LogPersist logs a step write.
func (l *Logger) LogPersist(ctx context.Context, step int, bytes int64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "persist failed",
			"step", step,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "step persisted",
			"step", step,
			"bytes", bytes,
		)
	}
}

// LogRejected logs a request refused without a state change.
func (l *Logger) LogRejected(ctx context.Context, op string, err error) {
	l.WarnContext(ctx, "request rejected",
		"op", op,
		"reason", err,
	)
}
