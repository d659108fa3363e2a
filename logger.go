package corrfuse

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with corrfuse-specific context.
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

// WithLocations adds a location count field to the logger.
func (l *Logger) WithLocations(n int) *Logger {
	return &Logger{
		Logger: l.Logger.With("locations", n),
	}
}

// WithSubjects adds a subject count field to the logger.
func (l *Logger) WithSubjects(n int) *Logger {
	return &Logger{
		Logger: l.Logger.With("subjects", n),
	}
}

// LogUpdate logs a subject update or model merge operation.
func (l *Logger) LogUpdate(ctx context.Context, subjects, locations int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "update failed",
			"subjects", subjects,
			"locations", locations,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "update completed",
			"subjects", subjects,
			"locations", locations,
		)
	}
}

// LogRetarget logs a location retarget operation.
func (l *Logger) LogRetarget(ctx context.Context, from, to int, blurred bool, err error) {
	if err != nil {
		l.ErrorContext(ctx, "retarget failed",
			"from", from,
			"to", to,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "retarget completed",
			"from", from,
			"to", to,
			"blurred", blurred,
		)
	}
}

// LogPredict logs a reconstruction operation.
func (l *Logger) LogPredict(ctx context.Context, known, total int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "predict failed",
			"known", known,
			"total", total,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "predict completed",
			"known", known,
			"total", total,
		)
	}
}

// LogSnapshot logs a snapshot save or load operation.
func (l *Logger) LogSnapshot(ctx context.Context, key string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "snapshot failed",
			"key", key,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "snapshot completed",
			"key", key,
		)
	}
}

// WarnLargeModel emits the advisory for models above the practical
// dense-matrix size. Work proceeds; the log is the only effect.
func (l *Logger) WarnLargeModel(ctx context.Context, locations int) {
	l.WarnContext(ctx, "model exceeds recommended location count; operations may be slow",
		"locations", locations,
		"recommended_max", MaxRecommendedLocations,
	)
}
