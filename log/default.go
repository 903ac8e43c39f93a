package log

import (
	"context"
	"log/slog"
	"os"
	"sync/atomic"
)

// DefaultContextProvider supplies the context used by the non-Context
// logging methods and package-level functions below when no context is
// otherwise available. It defaults to [context.TODO].
var DefaultContextProvider = func() context.Context { return context.TODO() } //nolint:gochecknoglobals

var defaultLogger atomic.Pointer[Logger] //nolint:gochecknoglobals

func init() {
	l := Make(os.Stderr)
	defaultLogger.Store(&l)
}

// Default returns the current package-level default [Logger].
func Default() Logger {
	return *defaultLogger.Load()
}

// Config reconfigures the package-level default logger, applying opts on
// top of its current configuration.
func Config(opts ...Option) {
	l := Default().Wrap(opts...)
	defaultLogger.Store(&l)
}

// Trace logs a message at Trace level using the default logger.
func Trace(msg string, attrs ...slog.Attr) { Default().Trace(msg, attrs...) }

// TraceContext logs a message at Trace level with ctx using the default
// logger.
func TraceContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	Default().TraceContext(ctx, msg, attrs...)
}

// Debug logs a message at Debug level using the default logger.
func Debug(msg string, attrs ...slog.Attr) { Default().Debug(msg, attrs...) }

// DebugContext logs a message at Debug level with ctx using the default
// logger.
func DebugContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	Default().DebugContext(ctx, msg, attrs...)
}

// Info logs a message at Info level using the default logger.
func Info(msg string, attrs ...slog.Attr) { Default().Info(msg, attrs...) }

// InfoContext logs a message at Info level with ctx using the default
// logger.
func InfoContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	Default().InfoContext(ctx, msg, attrs...)
}

// Warn logs a message at Warn level using the default logger.
func Warn(msg string, attrs ...slog.Attr) { Default().Warn(msg, attrs...) }

// WarnContext logs a message at Warn level with ctx using the default
// logger.
func WarnContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	Default().WarnContext(ctx, msg, attrs...)
}

// Error logs a message at Error level using the default logger.
func Error(msg string, attrs ...slog.Attr) { Default().Error(msg, attrs...) }

// ErrorContext logs a message at Error level with ctx using the default
// logger.
func ErrorContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	Default().ErrorContext(ctx, msg, attrs...)
}
