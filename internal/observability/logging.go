// Package observability provides context-scoped structured logging for the
// build engine. Attributes attached to a context are emitted with every log
// line produced under that context.
package observability

import (
	"context"
	"log/slog"
)

// LogContext holds structured logging context information.
type LogContext struct {
	BuildID   string
	Seed      string
	Language  string
	Processor string
}

type logContextKeyType string

const logContextKey logContextKeyType = "log-context"

// WithBuildID adds a build ID to the context.
func WithBuildID(ctx context.Context, buildID string) context.Context {
	lc := extractLogContext(ctx)
	lc.BuildID = buildID
	return context.WithValue(ctx, logContextKey, lc)
}

// WithSeed adds the seed's package name to the context.
func WithSeed(ctx context.Context, pname string) context.Context {
	lc := extractLogContext(ctx)
	lc.Seed = pname
	return context.WithValue(ctx, logContextKey, lc)
}

// WithLanguage adds the seed's ecosystem tag to the context.
func WithLanguage(ctx context.Context, language string) context.Context {
	lc := extractLogContext(ctx)
	lc.Language = language
	return context.WithValue(ctx, logContextKey, lc)
}

// WithProcessor adds a processor name to the context.
func WithProcessor(ctx context.Context, processor string) context.Context {
	lc := extractLogContext(ctx)
	lc.Processor = processor
	return context.WithValue(ctx, logContextKey, lc)
}

func extractLogContext(ctx context.Context) LogContext {
	if lc, ok := ctx.Value(logContextKey).(LogContext); ok {
		return lc
	}
	return LogContext{}
}

// GetContext returns the structured log context from the provided context.
func GetContext(ctx context.Context) LogContext {
	return extractLogContext(ctx)
}

func getLogAttrs(ctx context.Context) []slog.Attr {
	lc := extractLogContext(ctx)
	attrs := []slog.Attr{}

	if lc.BuildID != "" {
		attrs = append(attrs, slog.String("build.id", lc.BuildID))
	}
	if lc.Seed != "" {
		attrs = append(attrs, slog.String("seed", lc.Seed))
	}
	if lc.Language != "" {
		attrs = append(attrs, slog.String("language", lc.Language))
	}
	if lc.Processor != "" {
		attrs = append(attrs, slog.String("processor", lc.Processor))
	}

	return attrs
}

// InfoContext logs an info message with context information.
func InfoContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	slog.LogAttrs(ctx, slog.LevelInfo, msg, append(getLogAttrs(ctx), attrs...)...)
}

// WarnContext logs a warning message with context information.
func WarnContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	slog.LogAttrs(ctx, slog.LevelWarn, msg, append(getLogAttrs(ctx), attrs...)...)
}

// ErrorContext logs an error message with context information.
func ErrorContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	slog.LogAttrs(ctx, slog.LevelError, msg, append(getLogAttrs(ctx), attrs...)...)
}

// DebugContext logs a debug message with context information.
func DebugContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	slog.LogAttrs(ctx, slog.LevelDebug, msg, append(getLogAttrs(ctx), attrs...)...)
}

// Logger returns a *slog.Logger pre-populated with the context's attributes,
// for handing to code that expects a plain logger.
func Logger(ctx context.Context) *slog.Logger {
	attrs := getLogAttrs(ctx)
	args := make([]any, 0, len(attrs))
	for _, a := range attrs {
		args = append(args, a)
	}
	return slog.Default().With(args...)
}
