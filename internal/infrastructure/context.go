package infrastructure

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

type contextKey string

const (
	// TraceIDContextKey carries a request or operation trace id
	TraceIDContextKey contextKey = "trace_id"
	// RunIDContextKey identifies one invocation of a batch tool
	RunIDContextKey contextKey = "run_id"
)

// GenerateTraceID returns a random UUID v4 string
func GenerateTraceID() string {
	return uuid.New().String()
}

// ContextWithRunID tags ctx with a freshly generated run ID and returns
// both. Every log line of a batch invocation carries it.
func ContextWithRunID(ctx context.Context) (context.Context, string) {
	id := uuid.New().String()
	return WithRunID(ctx, id), id
}

// EnsureTraceID returns ctx unchanged when it already has a trace id
func EnsureTraceID(ctx context.Context) context.Context {
	if GetTraceID(ctx) != "" {
		return ctx
	}
	return WithTraceID(ctx, GenerateTraceID())
}

func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDContextKey, traceID)
}

func GetTraceID(ctx context.Context) string {
	return stringValue(ctx, TraceIDContextKey)
}

func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, RunIDContextKey, runID)
}

func GetRunID(ctx context.Context) string {
	return stringValue(ctx, RunIDContextKey)
}

func stringValue(ctx context.Context, key contextKey) string {
	v, _ := ctx.Value(key).(string)
	return v
}

// WithComponent tags logger with a component name; nil means the global
// logger
func WithComponent(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = GetLogger()
	}
	return logger.With("component", component)
}
