package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
)

// traceIDKey is the private context key for trace IDs.
type traceIDKey struct{}

// WithTraceID injects a trace ID into the context.
// If traceID is empty, a random one is generated.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	if traceID == "" {
		traceID = NewTraceID()
	}
	return context.WithValue(ctx, traceIDKey{}, traceID)
}

// EnsureTraceID returns ctx unchanged if it already carries a trace ID,
// otherwise a derived context with a fresh one.
func EnsureTraceID(ctx context.Context) (context.Context, string) {
	if id := TraceIDFromContext(ctx); id != "" {
		return ctx, id
	}
	id := NewTraceID()
	return context.WithValue(ctx, traceIDKey{}, id), id
}

// TraceIDFromContext extracts the trace ID from the context.
// Returns empty string if no trace ID is set.
func TraceIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(traceIDKey{}).(string); ok {
		return id
	}
	return ""
}

// NewTraceID creates a random 16-character hex trace ID.
func NewTraceID() string {
	b := make([]byte, 8) // 8 bytes = 16 hex chars
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
