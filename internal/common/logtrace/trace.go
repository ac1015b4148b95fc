package logtrace

import (
	"context"

	"github.com/google/uuid"
)

type ctxKey struct{}

// NewRequestID returns a fresh id for one HTTP exchange.
func NewRequestID() string {
	return uuid.NewString()
}

// WithRequestID returns a context carrying id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// RequestIdFromContext extracts the request ID from the context.
// Returns an empty string if the context is nil or if no request ID is found.
func RequestIdFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	r, ok := ctx.Value(ctxKey{}).(string)
	if !ok {
		return ""
	}
	return r
}

// EnsureRequestID returns ctx with a request id, creating one if none is set.
func EnsureRequestID(ctx context.Context) (context.Context, string) {
	if id := RequestIdFromContext(ctx); id != "" {
		return ctx, id
	}
	id := NewRequestID()
	return WithRequestID(ctx, id), id
}
