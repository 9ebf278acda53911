// Package correlation produces the correlation ids that identify one logical
// delivery across all of its attempts, and carries them through a context.
package correlation

import (
	"context"

	"github.com/google/uuid"
)

// contextKey is the type for context keys to avoid collisions
type contextKey string

const (
	idKey contextKey = "correlation_id"

	// HeaderXRequestID is the header used to echo the correlation id to the service
	HeaderXRequestID = "X-Request-ID"
)

// Generator produces a statistically unique opaque token.
type Generator func() string

// NewID returns a random (version 4) UUID string.
func NewID() string {
	return uuid.NewString()
}

// WithID adds a correlation id to the context
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, idKey, id)
}

// IDFromContext returns the correlation id from context if present
func IDFromContext(ctx context.Context) (string, bool) {
	if id, ok := ctx.Value(idKey).(string); ok && id != "" {
		return id, true
	}
	return "", false
}

// EnsureID returns the correlation id stored in ctx or a freshly generated one
func EnsureID(ctx context.Context) string {
	if id, ok := IDFromContext(ctx); ok {
		return id
	}
	return NewID()
}
