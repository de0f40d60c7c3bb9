package auth

import (
	"context"

	"github.com/google/uuid"
)

// WithSessionID returns a copy of ctx carrying sessionID.
func WithSessionID(ctx context.Context, sessionID uuid.UUID) context.Context {
	return context.WithValue(ctx, SessionIDKey, sessionID)
}

// GetSessionIDFromContext retrieves the session ID from the request context.
// Returns uuid.Nil and false if absent.
func GetSessionIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(SessionIDKey).(uuid.UUID)
	return id, ok
}
