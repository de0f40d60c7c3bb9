package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a key has no stored value.
var ErrNotFound = errors.New("record not found")

// Well-known keys. Session-scoped callers suffix them with ":" + session ID.
const (
	KeyHistory  = "chatbot-history"
	KeySettings = "chatbot-settings"
	KeyTheme    = "chatbot-theme"
)

// Store is the key-value port behind chat history, settings and theme persistence.
// Values are written and read whole; there are no partial updates.
// Implementations must be safe for concurrent use.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error) // store.ErrNotFound when absent
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error // Deleting a missing key is not an error
}

// ScopedKey returns key namespaced to a session. An empty scope returns key unchanged.
func ScopedKey(key, scope string) string {
	if scope == "" {
		return key
	}
	return key + ":" + scope
}
