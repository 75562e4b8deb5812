package store

import (
	"context"
	"errors"
)

// Store is the persistence boundary for named blobs. Implementations must treat
// Remove of a missing key as success.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}

var ErrNotFound = errors.New("key not found")

// CartKey scopes the cart blob to a single shopper.
func CartKey(userID string) string {
	return "cart:" + userID
}
