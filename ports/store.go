package ports

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Store.Get when the key is absent
var ErrNotFound = errors.New("key not found")

// Store is a small TTL'd key-value store used to record the last observed
// status of transfer sessions across instances.
type Store interface {
	// Set adds a key with a value and expiration time
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Get retrieves a value by key
	Get(ctx context.Context, key string) (string, error)
}
