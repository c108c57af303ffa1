// Package kv is the single global key-value namespace shared by the cache, the signup phone state
// and user preferences. There is no locking: concurrent writers to a key race and the last write
// wins, so callers namespace their keys by owner and purpose.
package kv

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key does not exist.
var ErrNotFound = errors.New("kv: key not found")

// Store persists string values by key.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}
