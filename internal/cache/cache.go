// Package cache provides a uniform key/value layer over Redis with a
// transparent in-process fallback when Redis cannot be reached.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a key is absent or expired.
var ErrNotFound = errors.New("cache: key not found")

// Cache is the uniform contract shared by the Redis backend and the
// in-process fallback. Composite values are JSON-encoded on the way in and
// decoded into the caller's value on the way out.
type Cache interface {
	// Get decodes the value stored under key into out. Returns ErrNotFound
	// when the key is absent or expired.
	Get(ctx context.Context, key string, out any) error

	// Set stores value under key. A zero ttl means no expiry.
	Set(ctx context.Context, key string, value any, ttl time.Duration) error

	// Delete removes the given keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error

	// Exists reports whether key is present and unexpired.
	Exists(ctx context.Context, key string) (bool, error)

	// Keys returns all keys matching a Redis-style glob pattern.
	Keys(ctx context.Context, pattern string) ([]string, error)

	// DBSize returns the number of keys in the backend.
	DBSize(ctx context.Context) (int64, error)

	// Ping checks backend liveness.
	Ping(ctx context.Context) error

	// Backend names the active backend ("redis" or "memory").
	Backend() string

	Close() error
}
