package cache

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrCacheMiss indicates the requested key was not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the cached value is not an integer
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// Backend is a key/value store of integer counts.
type Backend interface {
	// Get returns the value of key, or ErrCacheMiss.
	Get(ctx context.Context, key string) (int64, error)

	// Set stores value under key. A ttl of 0 never expires.
	Set(ctx context.Context, key string, value int64, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error
}

// Atomic is implemented by backends that can update a count in one step.
type Atomic interface {
	// IncrBy adds delta to key (creating it at 0) and refreshes its ttl.
	// It returns the new value.
	IncrBy(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, error)

	// GetDel returns the value of key and removes it, or ErrCacheMiss.
	GetDel(ctx context.Context, key string) (int64, error)
}
