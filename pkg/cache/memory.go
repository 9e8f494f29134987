package cache

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const backendMemory = "memory"

// DefaultMemorySize bounds the number of keys held by a MemoryBackend.
const DefaultMemorySize = 1024

// MemoryBackend keeps counts in an in-process expiring LRU.
//
// The expiry is fixed when the backend is created; the ttl passed to Set and
// IncrBy is ignored. Writing a key restarts its expiry, as in Redis.
type MemoryBackend struct {
	mu  sync.Mutex
	lru *expirable.LRU[string, int64]
}

var (
	_ Backend = (*MemoryBackend)(nil)
	_ Atomic  = (*MemoryBackend)(nil)
)

// NewMemoryBackend creates a backend holding at most size keys (0 means
// unbounded) that expire after ttl (0 means never).
func NewMemoryBackend(size int, ttl time.Duration) *MemoryBackend {
	return &MemoryBackend{
		lru: expirable.NewLRU[string, int64](size, nil, ttl),
	}
}

// Get returns the count stored under key.
func (b *MemoryBackend) Get(_ context.Context, key string) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	value, ok := b.lru.Get(key)
	if !ok {
		CacheMisses.WithLabelValues(backendMemory).Inc()
		return 0, ErrCacheMiss
	}
	return value, nil
}

// Set stores value under key.
func (b *MemoryBackend) Set(_ context.Context, key string, value int64, _ time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lru.Add(key, value)
	return nil
}

// Delete removes key.
func (b *MemoryBackend) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lru.Remove(key)
	return nil
}

// IncrBy increments key by delta under the backend lock.
func (b *MemoryBackend) IncrBy(_ context.Context, key string, delta int64, _ time.Duration) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	value, _ := b.lru.Get(key)
	value += delta
	b.lru.Add(key, value)
	return value, nil
}

// GetDel returns the count under key and removes it under the backend lock.
func (b *MemoryBackend) GetDel(_ context.Context, key string) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	value, ok := b.lru.Get(key)
	if !ok {
		CacheMisses.WithLabelValues(backendMemory).Inc()
		return 0, ErrCacheMiss
	}
	b.lru.Remove(key)
	return value, nil
}

// Ping always succeeds.
func (b *MemoryBackend) Ping(context.Context) error {
	return nil
}

// Len returns the number of live keys.
func (b *MemoryBackend) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.lru.Len()
}
