package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/axelspringer/wp-mu-prometheus/pkg/cache"
)

// MapBackend is a plain, non-atomic cache.Backend.
// It deliberately does not implement cache.Atomic so that callers take the
// read-modify-write path.
type MapBackend struct {
	mu     sync.Mutex
	values map[string]int64
	ttls   map[string]time.Duration

	// AfterGet runs after a Get has read its value and released the lock.
	// Tests use it to interleave concurrent callers.
	AfterGet func(key string)

	// Err, when set, is returned by every operation.
	Err error

	// Tracking
	GetCount    int
	SetCount    int
	DeleteCount int
}

var _ cache.Backend = (*MapBackend)(nil)

// NewMapBackend creates an empty MapBackend.
func NewMapBackend() *MapBackend {
	return &MapBackend{
		values: make(map[string]int64),
		ttls:   make(map[string]time.Duration),
	}
}

// Get returns the value of key or cache.ErrCacheMiss.
func (b *MapBackend) Get(_ context.Context, key string) (int64, error) {
	b.mu.Lock()
	b.GetCount++
	if b.Err != nil {
		err := b.Err
		b.mu.Unlock()
		return 0, err
	}
	value, ok := b.values[key]
	hook := b.AfterGet
	b.mu.Unlock()

	if hook != nil {
		hook(key)
	}
	if !ok {
		return 0, cache.ErrCacheMiss
	}
	return value, nil
}

// Set stores value and remembers ttl.
func (b *MapBackend) Set(_ context.Context, key string, value int64, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.SetCount++
	if b.Err != nil {
		return b.Err
	}
	b.values[key] = value
	b.ttls[key] = ttl
	return nil
}

// Delete removes key.
func (b *MapBackend) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.DeleteCount++
	if b.Err != nil {
		return b.Err
	}
	delete(b.values, key)
	delete(b.ttls, key)
	return nil
}

// Ping returns Err.
func (b *MapBackend) Ping(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.Err
}

// Value returns the stored value of key without tracking.
func (b *MapBackend) Value(key string) (int64, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.values[key]
	return v, ok
}

// TTL returns the ttl key was last written with.
func (b *MapBackend) TTL(key string) time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ttls[key]
}

// SetErr sets the error returned by every operation.
func (b *MapBackend) SetErr(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Err = err
}

// Barrier blocks each caller of Wait until n callers arrived.
// Used as MapBackend.AfterGet to force concurrent reads of the same value.
type Barrier struct {
	mu      sync.Mutex
	n       int
	arrived int
	release chan struct{}
}

// NewBarrier creates a barrier for n callers.
func NewBarrier(n int) *Barrier {
	return &Barrier{n: n, release: make(chan struct{})}
}

// Wait blocks until n callers called Wait or timeout elapsed.
// It returns false on timeout. Calls after the barrier opened return at once.
func (b *Barrier) Wait(timeout time.Duration) bool {
	b.mu.Lock()
	b.arrived++
	if b.arrived == b.n {
		close(b.release)
	}
	b.mu.Unlock()

	select {
	case <-b.release:
		return true
	case <-time.After(timeout):
		return false
	}
}
