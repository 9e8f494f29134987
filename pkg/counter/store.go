// Package counter buffers domain event counts in a shared cache until the
// next scrape folds them into a counter metric.
//
// Events happen on arbitrary requests; nothing observes a metric until a
// scrape. Increment only touches the cache, and DrainAndReset moves the
// accumulated count into the scrape's registry.
//
// # Approximate counting
//
// Counts are approximate under concurrency and this is accepted:
//
//   - On a backend without cache.Atomic, Increment is a read-modify-write.
//     Two concurrent increments can read the same count and write back the
//     same value, losing one (undercount).
//   - On a backend without cache.Atomic, DrainAndReset is a read followed by a
//     delete. Two concurrent scrapes can both read the same count
//     (overcount), and an increment landing between the read and the delete
//     is lost.
//
// Backends implementing cache.Atomic (Redis, memory) use INCRBY and GETDEL,
// which closes both windows within a single backend.
//
// Cache failures never fail a scrape: callers treat an error as "no
// increment observed" and log it.
package counter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/axelspringer/wp-mu-prometheus/pkg/cache"
)

// DefaultNamespace is the cache group used when none is configured.
const DefaultNamespace = "metrics"

// Options configures a Store.
type Options struct {
	// Namespace is the cache group of all keys (default "metrics").
	Namespace string

	// TTL expires buffered counts that are never drained. 0 never expires.
	TTL time.Duration

	// Logger receives debug output. Defaults to a disabled logger.
	Logger *zerolog.Logger
}

// Store records event occurrences in a cache backend.
type Store struct {
	backend   cache.Backend
	atomic    cache.Atomic
	namespace string
	ttl       time.Duration
	logger    zerolog.Logger
}

// New creates a Store on top of backend.
func New(backend cache.Backend, opts Options) *Store {
	if backend == nil {
		panic("cache backend cannot be nil")
	}
	if opts.Namespace == "" {
		opts.Namespace = DefaultNamespace
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	s := &Store{
		backend:   backend,
		namespace: opts.Namespace,
		ttl:       opts.TTL,
		logger:    logger,
	}
	if a, ok := backend.(cache.Atomic); ok {
		s.atomic = a
	}
	return s
}

// Namespace returns the cache group of the store.
func (s *Store) Namespace() string { return s.namespace }

// TTL returns the expiry applied on every write.
func (s *Store) TTL() time.Duration { return s.ttl }

// Backend returns the underlying cache backend.
func (s *Store) Backend() cache.Backend { return s.backend }

// Key returns the cache key of event.
func (s *Store) Key(event string) string {
	return cache.Key{Group: s.namespace, Name: event}.String()
}

// Increment records one occurrence of event.
func (s *Store) Increment(ctx context.Context, event string) error {
	key := s.Key(event)

	if s.atomic != nil {
		count, err := s.atomic.IncrBy(ctx, key, 1, s.ttl)
		if err != nil {
			return fmt.Errorf("increment %s: %w", event, err)
		}
		EventsBuffered.WithLabelValues(event).Inc()
		s.logger.Debug().Str("event", event).Int64("count", count).Msg("Buffered event")
		return nil
	}

	count, err := s.backend.Get(ctx, key)
	if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
		return fmt.Errorf("increment %s: %w", event, err)
	}
	count++
	if err := s.backend.Set(ctx, key, count, s.ttl); err != nil {
		return fmt.Errorf("increment %s: %w", event, err)
	}

	EventsBuffered.WithLabelValues(event).Inc()
	s.logger.Debug().Str("event", event).Int64("count", count).Msg("Buffered event")
	return nil
}

// DrainAndReset returns the count accumulated for event and removes it.
// A missing entry drains 0.
func (s *Store) DrainAndReset(ctx context.Context, event string) (int64, error) {
	key := s.Key(event)

	var count int64
	var err error
	if s.atomic != nil {
		count, err = s.atomic.GetDel(ctx, key)
	} else {
		count, err = s.backend.Get(ctx, key)
		if err == nil {
			err = s.backend.Delete(ctx, key)
		}
	}

	if errors.Is(err, cache.ErrCacheMiss) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("drain %s: %w", event, err)
	}
	if count < 0 {
		// Counters never go backwards; a negative value was not written by us.
		count = 0
	}

	EventsDrained.WithLabelValues(event).Add(float64(count))
	s.logger.Debug().Str("event", event).Int64("count", count).Msg("Drained buffered counter")
	return count, nil
}

// Pending returns the buffered entries of events without draining them.
// Events with nothing buffered are reported with a zero count.
func (s *Store) Pending(ctx context.Context, events ...string) ([]Entry, error) {
	entries := make([]Entry, 0, len(events))
	for _, event := range events {
		count, err := s.backend.Get(ctx, s.Key(event))
		if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
			return nil, fmt.Errorf("pending %s: %w", event, err)
		}
		entries = append(entries, Entry{
			Event: event,
			Key:   s.Key(event),
			Count: count,
			TTL:   s.ttl,
		})
	}
	return entries, nil
}
