// Package events dispatches named domain events to registered observers.
package events

import (
	"context"
	"sync"
)

// Domain events fired by the host.
const (
	// SavePost fires whenever a post is created or updated.
	SavePost = "save_post"
)

// Event is one occurrence of a domain event.
type Event struct {
	Name    string
	Payload any
}

// Handler observes an event.
type Handler func(ctx context.Context, e Event)

// Bus holds observers keyed by event name.
// Handlers run synchronously, in registration order, on the publishing
// goroutine.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[string][]Handler)}
}

// Subscribe registers h for events named name.
func (b *Bus) Subscribe(name string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[name] = append(b.handlers[name], h)
}

// Publish runs every handler registered for e.Name.
// It returns the number of handlers that ran.
func (b *Bus) Publish(ctx context.Context, e Event) int {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers[e.Name]...)
	b.mu.RUnlock()

	for _, h := range handlers {
		h(ctx, e)
	}
	return len(handlers)
}

// Fire publishes an event without payload.
func (b *Bus) Fire(ctx context.Context, name string) int {
	return b.Publish(ctx, Event{Name: name})
}

// Subscribed reports whether any handler listens for name.
func (b *Bus) Subscribed(name string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[name]) > 0
}
