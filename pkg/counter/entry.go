package counter

import (
	"time"
)

// Entry represents a buffered counter as stored in the cache.
type Entry struct {
	// Event is the tracked event name
	Event string `json:"event"`

	// Key is the cache key holding the count
	Key string `json:"key"`

	// Count is the number of occurrences since the last drain
	Count int64 `json:"count"`

	// TTL is the expiry applied on every increment (0 = never expires)
	TTL time.Duration `json:"ttl"`
}

// Expires returns true if the entry is written with an expiry.
func (e Entry) Expires() bool {
	return e.TTL > 0
}

// IsEmpty returns true if nothing is buffered.
func (e Entry) IsEmpty() bool {
	return e.Count == 0
}
