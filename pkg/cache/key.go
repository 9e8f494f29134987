package cache

import (
	"strings"
)

// Key identifies a buffered counter in the cache.
type Key struct {
	// Group namespaces all counters of one exporter (e.g., "metrics")
	Group string

	// Name is the tracked event name (e.g., "save_post")
	Name string
}

// String generates the cache key string.
// Format: group:name
//
// Example:
//
//	metrics:save_post
func (k Key) String() string {
	parts := make([]string, 0, 2)

	if group := strings.Trim(k.Group, ":"); group != "" {
		parts = append(parts, group)
	}
	parts = append(parts, k.Name)

	return strings.Join(parts, ":")
}
