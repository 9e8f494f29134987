package testutil

import (
	"context"
	"sync"
)

// StaticHost is a host state with fixed values.
type StaticHost struct {
	mu sync.RWMutex

	Users         int
	ActivePlugins []string
	Posts         map[string]int
	Attachments   int

	// Err, when set, is returned by every count.
	Err error

	// Tracking
	Reads int
}

// NewStaticHost creates a host with a few users, plugins and posts.
func NewStaticHost() *StaticHost {
	return &StaticHost{
		Users:         5,
		ActivePlugins: []string{"akismet/akismet.php", "wp-mu-prometheus/plugin.php"},
		Posts:         map[string]int{"publish": 12, "draft": 3},
		Attachments:   7,
	}
}

// CountUsers returns Users.
func (h *StaticHost) CountUsers(context.Context) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Reads++
	return h.Users, h.Err
}

// ActivePluginList returns ActivePlugins.
func (h *StaticHost) ActivePluginList(context.Context) ([]string, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]string(nil), h.ActivePlugins...), h.Err
}

// CountPosts returns Posts.
func (h *StaticHost) CountPosts(context.Context) (map[string]int, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make(map[string]int, len(h.Posts))
	for k, v := range h.Posts {
		out[k] = v
	}
	return out, h.Err
}

// CountAttachments returns Attachments.
func (h *StaticHost) CountAttachments(context.Context) (int, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.Attachments, h.Err
}

// SetUsers changes the user count.
func (h *StaticHost) SetUsers(n int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Users = n
}

// SetErr sets the error returned by every count.
func (h *StaticHost) SetErr(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Err = err
}
