// Package directory resolves player UIDs to last-known display names.
package directory

import "sync"

// Directory looks up a player's last-known display name.
type Directory interface {
	LookupName(uid string) (string, bool)
}

// Cache caches names as players are seen so queries never have to reach back
// into host state. Latency here matters: the lookup sits on the query path.
type Cache struct {
	mu    sync.RWMutex
	names map[string]string
}

// NewCache creates an empty name cache.
func NewCache() *Cache {
	return &Cache{
		names: make(map[string]string),
	}
}

// Remember records a player's display name. Empty UIDs and names are ignored.
func (c *Cache) Remember(uid, name string) {
	if uid == "" || name == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.names[uid] = name
}

// LookupName returns the last-known display name for a UID.
func (c *Cache) LookupName(uid string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	name, ok := c.names[uid]
	return name, ok
}

// Len returns the number of known players.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.names)
}
