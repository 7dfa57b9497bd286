// Package presence tracks the currently online players as reported by the
// host plugin. The sampling timer snapshots this registry on its own cadence.
package presence

import (
	"sort"
	"sync"

	"github.com/pptracker/recorder/pkg/core"
)

// Registry is a thread-safe map of online players keyed by UID.
type Registry struct {
	mu      sync.RWMutex
	players map[string]core.PlayerSnapshot
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		players: make(map[string]core.PlayerSnapshot),
	}
}

// Update replaces the live state of every player in the payload. Snapshots
// with an empty UID are ignored.
func (r *Registry) Update(players []core.PlayerSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range players {
		if p.UID == "" {
			continue
		}
		r.players[p.UID] = p
	}
}

// Remove drops a player from the registry.
func (r *Registry) Remove(uid string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.players, uid)
}

// OnlinePlayers returns the current player set, ordered by UID so one tick's
// records always appear in a stable order.
func (r *Registry) OnlinePlayers() []core.PlayerSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]core.PlayerSnapshot, 0, len(r.players))
	for _, p := range r.players {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UID < out[j].UID })
	return out
}

// Len returns the number of online players.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.players)
}

// Reset drops all players, used when the host connection is lost.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.players = make(map[string]core.PlayerSnapshot)
}
