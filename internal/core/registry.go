package core

import (
	"sync"

	"github.com/rs/zerolog"
)

// Registry maps a logged-in username to its single live connection.
type Registry struct {
	mu    sync.Mutex
	peers map[string]*Peer
	log   *zerolog.Logger
}

// NewRegistry constructs an empty connection registry.
func NewRegistry(logger *zerolog.Logger) *Registry {
	return &Registry{
		peers: make(map[string]*Peer),
		log:   logger,
	}
}

// Register records the peer as its user's connection. Any previous
// connection for the same username is displaced and closed; last write wins.
func (r *Registry) Register(p *Peer) {
	r.mu.Lock()
	old := r.peers[p.Username]
	r.peers[p.Username] = p
	r.mu.Unlock()

	if old != nil && old != p {
		old.Close(CloseNormal, "replaced by a newer connection")
		r.log.Info().Str("username", p.Username).Msg("displaced previous connection")
	}
}

// Lookup returns the current peer for a username, or nil.
func (r *Registry) Lookup(username string) *Peer {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.peers[username]
}

// Unregister removes the peer if it is still the current entry for its
// username. Unregistering a stale or absent peer is a no-op, so a
// connection displaced by a newer login cannot tear down its successor.
func (r *Registry) Unregister(p *Peer) {
	r.mu.Lock()
	if current, ok := r.peers[p.Username]; ok && current == p {
		delete(r.peers, p.Username)
	}
	r.mu.Unlock()
}
