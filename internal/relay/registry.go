// Package relay implements the in-memory core of the signaling server:
// the connection registry and the room relay. It routes opaque signaling
// payloads between room members and never inspects them.
package relay

import (
	"sync"

	"github.com/google/uuid"
)

// SendBufferSize is the capacity of each connection's outbound channel.
// A recipient whose buffer is full has messages dropped rather than
// stalling delivery to other room members.
const SendBufferSize = 256

type connection struct {
	send   chan []byte
	roomID string
}

// Registry maps live connection identities to their delivery channels
// and current room. It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]*connection
}

func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[string]*connection),
	}
}

// Register allocates a unique identity for a newly established connection.
// The connection starts with no room membership.
func (r *Registry) Register(send chan []byte) string {
	id := uuid.New().String()

	r.mu.Lock()
	r.conns[id] = &connection{send: send}
	r.mu.Unlock()

	return id
}

// Lookup resolves an identity to its delivery channel. It returns false
// for identities that were never registered or have been deregistered.
func (r *Registry) Lookup(id string) (chan []byte, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.conns[id]
	if !ok {
		return nil, false
	}
	return conn.send, true
}

// Deregister removes a connection. Deregistering an unknown identity is
// a no-op.
func (r *Registry) Deregister(id string) {
	r.mu.Lock()
	delete(r.conns, id)
	r.mu.Unlock()
}

// Room returns the room the connection currently occupies, or "" if it
// is not in a room (or not registered).
func (r *Registry) Room(id string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.conns[id]
	if !ok {
		return ""
	}
	return conn.roomID
}

// SetRoom records the connection's current room. Pass "" to clear the
// association. Unknown identities are ignored.
func (r *Registry) SetRoom(id, roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if conn, ok := r.conns[id]; ok {
		conn.roomID = roomID
	}
}

// Count returns the number of live connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
