package relay

import (
	"crypto/rand"
	"log"
	"math/big"
	"sort"
	"strings"
	"sync"
)

const (
	roomCodeLength = 6
	codeChars      = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789" // Removed ambiguous chars
)

// Presence receives best-effort notifications about membership changes,
// for mirroring room state to an external store. Implementations must
// not block; failures are the implementation's problem, not the relay's.
type Presence interface {
	Join(roomID, connID string)
	Leave(roomID, connID string)
	RoomClosed(roomID string)
}

// Hub owns all room state: the mapping from room identifier to member
// set. Rooms are created on demand and deleted when their last member
// leaves. All methods are safe for concurrent use.
type Hub struct {
	registry *Registry
	presence Presence // nil when mirroring is disabled

	mu    sync.Mutex
	rooms map[string]map[string]struct{}
}

// NewHub creates a hub backed by the given registry. presence may be nil.
func NewHub(registry *Registry, presence Presence) *Hub {
	return &Hub{
		registry: registry,
		presence: presence,
		rooms:    make(map[string]map[string]struct{}),
	}
}

// CreateRoom creates a new room with the connection as its sole member
// and returns the room identifier. If requestedID is empty a short
// random code is generated, retrying until it does not collide with a
// live room. A non-empty requestedID is used as-is after trimming;
// blank identifiers fail with ErrInvalidRoomID and identifiers already
// in use fail with ErrRoomAlreadyExists.
//
// If the connection already occupies a room it leaves that room first,
// so a connection is never a member of more than one room.
func (h *Hub) CreateRoom(connID, requestedID string) (string, error) {
	h.mu.Lock()

	var roomID string
	if requestedID == "" {
		roomID = h.generateRoomID()
	} else {
		roomID = strings.TrimSpace(requestedID)
		if roomID == "" {
			h.mu.Unlock()
			return "", ErrInvalidRoomID
		}
		if _, exists := h.rooms[roomID]; exists {
			h.mu.Unlock()
			return "", ErrRoomAlreadyExists
		}
	}

	emptied := h.leaveLocked(connID)

	h.rooms[roomID] = map[string]struct{}{connID: {}}
	h.registry.SetRoom(connID, roomID)
	h.mu.Unlock()

	h.notifyLeft(emptied, connID)
	if h.presence != nil {
		h.presence.Join(roomID, connID)
	}
	log.Printf("Room created: %s by %s", roomID, connID)

	return roomID, nil
}

// JoinRoom adds the connection to an existing room. Joining a room the
// connection is already a member of is a no-op. Joining a different
// room moves the connection, leaving its previous room first.
func (h *Hub) JoinRoom(connID, roomID string) error {
	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return ErrInvalidRoomID
	}

	h.mu.Lock()

	members, ok := h.rooms[roomID]
	if !ok {
		h.mu.Unlock()
		return ErrRoomNotFound
	}

	if _, already := members[connID]; already {
		h.mu.Unlock()
		return nil
	}

	emptied := h.leaveLocked(connID)

	members[connID] = struct{}{}
	h.registry.SetRoom(connID, roomID)
	h.mu.Unlock()

	h.notifyLeft(emptied, connID)
	if h.presence != nil {
		h.presence.Join(roomID, connID)
	}
	log.Printf("Peer %s joined room %s", connID, roomID)

	return nil
}

// Relay delivers message to every current member of roomID except the
// sender. The message is treated as opaque bytes. If the room does not
// exist or the sender is not a member, the message is silently dropped:
// a signal racing a departure is benign, not an error. Delivery to each
// recipient is best-effort; an unreachable or backed-up recipient is
// skipped.
func (h *Hub) Relay(senderID, roomID string, message []byte) {
	h.mu.Lock()

	members, ok := h.rooms[roomID]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, member := members[senderID]; !member {
		h.mu.Unlock()
		return
	}

	// Snapshot recipients under the lock, deliver outside it.
	recipients := make([]string, 0, len(members)-1)
	for id := range members {
		if id != senderID {
			recipients = append(recipients, id)
		}
	}
	h.mu.Unlock()

	for _, id := range recipients {
		send, ok := h.registry.Lookup(id)
		if !ok {
			// Deregistered between snapshot and delivery.
			continue
		}
		select {
		case send <- message:
		default:
			log.Printf("Dropped signal for peer %s, buffer full", id)
		}
	}
}

// Leave removes the connection from its current room, if any, deleting
// the room when it empties. Calling Leave for a connection with no
// current room is a no-op.
func (h *Hub) Leave(connID string) {
	h.mu.Lock()
	emptied := h.leaveLocked(connID)
	h.mu.Unlock()

	h.notifyLeft(emptied, connID)
}

// Disconnect tears down a connection: it leaves its room and is removed
// from the registry. Safe to call more than once.
func (h *Hub) Disconnect(connID string) {
	h.Leave(connID)
	h.registry.Deregister(connID)
}

// leaveLocked removes connID from its current room and clears the
// registry association. It returns the room left, or "" if the
// connection was not in one. Callers must hold h.mu and are responsible
// for presence notifications after releasing it.
func (h *Hub) leaveLocked(connID string) string {
	roomID := h.registry.Room(connID)
	if roomID == "" {
		return ""
	}
	h.registry.SetRoom(connID, "")

	members, ok := h.rooms[roomID]
	if !ok {
		return ""
	}
	delete(members, connID)

	if len(members) == 0 {
		delete(h.rooms, roomID)
		log.Printf("Room deleted: %s", roomID)
	}
	return roomID
}

// notifyLeft mirrors a departure recorded by leaveLocked.
func (h *Hub) notifyLeft(roomID, connID string) {
	if roomID == "" || h.presence == nil {
		return
	}
	h.presence.Leave(roomID, connID)
	if _, alive := h.RoomSize(roomID); !alive {
		h.presence.RoomClosed(roomID)
	}
}

// RoomSize reports the member count of a room and whether it is live.
func (h *Hub) RoomSize(roomID string) (int, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.rooms[roomID]
	if !ok {
		return 0, false
	}
	return len(members), true
}

// RoomIDs returns the identifiers of all live rooms, sorted.
func (h *Hub) RoomIDs() []string {
	h.mu.Lock()
	ids := make([]string, 0, len(h.rooms))
	for id := range h.rooms {
		ids = append(ids, id)
	}
	h.mu.Unlock()

	sort.Strings(ids)
	return ids
}

// CloseRoom force-deletes a room, clearing every member's association.
// Members are not disconnected; their next signal to the room simply
// drops. Returns false if the room was not live.
func (h *Hub) CloseRoom(roomID string) bool {
	h.mu.Lock()

	members, ok := h.rooms[roomID]
	if !ok {
		h.mu.Unlock()
		return false
	}
	delete(h.rooms, roomID)

	cleared := make([]string, 0, len(members))
	for id := range members {
		h.registry.SetRoom(id, "")
		cleared = append(cleared, id)
	}
	h.mu.Unlock()

	if h.presence != nil {
		for _, id := range cleared {
			h.presence.Leave(roomID, id)
		}
		h.presence.RoomClosed(roomID)
	}
	log.Printf("Room closed: %s (%d members cleared)", roomID, len(cleared))

	return true
}

// generateRoomID returns a random room code not in use by a live room.
// Callers must hold h.mu so the returned code stays unique until the
// room is inserted.
func (h *Hub) generateRoomID() string {
	for {
		id := generateRoomCode()
		if _, exists := h.rooms[id]; !exists {
			return id
		}
	}
}

// generateRoomCode generates a random room code
func generateRoomCode() string {
	code := make([]byte, roomCodeLength)
	for i := range code {
		n, _ := rand.Int(rand.Reader, big.NewInt(int64(len(codeChars))))
		code[i] = codeChars[n.Int64()]
	}
	return string(code)
}
