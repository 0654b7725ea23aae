package hub

import (
	"errors"
	"log"
	"sync"
)

var ErrNoSuchTarget = errors.New("target connection not in room")

// Room holds the live connections of one room.
type room struct {
	clients map[string]*Client
	mu      sync.RWMutex
}

// Hub is the room-scoped broadcast fabric. Components address "all members
// of room R" or one specific connection through it; it knows nothing about
// the message protocol.
type Hub struct {
	rooms map[string]*room
	mu    sync.RWMutex
}

// New creates an empty Hub.
func New() *Hub {
	return &Hub{
		rooms: make(map[string]*room),
	}
}

// Register attaches a client to a room, creating the room on first use.
// Membership mutations hold h.mu throughout: inserting after releasing it
// would let a concurrent prune orphan the room entry.
func (h *Hub) Register(roomID string, c *Client) {
	h.mu.Lock()
	r, exists := h.rooms[roomID]
	if !exists {
		r = &room{clients: make(map[string]*Client)}
		h.rooms[roomID] = r
	}
	r.mu.Lock()
	r.clients[c.ID] = c
	count := len(r.clients)
	r.mu.Unlock()
	h.mu.Unlock()

	log.Printf("[Hub] Registered %s in room %s, clients: %d", c.ID, roomID, count)
}

// Unregister detaches a connection from a room. The last connection out
// prunes the room entry, atomically with the removal.
func (h *Hub) Unregister(roomID, connID string) {
	h.mu.Lock()
	r, exists := h.rooms[roomID]
	if !exists {
		h.mu.Unlock()
		return
	}

	r.mu.Lock()
	delete(r.clients, connID)
	count := len(r.clients)
	r.mu.Unlock()

	if count == 0 {
		delete(h.rooms, roomID)
	}
	h.mu.Unlock()

	if count == 0 {
		log.Printf("[Hub] Room %s removed", roomID)
	}
}

// Broadcast delivers data reliably to every client in the room. An empty
// exceptConnID means everyone, including the sender.
func (h *Hub) Broadcast(roomID string, data []byte, exceptConnID string) {
	for _, c := range h.snapshot(roomID) {
		if c.ID == exceptConnID {
			continue
		}
		if err := c.Send(data); err != nil {
			log.Printf("[Hub] Send to %s in room %s failed: %v", c.ID, roomID, err)
		}
	}
}

// BroadcastVolatile delivers data on the drop-eligible path: the send never
// blocks and is silently dropped when a client's queue is full. Used only
// where a superseding authoritative message follows.
func (h *Hub) BroadcastVolatile(roomID string, data []byte, exceptConnID string) {
	for _, c := range h.snapshot(roomID) {
		if c.ID == exceptConnID {
			continue
		}
		c.TrySend(data)
	}
}

// SendTo delivers data reliably to one specific connection in the room.
func (h *Hub) SendTo(roomID, connID string, data []byte) error {
	h.mu.RLock()
	r, exists := h.rooms[roomID]
	h.mu.RUnlock()

	if !exists {
		return ErrNoSuchTarget
	}

	r.mu.RLock()
	c, ok := r.clients[connID]
	r.mu.RUnlock()

	if !ok {
		return ErrNoSuchTarget
	}
	return c.Send(data)
}

// Stats returns the current room and client counts.
func (h *Hub) Stats() (rooms, clients int) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	rooms = len(h.rooms)
	for _, r := range h.rooms {
		r.mu.RLock()
		clients += len(r.clients)
		r.mu.RUnlock()
	}
	return rooms, clients
}

func (h *Hub) snapshot(roomID string) []*Client {
	h.mu.RLock()
	r, exists := h.rooms[roomID]
	h.mu.RUnlock()

	if !exists {
		return nil
	}

	r.mu.RLock()
	clients := make([]*Client, 0, len(r.clients))
	for _, c := range r.clients {
		clients = append(clients, c)
	}
	r.mu.RUnlock()
	return clients
}
