package presence

import (
	"log"
	"sync"
)

// Event names published by the registry.
const (
	EventUsersInRoom  = "users-in-room"
	EventMemberJoined = "member-joined"
	EventMemberLeft   = "member-left"
)

// Member is one live connection's presence entry within a room. A user with
// two tabs open holds two distinct members.
type Member struct {
	ConnectionID string `json:"connectionId"`
	UserID       string `json:"userId"`
	DisplayName  string `json:"displayName"`
	Role         string `json:"role,omitempty"` // host | participant, when classified
}

// MemberEvent is the payload of member-joined / member-left.
type MemberEvent struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

// Publisher fans registry events out to a room. Implemented over the hub by
// the handler layer so the registry stays transport-free.
type Publisher interface {
	ToRoom(roomID, event string, payload any)
	ToRoomExcept(roomID, exceptConnID, event string, payload any)
}

// Registry is the authoritative table of live room membership. It is an
// owned instance: constructed at process start, passed by handle, mutated
// only through its own operations.
type Registry struct {
	// seq serializes each mutation together with its publishes, so lists
	// reach the room in commit order and the last users-in-room broadcast
	// always reflects the live set. Acquired before mu; readers take mu
	// only.
	seq   sync.Mutex
	mu    sync.RWMutex
	rooms map[string]map[string]Member // roomID -> connID -> Member
	conns map[string]string            // connID -> roomID
	pub   Publisher
}

// NewRegistry creates an empty registry publishing through pub.
func NewRegistry(pub Publisher) *Registry {
	return &Registry{
		rooms: make(map[string]map[string]Member),
		conns: make(map[string]string),
		pub:   pub,
	}
}

// Join admits a connection into a room. Idempotent per connection; a join
// into a different room leaves the previous one first. After the mutation
// the full member list goes to the room and a member-joined point event to
// everyone else.
func (g *Registry) Join(roomID string, m Member) {
	g.seq.Lock()
	defer g.seq.Unlock()

	g.mu.Lock()
	var prevRoom string
	var prevMember Member
	var prevMembers []Member
	if prev, ok := g.conns[m.ConnectionID]; ok && prev != roomID {
		if left, removed := g.removeLocked(prev, m.ConnectionID); removed {
			prevRoom = prev
			prevMember = left
			prevMembers = g.membersLocked(prev)
		}
	}
	if g.rooms[roomID] == nil {
		g.rooms[roomID] = make(map[string]Member)
	}
	g.rooms[roomID][m.ConnectionID] = m
	g.conns[m.ConnectionID] = roomID
	members := g.membersLocked(roomID)
	g.mu.Unlock()

	// A join into a different room is a full leave of the previous one.
	if prevRoom != "" {
		g.pub.ToRoom(prevRoom, EventUsersInRoom, prevMembers)
		g.pub.ToRoomExcept(prevRoom, m.ConnectionID, EventMemberLeft, MemberEvent{
			UserID:      prevMember.UserID,
			DisplayName: prevMember.DisplayName,
		})
	}

	log.Printf("[Presence] %s joined room %s, members: %d", m.DisplayName, roomID, len(members))

	g.pub.ToRoom(roomID, EventUsersInRoom, members)
	g.pub.ToRoomExcept(roomID, m.ConnectionID, EventMemberJoined, MemberEvent{
		UserID:      m.UserID,
		DisplayName: m.DisplayName,
	})
}

// Leave removes a connection from a room. No-op when the connection is not
// a member.
func (g *Registry) Leave(roomID, connID string) {
	g.remove(roomID, connID)
}

// Disconnect removes a connection wherever it is. Safe to call when no
// prior Join succeeded, and idempotent against an earlier Leave.
func (g *Registry) Disconnect(connID string) {
	g.mu.RLock()
	roomID, ok := g.conns[connID]
	g.mu.RUnlock()

	if !ok {
		return
	}
	g.remove(roomID, connID)
}

// Members returns a snapshot of a room's member list; empty for unknown
// rooms, and never creates an entry.
func (g *Registry) Members(roomID string) []Member {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.membersLocked(roomID)
}

// RoomOf returns the room a connection currently occupies.
func (g *Registry) RoomOf(connID string) (string, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	roomID, ok := g.conns[connID]
	return roomID, ok
}

func (g *Registry) remove(roomID, connID string) {
	g.seq.Lock()
	defer g.seq.Unlock()

	g.mu.Lock()
	left, ok := g.removeLocked(roomID, connID)
	var members []Member
	if ok {
		members = g.membersLocked(roomID)
	}
	g.mu.Unlock()

	if !ok {
		return
	}

	log.Printf("[Presence] %s left room %s, members: %d", left.DisplayName, roomID, len(members))

	g.pub.ToRoom(roomID, EventUsersInRoom, members)
	g.pub.ToRoomExcept(roomID, connID, EventMemberLeft, MemberEvent{
		UserID:      left.UserID,
		DisplayName: left.DisplayName,
	})
}

// removeLocked deletes the member and prunes the room when it empties.
// Caller holds the write lock.
func (g *Registry) removeLocked(roomID, connID string) (Member, bool) {
	members, ok := g.rooms[roomID]
	if !ok {
		return Member{}, false
	}
	m, ok := members[connID]
	if !ok {
		return Member{}, false
	}
	delete(members, connID)
	delete(g.conns, connID)
	if len(members) == 0 {
		delete(g.rooms, roomID)
	}
	return m, true
}

func (g *Registry) membersLocked(roomID string) []Member {
	members := make([]Member, 0, len(g.rooms[roomID]))
	for _, m := range g.rooms[roomID] {
		members = append(members, m)
	}
	return members
}
