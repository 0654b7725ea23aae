package presence

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	roomID  string
	except  string
	event   string
	payload any
}

type mockPublisher struct {
	mu     sync.Mutex
	events []published
}

func (p *mockPublisher) ToRoom(roomID, event string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{roomID: roomID, event: event, payload: payload})
}

func (p *mockPublisher) ToRoomExcept(roomID, exceptConnID, event string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{roomID: roomID, except: exceptConnID, event: event, payload: payload})
}

func (p *mockPublisher) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
}

// lastMemberList returns the member list of the most recent users-in-room
// publish for the room.
func (p *mockPublisher) lastMemberList(t *testing.T, roomID string) []Member {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := len(p.events) - 1; i >= 0; i-- {
		e := p.events[i]
		if e.event == EventUsersInRoom && e.roomID == roomID {
			members, ok := e.payload.([]Member)
			require.True(t, ok)
			return members
		}
	}
	t.Fatalf("no users-in-room publish for room %s", roomID)
	return nil
}

func (p *mockPublisher) countEvent(event string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.event == event {
			n++
		}
	}
	return n
}

func member(connID, userID, name string) Member {
	return Member{ConnectionID: connID, UserID: userID, DisplayName: name}
}

func TestRegistry_JoinPublishesListAndPointEvent(t *testing.T) {
	pub := &mockPublisher{}
	reg := NewRegistry(pub)

	reg.Join("R1", member("c1", "u1", "Alice"))
	reg.Join("R1", member("c2", "u2", "Bob"))

	list := pub.lastMemberList(t, "R1")
	assert.ElementsMatch(t, []Member{
		member("c1", "u1", "Alice"),
		member("c2", "u2", "Bob"),
	}, list)

	// member-joined goes to everyone except the joiner.
	assert.Equal(t, 2, pub.countEvent(EventMemberJoined))
	pub.mu.Lock()
	last := pub.events[len(pub.events)-1]
	pub.mu.Unlock()
	assert.Equal(t, EventMemberJoined, last.event)
	assert.Equal(t, "c2", last.except)
	assert.Equal(t, MemberEvent{UserID: "u2", DisplayName: "Bob"}, last.payload)
}

func TestRegistry_MembershipEqualsJoinsMinusLeaves(t *testing.T) {
	tests := []struct {
		name string
		ops  func(*Registry)
		want []Member
	}{
		{
			name: "join join leave",
			ops: func(r *Registry) {
				r.Join("R1", member("c1", "u1", "Alice"))
				r.Join("R1", member("c2", "u2", "Bob"))
				r.Leave("R1", "c1")
			},
			want: []Member{member("c2", "u2", "Bob")},
		},
		{
			name: "disconnect instead of leave",
			ops: func(r *Registry) {
				r.Join("R1", member("c1", "u1", "Alice"))
				r.Join("R1", member("c2", "u2", "Bob"))
				r.Disconnect("c1")
			},
			want: []Member{member("c2", "u2", "Bob")},
		},
		{
			name: "same user two connections",
			ops: func(r *Registry) {
				r.Join("R1", member("c1", "u1", "Alice"))
				r.Join("R1", member("c2", "u1", "Alice"))
			},
			want: []Member{member("c1", "u1", "Alice"), member("c2", "u1", "Alice")},
		},
		{
			name: "rejoin same room is idempotent",
			ops: func(r *Registry) {
				r.Join("R1", member("c1", "u1", "Alice"))
				r.Join("R1", member("c1", "u1", "Alice"))
			},
			want: []Member{member("c1", "u1", "Alice")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := NewRegistry(&mockPublisher{})
			tt.ops(reg)
			assert.ElementsMatch(t, tt.want, reg.Members("R1"))
		})
	}
}

func TestRegistry_EmptyRoomIsPruned(t *testing.T) {
	pub := &mockPublisher{}
	reg := NewRegistry(pub)

	reg.Join("R1", member("c1", "u1", "Alice"))
	reg.Join("R1", member("c2", "u2", "Bob"))
	reg.Disconnect("c1")
	reg.Leave("R1", "c2")

	assert.Empty(t, reg.Members("R1"))
	_, ok := reg.RoomOf("c2")
	assert.False(t, ok)

	// Last leave still published an empty list to the (now empty) room.
	assert.Empty(t, pub.lastMemberList(t, "R1"))
}

func TestRegistry_DisconnectWithoutJoinIsNoop(t *testing.T) {
	pub := &mockPublisher{}
	reg := NewRegistry(pub)

	reg.Disconnect("never-joined")

	pub.mu.Lock()
	defer pub.mu.Unlock()
	assert.Empty(t, pub.events)
}

func TestRegistry_DisconnectAfterLeaveIsNoop(t *testing.T) {
	pub := &mockPublisher{}
	reg := NewRegistry(pub)

	reg.Join("R1", member("c1", "u1", "Alice"))
	reg.Leave("R1", "c1")
	pub.reset()

	reg.Disconnect("c1")

	pub.mu.Lock()
	defer pub.mu.Unlock()
	assert.Empty(t, pub.events, "disconnect after leave must publish nothing")
}

func TestRegistry_JoinOtherRoomLeavesFirst(t *testing.T) {
	pub := &mockPublisher{}
	reg := NewRegistry(pub)

	reg.Join("R1", member("c1", "u1", "Alice"))
	reg.Join("R2", member("c1", "u1", "Alice"))

	assert.Empty(t, reg.Members("R1"))
	assert.Len(t, reg.Members("R2"), 1)
	assert.Equal(t, 1, pub.countEvent(EventMemberLeft))

	roomID, ok := reg.RoomOf("c1")
	require.True(t, ok)
	assert.Equal(t, "R2", roomID)
}

func TestRegistry_ConcurrentLeavesPublishFinalListLast(t *testing.T) {
	// Mutations and their publishes are serialized: after two racing
	// leaves, the last users-in-room broadcast matches the live set.
	for i := 0; i < 100; i++ {
		pub := &mockPublisher{}
		reg := NewRegistry(pub)
		reg.Join("R1", member("c1", "u1", "Alice"))
		reg.Join("R1", member("c2", "u2", "Bob"))
		reg.Join("R1", member("c3", "u3", "Carol"))
		pub.reset()

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			reg.Leave("R1", "c1")
		}()
		go func() {
			defer wg.Done()
			reg.Leave("R1", "c2")
		}()
		wg.Wait()

		list := pub.lastMemberList(t, "R1")
		require.Len(t, list, 1, "iteration %d", i)
		assert.Equal(t, "c3", list[0].ConnectionID)
	}
}

func TestRegistry_QueryDoesNotCreateRoom(t *testing.T) {
	reg := NewRegistry(&mockPublisher{})

	got := reg.Members("unknown")

	assert.NotNil(t, got)
	assert.Empty(t, got)
	// Still unknown afterwards: a later join must start from one member.
	reg.Join("unknown", member("c1", "u1", "Alice"))
	assert.Len(t, reg.Members("unknown"), 1)
}
