package hub

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockConn struct {
	mu       sync.Mutex
	received [][]byte
	closed   bool
	writeErr error
}

func (m *mockConn) WriteMessage(messageType int, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	m.received = append(m.received, buf)
	return nil
}

func (m *mockConn) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockConn) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *mockConn) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.received)
}

func newTestClient(id string) (*Client, *mockConn) {
	conn := &mockConn{}
	return NewClient(id, "user-"+id, "User "+id, conn, 8), conn
}

func TestHub_Broadcast(t *testing.T) {
	tests := []struct {
		name         string
		except       string
		wantReceived map[string]int
	}{
		{
			name:         "everyone including sender",
			except:       "",
			wantReceived: map[string]int{"a": 1, "b": 1, "c": 1},
		},
		{
			name:         "everyone except sender",
			except:       "a",
			wantReceived: map[string]int{"a": 0, "b": 1, "c": 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New()
			conns := make(map[string]*mockConn)
			for _, id := range []string{"a", "b", "c"} {
				c, conn := newTestClient(id)
				conns[id] = conn
				h.Register("room1", c)
			}

			h.Broadcast("room1", []byte(`{"event":"x"}`), tt.except)

			for id, want := range tt.wantReceived {
				assert.Equal(t, want, conns[id].count(), "client %s", id)
			}
		})
	}
}

func TestHub_NoCrossRoomDelivery(t *testing.T) {
	h := New()
	a, connA := newTestClient("a")
	b, connB := newTestClient("b")
	h.Register("room1", a)
	h.Register("room2", b)

	h.Broadcast("room1", []byte("msg"), "")

	assert.Equal(t, 1, connA.count())
	assert.Equal(t, 0, connB.count())
}

func TestHub_SendTo(t *testing.T) {
	h := New()
	a, connA := newTestClient("a")
	b, connB := newTestClient("b")
	h.Register("room1", a)
	h.Register("room1", b)

	require.NoError(t, h.SendTo("room1", "b", []byte("direct")))

	assert.Equal(t, 0, connA.count())
	assert.Equal(t, 1, connB.count())
}

func TestHub_SendToUnknownTarget(t *testing.T) {
	h := New()
	a, _ := newTestClient("a")
	h.Register("room1", a)

	assert.ErrorIs(t, h.SendTo("room1", "ghost", []byte("x")), ErrNoSuchTarget)
	assert.ErrorIs(t, h.SendTo("no-room", "a", []byte("x")), ErrNoSuchTarget)
}

func TestHub_UnregisterPrunesEmptyRoom(t *testing.T) {
	h := New()
	a, _ := newTestClient("a")
	b, _ := newTestClient("b")
	h.Register("room1", a)
	h.Register("room1", b)

	h.Unregister("room1", "a")
	rooms, clients := h.Stats()
	assert.Equal(t, 1, rooms)
	assert.Equal(t, 1, clients)

	h.Unregister("room1", "b")
	rooms, clients = h.Stats()
	assert.Equal(t, 0, rooms)
	assert.Equal(t, 0, clients)

	// Safe on already-pruned rooms.
	h.Unregister("room1", "b")
}

func TestHub_RegisterDuringLastUnregisterStaysReachable(t *testing.T) {
	// A register racing the prune of the room's last other client must not
	// end up in an orphaned room entry.
	h := New()
	for i := 0; i < 200; i++ {
		a, _ := newTestClient("a")
		b, connB := newTestClient("b")
		h.Register("room1", a)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			h.Unregister("room1", "a")
		}()
		go func() {
			defer wg.Done()
			h.Register("room1", b)
		}()
		wg.Wait()

		h.Broadcast("room1", []byte("x"), "")
		require.Equal(t, 1, connB.count(), "iteration %d", i)
		h.Unregister("room1", "b")
	}

	rooms, clients := h.Stats()
	assert.Equal(t, 0, rooms)
	assert.Equal(t, 0, clients)
}

func TestClient_VolatileDeliveredByPump(t *testing.T) {
	h := New()
	a, _ := newTestClient("a")
	b, connB := newTestClient("b")
	b.Start()
	defer b.Close()
	h.Register("room1", a)
	h.Register("room1", b)

	h.BroadcastVolatile("room1", []byte("live"), "a")

	require.Eventually(t, func() bool {
		return connB.count() == 1
	}, time.Second, 5*time.Millisecond)
}

func TestClient_VolatileDropsWhenQueueFull(t *testing.T) {
	// Pump not started: the queue fills and further sends must drop
	// without blocking.
	c, conn := newTestClient("a")

	accepted := 0
	for i := 0; i < 20; i++ {
		if c.TrySend([]byte("p")) {
			accepted++
		}
	}

	assert.Equal(t, 8, accepted, "queue capacity bounds accepted sends")
	assert.Equal(t, 0, conn.count())
}

func TestClient_TrySendAfterClose(t *testing.T) {
	c, conn := newTestClient("a")
	c.Start()
	c.Close()
	c.Close() // idempotent

	assert.False(t, c.TrySend([]byte("late")))
	assert.True(t, conn.isClosed())
}

func TestClient_SendSurfacesWriteError(t *testing.T) {
	conn := &mockConn{writeErr: errors.New("broken pipe")}
	c := NewClient("a", "u", "U", conn, 8)

	assert.Error(t, c.Send([]byte("x")))
}
