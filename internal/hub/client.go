package hub

import (
	"log"
	"sync"
)

// textMessage mirrors websocket.TextMessage; the hub keeps the websocket
// package out of its imports so tests can use in-memory connections.
const textMessage = 1

// Conn is the transport a Client writes to. *websocket.Conn satisfies it.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client is one live connection. Reliable sends serialize on a write mutex;
// volatile sends go through a bounded queue drained by a writer goroutine
// and are dropped when the queue is full.
type Client struct {
	ID          string
	UserID      string
	DisplayName string

	conn     Conn
	writeMu  sync.Mutex
	volatile chan []byte
	done     chan struct{}
	once     sync.Once
}

// NewClient wraps a connection. queueSize bounds the volatile send queue.
func NewClient(id, userID, displayName string, conn Conn, queueSize int) *Client {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Client{
		ID:          id,
		UserID:      userID,
		DisplayName: displayName,
		conn:        conn,
		volatile:    make(chan []byte, queueSize),
		done:        make(chan struct{}),
	}
}

// Start launches the volatile writer goroutine.
func (c *Client) Start() {
	go c.writePump()
}

// Send writes data reliably to the connection.
func (c *Client) Send(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(textMessage, data)
}

// TrySend enqueues data on the volatile path. It never blocks; it reports
// false when the message was dropped.
func (c *Client) TrySend(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.volatile <- data:
		return true
	default:
		return false
	}
}

// Close stops the writer and closes the underlying connection. Safe to call
// more than once.
func (c *Client) Close() {
	c.once.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

func (c *Client) writePump() {
	for {
		select {
		case <-c.done:
			return
		case data := <-c.volatile:
			if err := c.Send(data); err != nil {
				log.Printf("[Hub] Volatile send to %s failed: %v", c.ID, err)
			}
		}
	}
}
