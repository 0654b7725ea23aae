package handler

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"

	"collabboard-backend/internal/cache"
	"collabboard-backend/internal/directory"
	"collabboard-backend/internal/hub"
	"collabboard-backend/internal/model"
	"collabboard-backend/internal/presence"
)

// persistTimeout bounds the asynchronous persistence calls fired off the
// relay path.
const persistTimeout = 5 * time.Second

// SessionStore is the durable side of the drawing relay.
type SessionStore interface {
	AppendStroke(ctx context.Context, roomID string, stroke model.Stroke) error
	ClearStrokes(ctx context.Context, roomID string) error
	SaveSnapshot(ctx context.Context, roomID, snapshot string) error
	LoadSession(ctx context.Context, roomID string) (*model.SessionData, error)
	RecordEvent(ctx context.Context, roomID, eventType string, payload json.RawMessage) error
}

// ChatStore is the durable side of the chat relay.
type ChatStore interface {
	SaveMessage(ctx context.Context, roomID, senderID, senderName, text string) (*model.ChatMessage, error)
	RecentMessages(ctx context.Context, roomID string) ([]model.ChatMessage, error)
}

// RoomWSHandler owns the per-connection websocket loop and dispatches every
// inbound event to the presence registry, the drawing and chat relays, and
// the signaling relay.
type RoomWSHandler struct {
	hub           *hub.Hub
	registry      *presence.Registry
	sessions      SessionStore
	chats         ChatStore
	msgCache      *cache.RedisClient
	directory     *directory.Client
	persist       *persister
	volatileQueue int
}

// NewRoomWSHandler wires the handler. msgCache and dir may be nil.
func NewRoomWSHandler(h *hub.Hub, sessions SessionStore, chats ChatStore, msgCache *cache.RedisClient, dir *directory.Client, volatileQueue int) *RoomWSHandler {
	handler := &RoomWSHandler{
		hub:           h,
		sessions:      sessions,
		chats:         chats,
		msgCache:      msgCache,
		directory:     dir,
		persist:       newPersister(),
		volatileQueue: volatileQueue,
	}
	handler.registry = presence.NewRegistry(hubPublisher{hub: h})
	return handler
}

// Registry exposes the presence registry handle.
func (h *RoomWSHandler) Registry() *presence.Registry {
	return h.registry
}

// HandleWebSocket runs one authenticated connection until it closes. The
// identity was placed in locals by the upgrade route; by the time this runs
// the credential has already been accepted.
func (h *RoomWSHandler) HandleWebSocket(c *websocket.Conn) {
	userID, ok1 := c.Locals("userId").(string)
	displayName, ok2 := c.Locals("displayName").(string)
	if !ok1 || !ok2 || userID == "" {
		c.WriteMessage(websocket.TextMessage, []byte(`{"event":"error","data":{"message":"invalid session"}}`))
		c.Close()
		return
	}

	connID := uuid.NewString()
	client := hub.NewClient(connID, userID, displayName, c, h.volatileQueue)
	client.Start()

	log.Printf("[WS] Connected: %s (%s)", connID, displayName)

	// Closing the connection is the only cancellation primitive: it must
	// trigger exactly one disconnect, which is a no-op after an explicit
	// leave already removed the member.
	defer func() {
		if roomID, ok := h.registry.RoomOf(connID); ok {
			h.hub.Unregister(roomID, connID)
			h.registry.Disconnect(connID)
		}
		client.Close()
		log.Printf("[WS] Disconnected: %s (%s)", connID, displayName)
	}()

	for {
		_, msgBytes, err := c.ReadMessage()
		if err != nil {
			break
		}

		var env Envelope
		if err := json.Unmarshal(msgBytes, &env); err != nil {
			log.Printf("[WS] Dropping malformed frame from %s: %v", connID, err)
			continue
		}

		h.handleEvent(client, env)
	}
}

// handleEvent is the single dispatch point for inbound events. Malformed
// payloads are dropped; nothing here may kill the connection or the
// process.
func (h *RoomWSHandler) handleEvent(c *hub.Client, env Envelope) {
	switch env.Event {
	case EventJoin:
		h.handleJoin(c, env.Data)
	case EventLeave:
		h.handleLeave(c, env.Data)
	case EventGetUsers:
		h.handleGetUsers(c, env.Data)
	case EventDrawStart, EventDrawMove:
		h.relayVolatile(c, env)
	case EventErase:
		h.relayToOthers(c, env)
	case EventDrawStroke:
		h.handleDrawStroke(c, env.Data)
	case EventClearBoard:
		h.handleClearBoard(c, env.Data)
	case EventUndo, EventRedo:
		// Notify-and-resync: receivers re-fetch the session, the server
		// does not pop strokes.
		h.relayToOthers(c, env)
	case EventSaveSnapshot:
		h.handleSaveSnapshot(c, env.Data)
	case EventLoadSession:
		h.handleLoadSession(c, env.Data)
	case EventRecordEvent:
		h.handleRecordEvent(c, env.Data)
	case EventSendMessage:
		h.handleSendMessage(c, env.Data)
	case EventLoadMessages:
		h.handleLoadMessages(c, env.Data)
	case EventShareOffer, EventShareICE, EventShareStop, EventFileShared:
		h.relayToOthers(c, env)
	case EventShareAnswer:
		h.handleShareAnswer(c, env.Data)
	default:
		log.Printf("[WS] Ignoring unknown event %q from %s", env.Event, c.ID)
	}
}

// handleJoin admits the connection into a room: fabric first so the joiner
// sees its own users-in-room broadcast, then the registry publish.
func (h *RoomWSHandler) handleJoin(c *hub.Client, data json.RawMessage) {
	var p joinPayload
	if err := json.Unmarshal(data, &p); err != nil || p.RoomID == "" {
		log.Printf("[WS] Dropping invalid join from %s", c.ID)
		return
	}
	userID := c.UserID
	displayName := c.DisplayName
	if p.UserID != "" {
		userID = p.UserID
	}
	if p.DisplayName != "" {
		displayName = p.DisplayName
	}

	// Host/participant classification from the durable room record; the
	// relay works without it.
	var role string
	if h.directory != nil {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		role = h.directory.ClassifyRole(ctx, p.RoomID, userID)
		cancel()
	}

	if prevRoom, ok := h.registry.RoomOf(c.ID); ok && prevRoom != p.RoomID {
		h.hub.Unregister(prevRoom, c.ID)
	}
	h.hub.Register(p.RoomID, c)
	h.registry.Join(p.RoomID, presence.Member{
		ConnectionID: c.ID,
		UserID:       userID,
		DisplayName:  displayName,
		Role:         role,
	})
}

func (h *RoomWSHandler) handleLeave(c *hub.Client, data json.RawMessage) {
	var p roomScoped
	if err := json.Unmarshal(data, &p); err != nil || p.RoomID == "" {
		return
	}
	h.hub.Unregister(p.RoomID, c.ID)
	h.registry.Leave(p.RoomID, c.ID)
}

// handleGetUsers replies with the current member snapshot; it never creates
// a room entry.
func (h *RoomWSHandler) handleGetUsers(c *hub.Client, data json.RawMessage) {
	var p roomScoped
	if err := json.Unmarshal(data, &p); err != nil || p.RoomID == "" {
		return
	}
	h.reply(c, presence.EventUsersInRoom, h.registry.Members(p.RoomID))
}

// relayToOthers forwards the envelope verbatim to the sender's room,
// excluding the sender. Payload contents are not interpreted beyond the
// room id.
func (h *RoomWSHandler) relayToOthers(c *hub.Client, env Envelope) {
	roomID, ok := h.roomIDOf(c, env.Data)
	if !ok {
		return
	}
	if data := reframe(env); data != nil {
		h.hub.Broadcast(roomID, data, c.ID)
	}
}

// relayVolatile forwards the envelope on the drop-eligible path.
func (h *RoomWSHandler) relayVolatile(c *hub.Client, env Envelope) {
	roomID, ok := h.roomIDOf(c, env.Data)
	if !ok {
		return
	}
	if data := reframe(env); data != nil {
		h.hub.BroadcastVolatile(roomID, data, c.ID)
	}
}

// roomIDOf extracts and validates the room id of a room-scoped payload.
func (h *RoomWSHandler) roomIDOf(c *hub.Client, data json.RawMessage) (string, bool) {
	var p roomScoped
	if err := json.Unmarshal(data, &p); err != nil || p.RoomID == "" {
		log.Printf("[WS] Dropping room-scoped event without roomId from %s", c.ID)
		return "", false
	}
	return p.RoomID, true
}

// reply sends a framed event to one client.
func (h *RoomWSHandler) reply(c *hub.Client, event EventType, payload any) {
	if data := encodeEvent(event, payload); data != nil {
		if err := c.Send(data); err != nil {
			log.Printf("[WS] Reply %s to %s failed: %v", event, c.ID, err)
		}
	}
}

// reframe re-encodes an inbound envelope for passthrough relay.
func reframe(env Envelope) []byte {
	data, err := json.Marshal(env)
	if err != nil {
		log.Printf("[WS] Failed to reframe %s: %v", env.Event, err)
		return nil
	}
	return data
}
