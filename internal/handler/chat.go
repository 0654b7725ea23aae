package handler

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"

	"collabboard-backend/internal/hub"
	"collabboard-backend/internal/model"
)

// maxMessageLength truncates oversized chat messages instead of dropping
// them.
const maxMessageLength = 2000

// receivedMessage is what the room sees immediately; the ephemeral id and
// timestamp exist for display before (and regardless of) persistence.
type receivedMessage struct {
	ID         string    `json:"_id"`
	RoomID     string    `json:"roomId"`
	Text       string    `json:"text"`
	SenderID   string    `json:"senderId"`
	SenderName string    `json:"sender"`
	Timestamp  time.Time `json:"timestamp"`
}

// handleSendMessage broadcasts first, persists after. The sender never
// learns about a persistence failure; the next load-messages read recovers.
func (h *RoomWSHandler) handleSendMessage(c *hub.Client, data json.RawMessage) {
	var p chatSendPayload
	if err := json.Unmarshal(data, &p); err != nil || p.RoomID == "" || p.Text == "" {
		log.Printf("[Chat] Dropping invalid send-message from %s", c.ID)
		return
	}
	if len(p.Text) > maxMessageLength {
		p.Text = p.Text[:maxMessageLength]
	}
	senderID := p.SenderID
	if senderID == "" {
		senderID = c.UserID
	}
	senderName := p.Sender
	if senderName == "" {
		senderName = c.DisplayName
	}

	out := receivedMessage{
		ID:         uuid.NewString(),
		RoomID:     p.RoomID,
		Text:       p.Text,
		SenderID:   senderID,
		SenderName: senderName,
		Timestamp:  time.Now(),
	}
	if frame := encodeEvent(EventReceiveMessage, out); frame != nil {
		h.hub.Broadcast(p.RoomID, frame, "")
	}

	h.persist.enqueue(p.RoomID, func(ctx context.Context) {
		saved, err := h.chats.SaveMessage(ctx, p.RoomID, senderID, senderName, p.Text)
		if err != nil {
			log.Printf("[Chat] Failed to save message for room %s: %v", p.RoomID, err)
			return
		}
		if err := h.msgCache.PushMessage(ctx, p.RoomID, saved); err != nil {
			log.Printf("[Chat] Failed to cache message for room %s: %v", p.RoomID, err)
		}
	})
}

// handleLoadMessages replies with up to the newest 100 messages in creation
// order. The cache is consulted first; any failure anywhere degrades to an
// empty list, never an error to the client.
func (h *RoomWSHandler) handleLoadMessages(c *hub.Client, data json.RawMessage) {
	roomID, ok := h.roomIDOf(c, data)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if cached, err := h.msgCache.RecentMessages(ctx, roomID); err == nil && len(cached) > 0 {
		h.reply(c, EventMessagesLoaded, cached)
		return
	}

	messages, err := h.chats.RecentMessages(ctx, roomID)
	if err != nil {
		log.Printf("[Chat] Failed to load messages for room %s: %v", roomID, err)
		messages = []model.ChatMessage{}
	}
	if messages == nil {
		messages = []model.ChatMessage{}
	}
	h.reply(c, EventMessagesLoaded, messages)
}
