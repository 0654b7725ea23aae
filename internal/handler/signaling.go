package handler

import (
	"encoding/json"
	"errors"
	"log"

	"collabboard-backend/internal/hub"
)

// Signaling relay for screen sharing. Offers, ICE candidates, and stop
// notifications go through relayToOthers in room_ws.go as verbatim
// passthrough; only the answer needs handling here because it is
// point-to-point. SDP and candidate payloads are never parsed — the
// endpoints own the negotiation protocol.

// relayedAnswer is what the broadcaster receives; the targetId is consumed
// by the relay and not forwarded.
type relayedAnswer struct {
	Answer   json.RawMessage `json:"answer"`
	SenderID string          `json:"senderId"`
}

// handleShareAnswer delivers an answer to exactly the named target
// connection, never to the rest of the room.
func (h *RoomWSHandler) handleShareAnswer(c *hub.Client, data json.RawMessage) {
	var p shareAnswerPayload
	if err := json.Unmarshal(data, &p); err != nil || p.RoomID == "" || p.TargetID == "" {
		log.Printf("[Signal] Dropping invalid screen-share-answer from %s", c.ID)
		return
	}
	senderID := p.SenderID
	if senderID == "" {
		senderID = c.ID
	}

	frame := encodeEvent(EventShareAnswer, relayedAnswer{
		Answer:   p.Answer,
		SenderID: senderID,
	})
	if frame == nil {
		return
	}

	if err := h.hub.SendTo(p.RoomID, p.TargetID, frame); err != nil {
		if errors.Is(err, hub.ErrNoSuchTarget) {
			log.Printf("[Signal] Answer target %s not in room %s, dropped", p.TargetID, p.RoomID)
			return
		}
		log.Printf("[Signal] Failed to relay answer to %s: %v", p.TargetID, err)
	}
}
