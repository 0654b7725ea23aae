package handler

import (
	"context"
	"encoding/json"
	"log"

	"collabboard-backend/internal/hub"
	"collabboard-backend/internal/model"
)

// Drawing relay. Live streaming (draw-start/draw-move) goes through
// relayVolatile in room_ws.go and never touches this file; everything here
// is the durable side.

// strokePayload carries the authoritative completed stroke.
type strokePayload struct {
	RoomID string       `json:"roomId"`
	Stroke model.Stroke `json:"stroke"`
}

// handleDrawStroke persists a completed gesture. Peers already rendered it
// live, so there is no re-broadcast; persistence runs off the relay path
// on the room's ordered queue and its failure only shows up in the log.
func (h *RoomWSHandler) handleDrawStroke(c *hub.Client, data json.RawMessage) {
	var p strokePayload
	if err := json.Unmarshal(data, &p); err != nil || p.RoomID == "" {
		log.Printf("[Drawing] Dropping invalid draw-stroke from %s", c.ID)
		return
	}
	if !model.ValidTool(p.Stroke.Tool) || len(p.Stroke.Points) == 0 {
		log.Printf("[Drawing] Dropping draw-stroke with bad tool/points from %s", c.ID)
		return
	}
	if p.Stroke.AuthorID == "" {
		p.Stroke.AuthorID = c.UserID
	}

	h.persist.enqueue(p.RoomID, func(ctx context.Context) {
		if err := h.sessions.AppendStroke(ctx, p.RoomID, p.Stroke); err != nil {
			log.Printf("[Drawing] Failed to save stroke for room %s: %v", p.RoomID, err)
		}
	})
}

// handleClearBoard broadcasts to the whole room, sender included, then
// truncates the stroke log. The truncate goes through the same room queue
// as stroke appends, so it can never overtake an earlier draw-stroke. The
// visual clear is not rolled back if the truncate fails; the next
// load-session is the recovery path.
func (h *RoomWSHandler) handleClearBoard(c *hub.Client, data json.RawMessage) {
	roomID, ok := h.roomIDOf(c, data)
	if !ok {
		return
	}

	if frame := encodeEvent(EventClearBoard, nil); frame != nil {
		h.hub.Broadcast(roomID, frame, "")
	}

	h.persist.enqueue(roomID, func(ctx context.Context) {
		if err := h.sessions.ClearStrokes(ctx, roomID); err != nil {
			log.Printf("[Drawing] Failed to clear strokes for room %s: %v", roomID, err)
		}
	})
}

func (h *RoomWSHandler) handleSaveSnapshot(c *hub.Client, data json.RawMessage) {
	var p snapshotPayload
	if err := json.Unmarshal(data, &p); err != nil || p.RoomID == "" {
		log.Printf("[Drawing] Dropping invalid save-snapshot from %s", c.ID)
		return
	}

	h.persist.enqueue(p.RoomID, func(ctx context.Context) {
		if err := h.sessions.SaveSnapshot(ctx, p.RoomID, p.Snapshot); err != nil {
			log.Printf("[Drawing] Failed to save snapshot for room %s: %v", p.RoomID, err)
		}
	})
}

// handleLoadSession serves the full replay to the requester only. Absent
// sessions and store failures both come back as an empty stroke list.
func (h *RoomWSHandler) handleLoadSession(c *hub.Client, data json.RawMessage) {
	roomID, ok := h.roomIDOf(c, data)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	session, err := h.sessions.LoadSession(ctx, roomID)
	if err != nil {
		log.Printf("[Drawing] Failed to load session for room %s: %v", roomID, err)
		session = &model.SessionData{RoomID: roomID, Strokes: []model.Stroke{}}
	}
	h.reply(c, EventSessionLoaded, session)
}

// handleRecordEvent appends an uninterpreted envelope to the recording log.
func (h *RoomWSHandler) handleRecordEvent(c *hub.Client, data json.RawMessage) {
	var p recordPayload
	if err := json.Unmarshal(data, &p); err != nil || p.RoomID == "" || p.Event.Type == "" {
		log.Printf("[Drawing] Dropping invalid record-event from %s", c.ID)
		return
	}

	h.persist.enqueue(p.RoomID, func(ctx context.Context) {
		if err := h.sessions.RecordEvent(ctx, p.RoomID, p.Event.Type, p.Event.Data); err != nil {
			log.Printf("[Drawing] Failed to record event for room %s: %v", p.RoomID, err)
		}
	})
}
