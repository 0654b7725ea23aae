package handler

import (
	"encoding/json"
	"log"
)

// EventType tags every message on the wire.
type EventType string

// Client → server events.
const (
	EventJoin         EventType = "join"
	EventLeave        EventType = "leave"
	EventGetUsers     EventType = "get-users"
	EventDrawStart    EventType = "draw-start"
	EventDrawMove     EventType = "draw-move"
	EventDrawStroke   EventType = "draw-stroke"
	EventErase        EventType = "erase"
	EventClearBoard   EventType = "clear-board"
	EventUndo         EventType = "undo"
	EventRedo         EventType = "redo"
	EventSaveSnapshot EventType = "save-snapshot"
	EventLoadSession  EventType = "load-session"
	EventRecordEvent  EventType = "record-event"
	EventSendMessage  EventType = "send-message"
	EventLoadMessages EventType = "load-messages"
	EventShareOffer   EventType = "screen-share-offer"
	EventShareAnswer  EventType = "screen-share-answer"
	EventShareICE     EventType = "screen-share-ice-candidate"
	EventShareStop    EventType = "screen-share-stop"
	EventFileShared   EventType = "file-shared"
)

// Server → client events.
const (
	EventSessionLoaded  EventType = "session-loaded"
	EventMessagesLoaded EventType = "messages-loaded"
	EventReceiveMessage EventType = "receive-message"
)

// Envelope is the wire frame: a tag plus an event-specific payload.
type Envelope struct {
	Event EventType       `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// encodeEvent frames an outbound event. A marshal failure here is a
// programming error; it is logged and yields nil.
func encodeEvent(event EventType, payload any) []byte {
	var data json.RawMessage
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			log.Printf("[WS] Failed to marshal %s payload: %v", event, err)
			return nil
		}
		data = raw
	}
	out, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		log.Printf("[WS] Failed to marshal %s envelope: %v", event, err)
		return nil
	}
	return out
}

// roomScoped is the minimal shape shared by every inbound payload.
type roomScoped struct {
	RoomID string `json:"roomId"`
}

type joinPayload struct {
	RoomID      string `json:"roomId"`
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

type chatSendPayload struct {
	RoomID   string `json:"roomId"`
	Text     string `json:"text"`
	Sender   string `json:"sender"`
	SenderID string `json:"senderId"`
}

type snapshotPayload struct {
	RoomID   string `json:"roomId"`
	Snapshot string `json:"snapshot"`
}

type recordPayload struct {
	RoomID string `json:"roomId"`
	Event  struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	} `json:"event"`
}

type shareAnswerPayload struct {
	RoomID   string          `json:"roomId"`
	Answer   json.RawMessage `json:"answer"`
	SenderID string          `json:"senderId"`
	TargetID string          `json:"targetId"`
}
