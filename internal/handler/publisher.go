package handler

import (
	"collabboard-backend/internal/hub"
)

// hubPublisher adapts the broadcast fabric to the presence registry's
// Publisher interface, handling the protocol framing the registry does not
// know about.
type hubPublisher struct {
	hub *hub.Hub
}

func (p hubPublisher) ToRoom(roomID, event string, payload any) {
	if data := encodeEvent(EventType(event), payload); data != nil {
		p.hub.Broadcast(roomID, data, "")
	}
}

func (p hubPublisher) ToRoomExcept(roomID, exceptConnID, event string, payload any) {
	if data := encodeEvent(EventType(event), payload); data != nil {
		p.hub.Broadcast(roomID, data, exceptConnID)
	}
}
