package model

import (
	"time"
)

// WhiteboardSession is the durable per-room record. Created lazily on the
// first write for a room; RoomID is the opaque identifier owned by the
// external room directory.
type WhiteboardSession struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	RoomID    string    `gorm:"uniqueIndex;not null" json:"room_id"`
	Snapshot  *string   `gorm:"type:text" json:"snapshot,omitempty"` // opaque raster blob (data URL)
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (WhiteboardSession) TableName() string {
	return "whiteboard_sessions"
}

// WhiteboardStroke is one completed drawing gesture. Immutable once
// persisted; replay order is insertion order within a session.
type WhiteboardStroke struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID int64     `gorm:"not null;index:idx_stroke_session_created" json:"session_id"`
	Tool      string    `gorm:"not null" json:"tool"` // pencil | eraser
	Color     string    `gorm:"default:'#000000'" json:"color"`
	Size      int       `gorm:"default:3" json:"size"`
	Points    string    `gorm:"type:jsonb;not null" json:"points"` // ordered JSON array of {x,y}
	AuthorID  string    `json:"author_id"`
	CreatedAt time.Time `gorm:"autoCreateTime;index:idx_stroke_session_created" json:"created_at"`
}

func (WhiteboardStroke) TableName() string {
	return "whiteboard_strokes"
}

// SessionRecording is one entry of the per-session recording log. The
// payload is never interpreted by the server.
type SessionRecording struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID int64     `gorm:"not null;index" json:"session_id"`
	EventType string    `gorm:"not null" json:"event_type"`
	Payload   string    `gorm:"type:jsonb" json:"payload"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (SessionRecording) TableName() string {
	return "session_recordings"
}

// ChatMessage is one persisted chat line, indexed by room and creation time.
type ChatMessage struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	RoomID     string    `gorm:"not null;index:idx_chat_room_created" json:"room_id"`
	SenderID   string    `gorm:"not null" json:"sender_id"`
	SenderName string    `gorm:"not null" json:"sender_name"`
	Text       string    `gorm:"not null" json:"text"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index:idx_chat_room_created" json:"created_at"`
}

func (ChatMessage) TableName() string {
	return "chat_messages"
}
