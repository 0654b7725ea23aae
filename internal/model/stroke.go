package model

import "time"

// Tool values accepted for a stroke.
const (
	ToolPencil = "pencil"
	ToolEraser = "eraser"
)

// ValidTool reports whether t is a known drawing tool.
func ValidTool(t string) bool {
	return t == ToolPencil || t == ToolEraser
}

// Point is one sample of a stroke path.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Stroke is the wire form of a completed gesture, as sent by clients in
// draw-stroke and returned by session-loaded.
type Stroke struct {
	Tool      string    `json:"tool"`
	Color     string    `json:"color,omitempty"`
	Size      int       `json:"size,omitempty"`
	Points    []Point   `json:"points"`
	AuthorID  string    `json:"userId,omitempty"`
	CreatedAt time.Time `json:"timestamp,omitempty"`
}

// SessionData is the replay payload served by load-session.
type SessionData struct {
	RoomID   string   `json:"roomId"`
	Strokes  []Stroke `json:"strokes"`
	Snapshot *string  `json:"snapshot,omitempty"`
}
