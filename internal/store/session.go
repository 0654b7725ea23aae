package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"collabboard-backend/internal/model"
)

// SessionStore persists whiteboard sessions. One session row per room,
// created lazily on first write; strokes are append-only and replayed in
// insertion order.
type SessionStore struct {
	db *gorm.DB
}

// NewSessionStore creates a SessionStore.
func NewSessionStore(db *gorm.DB) *SessionStore {
	return &SessionStore{db: db}
}

// getOrCreateSession fetches the session row for a room, creating it when
// absent.
func (s *SessionStore) getOrCreateSession(ctx context.Context, roomID string) (*model.WhiteboardSession, error) {
	var session model.WhiteboardSession
	err := s.db.WithContext(ctx).
		Where(model.WhiteboardSession{RoomID: roomID}).
		Attrs(model.WhiteboardSession{}).
		FirstOrCreate(&session).Error
	if err != nil {
		return nil, fmt.Errorf("get or create session for room %s: %w", roomID, err)
	}
	return &session, nil
}

// AppendStroke appends a completed stroke to the room's session.
func (s *SessionStore) AppendStroke(ctx context.Context, roomID string, stroke model.Stroke) error {
	session, err := s.getOrCreateSession(ctx, roomID)
	if err != nil {
		return err
	}

	points, err := json.Marshal(stroke.Points)
	if err != nil {
		return fmt.Errorf("marshal stroke points: %w", err)
	}

	row := model.WhiteboardStroke{
		SessionID: session.ID,
		Tool:      stroke.Tool,
		Color:     stroke.Color,
		Size:      stroke.Size,
		Points:    string(points),
		AuthorID:  stroke.AuthorID,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("append stroke for room %s: %w", roomID, err)
	}
	return nil
}

// ClearStrokes truncates the room's stroke log. A room with no session is
// already clear.
func (s *SessionStore) ClearStrokes(ctx context.Context, roomID string) error {
	var session model.WhiteboardSession
	err := s.db.WithContext(ctx).Where("room_id = ?", roomID).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load session for room %s: %w", roomID, err)
	}

	if err := s.db.WithContext(ctx).
		Where("session_id = ?", session.ID).
		Delete(&model.WhiteboardStroke{}).Error; err != nil {
		return fmt.Errorf("clear strokes for room %s: %w", roomID, err)
	}
	return nil
}

// SaveSnapshot stores the opaque raster blob for fast cold-load.
func (s *SessionStore) SaveSnapshot(ctx context.Context, roomID, snapshot string) error {
	session, err := s.getOrCreateSession(ctx, roomID)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).
		Model(session).
		Update("snapshot", snapshot).Error; err != nil {
		return fmt.Errorf("save snapshot for room %s: %w", roomID, err)
	}
	return nil
}

// LoadSession returns the full replay payload. A room with no session
// yields an empty stroke list, not an error.
func (s *SessionStore) LoadSession(ctx context.Context, roomID string) (*model.SessionData, error) {
	data := &model.SessionData{RoomID: roomID, Strokes: []model.Stroke{}}

	var session model.WhiteboardSession
	err := s.db.WithContext(ctx).Where("room_id = ?", roomID).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return data, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session for room %s: %w", roomID, err)
	}
	data.Snapshot = session.Snapshot

	var rows []model.WhiteboardStroke
	if err := s.db.WithContext(ctx).
		Where("session_id = ?", session.ID).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load strokes for room %s: %w", roomID, err)
	}

	for _, row := range rows {
		var points []model.Point
		if err := json.Unmarshal([]byte(row.Points), &points); err != nil {
			continue
		}
		data.Strokes = append(data.Strokes, model.Stroke{
			Tool:      row.Tool,
			Color:     row.Color,
			Size:      row.Size,
			Points:    points,
			AuthorID:  row.AuthorID,
			CreatedAt: row.CreatedAt,
		})
	}
	return data, nil
}

// RecordEvent appends an uninterpreted event envelope to the session's
// recording log.
func (s *SessionStore) RecordEvent(ctx context.Context, roomID, eventType string, payload json.RawMessage) error {
	session, err := s.getOrCreateSession(ctx, roomID)
	if err != nil {
		return err
	}

	row := model.SessionRecording{
		SessionID: session.ID,
		EventType: eventType,
		Payload:   string(payload),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("record event for room %s: %w", roomID, err)
	}
	return nil
}

// DeleteRoom removes a room's session and everything under it. Called when
// the owning room is deleted by the external directory.
func (s *SessionStore) DeleteRoom(ctx context.Context, roomID string) error {
	var session model.WhiteboardSession
	err := s.db.WithContext(ctx).Where("room_id = ?", roomID).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load session for room %s: %w", roomID, err)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", session.ID).Delete(&model.WhiteboardStroke{}).Error; err != nil {
			return err
		}
		if err := tx.Where("session_id = ?", session.ID).Delete(&model.SessionRecording{}).Error; err != nil {
			return err
		}
		return tx.Delete(&session).Error
	})
}
