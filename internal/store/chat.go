package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"collabboard-backend/internal/model"
)

// recentMessageLimit caps how much chat history a room replay returns.
const recentMessageLimit = 100

// ChatStore persists chat messages, append-only per room.
type ChatStore struct {
	db *gorm.DB
}

// NewChatStore creates a ChatStore.
func NewChatStore(db *gorm.DB) *ChatStore {
	return &ChatStore{db: db}
}

// SaveMessage appends a message and returns the stored row.
func (s *ChatStore) SaveMessage(ctx context.Context, roomID, senderID, senderName, text string) (*model.ChatMessage, error) {
	row := model.ChatMessage{
		RoomID:     roomID,
		SenderID:   senderID,
		SenderName: senderName,
		Text:       text,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, fmt.Errorf("save message for room %s: %w", roomID, err)
	}
	return &row, nil
}

// RecentMessages returns the newest messages for a room, capped at
// recentMessageLimit, in ascending creation order.
func (s *ChatStore) RecentMessages(ctx context.Context, roomID string) ([]model.ChatMessage, error) {
	var rows []model.ChatMessage
	if err := s.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("id DESC").
		Limit(recentMessageLimit).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load messages for room %s: %w", roomID, err)
	}

	// Reverse the newest-first page into creation order.
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return rows, nil
}

// DeleteRoom removes a room's chat history.
func (s *ChatStore) DeleteRoom(ctx context.Context, roomID string) error {
	if err := s.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Delete(&model.ChatMessage{}).Error; err != nil {
		return fmt.Errorf("delete messages for room %s: %w", roomID, err)
	}
	return nil
}
