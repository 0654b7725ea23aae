package cache

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"collabboard-backend/internal/model"
)

// recentMessageCap bounds the cached tail of a room's chat history.
const recentMessageCap = 100

// RedisClient wraps Redis for the recent-message cache. All methods are
// nil-safe so the server runs without Redis configured.
type RedisClient struct {
	client *redis.Client
}

// NewRedisClient connects and pings Redis.
func NewRedisClient(addr, password string, db int) (*RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	log.Printf("[Redis] Connected to %s", addr)
	return &RedisClient{client: client}, nil
}

func messagesKey(roomID string) string {
	return "room:" + roomID + ":messages"
}

// PushMessage appends a message to the room's cached tail and trims it to
// the newest recentMessageCap entries.
func (r *RedisClient) PushMessage(ctx context.Context, roomID string, msg *model.ChatMessage) error {
	if r == nil {
		return nil
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	key := messagesKey(roomID)
	pipe := r.client.TxPipeline()
	pipe.RPush(ctx, key, data)
	pipe.LTrim(ctx, key, -recentMessageCap, -1)
	pipe.Expire(ctx, key, 24*time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("[Redis] Failed to cache message for room %s: %v", roomID, err)
		return err
	}
	return nil
}

// RecentMessages returns the cached tail in creation order. An empty slice
// with a nil error means a cache miss.
func (r *RedisClient) RecentMessages(ctx context.Context, roomID string) ([]model.ChatMessage, error) {
	if r == nil {
		return nil, nil
	}

	results, err := r.client.LRange(ctx, messagesKey(roomID), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	messages := make([]model.ChatMessage, 0, len(results))
	for _, data := range results {
		var m model.ChatMessage
		if err := json.Unmarshal([]byte(data), &m); err != nil {
			continue
		}
		messages = append(messages, m)
	}
	return messages, nil
}

// DeleteRoom drops a room's cached messages.
func (r *RedisClient) DeleteRoom(ctx context.Context, roomID string) error {
	if r == nil {
		return nil
	}
	return r.client.Del(ctx, messagesKey(roomID)).Err()
}

// Health checks the connection.
func (r *RedisClient) Health(ctx context.Context) error {
	if r == nil {
		return nil
	}
	return r.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (r *RedisClient) Close() error {
	if r == nil {
		return nil
	}
	return r.client.Close()
}
