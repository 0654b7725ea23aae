package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// RoomMembers is the durable participant record held by the external
// room-CRUD service. Live membership is the presence registry's job; this
// record only classifies host vs participant for display.
type RoomMembers struct {
	HostID         string   `json:"hostId"`
	ParticipantIDs []string `json:"participantIds"`
}

// Client talks to the external room directory over REST. A nil *Client is
// a valid no-op collaborator.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a directory client for the given base URL.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// CreateRoom registers a room and returns its id.
func (c *Client) CreateRoom(ctx context.Context, name, hostID string) (string, error) {
	body, err := json.Marshal(map[string]string{"name": name, "hostId": hostID})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/rooms", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("create room: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("create room: unexpected status %d", resp.StatusCode)
	}

	var out struct {
		RoomID string `json:"roomId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("create room: decode response: %w", err)
	}
	return out.RoomID, nil
}

// RoomMembers fetches the durable participant record for a room.
func (c *Client) RoomMembers(ctx context.Context, roomID string) (*RoomMembers, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/rooms/"+roomID+"/members", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("room members: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("room members: unexpected status %d", resp.StatusCode)
	}

	var out RoomMembers
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("room members: decode response: %w", err)
	}
	return &out, nil
}

// ClassifyRole returns "host" or "participant" for a user, or "" when the
// directory is unavailable. Nil-safe.
func (c *Client) ClassifyRole(ctx context.Context, roomID, userID string) string {
	if c == nil {
		return ""
	}
	members, err := c.RoomMembers(ctx, roomID)
	if err != nil {
		return ""
	}
	if members.HostID == userID {
		return "host"
	}
	return "participant"
}
