package directory

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDirectoryServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/rooms", func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Name   string `json:"name"`
			HostID string `json:"hostId"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "design review", in.Name)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{"roomId": "room-42"})
	})
	mux.HandleFunc("GET /api/rooms/room-42/members", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(RoomMembers{
			HostID:         "u-host",
			ParticipantIDs: []string{"u-1", "u-2"},
		})
	})
	return httptest.NewServer(mux)
}

func TestClient_CreateRoom(t *testing.T) {
	srv := newDirectoryServer(t)
	defer srv.Close()
	c := New(srv.URL, time.Second)

	roomID, err := c.CreateRoom(context.Background(), "design review", "u-host")
	require.NoError(t, err)
	assert.Equal(t, "room-42", roomID)
}

func TestClient_CreateRoomErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	c := New(srv.URL, time.Second)

	_, err := c.CreateRoom(context.Background(), "design review", "u-host")
	assert.Error(t, err)
}

func TestClient_RoomMembers(t *testing.T) {
	srv := newDirectoryServer(t)
	defer srv.Close()
	c := New(srv.URL, time.Second)

	members, err := c.RoomMembers(context.Background(), "room-42")
	require.NoError(t, err)
	assert.Equal(t, "u-host", members.HostID)
	assert.Equal(t, []string{"u-1", "u-2"}, members.ParticipantIDs)
}

func TestClient_ClassifyRole(t *testing.T) {
	srv := newDirectoryServer(t)
	defer srv.Close()
	c := New(srv.URL, time.Second)

	tests := []struct {
		name   string
		client *Client
		roomID string
		userID string
		want   string
	}{
		{name: "host", client: c, roomID: "room-42", userID: "u-host", want: "host"},
		{name: "participant", client: c, roomID: "room-42", userID: "u-1", want: "participant"},
		{name: "directory error degrades to empty", client: c, roomID: "missing", userID: "u-1", want: ""},
		{name: "nil client", client: nil, roomID: "room-42", userID: "u-1", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.client.ClassifyRole(context.Background(), tt.roomID, tt.userID))
		})
	}
}
