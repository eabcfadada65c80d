// Watchparty - Synchronized Group Playback for Podcast Communities
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchparty

package api

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	gorillaws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/watchparty/internal/models"
	"github.com/tomtom215/watchparty/internal/websocket"
)

// dialRoom opens the room stream for userID.
func (s *testServer) dialRoom(t *testing.T, roomID, userID string, header http.Header) (*gorillaws.Conn, *http.Response, error) {
	t.Helper()
	u := "ws" + strings.TrimPrefix(s.URL, "http") + "/api/v1/rooms/" + roomID + "/ws?access_token=" + s.token(t, userID)
	conn, resp, err := gorillaws.DefaultDialer.Dial(u, header)
	if conn != nil {
		t.Cleanup(func() { _ = conn.Close() })
	}
	return conn, resp, err
}

// readUntil reads stream messages until one of type kind arrives.
func readUntil(t *testing.T, conn *gorillaws.Conn, kind string) websocket.Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var msg websocket.Message
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type == kind {
			return msg
		}
	}
}

func TestRoomStream_ReceivesEvents(t *testing.T) {
	s := newTestServer(t)
	room := s.createRoom(t, "host", false)
	s.join(t, room, "guest")

	conn, _, err := s.dialRoom(t, room.ID, "guest", nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return s.hub.RoomClientCount(room.ID) == 1 },
		2*time.Second, 10*time.Millisecond)

	res := s.do(t, http.MethodPost, "/api/v1/rooms/"+room.ID+"/sync", s.token(t, "host"), map[string]interface{}{
		"position":  12,
		"isPlaying": true,
		"eventType": "PLAY",
	})
	require.Equal(t, http.StatusOK, res.status)

	msg := readUntil(t, conn, "sync")
	var event models.PlaybackSyncEvent
	require.NoError(t, json.Unmarshal(msg.Data, &event))
	assert.Equal(t, float64(12), event.Position)
	assert.Equal(t, models.SyncEventPlay, event.EventType)
	assert.Equal(t, "host", event.UserID)

	res = s.do(t, http.MethodPost, "/api/v1/rooms/"+room.ID+"/messages", s.token(t, "host"), map[string]string{"message": "welcome"})
	require.Equal(t, http.StatusCreated, res.status)
	msg = readUntil(t, conn, "chat")
	var chat models.ChatMessage
	require.NoError(t, json.Unmarshal(msg.Data, &chat))
	assert.Equal(t, "welcome", chat.Text)
}

func TestRoomStream_KickDisconnects(t *testing.T) {
	s := newTestServer(t)
	room := s.createRoom(t, "host", false)
	s.join(t, room, "guest")

	conn, _, err := s.dialRoom(t, room.ID, "guest", nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return s.hub.RoomClientCount(room.ID) == 1 },
		2*time.Second, 10*time.Millisecond)

	res := s.do(t, http.MethodPost, "/api/v1/rooms/"+room.ID+"/kick", s.token(t, "host"), map[string]string{"userId": "guest"})
	require.Equal(t, http.StatusNoContent, res.status)

	readUntil(t, conn, "kick")
	require.Eventually(t, func() bool { return s.hub.RoomClientCount(room.ID) == 0 },
		2*time.Second, 10*time.Millisecond)
}

func TestRoomStream_DisconnectMarksOffline(t *testing.T) {
	s := newTestServer(t)
	room := s.createRoom(t, "host", false)
	s.join(t, room, "guest")

	conn, _, err := s.dialRoom(t, room.ID, "guest", nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return s.hub.RoomClientCount(room.ID) == 1 },
		2*time.Second, 10*time.Millisecond)
	require.NoError(t, conn.Close())

	require.Eventually(t, func() bool {
		got, err := s.svc.Coordinator.GetRoom(context.Background(), room.ID)
		if err != nil {
			return false
		}
		p, ok := got.Participant("guest")
		return ok && !p.IsOnline
	}, 3*time.Second, 20*time.Millisecond)
}

func TestRoomStream_Rejections(t *testing.T) {
	s := newTestServer(t)
	room := s.createRoom(t, "host", false)

	_, resp, err := s.dialRoom(t, room.ID, "stranger", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	_, resp, err = s.dialRoom(t, "missing-room", "host", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	header := http.Header{}
	header.Set("Origin", "https://evil.example")
	_, resp, err = s.dialRoom(t, room.ID, "host", header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Without a token the upgrade is refused before any lookup.
	u := "ws" + strings.TrimPrefix(s.URL, "http") + "/api/v1/rooms/" + room.ID + "/ws"
	_, resp, err = gorillaws.DefaultDialer.Dial(u, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCheckOrigin(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		host    string
		want    bool
	}{
		{"no origin header", nil, "", "example.com", true},
		{"same host", nil, "https://example.com", "example.com", true},
		{"other host", nil, "https://evil.example", "example.com", false},
		{"listed origin", []string{"https://app.example"}, "https://app.example", "api.example", true},
		{"unlisted origin", []string{"https://app.example"}, "https://evil.example", "api.example", false},
		{"wildcard", []string{"*"}, "https://anything.example", "api.example", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &Handler{wsOrigins: tt.allowed}
			r, err := http.NewRequest(http.MethodGet, "http://"+tt.host+"/ws", nil)
			require.NoError(t, err)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.want, h.checkOrigin(r))
		})
	}
}
