// Watchparty - Synchronized Group Playback for Podcast Communities
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchparty

package api

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/watchparty/internal/models"
)

func chatOnly(msgs []*models.ChatMessage) []*models.ChatMessage {
	var out []*models.ChatMessage
	for _, m := range msgs {
		if m.Type == models.MessageTypeChat {
			out = append(out, m)
		}
	}
	return out
}

func TestSendAndListMessages(t *testing.T) {
	s := newTestServer(t)
	room := s.createRoom(t, "host", false)
	s.join(t, room, "guest")
	guest := s.token(t, "guest")

	res := s.do(t, http.MethodPost, "/api/v1/rooms/"+room.ID+"/messages", guest, map[string]string{"message": "  hello  "})
	require.Equal(t, http.StatusCreated, res.status, string(res.raw))
	var msg models.ChatMessage
	res.decode(t, &msg)
	assert.Equal(t, "hello", msg.Text)
	assert.Equal(t, "guest", msg.UserID)
	assert.Equal(t, "user guest", msg.Username)
	assert.Equal(t, models.MessageTypeChat, msg.Type)

	res = s.do(t, http.MethodGet, "/api/v1/rooms/"+room.ID+"/messages", guest, nil)
	require.Equal(t, http.StatusOK, res.status)
	var msgs []*models.ChatMessage
	res.decode(t, &msgs)
	chat := chatOnly(msgs)
	require.Len(t, chat, 1)
	assert.Equal(t, msg.ID, chat[0].ID)

	before := queryStamp(time.Now().Add(-time.Hour))
	res = s.do(t, http.MethodGet, "/api/v1/rooms/"+room.ID+"/messages?before="+before, guest, nil)
	require.Equal(t, http.StatusOK, res.status)
	res.decode(t, &msgs)
	assert.Empty(t, msgs)

	res = s.do(t, http.MethodGet, "/api/v1/rooms/"+room.ID+"/messages", s.token(t, "stranger"), nil)
	assert.Equal(t, http.StatusForbidden, res.status)

	res = s.do(t, http.MethodGet, "/api/v1/rooms/"+room.ID+"/messages?limit=500", guest, nil)
	assert.Equal(t, http.StatusBadRequest, res.status)
	res = s.do(t, http.MethodGet, "/api/v1/rooms/"+room.ID+"/messages?before=yesterday", guest, nil)
	assert.Equal(t, http.StatusBadRequest, res.status)
}

// queryStamp formats t for a query string.
func queryStamp(t time.Time) string {
	return strings.ReplaceAll(t.UTC().Format(time.RFC3339Nano), "+", "%2B")
}

func TestSendMessage_Errors(t *testing.T) {
	s := newTestServer(t)
	room := s.createRoom(t, "host", false)
	host := s.token(t, "host")
	path := "/api/v1/rooms/" + room.ID + "/messages"

	res := s.do(t, http.MethodPost, path, host, map[string]string{"message": "   "})
	assert.Equal(t, http.StatusBadRequest, res.status)
	assert.Equal(t, ErrCodeValidation, res.code())

	res = s.do(t, http.MethodPost, path, host, map[string]string{"message": strings.Repeat("a", 2001)})
	assert.Equal(t, http.StatusBadRequest, res.status)

	res = s.do(t, http.MethodPost, path, s.token(t, "stranger"), map[string]string{"message": "hi"})
	assert.Equal(t, http.StatusForbidden, res.status)

	res = s.do(t, http.MethodPatch, "/api/v1/rooms/"+room.ID+"/settings", host, map[string]bool{"allowChat": false})
	require.Equal(t, http.StatusOK, res.status)
	res = s.do(t, http.MethodPost, path, host, map[string]string{"message": "hi"})
	assert.Equal(t, http.StatusForbidden, res.status)
}

func TestSendMessage_RateLimited(t *testing.T) {
	s := newTestServer(t)
	room := s.createRoom(t, "host", false)
	host := s.token(t, "host")

	var last result
	for i := 0; i < 20; i++ {
		last = s.do(t, http.MethodPost, "/api/v1/rooms/"+room.ID+"/messages", host, map[string]string{"message": "spam"})
		if last.status != http.StatusCreated {
			break
		}
	}
	assert.Equal(t, http.StatusTooManyRequests, last.status)
	assert.Equal(t, ErrCodeRateLimited, last.code())
	assert.Equal(t, "1", last.header.Get("Retry-After"))
}

func TestSendReaction(t *testing.T) {
	s := newTestServer(t)
	room := s.createRoom(t, "host", false)

	res := s.do(t, http.MethodPost, "/api/v1/rooms/"+room.ID+"/reactions", s.token(t, "host"), map[string]string{"reaction": "🎧"})
	require.Equal(t, http.StatusCreated, res.status, string(res.raw))
	var msg models.ChatMessage
	res.decode(t, &msg)
	assert.Equal(t, models.MessageTypeReaction, msg.Type)
	assert.Equal(t, "🎧", msg.Reaction)

	res = s.do(t, http.MethodPost, "/api/v1/rooms/"+room.ID+"/reactions", s.token(t, "host"), map[string]string{"reaction": strings.Repeat("x", 17)})
	assert.Equal(t, http.StatusBadRequest, res.status)
}

func TestDeleteMessage(t *testing.T) {
	s := newTestServer(t)
	room := s.createRoom(t, "host", false)
	s.join(t, room, "guest")

	res := s.do(t, http.MethodPost, "/api/v1/rooms/"+room.ID+"/messages", s.token(t, "guest"), map[string]string{"message": "oops"})
	require.Equal(t, http.StatusCreated, res.status)
	var msg models.ChatMessage
	res.decode(t, &msg)
	path := "/api/v1/rooms/" + room.ID + "/messages/" + msg.ID

	// Only the author may delete, not even the host.
	res = s.do(t, http.MethodDelete, path, s.token(t, "host"), nil)
	assert.Equal(t, http.StatusForbidden, res.status)

	res = s.do(t, http.MethodDelete, path, s.token(t, "guest"), nil)
	assert.Equal(t, http.StatusNoContent, res.status)

	res = s.do(t, http.MethodDelete, path, s.token(t, "guest"), nil)
	assert.Equal(t, http.StatusNotFound, res.status)
}

func TestSyncPlayback(t *testing.T) {
	s := newTestServer(t)
	room := s.createRoom(t, "host", false)
	s.join(t, room, "guest")
	path := "/api/v1/rooms/" + room.ID + "/sync"

	res := s.do(t, http.MethodPost, path, s.token(t, "host"), map[string]interface{}{
		"position":  42.5,
		"isPlaying": true,
		"eventType": "PLAY",
	})
	require.Equal(t, http.StatusOK, res.status, string(res.raw))
	var event models.PlaybackSyncEvent
	res.decode(t, &event)
	assert.Equal(t, room.ID, event.RoomID)
	assert.Equal(t, "host", event.UserID)
	assert.Equal(t, 42.5, event.Position)
	assert.True(t, event.IsPlaying)
	assert.Equal(t, models.SyncEventPlay, event.EventType)

	// Host-only control is on by default.
	res = s.do(t, http.MethodPost, path, s.token(t, "guest"), map[string]interface{}{"position": 1, "eventType": "SEEK"})
	assert.Equal(t, http.StatusForbidden, res.status)

	res = s.do(t, http.MethodPost, path, s.token(t, "host"), map[string]interface{}{"position": -1, "eventType": "SEEK"})
	assert.Equal(t, http.StatusBadRequest, res.status)
	res = s.do(t, http.MethodPost, path, s.token(t, "host"), map[string]interface{}{"position": 1, "eventType": "REWIND"})
	assert.Equal(t, http.StatusBadRequest, res.status)

	res = s.do(t, http.MethodGet, path, s.token(t, "guest"), nil)
	require.Equal(t, http.StatusOK, res.status)
	var snap struct {
		Room models.Room              `json:"room"`
		Sync models.PlaybackSyncEvent `json:"sync"`
	}
	res.decode(t, &snap)
	assert.Equal(t, 42.5, snap.Room.CurrentPosition)
	assert.True(t, snap.Room.IsPlaying)
	assert.Equal(t, models.SyncEventRequested, snap.Sync.EventType)
	assert.Equal(t, 42.5, snap.Sync.Position)
}

func TestSyncPlayback_ClosedRoom(t *testing.T) {
	s := newTestServer(t)
	room := s.createRoom(t, "host", false)
	res := s.do(t, http.MethodPost, "/api/v1/rooms/"+room.ID+"/close", s.token(t, "host"), nil)
	require.Equal(t, http.StatusNoContent, res.status)

	res = s.do(t, http.MethodPost, "/api/v1/rooms/"+room.ID+"/sync", s.token(t, "host"), map[string]interface{}{"position": 1, "eventType": "PAUSE"})
	assert.Equal(t, http.StatusNotFound, res.status)
	res = s.do(t, http.MethodGet, "/api/v1/rooms/"+room.ID+"/sync", s.token(t, "host"), nil)
	assert.Equal(t, http.StatusNotFound, res.status)
}
