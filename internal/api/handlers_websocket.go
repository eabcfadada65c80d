// Watchparty - Synchronized Group Playback for Podcast Communities
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchparty

package api

import (
	"net/http"
	"net/url"
	"strings"

	gorillaws "github.com/gorilla/websocket"

	"github.com/tomtom215/watchparty/internal/logging"
	"github.com/tomtom215/watchparty/internal/websocket"
)

// RoomStream handles GET /api/v1/rooms/{roomID}/ws. Only participants of an
// active room may subscribe; the connection then receives every event
// published for the room until it leaves, is kicked or the room closes.
func (h *Handler) RoomStream(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	if h.hub == nil {
		NewResponseWriter(w, r).Error(http.StatusServiceUnavailable, ErrCodeNotReady, "room streams are not available")
		return
	}

	id := roomID(r)
	room, err := h.svc.Coordinator.GetRoom(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if !room.Active {
		NewResponseWriter(w, r).NotFound("room " + id + " has ended")
		return
	}
	if !room.HasParticipant(caller.UserID) {
		NewResponseWriter(w, r).Forbidden("join the room before opening its stream")
		return
	}

	upgrader := gorillaws.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		logging.CtxWarn(r.Context()).Err(err).Str("room_id", id).Msg("Websocket upgrade failed")
		return
	}

	websocket.NewClient(h.hub, conn, id, caller.UserID).Start()
	logging.ForRoom(r.Context(), "api", id, caller.UserID).Debug().Msg("Room stream opened")
}

// checkOrigin allows requests without an Origin header, origins listed in
// wsOrigins ("*" allows all) and, when the list is empty, same-host origins.
func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if len(h.wsOrigins) == 0 {
		u, err := url.Parse(origin)
		return err == nil && strings.EqualFold(u.Host, r.Host)
	}
	for _, allowed := range h.wsOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}
