// Watchparty - Synchronized Group Playback for Podcast Communities
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchparty

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/watchparty/internal/models"
	"github.com/tomtom215/watchparty/internal/party"
)

// syncSnapshot answers GET /api/v1/rooms/{roomID}/sync.
type syncSnapshot struct {
	Room *models.Room              `json:"room"`
	Sync *models.PlaybackSyncEvent `json:"sync"`
}

// SyncPlayback handles POST /api/v1/rooms/{roomID}/sync.
func (h *Handler) SyncPlayback(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	var req party.SyncRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	event, err := h.svc.Sync.SyncPlayback(r.Context(), caller, roomID(r), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	WriteSuccess(w, r, event)
}

// RequestSync handles GET /api/v1/rooms/{roomID}/sync.
func (h *Handler) RequestSync(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.caller(w, r); !ok {
		return
	}
	room, event, err := h.svc.Sync.RequestSync(r.Context(), roomID(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	WriteSuccess(w, r, syncSnapshot{Room: room, Sync: event})
}

// ListMessages handles GET /api/v1/rooms/{roomID}/messages?limit=&before=.
func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		respondError(w, r, err)
		return
	}
	before, err := queryTime(r, "before")
	if err != nil {
		respondError(w, r, err)
		return
	}
	msgs, err := h.svc.Chat.ListMessages(r.Context(), caller, roomID(r), limit, before)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if msgs == nil {
		msgs = []*models.ChatMessage{}
	}
	WriteSuccess(w, r, msgs)
}

// SendMessage handles POST /api/v1/rooms/{roomID}/messages. The message is
// stored and then delivered to the room.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	var req sendMessageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	msg, err := h.svc.Chat.Post(r.Context(), caller, roomID(r), req.Message)
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Created(msg)
}

// SendReaction handles POST /api/v1/rooms/{roomID}/reactions.
func (h *Handler) SendReaction(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	var req sendReactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	msg, err := h.svc.Chat.SendReaction(r.Context(), caller, roomID(r), req.Reaction)
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Created(msg)
}

// DeleteMessage handles DELETE /api/v1/rooms/{roomID}/messages/{messageID}.
func (h *Handler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	messageID := chi.URLParam(r, "messageID")
	if err := h.svc.Chat.DeleteMessage(r.Context(), caller, roomID(r), messageID); err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).NoContent()
}
