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

// ListPublicRooms handles GET /api/v1/rooms/public. Authentication is optional.
func (h *Handler) ListPublicRooms(w http.ResponseWriter, r *http.Request) {
	page, size, err := pagination(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	rooms, err := h.svc.Coordinator.ListPublicRooms(r.Context(), page, size)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondRoomPage(w, r, rooms, page, size)
}

// ListMyRooms handles GET /api/v1/rooms/mine.
func (h *Handler) ListMyRooms(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	page, size, err := pagination(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	rooms, err := h.svc.Coordinator.ListMyRooms(r.Context(), caller, page, size)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondRoomPage(w, r, rooms, page, size)
}

func respondRoomPage(w http.ResponseWriter, r *http.Request, rooms []*models.Room, page, size int) {
	if rooms == nil {
		rooms = []*models.Room{}
	}
	NewResponseWriter(w, r).SuccessWithPagination(rooms, &PaginationMeta{
		Page:    page,
		Size:    size,
		Count:   len(rooms),
		HasMore: size > 0 && len(rooms) == size,
	})
}

// CreateRoom handles POST /api/v1/rooms.
func (h *Handler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	var req party.CreateRoomRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	room, err := h.svc.Coordinator.CreateRoom(r.Context(), caller, req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Created(room)
}

// JoinRoom handles POST /api/v1/rooms/join.
func (h *Handler) JoinRoom(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	var req joinRoomRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	room, err := h.svc.Coordinator.JoinRoom(r.Context(), caller, req.Code)
	if err != nil {
		respondError(w, r, err)
		return
	}
	WriteSuccess(w, r, room)
}

// GetRoom handles GET /api/v1/rooms/{roomID}.
func (h *Handler) GetRoom(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.caller(w, r); !ok {
		return
	}
	room, err := h.svc.Coordinator.GetRoom(r.Context(), roomID(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	WriteSuccess(w, r, room)
}

// LeaveRoom handles POST /api/v1/rooms/{roomID}/leave.
func (h *Handler) LeaveRoom(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	if err := h.svc.Coordinator.LeaveRoom(r.Context(), caller, roomID(r)); err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).NoContent()
}

// CloseRoom handles POST /api/v1/rooms/{roomID}/close.
func (h *Handler) CloseRoom(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	if err := h.svc.Coordinator.CloseRoom(r.Context(), caller, roomID(r)); err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).NoContent()
}

// UpdateSettings handles PATCH /api/v1/rooms/{roomID}/settings.
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	var patch party.SettingsPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		respondError(w, r, err)
		return
	}
	room, err := h.svc.Coordinator.UpdateSettings(r.Context(), caller, roomID(r), patch)
	if err != nil {
		respondError(w, r, err)
		return
	}
	WriteSuccess(w, r, room)
}

// ChangeContent handles PUT /api/v1/rooms/{roomID}/content.
func (h *Handler) ChangeContent(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	var req changeContentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	room, err := h.svc.Coordinator.ChangeContent(r.Context(), caller, roomID(r), req.PodcastID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	WriteSuccess(w, r, room)
}

// TransferHost handles POST /api/v1/rooms/{roomID}/host.
func (h *Handler) TransferHost(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	var req transferHostRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	room, err := h.svc.Coordinator.TransferHost(r.Context(), caller, roomID(r), req.UserID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	WriteSuccess(w, r, room)
}

// KickUser handles POST /api/v1/rooms/{roomID}/kick.
func (h *Handler) KickUser(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	var req moderationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.svc.Coordinator.KickUser(r.Context(), caller, roomID(r), req.UserID, req.Reason); err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).NoContent()
}

// BanUser handles POST /api/v1/rooms/{roomID}/bans.
func (h *Handler) BanUser(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	var req moderationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.svc.Coordinator.BanUser(r.Context(), caller, roomID(r), req.UserID, req.Reason); err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).NoContent()
}

// UnbanUser handles DELETE /api/v1/rooms/{roomID}/bans/{userID}.
func (h *Handler) UnbanUser(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	target := chi.URLParam(r, "userID")
	if err := h.svc.Coordinator.UnbanUser(r.Context(), caller, roomID(r), target); err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).NoContent()
}
