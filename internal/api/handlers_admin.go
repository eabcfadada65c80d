// Watchparty - Synchronized Group Playback for Podcast Communities
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchparty

package api

import (
	"net/http"

	"github.com/tomtom215/watchparty/internal/logging"
	"github.com/tomtom215/watchparty/internal/models"
)

// expireResult answers POST /api/v1/admin/rooms/expire.
type expireResult struct {
	Expired int `json:"expired"`
}

// ForceExpireRooms handles POST /api/v1/admin/rooms/expire. Casbin has
// already checked the caller's role.
func (h *Handler) ForceExpireRooms(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.Expiry.ForceExpireRooms(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	logging.CtxInfo(r.Context()).Int("expired", n).Msg("Forced room expiry")
	WriteSuccess(w, r, expireResult{Expired: n})
}

// ListRoomsExpiringSoon handles GET /api/v1/admin/rooms/expiring.
func (h *Handler) ListRoomsExpiringSoon(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.svc.Expiry.ListRoomsExpiringSoon(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	if rooms == nil {
		rooms = []*models.Room{}
	}
	WriteSuccess(w, r, rooms)
}
