// Watchparty - Synchronized Group Playback for Podcast Communities
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchparty

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/tomtom215/watchparty/internal/logging"
)

// readinessTimeout bounds the store ping behind /health/ready.
const readinessTimeout = 2 * time.Second

// HealthLive handles liveness probes. It only proves the process serves HTTP.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, r, map[string]interface{}{
		"alive":   true,
		"version": h.version,
		"uptime":  time.Since(h.startTime).Seconds(),
	})
}

// HealthReady handles readiness probes: 200 when the room store answers a
// ping, 503 otherwise.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	storeOK := true
	var storeErr string
	if h.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()
		if err := h.store.Ping(ctx); err != nil {
			storeOK = false
			storeErr = err.Error()
			logging.CtxWarn(r.Context()).Err(err).Msg("Readiness check failed: room store unreachable")
		}
	}

	data := map[string]interface{}{
		"store_connected": storeOK,
		"ready_to_serve":  storeOK,
		"uptime":          time.Since(h.startTime).Seconds(),
	}
	if h.hub != nil {
		data["stream_clients"] = h.hub.ClientCount()
	}

	if !storeOK {
		NewResponseWriter(w, r).ErrorWithDetails(http.StatusServiceUnavailable, ErrCodeNotReady,
			"room store unreachable: "+storeErr, data)
		return
	}
	WriteSuccess(w, r, data)
}
