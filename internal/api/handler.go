// Watchparty - Synchronized Group Playback for Podcast Communities
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchparty

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/watchparty/internal/party"
	"github.com/tomtom215/watchparty/internal/websocket"
)

// CallerResolver returns the verified caller of a request.
type CallerResolver interface {
	CurrentCaller(ctx context.Context) (party.Caller, error)
}

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler serves the watch party API over one party.Service.
type Handler struct {
	svc       *party.Service
	callers   CallerResolver
	hub       *websocket.Hub
	store     Pinger
	wsOrigins []string
	startTime time.Time
	version   string
}

// HandlerDeps wires a Handler.
type HandlerDeps struct {
	Service *party.Service
	Callers CallerResolver
	// Hub may be nil; the stream endpoint then answers 503.
	Hub   *websocket.Hub
	Store Pinger
	// WSOrigins lists origins allowed to open the websocket stream. Empty
	// means same-origin only.
	WSOrigins []string
	Version   string
}

// NewHandler creates a Handler.
func NewHandler(deps HandlerDeps) (*Handler, error) {
	if deps.Service == nil {
		return nil, errors.New("api: party service is required")
	}
	if deps.Callers == nil {
		return nil, errors.New("api: caller resolver is required")
	}
	return &Handler{
		svc:       deps.Service,
		callers:   deps.Callers,
		hub:       deps.Hub,
		store:     deps.Store,
		wsOrigins: deps.WSOrigins,
		startTime: time.Now(),
		version:   deps.Version,
	}, nil
}

// caller resolves the request's caller, writing the error response when
// there is none.
func (h *Handler) caller(w http.ResponseWriter, r *http.Request) (party.Caller, bool) {
	c, err := h.callers.CurrentCaller(r.Context())
	if err != nil {
		respondError(w, r, err)
		return party.Caller{}, false
	}
	return c, true
}

// pagination reads the page and size query parameters.
func pagination(r *http.Request) (page, size int, err error) {
	if page, err = queryInt(r, "page"); err != nil {
		return 0, 0, err
	}
	if size, err = queryInt(r, "size"); err != nil {
		return 0, 0, err
	}
	return page, size, nil
}

func roomID(r *http.Request) string {
	return chi.URLParam(r, "roomID")
}
