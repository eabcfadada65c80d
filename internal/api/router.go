// Watchparty - Synchronized Group Playback for Podcast Communities
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchparty

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/watchparty/internal/authz"
	"github.com/tomtom215/watchparty/internal/middleware"
)

// chiMiddleware adapts http.HandlerFunc middleware to Chi's func(http.Handler) http.Handler.
func chiMiddleware(mw func(http.HandlerFunc) http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return mw(next.ServeHTTP)
	}
}

// Router holds everything the route table needs.
type Router struct {
	handler       *Handler
	auth          *AuthMiddleware
	authz         *authz.Middleware
	chiMiddleware *ChiMiddleware
	slowRequest   time.Duration
}

// RouterDeps wires a Router.
type RouterDeps struct {
	Handler       *Handler
	Authenticator Authenticator
	Enforcer      *authz.Enforcer
	Middleware    *ChiMiddlewareConfig
	// SlowRequest is the access log warning threshold.
	SlowRequest time.Duration
}

// NewRouter validates deps and creates a Router.
func NewRouter(deps RouterDeps) (*Router, error) {
	if deps.Handler == nil {
		return nil, errors.New("api: handler is required")
	}
	if deps.Authenticator == nil {
		return nil, errors.New("api: authenticator is required")
	}
	if deps.Enforcer == nil {
		return nil, errors.New("api: authorization enforcer is required")
	}
	return &Router{
		handler:       deps.Handler,
		auth:          NewAuthMiddleware(deps.Authenticator),
		authz:         authz.NewMiddleware(deps.Enforcer, denyAuthz),
		chiMiddleware: NewChiMiddleware(deps.Middleware),
		slowRequest:   deps.SlowRequest,
	}, nil
}

// Setup builds the route table.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()
	h := router.handler

	// ========================
	// Global Middleware Stack
	// ========================
	r.Use(chiMiddleware(middleware.RequestID))
	r.Use(chimiddleware.RealIP)
	r.Use(chiMiddleware(middleware.AccessLog(router.slowRequest)))
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NewResponseWriter(w, r).NotFound("no such endpoint")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, r, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "method not allowed")
	})

	// ========================
	// Health and Metrics
	// ========================
	r.Route("/health", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitCustom(RateLimitHealth))
		r.Get("/live", h.HealthLive)
		r.Get("/ready", h.HealthReady)
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(APISecurityHeaders())
		r.Use(chiMiddleware(middleware.PrometheusMetrics))

		// Public listing works with or without a token.
		r.With(chiMiddleware(router.auth.OptionalAuth)).Get("/rooms/public", h.ListPublicRooms)

		// ========================
		// Rooms
		// ========================
		r.Group(func(r chi.Router) {
			r.Use(chiMiddleware(router.auth.Authenticate))

			r.Get("/rooms/mine", h.ListMyRooms)
			r.With(router.chiMiddleware.RateLimitCustom(RateLimitCreate)).Post("/rooms", h.CreateRoom)
			r.Post("/rooms/join", h.JoinRoom)

			r.Route("/rooms/{roomID}", func(r chi.Router) {
				r.Get("/", h.GetRoom)
				r.Post("/leave", h.LeaveRoom)
				r.Post("/close", h.CloseRoom)
				r.Patch("/settings", h.UpdateSettings)
				r.Put("/content", h.ChangeContent)
				r.Post("/host", h.TransferHost)

				r.Post("/sync", h.SyncPlayback)
				r.Get("/sync", h.RequestSync)

				r.Get("/messages", h.ListMessages)
				r.Post("/messages", h.SendMessage)
				r.Delete("/messages/{messageID}", h.DeleteMessage)
				r.Post("/reactions", h.SendReaction)

				r.Post("/kick", h.KickUser)
				r.Post("/bans", h.BanUser)
				r.Delete("/bans/{userID}", h.UnbanUser)

				r.With(router.chiMiddleware.RateLimitCustom(RateLimitWebSocket)).Get("/ws", h.RoomStream)
			})
		})

		// ========================
		// Admin (casbin RBAC)
		// ========================
		r.Route("/admin", func(r chi.Router) {
			r.Use(chiMiddleware(router.auth.Authenticate))
			r.Use(router.authz.AuthorizeRequest)

			r.Post("/rooms/expire", h.ForceExpireRooms)
			r.Get("/rooms/expiring", h.ListRoomsExpiringSoon)
		})
	})

	return r
}
