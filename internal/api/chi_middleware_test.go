// Watchparty - Synchronized Group Playback for Podcast Communities
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchparty

package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/watchparty/internal/config"
)

func TestChiMiddlewareConfigFrom(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg := ChiMiddlewareConfigFrom(config.SecurityConfig{})
		assert.Empty(t, cfg.CORSAllowedOrigins)
		assert.False(t, cfg.CORSAllowCredentials)
		assert.Equal(t, 100, cfg.RateLimitRequests)
		assert.Equal(t, time.Minute, cfg.RateLimitWindow)
		assert.False(t, cfg.RateLimitDisabled)
	})

	t.Run("explicit origins allow credentials", func(t *testing.T) {
		cfg := ChiMiddlewareConfigFrom(config.SecurityConfig{
			CORSOrigins:     []string{"https://app.example"},
			RateLimitReqs:   5,
			RateLimitWindow: 10 * time.Second,
		})
		assert.Equal(t, []string{"https://app.example"}, cfg.CORSAllowedOrigins)
		assert.True(t, cfg.CORSAllowCredentials)
		assert.Equal(t, 5, cfg.RateLimitRequests)
		assert.Equal(t, 10*time.Second, cfg.RateLimitWindow)
	})

	t.Run("wildcard origin never allows credentials", func(t *testing.T) {
		cfg := ChiMiddlewareConfigFrom(config.SecurityConfig{CORSOrigins: []string{"https://app.example", "*"}})
		assert.False(t, cfg.CORSAllowCredentials)
	})

	t.Run("rate limit off", func(t *testing.T) {
		cfg := ChiMiddlewareConfigFrom(config.SecurityConfig{RateLimitOff: true})
		assert.True(t, cfg.RateLimitDisabled)
	})
}

func TestCORSPreflight(t *testing.T) {
	cfg := DefaultChiMiddlewareConfig()
	cfg.CORSAllowedOrigins = []string{"https://app.example"}
	handler := NewChiMiddleware(cfg).CORS()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/rooms/r1/settings", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPatch)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, "https://app.example", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), http.MethodPatch)

	req = httptest.NewRequest(http.MethodOptions, "/api/v1/rooms", nil)
	req.Header.Set("Origin", "https://evil.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimitCustom(t *testing.T) {
	cfg := DefaultChiMiddlewareConfig()
	m := NewChiMiddleware(cfg)
	handler := m.RateLimitCustom(RateLimitConfig{Requests: 1, Window: 30 * time.Second})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }))

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/rooms/public", nil)
		req.RemoteAddr = "192.0.2.1:5000"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w
	}

	require.Equal(t, http.StatusOK, send().Code)
	w := send()
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "30", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), ErrCodeRateLimited)

	t.Run("disabled", func(t *testing.T) {
		cfg := DefaultChiMiddlewareConfig()
		cfg.RateLimitDisabled = true
		h := NewChiMiddleware(cfg).RateLimitCustom(RateLimitConfig{Requests: 1, Window: time.Minute})(
			http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }))
		for i := 0; i < 3; i++ {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
			assert.Equal(t, http.StatusOK, w.Code)
		}
	})
}

func TestAPISecurityHeaders(t *testing.T) {
	handler := APISecurityHeaders()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/rooms/public", nil))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/rooms/public", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.NotEmpty(t, w.Header().Get("Strict-Transport-Security"))
}
