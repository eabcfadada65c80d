// Watchparty - Synchronized Group Playback for Podcast Communities
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchparty

package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/tomtom215/watchparty/internal/auth"
	"github.com/tomtom215/watchparty/internal/logging"
)

// Authenticator verifies the caller behind a request.
type Authenticator interface {
	Authenticate(ctx context.Context, r *http.Request) (*auth.AuthSubject, error)
	Name() string
}

// AuthMiddleware attaches the verified subject to the request context.
type AuthMiddleware struct {
	authenticator Authenticator
}

// NewAuthMiddleware wraps authenticator.
func NewAuthMiddleware(authenticator Authenticator) *AuthMiddleware {
	return &AuthMiddleware{authenticator: authenticator}
}

// Authenticate rejects requests without valid credentials with 401.
func (m *AuthMiddleware) Authenticate(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subject, err := m.authenticator.Authenticate(r.Context(), r)
		if err != nil {
			logging.CtxWarn(r.Context()).
				Err(err).
				Str("authenticator", m.authenticator.Name()).
				Str("path", r.URL.Path).
				Msg("Authentication failed")
			respondError(w, r, err)
			return
		}
		next(w, r.WithContext(auth.WithSubject(r.Context(), subject)))
	}
}

// OptionalAuth attaches a subject when valid credentials are present and
// passes anonymous requests through. Invalid or expired credentials are
// still rejected so a client learns its token is bad.
func (m *AuthMiddleware) OptionalAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subject, err := m.authenticator.Authenticate(r.Context(), r)
		switch {
		case errors.Is(err, auth.ErrNoCredentials):
			next(w, r)
		case err != nil:
			respondError(w, r, err)
		default:
			next(w, r.WithContext(auth.WithSubject(r.Context(), subject)))
		}
	}
}
