// Watchparty - Synchronized Group Playback for Podcast Communities
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchparty

package authz

import (
	"errors"
	"net/http"

	"github.com/tomtom215/watchparty/internal/auth"
	"github.com/tomtom215/watchparty/internal/logging"
	"github.com/tomtom215/watchparty/internal/metrics"
)

// Errors passed to the DenyFunc.
var (
	ErrNoSubject = errors.New("no authentication context")
	ErrDenied    = errors.New("insufficient permissions")
)

// DenyFunc writes the response for a rejected request. err is ErrNoSubject,
// ErrDenied or an enforcement failure.
type DenyFunc func(w http.ResponseWriter, r *http.Request, err error)

// Middleware provides authorization middleware using Casbin.
type Middleware struct {
	enforcer *Enforcer
	deny     DenyFunc
}

// NewMiddleware creates a new authorization middleware. A nil deny falls back
// to plain-text errors.
func NewMiddleware(enforcer *Enforcer, deny DenyFunc) *Middleware {
	if deny == nil {
		deny = plainDeny
	}
	return &Middleware{
		enforcer: enforcer,
		deny:     deny,
	}
}

// AuthorizeRequest determines the action from the HTTP method and authorizes
// the request path. It must run after authentication.
func (m *Middleware) AuthorizeRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject := auth.GetAuthSubject(r.Context())
		if subject == nil {
			m.deny(w, r, ErrNoSubject)
			return
		}

		object := r.URL.Path
		action := methodToAction(r.Method)

		allowed, err := m.enforcer.EnforceWithRoles(subject.ID, subject.Roles, object, action)
		if err != nil {
			logging.CtxErr(r.Context(), err).Str("path", object).Msg("Authorization error")
			m.deny(w, r, err)
			return
		}
		metrics.RecordAuthzDecision(object, allowed)

		if !allowed {
			logging.CtxWarn(r.Context()).
				Str("user_id", subject.ID).
				Strs("roles", subject.Roles).
				Str("path", object).
				Str("action", action).
				Msg("Authorization denied")
			m.deny(w, r, ErrDenied)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// methodToAction maps HTTP methods to Casbin actions.
func methodToAction(method string) string {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return "read"
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return "write"
	case http.MethodDelete:
		return "delete"
	default:
		return "read"
	}
}

func plainDeny(w http.ResponseWriter, _ *http.Request, err error) {
	switch {
	case errors.Is(err, ErrNoSubject):
		http.Error(w, "Unauthorized: authentication required", http.StatusUnauthorized)
	case errors.Is(err, ErrDenied):
		http.Error(w, "Forbidden: insufficient permissions", http.StatusForbidden)
	default:
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
