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

	"github.com/tomtom215/watchparty/internal/auth"
	"github.com/tomtom215/watchparty/internal/authz"
	"github.com/tomtom215/watchparty/internal/logging"
	"github.com/tomtom215/watchparty/internal/party"
	"github.com/tomtom215/watchparty/internal/validation"
)

// Retry-After hints, in whole seconds on the wire.
const (
	contentionRetryAfter  = time.Second
	rateLimitedRetryAfter = time.Second
	upstreamRetryAfter    = 5 * time.Second
)

// retryHint returns how long a client should wait before repeating a request
// that failed with err, or zero when repeating it cannot help.
func retryHint(err error) time.Duration {
	if !party.IsRetryable(err) {
		return 0
	}
	switch party.KindOf(err) {
	case party.KindUpstream:
		return upstreamRetryAfter
	case party.KindRateLimited:
		return rateLimitedRetryAfter
	default:
		return contentionRetryAfter
	}
}

// respondError renders err with the status and code of its kind. Internal
// errors are logged and their text is not sent to the client.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	rw := NewResponseWriter(w, r)

	var verr *validation.RequestValidationError
	switch {
	case errors.Is(err, errBadRequest):
		rw.BadRequest(err.Error())
		return
	case errors.As(err, &verr):
		apiErr := verr.ToAPIError()
		rw.ValidationError(apiErr.Message, apiErr.Details)
		return
	case errors.Is(err, auth.ErrNoCredentials),
		errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrExpiredCredentials),
		errors.Is(err, authz.ErrNoSubject):
		rw.Unauthorized(err.Error())
		return
	case errors.Is(err, authz.ErrDenied):
		rw.Forbidden("insufficient permissions")
		return
	case errors.Is(err, context.Canceled):
		// The client went away; nobody reads the body.
		logging.CtxWarn(r.Context()).Str("path", r.URL.Path).Msg("Request canceled by client")
		rw.Error(499, ErrCodeInternalError, "request canceled")
		return
	}

	hint := retryHint(err)
	switch party.KindOf(err) {
	case party.KindNotFound:
		rw.NotFound(err.Error())
	case party.KindForbidden:
		rw.Forbidden(err.Error())
	case party.KindConflict:
		rw.Conflict(err.Error())
	case party.KindInvalidArgument:
		rw.ValidationError(err.Error(), nil)
	case party.KindContention:
		rw.Contention("room is busy, retry the request", hint)
	case party.KindUpstream:
		logging.CtxErr(r.Context(), err).Str("path", r.URL.Path).Msg("Dependency unavailable")
		rw.setRetryAfter(hint)
		rw.UpstreamError("a dependency is unavailable, retry later")
	case party.KindRateLimited:
		rw.TooManyRequests(err.Error(), hint)
	default:
		logging.CtxErr(r.Context(), err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("Unhandled API error")
		rw.InternalError("internal server error")
	}
}

// denyAuthz renders authz middleware rejections in the API envelope.
func denyAuthz(w http.ResponseWriter, r *http.Request, err error) {
	respondError(w, r, err)
}
