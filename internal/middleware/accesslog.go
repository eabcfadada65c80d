// Watchparty - Synchronized Group Playback for Podcast Communities
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchparty

package middleware

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/watchparty/internal/logging"
)

// DefaultSlowRequestThreshold is used when AccessLog gets a zero threshold.
const DefaultSlowRequestThreshold = time.Second

// AccessLog logs one line per request at debug level, raised to warn for
// requests slower than slow and to error for 5xx responses. Websocket
// sessions are logged when they end and are never reported as slow.
func AccessLog(slow time.Duration) func(http.HandlerFunc) http.HandlerFunc {
	if slow <= 0 {
		slow = DefaultSlowRequestThreshold
	}
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapper := newStatusRecorder(w)

			next(wrapper, r)

			elapsed := time.Since(start)
			var event *zerolog.Event
			switch {
			case wrapper.statusCode >= http.StatusInternalServerError:
				event = logging.Ctx(r.Context()).Error()
			case elapsed > slow && !wrapper.hijacked:
				event = logging.Ctx(r.Context()).Warn().Dur("threshold", slow)
			default:
				event = logging.Ctx(r.Context()).Debug()
			}
			event.
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("route", RoutePattern(r)).
				Int("status", wrapper.statusCode).
				Int64("duration_ms", elapsed.Milliseconds()).
				Str("remote", r.RemoteAddr).
				Msg(accessMessage(wrapper, elapsed > slow))
		}
	}
}

func accessMessage(rw *statusRecorder, slow bool) string {
	switch {
	case rw.hijacked:
		return "Websocket session ended"
	case slow:
		return "Slow request detected"
	default:
		return "Request handled"
	}
}
