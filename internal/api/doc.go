// Watchparty - Synchronized Group Playback for Podcast Communities
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchparty

/*
Package api exposes the watch party services over HTTP using the chi router.

Every JSON endpoint answers with the same envelope:

	{"success": true, "data": {...}, "meta": {"request_id": "...", "timestamp": "..."}}
	{"success": false, "error": {"code": "FORBIDDEN", "message": "..."}, "meta": {...}}

Party error kinds map to HTTP statuses:

	NotFound         404 NOT_FOUND
	Forbidden        403 FORBIDDEN
	Conflict         409 CONFLICT
	InvalidArgument  400 VALIDATION_ERROR
	Contention       503 CONTENTION (with Retry-After)
	Upstream         502 UPSTREAM_ERROR
	RateLimited      429 RATE_LIMITED (with Retry-After)

Missing, invalid or expired tokens are 401 UNAUTHORIZED. Anything else is a
500 INTERNAL_ERROR whose detail is logged, not returned.

Middleware order, outermost first: request id, real IP, access log, panic
recovery, CORS. The /api/v1 group adds the per-IP rate limiter, security
headers and Prometheus instrumentation; room routes require a bearer token
and /api/v1/admin routes are additionally checked by the casbin enforcer.

The websocket stream at /api/v1/rooms/{roomID}/ws accepts the token as an
access_token query parameter because browsers cannot set headers on upgrades.
*/
package api
