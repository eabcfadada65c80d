// Watchparty - Synchronized Group Playback for Podcast Communities
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchparty

/*
Package middleware provides the infrastructure middleware shared by every API
route: request ids, Prometheus instrumentation and access logging.

The functions take and return http.HandlerFunc; the api package adapts them to
chi with a small wrapper. The usual order, outermost first, is:

	RequestID -> AccessLog -> PrometheusMetrics -> handler

Metrics and access logs are labelled with the chi route pattern
(/api/v1/rooms/{roomID}) rather than the raw path, which keeps label
cardinality bounded by the route table. Requests that did not match a route
are labelled "unmatched".

The status-capturing writer implements http.Hijacker and http.Flusher so the
websocket upgrade on /api/v1/rooms/{roomID}/ws passes through unchanged.
*/
package middleware
