// Watchparty - Synchronized Group Playback for Podcast Communities
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchparty

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Result label values shared by the counters below.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

var (
	// Store Metrics
	StoreOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "watchparty_store_operation_duration_seconds",
			Help:    "Duration of room store operations in seconds",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"operation"},
	)

	StoreOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "watchparty_store_operation_errors_total",
			Help: "Total number of failed room store operations",
		},
		[]string{"operation", "error_type"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "watchparty_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "watchparty_circuit_breaker_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// Room Metrics
	RoomOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "watchparty_room_operations_total",
			Help: "Total number of room operations by outcome",
		},
		[]string{"operation", "result"},
	)

	RoomsCached = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "watchparty_rooms_cached",
			Help: "Current number of active rooms held in the registry",
		},
	)

	RoomLockWait = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "watchparty_room_lock_wait_seconds",
			Help:    "Time spent waiting for a per-room lock",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2},
		},
	)

	RoomLockContention = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "watchparty_room_lock_contention_total",
			Help: "Total number of per-room lock acquisitions that timed out",
		},
	)

	// Broadcast Metrics
	BroadcastsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "watchparty_broadcasts_total",
			Help: "Total number of room events published",
		},
		[]string{"event", "result"},
	)

	BroadcastsRelayed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "watchparty_broadcasts_relayed_total",
			Help: "Total number of broker messages relayed to local websocket clients",
		},
		[]string{"result"},
	)

	// Expiry Metrics
	SweepRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "watchparty_sweep_runs_total",
			Help: "Total number of expiry and cleanup sweeps",
		},
		[]string{"sweep", "result"},
	)

	SweepRoomsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "watchparty_sweep_rooms_total",
			Help: "Total number of rooms expired or deleted by sweeps",
		},
		[]string{"sweep"},
	)

	SweepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "watchparty_sweep_duration_seconds",
			Help:    "Duration of expiry and cleanup sweeps",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
		},
		[]string{"sweep"},
	)

	// Chat Metrics
	ChatMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "watchparty_chat_messages_total",
			Help: "Total number of chat messages persisted by type",
		},
		[]string{"type"},
	)

	ChatRateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "watchparty_chat_rate_limited_total",
			Help: "Total number of chat messages rejected by the per-user limiter",
		},
	)

	// Upstream Metrics
	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "watchparty_upstream_requests_total",
			Help: "Total number of identity and catalog lookups",
		},
		[]string{"service", "result"},
	)

	UpstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "watchparty_upstream_duration_seconds",
			Help:    "Latency of identity and catalog lookups",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"service"},
	)

	UpstreamCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "watchparty_upstream_cache_hits_total",
			Help: "Total number of upstream lookups served from cache",
		},
		[]string{"service"},
	)

	UpstreamCacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "watchparty_upstream_cache_misses_total",
			Help: "Total number of upstream lookups that missed the cache",
		},
		[]string{"service"},
	)

	// WebSocket Metrics
	WSConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "watchparty_websocket_connections_active",
			Help: "Current number of websocket connections",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "watchparty_websocket_messages_sent_total",
			Help: "Total number of messages queued to websocket clients",
		},
	)

	WSMessagesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "watchparty_websocket_messages_dropped_total",
			Help: "Total number of messages dropped for slow websocket clients",
		},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "watchparty_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "watchparty_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "watchparty_api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "watchparty_api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// Authorization Metrics
	AuthzDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "watchparty_authz_decisions_total",
			Help: "Total number of admin authorization decisions",
		},
		[]string{"resource", "decision"},
	)

	// Application Info
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "watchparty_app_info",
			Help: "Application build information",
		},
		[]string{"version", "go_version"},
	)
)

// RecordStoreOperation records a store call. An empty errorType means success.
func RecordStoreOperation(operation string, duration time.Duration, errorType string) {
	StoreOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if errorType != "" {
		StoreOperationErrors.WithLabelValues(operation, errorType).Inc()
	}
}

// SetCircuitBreakerState records a breaker transition.
// state follows gobreaker's ordering: 0=closed, 1=half-open, 2=open.
func SetCircuitBreakerState(name, from, to string, state int) {
	CircuitBreakerState.WithLabelValues(name).Set(float64(state))
	CircuitBreakerTransitions.WithLabelValues(name, from, to).Inc()
}

// RecordRoomOperation records a coordinator operation outcome.
func RecordRoomOperation(operation string, err error) {
	RoomOperations.WithLabelValues(operation, result(err)).Inc()
}

// RecordLockWait records a per-room lock acquisition.
func RecordLockWait(wait time.Duration, acquired bool) {
	RoomLockWait.Observe(wait.Seconds())
	if !acquired {
		RoomLockContention.Inc()
	}
}

// RecordBroadcast records a publish attempt for an event kind (update, sync, chat...).
func RecordBroadcast(event string, err error) {
	BroadcastsTotal.WithLabelValues(event, result(err)).Inc()
}

// RecordRelay records a broker message forwarded to the local hub.
func RecordRelay(err error) {
	BroadcastsRelayed.WithLabelValues(result(err)).Inc()
}

// RecordSweep records a sweep run and the number of rooms it processed.
func RecordSweep(sweep string, duration time.Duration, processed int, err error) {
	SweepRuns.WithLabelValues(sweep, result(err)).Inc()
	SweepDuration.WithLabelValues(sweep).Observe(duration.Seconds())
	if processed > 0 {
		SweepRoomsProcessed.WithLabelValues(sweep).Add(float64(processed))
	}
}

// RecordChatMessage counts a persisted message by type.
func RecordChatMessage(messageType string) {
	ChatMessages.WithLabelValues(messageType).Inc()
}

// RecordUpstreamRequest records an identity or catalog lookup.
func RecordUpstreamRequest(service string, duration time.Duration, err error) {
	UpstreamRequests.WithLabelValues(service, result(err)).Inc()
	UpstreamDuration.WithLabelValues(service).Observe(duration.Seconds())
}

// RecordUpstreamCache records a cache lookup in front of an upstream service.
func RecordUpstreamCache(service string, hit bool) {
	if hit {
		UpstreamCacheHits.WithLabelValues(service).Inc()
		return
	}
	UpstreamCacheMisses.WithLabelValues(service).Inc()
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordAuthzDecision records an admin authorization check.
func RecordAuthzDecision(resource string, allowed bool) {
	decision := "deny"
	if allowed {
		decision = "allow"
	}
	AuthzDecisions.WithLabelValues(resource, decision).Inc()
}

// SetAppInfo publishes build information.
func SetAppInfo(version, goVersion string) {
	AppInfo.WithLabelValues(version, goVersion).Set(1)
}

func result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOK
}
