// Watchparty - Synchronized Group Playback for Podcast Communities
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchparty

/*
Package metrics provides Prometheus instrumentation for the watch party service.

Collectors are registered on the default registry through promauto and exposed
at /metrics by the API router.

# Available Metrics

Store:
  - watchparty_store_operation_duration_seconds (histogram, operation)
  - watchparty_store_operation_errors_total (counter, operation, error_type)

Circuit breakers (store, broker, upstream):
  - watchparty_circuit_breaker_state (gauge, name): 0=closed, 1=half-open, 2=open
  - watchparty_circuit_breaker_transitions_total (counter, name, from, to)

Rooms:
  - watchparty_room_operations_total (counter, operation, result)
  - watchparty_rooms_cached (gauge)
  - watchparty_room_lock_wait_seconds (histogram)
  - watchparty_room_lock_contention_total (counter)

Broadcast:
  - watchparty_broadcasts_total (counter, event, result)
  - watchparty_broadcasts_relayed_total (counter, result)

Expiry:
  - watchparty_sweep_runs_total (counter, sweep, result)
  - watchparty_sweep_rooms_total (counter, sweep)
  - watchparty_sweep_duration_seconds (histogram, sweep)

Chat, upstream, websocket, API and authorization counters follow the same
naming scheme.

# Usage

Record through the helper functions rather than the collectors directly:

	start := time.Now()
	err := store.SaveRoom(ctx, room)
	metrics.RecordStoreOperation("save_room", time.Since(start), classify(err))

Result labels are "ok" and "error".
*/
package metrics
