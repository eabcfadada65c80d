// Watchparty - Synchronized Group Playback for Podcast Communities
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchparty

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordStoreOperation(t *testing.T) {
	before := testutil.ToFloat64(StoreOperationErrors.WithLabelValues("save_room", "unavailable"))

	RecordStoreOperation("save_room", 2*time.Millisecond, "")
	RecordStoreOperation("save_room", 5*time.Millisecond, "unavailable")

	after := testutil.ToFloat64(StoreOperationErrors.WithLabelValues("save_room", "unavailable"))
	if after-before != 1 {
		t.Errorf("error counter delta = %v, want 1", after-before)
	}
}

func TestSetCircuitBreakerState(t *testing.T) {
	SetCircuitBreakerState("store-test", "closed", "open", 2)

	if got := testutil.ToFloat64(CircuitBreakerState.WithLabelValues("store-test")); got != 2 {
		t.Errorf("state gauge = %v, want 2", got)
	}
	if got := testutil.ToFloat64(CircuitBreakerTransitions.WithLabelValues("store-test", "closed", "open")); got < 1 {
		t.Errorf("transition counter = %v, want >= 1", got)
	}
}

func TestRecordRoomOperation(t *testing.T) {
	ok := RoomOperations.WithLabelValues("join_test", ResultOK)
	failed := RoomOperations.WithLabelValues("join_test", ResultError)
	okBefore, failedBefore := testutil.ToFloat64(ok), testutil.ToFloat64(failed)

	RecordRoomOperation("join_test", nil)
	RecordRoomOperation("join_test", errors.New("room full"))
	RecordRoomOperation("join_test", nil)

	if d := testutil.ToFloat64(ok) - okBefore; d != 2 {
		t.Errorf("ok delta = %v, want 2", d)
	}
	if d := testutil.ToFloat64(failed) - failedBefore; d != 1 {
		t.Errorf("error delta = %v, want 1", d)
	}
}

func TestRecordLockWait(t *testing.T) {
	before := testutil.ToFloat64(RoomLockContention)

	RecordLockWait(time.Millisecond, true)
	RecordLockWait(2*time.Second, false)

	if d := testutil.ToFloat64(RoomLockContention) - before; d != 1 {
		t.Errorf("contention delta = %v, want 1", d)
	}
}

func TestRecordSweep(t *testing.T) {
	before := testutil.ToFloat64(SweepRoomsProcessed.WithLabelValues("expire_test"))

	RecordSweep("expire_test", 10*time.Millisecond, 3, nil)
	RecordSweep("expire_test", 10*time.Millisecond, 0, errors.New("store down"))

	if d := testutil.ToFloat64(SweepRoomsProcessed.WithLabelValues("expire_test")) - before; d != 3 {
		t.Errorf("processed delta = %v, want 3", d)
	}
	if got := testutil.ToFloat64(SweepRuns.WithLabelValues("expire_test", ResultError)); got < 1 {
		t.Errorf("failed sweep not counted")
	}
}

func TestRecordUpstreamCache(t *testing.T) {
	hits := testutil.ToFloat64(UpstreamCacheHits.WithLabelValues("catalog_test"))
	misses := testutil.ToFloat64(UpstreamCacheMisses.WithLabelValues("catalog_test"))

	RecordUpstreamCache("catalog_test", true)
	RecordUpstreamCache("catalog_test", false)
	RecordUpstreamCache("catalog_test", false)

	if d := testutil.ToFloat64(UpstreamCacheHits.WithLabelValues("catalog_test")) - hits; d != 1 {
		t.Errorf("hit delta = %v, want 1", d)
	}
	if d := testutil.ToFloat64(UpstreamCacheMisses.WithLabelValues("catalog_test")) - misses; d != 2 {
		t.Errorf("miss delta = %v, want 2", d)
	}
}

func TestTrackActiveRequest(t *testing.T) {
	before := testutil.ToFloat64(APIActiveRequests)
	TrackActiveRequest(true)
	TrackActiveRequest(true)
	TrackActiveRequest(false)
	if d := testutil.ToFloat64(APIActiveRequests) - before; d != 1 {
		t.Errorf("active delta = %v, want 1", d)
	}
	TrackActiveRequest(false)
}

func TestRecordAuthzDecision(t *testing.T) {
	RecordAuthzDecision("rooms_test", true)
	RecordAuthzDecision("rooms_test", false)
	if got := testutil.ToFloat64(AuthzDecisions.WithLabelValues("rooms_test", "deny")); got != 1 {
		t.Errorf("deny count = %v, want 1", got)
	}
}
