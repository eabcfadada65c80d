// Watchparty - Synchronized Group Playback for Podcast Communities
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchparty

package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/tomtom215/watchparty/internal/metrics"
)

// lockEntry is a weight-1 semaphore shared by every waiter on one key.
type lockEntry struct {
	sem  *semaphore.Weighted
	refs int
}

// lockTable hands out per-key exclusive locks. Entries exist only while some
// goroutine holds or waits for the key, so the table does not grow with the
// number of rooms ever seen.
type lockTable struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
	timeout time.Duration
}

func newLockTable(timeout time.Duration) *lockTable {
	return &lockTable{
		entries: make(map[string]*lockEntry),
		timeout: timeout,
	}
}

func (t *lockTable) ref(key string) *lockEntry {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[key]
	if !ok {
		e = &lockEntry{sem: semaphore.NewWeighted(1)}
		t.entries[key] = e
	}
	e.refs++
	return e
}

func (t *lockTable) unref(key string, e *lockEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e.refs--
	if e.refs == 0 {
		delete(t.entries, key)
	}
}

// acquire waits for key up to the table timeout or the ctx deadline,
// whichever comes first. The returned func releases the lock exactly once.
func (t *lockTable) acquire(ctx context.Context, key string) (func(), error) {
	e := t.ref(key)

	waitCtx := ctx
	if t.timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	start := time.Now()
	if err := e.sem.Acquire(waitCtx, 1); err != nil {
		t.unref(key, e)
		metrics.RecordLockWait(time.Since(start), false)

		// A caller that went away is not contention.
		if ctxErr := ctx.Err(); errors.Is(ctxErr, context.Canceled) {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %s after %s", ErrContention, key, time.Since(start).Round(time.Millisecond))
	}
	metrics.RecordLockWait(time.Since(start), true)

	var once sync.Once
	return func() {
		once.Do(func() {
			e.sem.Release(1)
			t.unref(key, e)
		})
	}, nil
}

// size returns the number of keys currently held or awaited.
func (t *lockTable) size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
