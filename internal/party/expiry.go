// Watchparty - Synchronized Group Playback for Podcast Communities
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchparty

package party

import (
	"context"
	"time"

	"github.com/tomtom215/watchparty/internal/broadcast"
	"github.com/tomtom215/watchparty/internal/logging"
	"github.com/tomtom215/watchparty/internal/metrics"
	"github.com/tomtom215/watchparty/internal/models"
	"github.com/tomtom215/watchparty/internal/store"
)

// ExpiryScheduler ends rooms past their lifetime and purges old ones.
type ExpiryScheduler struct {
	*core
}

// ExpireSweep closes every active room whose expiry has passed. Rooms that
// fail are logged and left for the next sweep.
func (e *ExpiryScheduler) ExpireSweep(ctx context.Context) (int, error) {
	start := time.Now()
	n, err := e.expireSweep(ctx)
	metrics.RecordSweep("expire", time.Since(start), n, err)
	return n, err
}

func (e *ExpiryScheduler) expireSweep(ctx context.Context) (int, error) {
	now := e.now()
	due, err := e.reg.Store().ListRooms(ctx, store.RoomQuery{State: store.ActiveOnly, ExpiresBefore: now})
	if err != nil {
		return 0, classify(err)
	}

	expired := 0
	for _, candidate := range due {
		if err := ctx.Err(); err != nil {
			return expired, err
		}
		ok, err := e.expireRoom(ctx, candidate.ID)
		if err != nil {
			logging.ForRoom(ctx, "expiry", candidate.ID, "").Warn().Err(err).Msg("Room expiry failed, will retry")
			continue
		}
		if ok {
			expired++
		}
	}
	if expired > 0 {
		logging.Info().Int("expired", expired).Int("due", len(due)).Msg("Expired rooms")
	}
	return expired, nil
}

// expireRoom re-checks the room under its lock. It reports false when
// another writer already ended or extended it.
func (e *ExpiryScheduler) expireRoom(ctx context.Context, roomID string) (bool, error) {
	var expired bool
	err := e.lockedRoom(ctx, roomID, func(room *models.Room) error {
		now := e.now()
		if !room.Expired(now) {
			return nil
		}
		// Participants see the notice while the room is still active.
		e.postSystem(ctx, room.ID, models.SystemEventRoomExpiring, "This watch party has expired", nil)
		room.Deactivate(now)
		if err := e.save(ctx, room); err != nil {
			return err
		}
		e.publish(ctx, room.ID, broadcast.KindClosed, models.RoomClosedEvent{
			RoomID:    room.ID,
			Reason:    models.CloseReasonAutoExpired,
			Message:   "This watch party has expired",
			Timestamp: now,
		})
		expired = true
		return nil
	})
	return expired, err
}

// CleanupSweep deletes inactive rooms, with their messages, once they have
// been idle for the retention period.
func (e *ExpiryScheduler) CleanupSweep(ctx context.Context) (int, error) {
	start := time.Now()
	n, err := e.cleanupSweep(ctx)
	metrics.RecordSweep("cleanup", time.Since(start), n, err)
	return n, err
}

func (e *ExpiryScheduler) cleanupSweep(ctx context.Context) (int, error) {
	cutoff := e.now().Add(-e.cfg.Retention)
	stale, err := e.reg.Store().ListRooms(ctx, store.RoomQuery{State: store.InactiveOnly, UpdatedBefore: cutoff})
	if err != nil {
		return 0, classify(err)
	}

	removed := 0
	for _, candidate := range stale {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		ok, err := e.cleanupRoom(ctx, candidate.ID, cutoff)
		if err != nil {
			logging.ForRoom(ctx, "expiry", candidate.ID, "").Warn().Err(err).Msg("Room cleanup failed, will retry")
			continue
		}
		if ok {
			removed++
		}
	}
	if removed > 0 {
		logging.Info().Int("removed", removed).Msg("Cleaned up inactive rooms")
	}
	return removed, nil
}

func (e *ExpiryScheduler) cleanupRoom(ctx context.Context, roomID string, cutoff time.Time) (bool, error) {
	var removed bool
	err := e.lockedRoom(ctx, roomID, func(room *models.Room) error {
		if room.Active || !room.LastUpdated.Before(cutoff) {
			return nil
		}
		msgs, err := e.reg.Store().DeleteRoomMessages(ctx, room.ID)
		if err != nil {
			return err
		}
		if err := e.reg.Delete(ctx, room.ID); err != nil {
			return err
		}
		logging.ForRoom(ctx, "expiry", room.ID, "").Debug().Int("messages", msgs).Msg("Room deleted")
		removed = true
		return nil
	})
	return removed, err
}

// ForceExpireRooms runs an expire sweep now.
func (e *ExpiryScheduler) ForceExpireRooms(ctx context.Context) (int, error) {
	logging.CtxInfo(ctx).Msg("Forced room expiry requested")
	return e.ExpireSweep(ctx)
}

// ListRoomsExpiringSoon returns active rooms that expire within the
// configured window.
func (e *ExpiryScheduler) ListRoomsExpiringSoon(ctx context.Context) ([]*models.Room, error) {
	now := e.now()
	rooms, err := e.reg.Store().ListRooms(ctx, store.RoomQuery{
		State:         store.ActiveOnly,
		ExpiresBefore: now.Add(e.cfg.ExpiringSoonWindow),
	})
	if err != nil {
		return nil, classify(err)
	}
	soon := rooms[:0]
	for _, r := range rooms {
		if r.ExpiresAt.After(now) {
			soon = append(soon, r)
		}
	}
	return soon, nil
}

// Serve runs both sweeps on their intervals until ctx ends.
func (e *ExpiryScheduler) Serve(ctx context.Context) error {
	expire := time.NewTicker(e.cfg.ExpireInterval)
	defer expire.Stop()
	cleanup := time.NewTicker(e.cfg.CleanupInterval)
	defer cleanup.Stop()

	logging.Info().
		Dur("expire_interval", e.cfg.ExpireInterval).
		Dur("cleanup_interval", e.cfg.CleanupInterval).
		Msg("Expiry scheduler started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-expire.C:
			if _, err := e.ExpireSweep(ctx); err != nil && ctx.Err() == nil {
				logging.Err(err).Msg("Expire sweep failed")
			}
		case <-cleanup.C:
			if _, err := e.CleanupSweep(ctx); err != nil && ctx.Err() == nil {
				logging.Err(err).Msg("Cleanup sweep failed")
			}
		}
	}
}

// String names the service for the supervisor.
func (e *ExpiryScheduler) String() string {
	return "expiry-scheduler"
}
