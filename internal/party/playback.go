// Watchparty - Synchronized Group Playback for Podcast Communities
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchparty

package party

import (
	"context"
	"math"

	"github.com/tomtom215/watchparty/internal/broadcast"
	"github.com/tomtom215/watchparty/internal/logging"
	"github.com/tomtom215/watchparty/internal/models"
)

// SyncRequest is a transport change reported by a client.
type SyncRequest struct {
	Position  float64              `json:"position" validate:"gte=0"`
	IsPlaying bool                 `json:"isPlaying"`
	EventType models.SyncEventType `json:"eventType" validate:"required"`
}

func (r SyncRequest) validate() error {
	if math.IsNaN(r.Position) || math.IsInf(r.Position, 0) || r.Position < 0 {
		return invalid("position must be a non-negative number of seconds")
	}
	if !r.EventType.Valid() {
		return invalid("unknown sync event type %q", r.EventType)
	}
	return nil
}

// Synchronizer owns the authoritative playback position of each room.
type Synchronizer struct {
	*core
}

// SyncPlayback applies a transport change and fans it out to the room.
func (s *Synchronizer) SyncPlayback(ctx context.Context, caller Caller, roomID string, req SyncRequest) (*models.PlaybackSyncEvent, error) {
	if err := caller.validate(); err != nil {
		return nil, err
	}
	if err := req.validate(); err != nil {
		return nil, err
	}

	var event *models.PlaybackSyncEvent
	err := s.withRoom(ctx, "sync", roomID, func(room *models.Room) error {
		if !room.Active {
			return notFound("room %s has ended", roomID)
		}
		if !room.HasParticipant(caller.UserID) {
			return forbidden("not a participant of room %s", roomID)
		}
		if room.HostOnlyControl && !room.IsHost(caller.UserID) {
			return forbidden("only the host controls playback")
		}

		now := s.now()
		room.CurrentPosition = req.Position
		room.IsPlaying = req.IsPlaying
		room.Touch(now)
		if err := s.save(ctx, room); err != nil {
			return err
		}

		event = models.SyncEventFromRoom(room, caller.UserID, req.EventType, now)
		logging.ForRoom(ctx, "sync", room.ID, caller.UserID).Debug().
			Str("event", string(req.EventType)).
			Float64("position", req.Position).
			Bool("playing", req.IsPlaying).
			Msg("Playback synced")
		s.publish(ctx, room.ID, broadcast.KindSync, event)
		return nil
	})
	return event, err
}

// RequestSync returns the current room state for a client catching up. It
// takes no lock and publishes nothing.
func (s *Synchronizer) RequestSync(ctx context.Context, roomID string) (*models.Room, *models.PlaybackSyncEvent, error) {
	if roomID == "" {
		return nil, nil, invalid("room id is required")
	}
	room, err := s.activeRoom(ctx, roomID)
	if err != nil {
		return nil, nil, err
	}
	return room, models.SyncEventFromRoom(room, "", models.SyncEventRequested, s.now()), nil
}
