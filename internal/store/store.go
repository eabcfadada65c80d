// Watchparty - Synchronized Group Playback for Podcast Communities
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchparty

// Package store provides durable persistence for rooms and chat messages.
//
// Three RoomStore implementations are available: BadgerStore (embedded,
// default), RedisStore (shared) and MemoryStore (tests and development).
// Guarded decorates any of them with a circuit breaker and per-call timeout.
package store

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/tomtom215/watchparty/internal/models"
)

var (
	// ErrRoomNotFound is returned when no room record exists for an id or active code.
	ErrRoomNotFound = errors.New("room not found")

	// ErrMessageNotFound is returned when no message record exists for an id.
	ErrMessageNotFound = errors.New("message not found")

	// ErrRoomExists is returned by CreateRoom when the id is already taken.
	ErrRoomExists = errors.New("room already exists")

	// ErrCodeInUse is returned when an active room already holds the code.
	ErrCodeInUse = errors.New("room code already in use")

	// ErrUnavailable wraps infrastructure failures (I/O, timeouts, open breaker).
	ErrUnavailable = errors.New("store unavailable")
)

// RoomStore is durable CRUD for rooms and chat messages.
//
// Implementations keep a code index for active rooms only: deactivating or
// deleting a room releases its code.
type RoomStore interface {
	CreateRoom(ctx context.Context, room *models.Room) error
	SaveRoom(ctx context.Context, room *models.Room) error
	GetRoom(ctx context.Context, id string) (*models.Room, error)
	GetRoomByCode(ctx context.Context, code string) (*models.Room, error)
	DeleteRoom(ctx context.Context, id string) error
	ListRooms(ctx context.Context, q RoomQuery) ([]*models.Room, error)

	AddMessage(ctx context.Context, msg *models.ChatMessage) error
	GetMessage(ctx context.Context, id string) (*models.ChatMessage, error)
	DeleteMessage(ctx context.Context, id string) error
	// ListMessages returns up to limit messages older than before, newest first.
	// A zero before means no upper bound.
	ListMessages(ctx context.Context, roomID string, before time.Time, limit int) ([]*models.ChatMessage, error)
	DeleteRoomMessages(ctx context.Context, roomID string) (int, error)

	Ping(ctx context.Context) error
	Close() error
}

// RoomState filters rooms by their active flag.
type RoomState int

const (
	AnyState RoomState = iota
	ActiveOnly
	InactiveOnly
)

// RoomQuery selects rooms for listings and sweeps. Zero values disable a filter.
type RoomQuery struct {
	State         RoomState
	PublicOnly    bool
	ParticipantID string
	// ExpiresBefore keeps rooms with ExpiresAt <= ExpiresBefore.
	ExpiresBefore time.Time
	// UpdatedBefore keeps rooms with LastUpdated < UpdatedBefore.
	UpdatedBefore time.Time
	Offset        int
	Limit         int
}

// Matches reports whether r satisfies every filter of q except pagination.
func (q RoomQuery) Matches(r *models.Room) bool {
	switch q.State {
	case ActiveOnly:
		if !r.Active {
			return false
		}
	case InactiveOnly:
		if r.Active {
			return false
		}
	}
	if q.PublicOnly && !r.Public {
		return false
	}
	if q.ParticipantID != "" && !r.HasParticipant(q.ParticipantID) {
		return false
	}
	if !q.ExpiresBefore.IsZero() && r.ExpiresAt.After(q.ExpiresBefore) {
		return false
	}
	if !q.UpdatedBefore.IsZero() && !r.LastUpdated.Before(q.UpdatedBefore) {
		return false
	}
	return true
}

// selectRooms filters, orders (newest first) and paginates candidates.
func selectRooms(candidates []*models.Room, q RoomQuery) []*models.Room {
	out := make([]*models.Room, 0, len(candidates))
	for _, r := range candidates {
		if q.Matches(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if q.Offset > 0 {
		if q.Offset >= len(out) {
			return []*models.Room{}
		}
		out = out[q.Offset:]
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}

// sortMessagesNewestFirst orders by timestamp descending, id as tie-break.
func sortMessagesNewestFirst(msgs []*models.ChatMessage) {
	sort.Slice(msgs, func(i, j int) bool {
		if msgs[i].Timestamp.Equal(msgs[j].Timestamp) {
			return msgs[i].ID > msgs[j].ID
		}
		return msgs[i].Timestamp.After(msgs[j].Timestamp)
	})
}

// IsDomainError reports whether err is an expected lookup or uniqueness
// outcome rather than an infrastructure failure.
func IsDomainError(err error) bool {
	return errors.Is(err, ErrRoomNotFound) ||
		errors.Is(err, ErrMessageNotFound) ||
		errors.Is(err, ErrRoomExists) ||
		errors.Is(err, ErrCodeInUse)
}
