// Watchparty - Synchronized Group Playback for Podcast Communities
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchparty

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/watchparty/internal/logging"
	"github.com/tomtom215/watchparty/internal/metrics"
	"github.com/tomtom215/watchparty/internal/models"
)

// GuardConfig tunes the Guarded decorator.
type GuardConfig struct {
	Name             string
	OpTimeout        time.Duration
	FailureThreshold uint32
	OpenTimeout      time.Duration
}

// Guarded wraps a RoomStore with a per-call timeout and a circuit breaker.
// Infrastructure failures come back wrapped in ErrUnavailable; lookup and
// uniqueness errors pass through untouched and do not trip the breaker.
type Guarded struct {
	inner   RoomStore
	cb      *gobreaker.CircuitBreaker[interface{}]
	timeout time.Duration
}

// NewGuarded decorates inner.
func NewGuarded(inner RoomStore, cfg GuardConfig) *Guarded {
	if cfg.Name == "" {
		cfg.Name = "store"
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || IsDomainError(err) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Store circuit breaker state changed")
			metrics.SetCircuitBreakerState(name, from.String(), to.String(), int(to))
		},
	}

	return &Guarded{
		inner:   inner,
		cb:      gobreaker.NewCircuitBreaker[interface{}](settings),
		timeout: cfg.OpTimeout,
	}
}

// State reports the breaker state for health checks.
func (g *Guarded) State() gobreaker.State {
	return g.cb.State()
}

// Unwrap returns the decorated store.
func (g *Guarded) Unwrap() RoomStore {
	return g.inner
}

// guard runs fn through the breaker with the op timeout applied.
func guard[T any](ctx context.Context, g *Guarded, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	out, err := g.cb.Execute(func() (interface{}, error) {
		return fn(ctx)
	})
	metrics.RecordStoreOperation(op, time.Since(start), errorType(err))

	if err != nil {
		if IsDomainError(err) {
			return zero, err
		}
		return zero, fmt.Errorf("%w: %s: %w", ErrUnavailable, op, err)
	}
	if out == nil {
		return zero, nil
	}
	return out.(T), nil
}

func errorType(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrRoomNotFound), errors.Is(err, ErrMessageNotFound):
		return "not_found"
	case errors.Is(err, ErrRoomExists), errors.Is(err, ErrCodeInUse):
		return "conflict"
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "breaker_open"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "unavailable"
	}
}

type none struct{}

func (g *Guarded) CreateRoom(ctx context.Context, room *models.Room) error {
	_, err := guard(ctx, g, "create_room", func(ctx context.Context) (none, error) {
		return none{}, g.inner.CreateRoom(ctx, room)
	})
	return err
}

func (g *Guarded) SaveRoom(ctx context.Context, room *models.Room) error {
	_, err := guard(ctx, g, "save_room", func(ctx context.Context) (none, error) {
		return none{}, g.inner.SaveRoom(ctx, room)
	})
	return err
}

func (g *Guarded) GetRoom(ctx context.Context, id string) (*models.Room, error) {
	return guard(ctx, g, "get_room", func(ctx context.Context) (*models.Room, error) {
		return g.inner.GetRoom(ctx, id)
	})
}

func (g *Guarded) GetRoomByCode(ctx context.Context, code string) (*models.Room, error) {
	return guard(ctx, g, "get_room_by_code", func(ctx context.Context) (*models.Room, error) {
		return g.inner.GetRoomByCode(ctx, code)
	})
}

func (g *Guarded) DeleteRoom(ctx context.Context, id string) error {
	_, err := guard(ctx, g, "delete_room", func(ctx context.Context) (none, error) {
		return none{}, g.inner.DeleteRoom(ctx, id)
	})
	return err
}

func (g *Guarded) ListRooms(ctx context.Context, q RoomQuery) ([]*models.Room, error) {
	return guard(ctx, g, "list_rooms", func(ctx context.Context) ([]*models.Room, error) {
		return g.inner.ListRooms(ctx, q)
	})
}

func (g *Guarded) AddMessage(ctx context.Context, msg *models.ChatMessage) error {
	_, err := guard(ctx, g, "add_message", func(ctx context.Context) (none, error) {
		return none{}, g.inner.AddMessage(ctx, msg)
	})
	return err
}

func (g *Guarded) GetMessage(ctx context.Context, id string) (*models.ChatMessage, error) {
	return guard(ctx, g, "get_message", func(ctx context.Context) (*models.ChatMessage, error) {
		return g.inner.GetMessage(ctx, id)
	})
}

func (g *Guarded) DeleteMessage(ctx context.Context, id string) error {
	_, err := guard(ctx, g, "delete_message", func(ctx context.Context) (none, error) {
		return none{}, g.inner.DeleteMessage(ctx, id)
	})
	return err
}

func (g *Guarded) ListMessages(ctx context.Context, roomID string, before time.Time, limit int) ([]*models.ChatMessage, error) {
	return guard(ctx, g, "list_messages", func(ctx context.Context) ([]*models.ChatMessage, error) {
		return g.inner.ListMessages(ctx, roomID, before, limit)
	})
}

func (g *Guarded) DeleteRoomMessages(ctx context.Context, roomID string) (int, error) {
	return guard(ctx, g, "delete_room_messages", func(ctx context.Context) (int, error) {
		return g.inner.DeleteRoomMessages(ctx, roomID)
	})
}

// Ping bypasses the breaker so readiness reflects the backend directly.
func (g *Guarded) Ping(ctx context.Context) error {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	return g.inner.Ping(ctx)
}

func (g *Guarded) Close() error {
	return g.inner.Close()
}
