// Watchparty - Synchronized Group Playback for Podcast Communities
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchparty

package store

import (
	"context"
	"fmt"

	"github.com/tomtom215/watchparty/internal/config"
	"github.com/tomtom215/watchparty/internal/logging"
)

// Open creates the backend selected by cfg.Backend and wraps it in Guarded.
func Open(ctx context.Context, cfg config.StoreConfig) (*Guarded, error) {
	var (
		inner RoomStore
		err   error
	)

	switch cfg.Backend {
	case config.StoreBackendBadger:
		inner, err = OpenBadgerStore(cfg.Path)
	case config.StoreBackendRedis:
		inner, err = OpenRedisStore(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	case config.StoreBackendMemory:
		logging.Warn().Msg("Using in-memory room store; rooms will not survive a restart")
		inner = NewMemoryStore()
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}

	return NewGuarded(inner, GuardConfig{
		Name:             "store-" + cfg.Backend,
		OpTimeout:        cfg.OpTimeout,
		FailureThreshold: cfg.BreakerFailures,
		OpenTimeout:      cfg.BreakerTimeout,
	}), nil
}

// GarbageCollector is implemented by backends that need periodic compaction.
type GarbageCollector interface {
	RunGC() error
}

// RunGC forwards to the wrapped backend when it supports compaction.
func (g *Guarded) RunGC() error {
	if gc, ok := g.inner.(GarbageCollector); ok {
		return gc.RunGC()
	}
	return nil
}
