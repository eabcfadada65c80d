// Watchparty - Synchronized Group Playback for Podcast Communities
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchparty

package services

import (
	"context"
	"time"

	"github.com/tomtom215/watchparty/internal/logging"
)

// SweepFunc performs one maintenance pass.
type SweepFunc func(ctx context.Context) error

// SweepService calls a SweepFunc every interval until its context ends.
type SweepService struct {
	name     string
	interval time.Duration
	sweep    SweepFunc
}

// NewSweepService creates a periodic service. interval must be positive.
func NewSweepService(name string, interval time.Duration, sweep SweepFunc) *SweepService {
	if interval <= 0 {
		interval = time.Minute
	}
	return &SweepService{name: name, interval: interval, sweep: sweep}
}

// Serve implements suture.Service. The first pass runs after one interval.
func (s *SweepService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	logging.Debug().Str("service", s.name).Dur("interval", s.interval).Msg("Sweep service started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			start := time.Now()
			if err := s.sweep(ctx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				logging.Warn().Err(err).Str("service", s.name).Msg("Sweep failed, retrying next interval")
				continue
			}
			logging.Debug().Str("service", s.name).Dur("took", time.Since(start)).Msg("Sweep finished")
		}
	}
}

// String names the service in supervisor logs.
func (s *SweepService) String() string {
	return s.name
}
