// Watchparty - Synchronized Group Playback for Podcast Communities
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchparty

package party

import (
	"time"

	"github.com/tomtom215/watchparty/internal/config"
	"github.com/tomtom215/watchparty/internal/models"
)

// Config holds the business rules applied by the party services.
type Config struct {
	MaxParticipants     int
	MaxParticipantLimit int
	RoomTTL             time.Duration
	Retention           time.Duration
	ExpiringSoonWindow  time.Duration
	ExpireInterval      time.Duration
	CleanupInterval     time.Duration
	CodeLength          int
	CodeAttempts        int
	MaxRoomNameLength   int
	MaxMessageLength    int
	MaxReactionLength   int
	ChatRatePerSecond   float64
	ChatBurst           int
	DefaultPageSize     int
	MaxPageSize         int
}

// DefaultConfig returns the standard rules: 8h rooms, 48h retention, 6
// character codes, 100 participants.
func DefaultConfig() Config {
	return Config{
		MaxParticipants:     models.DefaultMaxParticipants,
		MaxParticipantLimit: 500,
		RoomTTL:             models.DefaultRoomTTL,
		Retention:           48 * time.Hour,
		ExpiringSoonWindow:  30 * time.Minute,
		ExpireInterval:      5 * time.Minute,
		CleanupInterval:     time.Hour,
		CodeLength:          6,
		CodeAttempts:        10,
		MaxRoomNameLength:   100,
		MaxMessageLength:    2000,
		MaxReactionLength:   16,
		ChatRatePerSecond:   2,
		ChatBurst:           10,
		DefaultPageSize:     20,
		MaxPageSize:         100,
	}
}

// ConfigFrom converts the loaded configuration section, keeping defaults for
// unset values.
func ConfigFrom(pc config.PartyConfig) Config {
	cfg := DefaultConfig()
	setInt(&cfg.MaxParticipants, pc.MaxParticipants)
	setInt(&cfg.MaxParticipantLimit, pc.MaxParticipantLimit)
	setDuration(&cfg.RoomTTL, pc.RoomTTL)
	setDuration(&cfg.Retention, pc.Retention)
	setDuration(&cfg.ExpiringSoonWindow, pc.ExpiringSoonWindow)
	setDuration(&cfg.ExpireInterval, pc.ExpireInterval)
	setDuration(&cfg.CleanupInterval, pc.CleanupInterval)
	setInt(&cfg.CodeLength, pc.CodeLength)
	setInt(&cfg.CodeAttempts, pc.CodeAttempts)
	setInt(&cfg.MaxMessageLength, pc.MaxMessageLength)
	setInt(&cfg.ChatBurst, pc.ChatBurst)
	setInt(&cfg.DefaultPageSize, pc.DefaultPageSize)
	setInt(&cfg.MaxPageSize, pc.MaxPageSize)
	if pc.ChatRatePerSecond > 0 {
		cfg.ChatRatePerSecond = pc.ChatRatePerSecond
	}
	return cfg
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	setInt(&d.MaxParticipants, c.MaxParticipants)
	setInt(&d.MaxParticipantLimit, c.MaxParticipantLimit)
	setDuration(&d.RoomTTL, c.RoomTTL)
	setDuration(&d.Retention, c.Retention)
	setDuration(&d.ExpiringSoonWindow, c.ExpiringSoonWindow)
	setDuration(&d.ExpireInterval, c.ExpireInterval)
	setDuration(&d.CleanupInterval, c.CleanupInterval)
	setInt(&d.CodeLength, c.CodeLength)
	setInt(&d.CodeAttempts, c.CodeAttempts)
	setInt(&d.MaxRoomNameLength, c.MaxRoomNameLength)
	setInt(&d.MaxMessageLength, c.MaxMessageLength)
	setInt(&d.MaxReactionLength, c.MaxReactionLength)
	setInt(&d.ChatBurst, c.ChatBurst)
	setInt(&d.DefaultPageSize, c.DefaultPageSize)
	setInt(&d.MaxPageSize, c.MaxPageSize)
	// A negative rate disables chat flood control.
	if c.ChatRatePerSecond != 0 {
		d.ChatRatePerSecond = c.ChatRatePerSecond
	}
	return d
}

func setInt(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v time.Duration) {
	if v > 0 {
		*dst = v
	}
}
