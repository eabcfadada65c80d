// Watchparty - Synchronized Group Playback for Podcast Communities
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchparty

package party

import (
	"context"
	"time"

	"github.com/tomtom215/watchparty/internal/models"
)

// Caller is the verified identity behind a request.
type Caller struct {
	UserID    string
	Username  string
	AvatarURL string
	Roles     []string
}

// HasRole reports whether the caller carries role.
func (c Caller) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func (c Caller) author() models.Author {
	return models.Author{UserID: c.UserID, Username: c.Username, AvatarURL: c.AvatarURL}
}

func (c Caller) participant(now time.Time) models.Participant {
	return models.Participant{
		UserID:    c.UserID,
		Username:  c.Username,
		AvatarURL: c.AvatarURL,
		JoinedAt:  now,
		IsOnline:  true,
		LastSeen:  now,
	}
}

func (c Caller) validate() error {
	if c.UserID == "" {
		return invalid("caller identity is required")
	}
	return nil
}

// UserProfile is the public part of a user record.
type UserProfile struct {
	UserID    string `json:"userId"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// IdentityProvider resolves callers and other users.
type IdentityProvider interface {
	// CurrentCaller returns the verified caller attached to ctx.
	CurrentCaller(ctx context.Context) (Caller, error)
	// LookupUser returns the profile of userID.
	LookupUser(ctx context.Context, userID string) (UserProfile, error)
}

// ContentCatalog answers questions about podcasts owned by the content service.
type ContentCatalog interface {
	PodcastExists(ctx context.Context, podcastID string) (bool, error)
	PodcastTitle(ctx context.Context, podcastID string) (string, error)
	PodcastThumbnail(ctx context.Context, podcastID string) (string, error)
}
