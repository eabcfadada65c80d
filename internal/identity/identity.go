// Watchparty - Synchronized Group Playback for Podcast Communities
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchparty

// Package identity implements party.IdentityProvider: callers come from the
// verified token in the request context and other users from the platform
// user directory.
package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/watchparty/internal/auth"
	"github.com/tomtom215/watchparty/internal/cache"
	"github.com/tomtom215/watchparty/internal/config"
	"github.com/tomtom215/watchparty/internal/metrics"
	"github.com/tomtom215/watchparty/internal/party"
	"github.com/tomtom215/watchparty/internal/upstream"
)

const serviceName = "identity"

var _ party.IdentityProvider = (*Provider)(nil)

// CallerFromSubject converts a verified token subject to a party caller.
func CallerFromSubject(s *auth.AuthSubject) party.Caller {
	return party.Caller{
		UserID:    s.ID,
		Username:  s.Username,
		AvatarURL: s.AvatarURL,
		Roles:     s.Roles,
	}
}

// ClaimsProvider resolves the caller from the request context.
type ClaimsProvider struct{}

// CurrentCaller returns the caller attached by the auth middleware.
func (ClaimsProvider) CurrentCaller(ctx context.Context) (party.Caller, error) {
	subject := auth.GetAuthSubject(ctx)
	if subject == nil {
		return party.Caller{}, auth.ErrNoCredentials
	}
	if subject.IsExpired() {
		return party.Caller{}, auth.ErrExpiredCredentials
	}
	return CallerFromSubject(subject), nil
}

// Directory looks users up via GET {base}/users/{id}. Without a base URL
// every user resolves to a profile named after its id.
type Directory struct {
	client *upstream.Client
	cache  *cache.Cache[party.UserProfile]
}

// NewDirectory creates a directory client from the upstream section.
func NewDirectory(cfg config.UpstreamConfig) *Directory {
	d := &Directory{}
	if cfg.IdentityURL == "" {
		return d
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	d.client = upstream.New(upstream.Config{
		Name:             serviceName,
		BaseURL:          cfg.IdentityURL,
		Token:            cfg.Token,
		Timeout:          cfg.Timeout,
		FailureThreshold: cfg.FailureThreshold,
	})
	d.cache = cache.New[party.UserProfile](ttl, 0)
	return d
}

// LookupUser returns userID's public profile.
func (d *Directory) LookupUser(ctx context.Context, userID string) (party.UserProfile, error) {
	if d.client == nil {
		return party.UserProfile{UserID: userID, Username: userID}, nil
	}
	if p, ok := d.cache.Get(userID); ok {
		metrics.RecordUpstreamCache(serviceName, true)
		return p, nil
	}
	metrics.RecordUpstreamCache(serviceName, false)

	var p party.UserProfile
	if err := d.client.GetJSON(ctx, upstream.Path("users", userID), &p); err != nil {
		if errors.Is(err, upstream.ErrNotFound) {
			return party.UserProfile{}, fmt.Errorf("user %s: %w", userID, err)
		}
		return party.UserProfile{}, err
	}
	if p.UserID == "" {
		p.UserID = userID
	}
	d.cache.Set(userID, p)
	return p, nil
}

// Close stops the cache sweep.
func (d *Directory) Close() {
	if d.cache != nil {
		d.cache.Close()
	}
}

// Provider combines ClaimsProvider and Directory.
type Provider struct {
	ClaimsProvider
	*Directory
}

// New creates the production identity provider.
func New(cfg config.UpstreamConfig) *Provider {
	return &Provider{Directory: NewDirectory(cfg)}
}
