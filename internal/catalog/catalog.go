// Watchparty - Synchronized Group Playback for Podcast Communities
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchparty

// Package catalog adapts the platform's content service to party.ContentCatalog.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/tomtom215/watchparty/internal/cache"
	"github.com/tomtom215/watchparty/internal/config"
	"github.com/tomtom215/watchparty/internal/metrics"
	"github.com/tomtom215/watchparty/internal/upstream"
)

// Podcast is the subset of a content-service podcast record watchparty uses.
type Podcast struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
}

// Catalog is satisfied by both implementations.
type Catalog interface {
	PodcastExists(ctx context.Context, podcastID string) (bool, error)
	PodcastTitle(ctx context.Context, podcastID string) (string, error)
	PodcastThumbnail(ctx context.Context, podcastID string) (string, error)
}

var (
	_ Catalog = (*HTTPCatalog)(nil)
	_ Catalog = (*StaticCatalog)(nil)
)

const serviceName = "catalog"

// HTTPCatalog reads podcasts from GET {base}/podcasts/{id}. Lookups are
// cached, missing podcasts for a fifth of the TTL.
type HTTPCatalog struct {
	client *upstream.Client
	cache  *cache.Cache[*Podcast]
	group  singleflight.Group
	ttl    time.Duration
}

// NewHTTPCatalog creates a catalog client from the upstream section.
func NewHTTPCatalog(cfg config.UpstreamConfig) *HTTPCatalog {
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &HTTPCatalog{
		client: upstream.New(upstream.Config{
			Name:             serviceName,
			BaseURL:          cfg.CatalogURL,
			Token:            cfg.Token,
			Timeout:          cfg.Timeout,
			FailureThreshold: cfg.FailureThreshold,
		}),
		cache: cache.New[*Podcast](ttl, 0),
		ttl:   ttl,
	}
}

// Close stops the cache sweep.
func (c *HTTPCatalog) Close() {
	c.cache.Close()
}

// Podcast returns the podcast record, or nil when the content service does
// not know the id.
func (c *HTTPCatalog) Podcast(ctx context.Context, podcastID string) (*Podcast, error) {
	if p, ok := c.cache.Get(podcastID); ok {
		metrics.RecordUpstreamCache(serviceName, true)
		return p, nil
	}
	metrics.RecordUpstreamCache(serviceName, false)

	v, err, _ := c.group.Do(podcastID, func() (interface{}, error) {
		var p Podcast
		err := c.client.GetJSON(ctx, upstream.Path("podcasts", podcastID), &p)
		switch {
		case errors.Is(err, upstream.ErrNotFound):
			c.cache.SetWithTTL(podcastID, nil, c.ttl/5)
			return (*Podcast)(nil), nil
		case err != nil:
			return nil, err
		}
		if p.ID == "" {
			p.ID = podcastID
		}
		c.cache.Set(podcastID, &p)
		return &p, nil
	})
	if err != nil {
		return nil, fmt.Errorf("podcast %s: %w", podcastID, err)
	}
	return v.(*Podcast), nil
}

// PodcastExists implements party.ContentCatalog.
func (c *HTTPCatalog) PodcastExists(ctx context.Context, podcastID string) (bool, error) {
	p, err := c.Podcast(ctx, podcastID)
	return p != nil, err
}

// PodcastTitle implements party.ContentCatalog.
func (c *HTTPCatalog) PodcastTitle(ctx context.Context, podcastID string) (string, error) {
	p, err := c.Podcast(ctx, podcastID)
	if err != nil {
		return "", err
	}
	if p == nil {
		return "", fmt.Errorf("podcast %s: %w", podcastID, upstream.ErrNotFound)
	}
	return p.Title, nil
}

// PodcastThumbnail implements party.ContentCatalog.
func (c *HTTPCatalog) PodcastThumbnail(ctx context.Context, podcastID string) (string, error) {
	p, err := c.Podcast(ctx, podcastID)
	if err != nil {
		return "", err
	}
	if p == nil {
		return "", fmt.Errorf("podcast %s: %w", podcastID, upstream.ErrNotFound)
	}
	return p.ThumbnailURL, nil
}

// Open returns the HTTP catalog when CatalogURL is set and the static
// catalog seeded from StaticPodcasts otherwise. The returned func releases
// background resources.
func Open(cfg config.UpstreamConfig) (Catalog, func(), error) {
	if cfg.CatalogURL != "" {
		c := NewHTTPCatalog(cfg)
		return c, c.Close, nil
	}
	c, err := ParseStatic(cfg.StaticPodcasts)
	if err != nil {
		return nil, nil, err
	}
	return c, func() {}, nil
}
