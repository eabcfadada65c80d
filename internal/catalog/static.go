// Watchparty - Synchronized Group Playback for Podcast Communities
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchparty

package catalog

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/tomtom215/watchparty/internal/upstream"
)

// StaticCatalog is an in-memory catalog for development and tests.
type StaticCatalog struct {
	mu       sync.RWMutex
	podcasts map[string]Podcast
}

// NewStaticCatalog creates a catalog holding podcasts.
func NewStaticCatalog(podcasts ...Podcast) *StaticCatalog {
	c := &StaticCatalog{podcasts: make(map[string]Podcast, len(podcasts))}
	for _, p := range podcasts {
		c.Add(p)
	}
	return c
}

// ParseStatic builds a catalog from "id=Title" entries (UPSTREAM static_podcasts).
// An entry without '=' uses the id as its title.
func ParseStatic(entries []string) (*StaticCatalog, error) {
	c := NewStaticCatalog()
	for _, entry := range entries {
		id, title, _ := strings.Cut(entry, "=")
		id, title = strings.TrimSpace(id), strings.TrimSpace(title)
		if id == "" {
			return nil, fmt.Errorf("static podcast entry %q has no id", entry)
		}
		if title == "" {
			title = id
		}
		c.Add(Podcast{ID: id, Title: title})
	}
	return c, nil
}

// Add inserts or replaces a podcast.
func (c *StaticCatalog) Add(p Podcast) {
	c.mu.Lock()
	c.podcasts[p.ID] = p
	c.mu.Unlock()
}

// Len returns the number of podcasts.
func (c *StaticCatalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.podcasts)
}

func (c *StaticCatalog) lookup(podcastID string) (Podcast, error) {
	c.mu.RLock()
	p, ok := c.podcasts[podcastID]
	c.mu.RUnlock()
	if !ok {
		return Podcast{}, fmt.Errorf("podcast %s: %w", podcastID, upstream.ErrNotFound)
	}
	return p, nil
}

// PodcastExists implements party.ContentCatalog.
func (c *StaticCatalog) PodcastExists(_ context.Context, podcastID string) (bool, error) {
	_, err := c.lookup(podcastID)
	return err == nil, nil
}

// PodcastTitle implements party.ContentCatalog.
func (c *StaticCatalog) PodcastTitle(_ context.Context, podcastID string) (string, error) {
	p, err := c.lookup(podcastID)
	return p.Title, err
}

// PodcastThumbnail implements party.ContentCatalog.
func (c *StaticCatalog) PodcastThumbnail(_ context.Context, podcastID string) (string, error) {
	p, err := c.lookup(podcastID)
	return p.ThumbnailURL, err
}
