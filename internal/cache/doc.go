// Watchparty - Synchronized Group Playback for Podcast Communities
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchparty

/*
Package cache provides a thread-safe in-memory cache with TTL support.

It backs short-lived lookups that do not belong in the room store:
identity profiles and catalog entries fetched from upstream services, and
per-user chat rate limiters that should be forgotten once idle.

# Usage

	c := cache.New[*catalog.Podcast](5*time.Minute, 0)
	defer c.Close()

	c.Set("pod-1", podcast)
	if p, ok := c.Get("pod-1"); ok {
	    // use p
	}

Expired entries are removed lazily on Get and by a background sweep.
*/
package cache
