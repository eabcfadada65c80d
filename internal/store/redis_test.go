// Watchparty - Synchronized Group Playback for Podcast Communities
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchparty

package store

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

func newMiniredisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewRedisStore(client, "")
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func TestRedisStore(t *testing.T) {
	runStoreSuite(t, func(t *testing.T) RoomStore {
		s, _ := newMiniredisStore(t)
		return s
	})
}

func TestRedisStore_KeyLayout(t *testing.T) {
	s, mr := newMiniredisStore(t)
	ctx := context.Background()

	if err := s.CreateRoom(ctx, newTestRoom("r1", "CODE01", "host")); err != nil {
		t.Fatal(err)
	}
	if err := s.AddMessage(ctx, newTestMessage("m1", "r1", baseTime)); err != nil {
		t.Fatal(err)
	}

	for _, key := range []string{"wp:room:r1", "wp:code:CODE01", "wp:msg:m1"} {
		if !mr.Exists(key) {
			t.Errorf("expected key %s", key)
		}
	}
	if ok, _ := mr.SIsMember("wp:user:host", "r1"); !ok {
		t.Error("participant index missing")
	}
	if got, _ := mr.Get("wp:code:CODE01"); got != "r1" {
		t.Errorf("code index = %q, want r1", got)
	}
}

func TestRedisStore_PingFailsWhenServerGone(t *testing.T) {
	s, mr := newMiniredisStore(t)
	mr.Close()

	if err := s.Ping(context.Background()); err == nil {
		t.Error("Ping() should fail after the server stops")
	}
}

func TestOpenRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)

	s, err := OpenRedisStore(context.Background(), mr.Addr(), "", 0)
	if err != nil {
		t.Fatalf("OpenRedisStore() error = %v", err)
	}
	defer s.Close()

	if _, err := OpenRedisStore(context.Background(), "127.0.0.1:1", "", 0); err == nil {
		t.Error("OpenRedisStore() to a closed port should fail")
	}
}
