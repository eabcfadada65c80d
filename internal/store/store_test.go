// Watchparty - Synchronized Group Playback for Podcast Communities
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchparty

package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/tomtom215/watchparty/internal/models"
)

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestRoom(id, code, host string) *models.Room {
	return &models.Room{
		ID:              id,
		Code:            code,
		Name:            "Room " + id,
		HostUserID:      host,
		PodcastID:       "pod-1",
		MaxParticipants: 10,
		Participants: []models.Participant{
			{UserID: host, Username: host, JoinedAt: baseTime, IsOnline: true, LastSeen: baseTime},
		},
		AllowChat:   true,
		Active:      true,
		CreatedAt:   baseTime,
		ExpiresAt:   baseTime.Add(models.DefaultRoomTTL),
		LastUpdated: baseTime,
	}
}

func newTestMessage(id, roomID string, at time.Time) *models.ChatMessage {
	msg := models.NewChatMessage(roomID, models.Author{UserID: "u1", Username: "alice"}, "hello "+id, at)
	msg.ID = id
	return msg
}

// runStoreSuite exercises the RoomStore contract against one backend.
func runStoreSuite(t *testing.T, open func(t *testing.T) RoomStore) {
	t.Helper()

	t.Run("create and get", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		room := newTestRoom("r1", "ABC123", "host")
		if err := s.CreateRoom(ctx, room); err != nil {
			t.Fatalf("CreateRoom() error = %v", err)
		}

		got, err := s.GetRoom(ctx, "r1")
		if err != nil {
			t.Fatalf("GetRoom() error = %v", err)
		}
		if got.Code != "ABC123" || got.HostUserID != "host" || len(got.Participants) != 1 {
			t.Errorf("GetRoom() = %+v", got)
		}
		if !got.ExpiresAt.Equal(room.ExpiresAt) {
			t.Errorf("ExpiresAt = %v, want %v", got.ExpiresAt, room.ExpiresAt)
		}

		byCode, err := s.GetRoomByCode(ctx, "ABC123")
		if err != nil || byCode.ID != "r1" {
			t.Fatalf("GetRoomByCode() = %v, %v", byCode, err)
		}
	})

	t.Run("missing room", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		if _, err := s.GetRoom(ctx, "nope"); !errors.Is(err, ErrRoomNotFound) {
			t.Errorf("GetRoom() error = %v, want ErrRoomNotFound", err)
		}
		if _, err := s.GetRoomByCode(ctx, "NOPE00"); !errors.Is(err, ErrRoomNotFound) {
			t.Errorf("GetRoomByCode() error = %v, want ErrRoomNotFound", err)
		}
		if err := s.SaveRoom(ctx, newTestRoom("nope", "NOPE00", "h")); !errors.Is(err, ErrRoomNotFound) {
			t.Errorf("SaveRoom() error = %v, want ErrRoomNotFound", err)
		}
		if err := s.DeleteRoom(ctx, "nope"); !errors.Is(err, ErrRoomNotFound) {
			t.Errorf("DeleteRoom() error = %v, want ErrRoomNotFound", err)
		}
	})

	t.Run("duplicate id and code", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		if err := s.CreateRoom(ctx, newTestRoom("r1", "CODE01", "h")); err != nil {
			t.Fatal(err)
		}
		if err := s.CreateRoom(ctx, newTestRoom("r1", "CODE02", "h")); !errors.Is(err, ErrRoomExists) {
			t.Errorf("duplicate id error = %v, want ErrRoomExists", err)
		}
		if err := s.CreateRoom(ctx, newTestRoom("r2", "CODE01", "h")); !errors.Is(err, ErrCodeInUse) {
			t.Errorf("duplicate code error = %v, want ErrCodeInUse", err)
		}
	})

	t.Run("deactivation releases code", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		room := newTestRoom("r1", "CODE01", "h")
		if err := s.CreateRoom(ctx, room); err != nil {
			t.Fatal(err)
		}
		room.Deactivate(baseTime.Add(time.Hour))
		if err := s.SaveRoom(ctx, room); err != nil {
			t.Fatalf("SaveRoom() error = %v", err)
		}

		if _, err := s.GetRoomByCode(ctx, "CODE01"); !errors.Is(err, ErrRoomNotFound) {
			t.Errorf("inactive room still resolvable by code: %v", err)
		}
		if err := s.CreateRoom(ctx, newTestRoom("r2", "CODE01", "h2")); err != nil {
			t.Errorf("code reuse after deactivation failed: %v", err)
		}

		got, err := s.GetRoom(ctx, "r1")
		if err != nil || got.Active {
			t.Errorf("inactive room = %+v, %v", got, err)
		}
	})

	t.Run("save updates participant index", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		room := newTestRoom("r1", "CODE01", "host")
		if err := s.CreateRoom(ctx, room); err != nil {
			t.Fatal(err)
		}
		room.AddParticipant(models.Participant{UserID: "guest", Username: "guest", JoinedAt: baseTime.Add(time.Minute)})
		if err := s.SaveRoom(ctx, room); err != nil {
			t.Fatal(err)
		}

		mine, err := s.ListRooms(ctx, RoomQuery{ParticipantID: "guest"})
		if err != nil || len(mine) != 1 || mine[0].ID != "r1" {
			t.Fatalf("ListRooms(guest) = %v, %v", mine, err)
		}

		room.RemoveParticipant("guest")
		if err := s.SaveRoom(ctx, room); err != nil {
			t.Fatal(err)
		}
		mine, err = s.ListRooms(ctx, RoomQuery{ParticipantID: "guest"})
		if err != nil || len(mine) != 0 {
			t.Errorf("ListRooms(guest) after leave = %v, %v", mine, err)
		}
	})

	t.Run("list filters and pagination", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		for i := 0; i < 5; i++ {
			r := newTestRoom(fmt.Sprintf("r%d", i), fmt.Sprintf("CODE0%d", i), "h")
			r.CreatedAt = baseTime.Add(time.Duration(i) * time.Minute)
			r.Public = i%2 == 0
			if err := s.CreateRoom(ctx, r); err != nil {
				t.Fatal(err)
			}
		}

		public, err := s.ListRooms(ctx, RoomQuery{State: ActiveOnly, PublicOnly: true})
		if err != nil {
			t.Fatal(err)
		}
		if len(public) != 3 || public[0].ID != "r4" || public[2].ID != "r0" {
			t.Errorf("public rooms = %v", roomIDs(public))
		}

		page, err := s.ListRooms(ctx, RoomQuery{Offset: 1, Limit: 2})
		if err != nil {
			t.Fatal(err)
		}
		if ids := roomIDs(page); len(ids) != 2 || ids[0] != "r3" || ids[1] != "r2" {
			t.Errorf("page = %v, want [r3 r2]", ids)
		}
	})

	t.Run("list by expiry and staleness", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		expiring := newTestRoom("soon", "SOON01", "h")
		expiring.ExpiresAt = baseTime.Add(10 * time.Minute)
		later := newTestRoom("later", "LATE01", "h")
		stale := newTestRoom("stale", "STAL01", "h")
		stale.Active = false
		stale.LastUpdated = baseTime.Add(-72 * time.Hour)
		for _, r := range []*models.Room{expiring, later, stale} {
			if err := s.CreateRoom(ctx, r); err != nil {
				t.Fatal(err)
			}
		}

		got, err := s.ListRooms(ctx, RoomQuery{State: ActiveOnly, ExpiresBefore: baseTime.Add(30 * time.Minute)})
		if err != nil || len(got) != 1 || got[0].ID != "soon" {
			t.Errorf("expiring rooms = %v, %v", roomIDs(got), err)
		}

		got, err = s.ListRooms(ctx, RoomQuery{State: InactiveOnly, UpdatedBefore: baseTime.Add(-48 * time.Hour)})
		if err != nil || len(got) != 1 || got[0].ID != "stale" {
			t.Errorf("stale rooms = %v, %v", roomIDs(got), err)
		}
	})

	t.Run("delete room", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		if err := s.CreateRoom(ctx, newTestRoom("r1", "CODE01", "h")); err != nil {
			t.Fatal(err)
		}
		if err := s.DeleteRoom(ctx, "r1"); err != nil {
			t.Fatalf("DeleteRoom() error = %v", err)
		}
		if _, err := s.GetRoom(ctx, "r1"); !errors.Is(err, ErrRoomNotFound) {
			t.Errorf("room still present: %v", err)
		}
		if _, err := s.GetRoomByCode(ctx, "CODE01"); !errors.Is(err, ErrRoomNotFound) {
			t.Errorf("code still indexed: %v", err)
		}
		if rooms, _ := s.ListRooms(ctx, RoomQuery{ParticipantID: "h"}); len(rooms) != 0 {
			t.Errorf("participant index not cleared: %v", roomIDs(rooms))
		}
	})

	t.Run("messages newest first with cursor", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		for i := 0; i < 5; i++ {
			msg := newTestMessage(fmt.Sprintf("m%d", i), "r1", baseTime.Add(time.Duration(i)*time.Second))
			if err := s.AddMessage(ctx, msg); err != nil {
				t.Fatal(err)
			}
		}
		if err := s.AddMessage(ctx, newTestMessage("other", "r2", baseTime)); err != nil {
			t.Fatal(err)
		}

		all, err := s.ListMessages(ctx, "r1", time.Time{}, 0)
		if err != nil {
			t.Fatal(err)
		}
		if ids := messageIDs(all); len(ids) != 5 || ids[0] != "m4" || ids[4] != "m0" {
			t.Errorf("all messages = %v", ids)
		}

		page, err := s.ListMessages(ctx, "r1", baseTime.Add(3*time.Second), 2)
		if err != nil {
			t.Fatal(err)
		}
		if ids := messageIDs(page); len(ids) != 2 || ids[0] != "m2" || ids[1] != "m1" {
			t.Errorf("page before m3 = %v, want [m2 m1]", ids)
		}
	})

	t.Run("delete message", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		if err := s.AddMessage(ctx, newTestMessage("m1", "r1", baseTime)); err != nil {
			t.Fatal(err)
		}
		got, err := s.GetMessage(ctx, "m1")
		if err != nil || got.Text != "hello m1" {
			t.Fatalf("GetMessage() = %v, %v", got, err)
		}
		if err := s.DeleteMessage(ctx, "m1"); err != nil {
			t.Fatalf("DeleteMessage() error = %v", err)
		}
		if _, err := s.GetMessage(ctx, "m1"); !errors.Is(err, ErrMessageNotFound) {
			t.Errorf("GetMessage() after delete = %v", err)
		}
		if err := s.DeleteMessage(ctx, "m1"); !errors.Is(err, ErrMessageNotFound) {
			t.Errorf("second DeleteMessage() = %v", err)
		}
		if msgs, _ := s.ListMessages(ctx, "r1", time.Time{}, 0); len(msgs) != 0 {
			t.Errorf("deleted message still listed: %v", messageIDs(msgs))
		}
	})

	t.Run("delete room messages", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		for i := 0; i < 3; i++ {
			if err := s.AddMessage(ctx, newTestMessage(fmt.Sprintf("m%d", i), "r1", baseTime.Add(time.Duration(i)*time.Second))); err != nil {
				t.Fatal(err)
			}
		}
		if err := s.AddMessage(ctx, newTestMessage("keep", "r2", baseTime)); err != nil {
			t.Fatal(err)
		}

		n, err := s.DeleteRoomMessages(ctx, "r1")
		if err != nil || n != 3 {
			t.Fatalf("DeleteRoomMessages() = %d, %v; want 3", n, err)
		}
		if msgs, _ := s.ListMessages(ctx, "r1", time.Time{}, 0); len(msgs) != 0 {
			t.Errorf("messages left: %v", messageIDs(msgs))
		}
		if _, err := s.GetMessage(ctx, "keep"); err != nil {
			t.Errorf("other room's message removed: %v", err)
		}
		if n, err := s.DeleteRoomMessages(ctx, "r1"); err != nil || n != 0 {
			t.Errorf("second DeleteRoomMessages() = %d, %v", n, err)
		}
	})

	t.Run("returned rooms are copies", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		if err := s.CreateRoom(ctx, newTestRoom("r1", "CODE01", "h")); err != nil {
			t.Fatal(err)
		}
		got, _ := s.GetRoom(ctx, "r1")
		got.Participants[0].Username = "mutated"
		got.Ban("x")

		again, _ := s.GetRoom(ctx, "r1")
		if again.Participants[0].Username != "h" || again.IsBanned("x") {
			t.Errorf("store state leaked through returned room: %+v", again)
		}
	})

	t.Run("ping", func(t *testing.T) {
		if err := open(t).Ping(context.Background()); err != nil {
			t.Errorf("Ping() error = %v", err)
		}
	})
}

func roomIDs(rooms []*models.Room) []string {
	ids := make([]string, len(rooms))
	for i, r := range rooms {
		ids[i] = r.ID
	}
	return ids
}

func messageIDs(msgs []*models.ChatMessage) []string {
	ids := make([]string, len(msgs))
	for i, m := range msgs {
		ids[i] = m.ID
	}
	return ids
}

func TestMemoryStore(t *testing.T) {
	runStoreSuite(t, func(t *testing.T) RoomStore {
		return NewMemoryStore()
	})
}

func TestRoomQuery_Matches(t *testing.T) {
	room := newTestRoom("r1", "CODE01", "host")
	room.Public = true

	tests := []struct {
		name string
		q    RoomQuery
		want bool
	}{
		{"empty query", RoomQuery{}, true},
		{"active", RoomQuery{State: ActiveOnly}, true},
		{"inactive", RoomQuery{State: InactiveOnly}, false},
		{"public", RoomQuery{PublicOnly: true}, true},
		{"participant", RoomQuery{ParticipantID: "host"}, true},
		{"stranger", RoomQuery{ParticipantID: "other"}, false},
		{"expires before boundary", RoomQuery{ExpiresBefore: room.ExpiresAt}, true},
		{"expires too late", RoomQuery{ExpiresBefore: room.ExpiresAt.Add(-time.Second)}, false},
		{"updated before is strict", RoomQuery{UpdatedBefore: room.LastUpdated}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.q.Matches(room); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}
