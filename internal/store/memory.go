// Watchparty - Synchronized Group Playback for Podcast Communities
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchparty

package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tomtom215/watchparty/internal/models"
)

// MemoryStore is a non-durable RoomStore for tests and local development.
type MemoryStore struct {
	mu       sync.RWMutex
	rooms    map[string]*models.Room
	codes    map[string]string
	messages map[string]*models.ChatMessage
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rooms:    make(map[string]*models.Room),
		codes:    make(map[string]string),
		messages: make(map[string]*models.ChatMessage),
	}
}

func (s *MemoryStore) CreateRoom(_ context.Context, room *models.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rooms[room.ID]; exists {
		return fmt.Errorf("%w: %s", ErrRoomExists, room.ID)
	}
	if room.Active {
		if owner, taken := s.codes[room.Code]; taken && owner != room.ID {
			return fmt.Errorf("%w: %s", ErrCodeInUse, room.Code)
		}
		s.codes[room.Code] = room.ID
	}
	s.rooms[room.ID] = room.Clone()
	return nil
}

func (s *MemoryStore) SaveRoom(_ context.Context, room *models.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, exists := s.rooms[room.ID]
	if !exists {
		return fmt.Errorf("%w: %s", ErrRoomNotFound, room.ID)
	}
	if room.Active {
		if owner, taken := s.codes[room.Code]; taken && owner != room.ID {
			return fmt.Errorf("%w: %s", ErrCodeInUse, room.Code)
		}
	}
	if old.Active && s.codes[old.Code] == room.ID {
		delete(s.codes, old.Code)
	}
	if room.Active {
		s.codes[room.Code] = room.ID
	}
	s.rooms[room.ID] = room.Clone()
	return nil
}

func (s *MemoryStore) GetRoom(_ context.Context, id string) (*models.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	room, ok := s.rooms[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRoomNotFound, id)
	}
	return room.Clone(), nil
}

func (s *MemoryStore) GetRoomByCode(_ context.Context, code string) (*models.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.codes[code]
	if !ok {
		return nil, fmt.Errorf("%w: code %s", ErrRoomNotFound, code)
	}
	return s.rooms[id].Clone(), nil
}

func (s *MemoryStore) DeleteRoom(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrRoomNotFound, id)
	}
	if s.codes[room.Code] == id {
		delete(s.codes, room.Code)
	}
	delete(s.rooms, id)
	return nil
}

func (s *MemoryStore) ListRooms(_ context.Context, q RoomQuery) ([]*models.Room, error) {
	s.mu.RLock()
	candidates := make([]*models.Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		candidates = append(candidates, r.Clone())
	}
	s.mu.RUnlock()

	return selectRooms(candidates, q), nil
}

func (s *MemoryStore) AddMessage(_ context.Context, msg *models.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *msg
	s.messages[msg.ID] = &cp
	return nil
}

func (s *MemoryStore) GetMessage(_ context.Context, id string) (*models.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msg, ok := s.messages[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMessageNotFound, id)
	}
	cp := *msg
	return &cp, nil
}

func (s *MemoryStore) DeleteMessage(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.messages[id]; !ok {
		return fmt.Errorf("%w: %s", ErrMessageNotFound, id)
	}
	delete(s.messages, id)
	return nil
}

func (s *MemoryStore) ListMessages(_ context.Context, roomID string, before time.Time, limit int) ([]*models.ChatMessage, error) {
	s.mu.RLock()
	out := make([]*models.ChatMessage, 0)
	for _, m := range s.messages {
		if m.RoomID != roomID {
			continue
		}
		if !before.IsZero() && !m.Timestamp.Before(before) {
			continue
		}
		cp := *m
		out = append(out, &cp)
	}
	s.mu.RUnlock()

	sortMessagesNewestFirst(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) DeleteRoomMessages(_ context.Context, roomID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, m := range s.messages {
		if m.RoomID == roomID {
			delete(s.messages, id)
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }
