// Watchparty - Synchronized Group Playback for Podcast Communities
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchparty

// Package registry is the write-through, in-memory view of active rooms.
//
// Every mutation goes to the RoomStore first and reaches the cache only after
// the store accepted it. Callers serialize mutations of one room with Lock;
// rooms never contend with each other. Readers always receive deep copies.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/tomtom215/watchparty/internal/logging"
	"github.com/tomtom215/watchparty/internal/metrics"
	"github.com/tomtom215/watchparty/internal/models"
	"github.com/tomtom215/watchparty/internal/store"
)

var (
	// ErrContention is returned when a room lock could not be taken in time.
	// It is safe to retry.
	ErrContention = errors.New("room is busy")

	// ErrCodeTaken is returned by Insert when an active room holds the code.
	ErrCodeTaken = errors.New("room code taken")
)

// DefaultLockTimeout bounds lock waits when Config.LockTimeout is unset.
const DefaultLockTimeout = 2 * time.Second

// loadTimeout bounds a shared store read. It does not follow any one caller.
const loadTimeout = 5 * time.Second

// Config tunes the registry.
type Config struct {
	LockTimeout time.Duration
}

// Registry caches active rooms in front of a RoomStore.
type Registry struct {
	store store.RoomStore
	locks *lockTable
	loads singleflight.Group

	mu    sync.RWMutex
	rooms map[string]*models.Room
	codes map[string]string
	// gen counts cache writes; a reload only fills the cache if no write
	// happened while it was reading the store.
	gen uint64
}

// New creates a registry over s.
func New(s store.RoomStore, cfg Config) *Registry {
	if cfg.LockTimeout <= 0 {
		cfg.LockTimeout = DefaultLockTimeout
	}
	return &Registry{
		store: s,
		locks: newLockTable(cfg.LockTimeout),
		rooms: make(map[string]*models.Room),
		codes: make(map[string]string),
	}
}

// Store exposes the backing store for read paths that bypass the cache
// (listings, message history, sweeps).
func (r *Registry) Store() store.RoomStore {
	return r.store
}

// Lock takes the exclusive lock for roomID. It fails with ErrContention when
// the wait exceeds the configured timeout.
func (r *Registry) Lock(ctx context.Context, roomID string) (unlock func(), err error) {
	return r.locks.acquire(ctx, "room:"+roomID)
}

// Get returns a copy of the room. Cache misses reload from the store, with
// concurrent misses for the same room sharing one load. Inactive rooms are
// returned but never cached.
func (r *Registry) Get(ctx context.Context, roomID string) (*models.Room, error) {
	r.mu.RLock()
	cached, ok := r.rooms[roomID]
	var room *models.Room
	if ok {
		room = cached.Clone()
	}
	r.mu.RUnlock()
	if ok {
		return room, nil
	}

	return r.load(ctx, roomID, func(lctx context.Context) (*models.Room, error) {
		return r.store.GetRoom(lctx, roomID)
	})
}

// GetByCode returns a copy of the active room holding code.
func (r *Registry) GetByCode(ctx context.Context, code string) (*models.Room, error) {
	r.mu.RLock()
	id, ok := r.codes[code]
	var room *models.Room
	if ok {
		if cached, found := r.rooms[id]; found {
			room = cached.Clone()
		}
	}
	r.mu.RUnlock()
	if room != nil {
		return room, nil
	}

	return r.load(ctx, "code:"+code, func(lctx context.Context) (*models.Room, error) {
		return r.store.GetRoomByCode(lctx, code)
	})
}

// load runs one store read per key for all concurrent callers. The read is
// detached from the caller that started it, so its cancellation fails only
// that caller and not the ones waiting on the same read.
func (r *Registry) load(ctx context.Context, key string, get func(context.Context) (*models.Room, error)) (*models.Room, error) {
	ch := r.loads.DoChan(key, func() (interface{}, error) {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()

		gen := r.generation()
		loaded, err := get(lctx)
		if err != nil {
			return nil, err
		}
		if loaded.Active {
			r.fill(loaded, gen)
		}
		return loaded, nil
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*models.Room).Clone(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Insert persists a new room and caches it. The code key is locked for the
// duration so two creators racing for one code resolve deterministically.
func (r *Registry) Insert(ctx context.Context, room *models.Room) error {
	unlock, err := r.locks.acquire(ctx, "code:"+room.Code)
	if err != nil {
		return err
	}
	defer unlock()

	if err := r.store.CreateRoom(ctx, room); err != nil {
		if errors.Is(err, store.ErrCodeInUse) {
			return fmt.Errorf("%w: %s", ErrCodeTaken, room.Code)
		}
		return err
	}
	r.Put(room)
	return nil
}

// Save writes room through to the store, then updates the cache. An
// inactive room is evicted and its code released.
func (r *Registry) Save(ctx context.Context, room *models.Room) error {
	if err := r.store.SaveRoom(ctx, room); err != nil {
		return err
	}
	if room.Active {
		r.Put(room)
	} else {
		r.Remove(room.ID)
	}
	return nil
}

// Delete removes the room from the store, then from the cache.
func (r *Registry) Delete(ctx context.Context, roomID string) error {
	if err := r.store.DeleteRoom(ctx, roomID); err != nil {
		return err
	}
	r.Remove(roomID)
	return nil
}

// Put caches a copy of room without touching the store.
func (r *Registry) Put(room *models.Room) {
	r.put(room.Clone())
}

func (r *Registry) generation() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.gen
}

// fill caches a reloaded room unless the cache changed since gen was read
// or the room is already cached.
func (r *Registry) fill(room *models.Room, gen uint64) {
	r.mu.Lock()
	if _, cached := r.rooms[room.ID]; cached || r.gen != gen {
		r.mu.Unlock()
		return
	}
	n := r.putLocked(room)
	r.mu.Unlock()

	metrics.RoomsCached.Set(float64(n))
}

func (r *Registry) put(room *models.Room) {
	r.mu.Lock()
	n := r.putLocked(room)
	r.mu.Unlock()

	metrics.RoomsCached.Set(float64(n))
}

func (r *Registry) putLocked(room *models.Room) int {
	r.gen++
	if old, ok := r.rooms[room.ID]; ok && old.Code != room.Code && r.codes[old.Code] == room.ID {
		delete(r.codes, old.Code)
	}
	r.rooms[room.ID] = room
	r.codes[room.Code] = room.ID
	return len(r.rooms)
}

// Remove evicts roomID from the cache.
func (r *Registry) Remove(roomID string) {
	r.mu.Lock()
	r.gen++
	if old, ok := r.rooms[roomID]; ok {
		if r.codes[old.Code] == roomID {
			delete(r.codes, old.Code)
		}
		delete(r.rooms, roomID)
	}
	n := len(r.rooms)
	r.mu.Unlock()

	metrics.RoomsCached.Set(float64(n))
}

// Len returns the number of cached rooms.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// Warm loads every active room from the store into the cache.
func (r *Registry) Warm(ctx context.Context) (int, error) {
	rooms, err := r.store.ListRooms(ctx, store.RoomQuery{State: store.ActiveOnly})
	if err != nil {
		return 0, fmt.Errorf("warm registry: %w", err)
	}
	for _, room := range rooms {
		r.put(room)
	}
	logging.Info().Int("rooms", len(rooms)).Msg("Room registry warmed from store")
	return len(rooms), nil
}
