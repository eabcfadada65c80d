// Watchparty - Synchronized Group Playback for Podcast Communities
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchparty

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/watchparty/internal/logging"
	"github.com/tomtom215/watchparty/internal/models"
)

// Key layout:
//
//	room:<id>                          room JSON
//	room_code:<CODE>                   room id, active rooms only
//	room_user:<userID>:<roomID>        room id, one per participant
//	msg:<id>                           message JSON
//	room_msg:<roomID>:<nanos>:<msgID>  message id, ordered by timestamp
const (
	roomKeyPrefix     = "room:"
	roomCodeKeyPrefix = "room_code:"
	roomUserKeyPrefix = "room_user:"
	msgKeyPrefix      = "msg:"
	roomMsgKeyPrefix  = "room_msg:"

	// conflictRetries bounds retries of optimistic transactions.
	conflictRetries = 3
)

// BadgerStore is the embedded, durable RoomStore.
type BadgerStore struct {
	db *badger.DB
}

// OpenBadgerStore opens (or creates) a store rooted at path.
func OpenBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	opts.SyncWrites = true

	// Reduce logging verbosity
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}

	logging.Info().Str("path", path).Msg("Room store opened")
	return &BadgerStore{db: db}, nil
}

// OpenInMemoryBadgerStore opens a store that keeps everything in memory.
func OpenInMemoryBadgerStore() (*BadgerStore, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open in-memory BadgerDB: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func roomKey(id string) []byte { return []byte(roomKeyPrefix + id) }
func roomCodeKey(code string) []byte { return []byte(roomCodeKeyPrefix + code) }
func roomUserKey(userID, id string) []byte { return []byte(roomUserKeyPrefix + userID + ":" + id) }
func msgKey(id string) []byte { return []byte(msgKeyPrefix + id) }

func roomMsgPrefix(roomID string) []byte { return []byte(roomMsgKeyPrefix + roomID + ":") }

func roomMsgKey(msg *models.ChatMessage) []byte {
	return []byte(fmt.Sprintf("%s%s:%020d:%s", roomMsgKeyPrefix, msg.RoomID, msg.Timestamp.UnixNano(), msg.ID))
}

// update runs fn in a read-write transaction, retrying on write conflicts.
func (s *BadgerStore) update(fn func(txn *badger.Txn) error) error {
	var err error
	for attempt := 0; attempt < conflictRetries; attempt++ {
		err = s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return err
}

func getJSON(txn *badger.Txn, key []byte, dst any) error {
	item, err := txn.Get(key)
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, dst)
	})
}

func getString(txn *badger.Txn, key []byte) (string, error) {
	item, err := txn.Get(key)
	if err != nil {
		return "", err
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return "", err
	}
	return string(val), nil
}

// claimCode indexes an active room's code, failing if another room holds it.
func claimCode(txn *badger.Txn, room *models.Room) error {
	owner, err := getString(txn, roomCodeKey(room.Code))
	switch {
	case errors.Is(err, badger.ErrKeyNotFound):
	case err != nil:
		return fmt.Errorf("get code index: %w", err)
	case owner != room.ID:
		return fmt.Errorf("%w: %s", ErrCodeInUse, room.Code)
	}
	return txn.Set(roomCodeKey(room.Code), []byte(room.ID))
}

// releaseCode drops the code index if it still points at id.
func releaseCode(txn *badger.Txn, code, id string) error {
	owner, err := getString(txn, roomCodeKey(code))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("get code index: %w", err)
	}
	if owner != id {
		return nil
	}
	return txn.Delete(roomCodeKey(code))
}

func (s *BadgerStore) CreateRoom(_ context.Context, room *models.Room) error {
	data, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("marshal room: %w", err)
	}

	return s.update(func(txn *badger.Txn) error {
		_, err := txn.Get(roomKey(room.ID))
		if err == nil {
			return fmt.Errorf("%w: %s", ErrRoomExists, room.ID)
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("get room: %w", err)
		}

		if room.Active {
			if err := claimCode(txn, room); err != nil {
				return err
			}
		}
		for _, p := range room.Participants {
			if err := txn.Set(roomUserKey(p.UserID, room.ID), []byte(room.ID)); err != nil {
				return fmt.Errorf("set user index: %w", err)
			}
		}
		if err := txn.Set(roomKey(room.ID), data); err != nil {
			return fmt.Errorf("set room: %w", err)
		}
		return nil
	})
}

func (s *BadgerStore) SaveRoom(_ context.Context, room *models.Room) error {
	data, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("marshal room: %w", err)
	}

	return s.update(func(txn *badger.Txn) error {
		var old models.Room
		err := getJSON(txn, roomKey(room.ID), &old)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: %s", ErrRoomNotFound, room.ID)
		}
		if err != nil {
			return fmt.Errorf("get room: %w", err)
		}

		if old.Active && (!room.Active || old.Code != room.Code) {
			if err := releaseCode(txn, old.Code, room.ID); err != nil {
				return err
			}
		}
		if room.Active {
			if err := claimCode(txn, room); err != nil {
				return err
			}
		}

		// Diff the participant index.
		for _, p := range old.Participants {
			if !room.HasParticipant(p.UserID) {
				if err := txn.Delete(roomUserKey(p.UserID, room.ID)); err != nil {
					return fmt.Errorf("delete user index: %w", err)
				}
			}
		}
		for _, p := range room.Participants {
			if !old.HasParticipant(p.UserID) {
				if err := txn.Set(roomUserKey(p.UserID, room.ID), []byte(room.ID)); err != nil {
					return fmt.Errorf("set user index: %w", err)
				}
			}
		}

		if err := txn.Set(roomKey(room.ID), data); err != nil {
			return fmt.Errorf("set room: %w", err)
		}
		return nil
	})
}

func (s *BadgerStore) GetRoom(_ context.Context, id string) (*models.Room, error) {
	var room models.Room
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, roomKey(id), &room)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrRoomNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get room: %w", err)
	}
	return &room, nil
}

func (s *BadgerStore) GetRoomByCode(_ context.Context, code string) (*models.Room, error) {
	var room models.Room
	err := s.db.View(func(txn *badger.Txn) error {
		id, err := getString(txn, roomCodeKey(code))
		if err != nil {
			return err
		}
		return getJSON(txn, roomKey(id), &room)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: code %s", ErrRoomNotFound, code)
	}
	if err != nil {
		return nil, fmt.Errorf("get room by code: %w", err)
	}
	return &room, nil
}

func (s *BadgerStore) DeleteRoom(_ context.Context, id string) error {
	return s.update(func(txn *badger.Txn) error {
		var room models.Room
		err := getJSON(txn, roomKey(id), &room)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: %s", ErrRoomNotFound, id)
		}
		if err != nil {
			return fmt.Errorf("get room: %w", err)
		}

		if err := releaseCode(txn, room.Code, id); err != nil {
			return err
		}
		for _, p := range room.Participants {
			if err := txn.Delete(roomUserKey(p.UserID, id)); err != nil {
				return fmt.Errorf("delete user index: %w", err)
			}
		}
		return txn.Delete(roomKey(id))
	})
}

func (s *BadgerStore) ListRooms(_ context.Context, q RoomQuery) ([]*models.Room, error) {
	var candidates []*models.Room

	err := s.db.View(func(txn *badger.Txn) error {
		if q.ParticipantID != "" {
			return collectUserRooms(txn, q.ParticipantID, &candidates)
		}

		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(roomKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var room models.Room
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &room)
			})
			if err != nil {
				return err
			}
			candidates = append(candidates, &room)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}

	return selectRooms(candidates, q), nil
}

func collectUserRooms(txn *badger.Txn, userID string, out *[]*models.Room) error {
	var ids []string

	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	prefix := []byte(roomUserKeyPrefix + userID + ":")
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		ids = append(ids, string(it.Item().Key()[len(prefix):]))
	}
	it.Close()

	for _, id := range ids {
		var room models.Room
		err := getJSON(txn, roomKey(id), &room)
		if errors.Is(err, badger.ErrKeyNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		*out = append(*out, &room)
	}
	return nil
}

func (s *BadgerStore) AddMessage(_ context.Context, msg *models.ChatMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return s.update(func(txn *badger.Txn) error {
		if err := txn.Set(msgKey(msg.ID), data); err != nil {
			return fmt.Errorf("set message: %w", err)
		}
		if err := txn.Set(roomMsgKey(msg), []byte(msg.ID)); err != nil {
			return fmt.Errorf("set message index: %w", err)
		}
		return nil
	})
}

func (s *BadgerStore) GetMessage(_ context.Context, id string) (*models.ChatMessage, error) {
	var msg models.ChatMessage
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, msgKey(id), &msg)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrMessageNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get message: %w", err)
	}
	return &msg, nil
}

func (s *BadgerStore) DeleteMessage(_ context.Context, id string) error {
	return s.update(func(txn *badger.Txn) error {
		var msg models.ChatMessage
		err := getJSON(txn, msgKey(id), &msg)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: %s", ErrMessageNotFound, id)
		}
		if err != nil {
			return fmt.Errorf("get message: %w", err)
		}
		if err := txn.Delete(roomMsgKey(&msg)); err != nil {
			return fmt.Errorf("delete message index: %w", err)
		}
		return txn.Delete(msgKey(id))
	})
}

func (s *BadgerStore) ListMessages(_ context.Context, roomID string, before time.Time, limit int) ([]*models.ChatMessage, error) {
	out := make([]*models.ChatMessage, 0)

	err := s.db.View(func(txn *badger.Txn) error {
		prefix := roomMsgPrefix(roomID)

		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		// Reverse seek lands on the greatest key <= seek. Index keys at
		// exactly `before` carry a ":<id>" suffix and sort after it.
		seek := append(append([]byte{}, prefix...), 0xFF)
		if !before.IsZero() {
			seek = []byte(fmt.Sprintf("%s%020d", prefix, before.UnixNano()))
		}

		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(out) >= limit {
				break
			}
			id, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			var msg models.ChatMessage
			err = getJSON(txn, msgKey(string(id)), &msg)
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			out = append(out, &msg)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return out, nil
}

// DeleteRoomMessages collects the room's index keys first, then deletes
// messages and index entries in one write batch.
func (s *BadgerStore) DeleteRoomMessages(_ context.Context, roomID string) (int, error) {
	var indexKeys [][]byte
	var ids []string

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := roomMsgPrefix(roomID)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			id, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			indexKeys = append(indexKeys, item.KeyCopy(nil))
			ids = append(ids, string(id))
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("list room messages: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	wb := s.db.NewWriteBatch()
	for i, id := range ids {
		if err := wb.Delete(msgKey(id)); err != nil {
			wb.Cancel()
			return 0, fmt.Errorf("delete message: %w", err)
		}
		if err := wb.Delete(indexKeys[i]); err != nil {
			wb.Cancel()
			return 0, fmt.Errorf("delete message index: %w", err)
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, fmt.Errorf("flush message deletes: %w", err)
	}
	return len(ids), nil
}

func (s *BadgerStore) Ping(context.Context) error {
	if s.db.IsClosed() {
		return errors.New("badger database is closed")
	}
	return nil
}

// RunGC reclaims value log space until badger reports nothing to rewrite.
func (s *BadgerStore) RunGC() error {
	if s.db.Opts().InMemory {
		return nil
	}
	for {
		err := s.db.RunValueLogGC(0.5)
		if errors.Is(err, badger.ErrNoRewrite) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("run GC: %w", err)
		}
	}
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}
