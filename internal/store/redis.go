// Watchparty - Synchronized Group Playback for Podcast Communities
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchparty

package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/goccy/go-json"

	"github.com/tomtom215/watchparty/internal/logging"
	"github.com/tomtom215/watchparty/internal/models"
)

// DefaultRedisKeyPrefix namespaces every key written by RedisStore.
const DefaultRedisKeyPrefix = "wp:"

// RedisStore is a RoomStore shared between instances through Redis.
//
// Rooms are JSON strings indexed by a set of ids, a code key per active room
// and a set of room ids per participant. Messages are JSON strings indexed by
// a per-room sorted set scored by timestamp in microseconds.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
}

// OpenRedisStore connects to addr and verifies the connection.
func OpenRedisStore(ctx context.Context, addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", addr, err)
	}
	logging.Info().Str("addr", addr).Int("db", db).Msg("Room store connected to Redis")
	return NewRedisStore(client, DefaultRedisKeyPrefix), nil
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client *redis.Client, keyPrefix string) *RedisStore {
	if keyPrefix == "" {
		keyPrefix = DefaultRedisKeyPrefix
	}
	return &RedisStore{client: client, keyPrefix: keyPrefix}
}

func (r *RedisStore) roomKey(id string) string { return r.keyPrefix + "room:" + id }
func (r *RedisStore) roomsKey() string { return r.keyPrefix + "rooms" }
func (r *RedisStore) codeKey(code string) string { return r.keyPrefix + "code:" + code }
func (r *RedisStore) userKey(userID string) string { return r.keyPrefix + "user:" + userID }
func (r *RedisStore) msgKey(id string) string { return r.keyPrefix + "msg:" + id }
func (r *RedisStore) roomMsgsKey(roomID string) string { return r.keyPrefix + "room_msgs:" + roomID }

// watch runs fn under WATCH on keys, retrying when the transaction aborts.
func (r *RedisStore) watch(ctx context.Context, fn func(*redis.Tx) error, keys ...string) error {
	var err error
	for attempt := 0; attempt < conflictRetries; attempt++ {
		err = r.client.Watch(ctx, fn, keys...)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return err
}

// getter is satisfied by both *redis.Client and *redis.Tx.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (r *RedisStore) loadRoom(ctx context.Context, c getter, id string) (*models.Room, error) {
	data, err := c.Get(ctx, r.roomKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrRoomNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("redis: get room %s: %w", id, err)
	}
	var room models.Room
	if err := json.Unmarshal(data, &room); err != nil {
		return nil, fmt.Errorf("redis: decode room %s: %w", id, err)
	}
	return &room, nil
}

// checkCode fails when another room owns code.
func (r *RedisStore) checkCode(ctx context.Context, tx *redis.Tx, code, id string) error {
	owner, err := tx.Get(ctx, r.codeKey(code)).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("redis: get code %s: %w", code, err)
	}
	if owner != id {
		return fmt.Errorf("%w: %s", ErrCodeInUse, code)
	}
	return nil
}

func (r *RedisStore) CreateRoom(ctx context.Context, room *models.Room) error {
	data, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("marshal room: %w", err)
	}

	return r.watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, r.roomKey(room.ID)).Result()
		if err != nil {
			return fmt.Errorf("redis: exists room %s: %w", room.ID, err)
		}
		if n > 0 {
			return fmt.Errorf("%w: %s", ErrRoomExists, room.ID)
		}
		if room.Active {
			if err := r.checkCode(ctx, tx, room.Code, room.ID); err != nil {
				return err
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, r.roomKey(room.ID), data, 0)
			pipe.SAdd(ctx, r.roomsKey(), room.ID)
			if room.Active {
				pipe.Set(ctx, r.codeKey(room.Code), room.ID, 0)
			}
			for _, p := range room.Participants {
				pipe.SAdd(ctx, r.userKey(p.UserID), room.ID)
			}
			return nil
		})
		return err
	}, r.roomKey(room.ID), r.codeKey(room.Code))
}

func (r *RedisStore) SaveRoom(ctx context.Context, room *models.Room) error {
	data, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("marshal room: %w", err)
	}

	return r.watch(ctx, func(tx *redis.Tx) error {
		old, err := r.loadRoom(ctx, tx, room.ID)
		if err != nil {
			return err
		}
		if room.Active {
			if err := r.checkCode(ctx, tx, room.Code, room.ID); err != nil {
				return err
			}
		}
		releaseOld := false
		if old.Active && (!room.Active || old.Code != room.Code) {
			owner, err := tx.Get(ctx, r.codeKey(old.Code)).Result()
			if err != nil && !errors.Is(err, redis.Nil) {
				return fmt.Errorf("redis: get code %s: %w", old.Code, err)
			}
			releaseOld = owner == room.ID
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if releaseOld {
				pipe.Del(ctx, r.codeKey(old.Code))
			}
			if room.Active {
				pipe.Set(ctx, r.codeKey(room.Code), room.ID, 0)
			}
			for _, p := range old.Participants {
				if !room.HasParticipant(p.UserID) {
					pipe.SRem(ctx, r.userKey(p.UserID), room.ID)
				}
			}
			for _, p := range room.Participants {
				if !old.HasParticipant(p.UserID) {
					pipe.SAdd(ctx, r.userKey(p.UserID), room.ID)
				}
			}
			pipe.Set(ctx, r.roomKey(room.ID), data, 0)
			return nil
		})
		return err
	}, r.roomKey(room.ID), r.codeKey(room.Code))
}

func (r *RedisStore) GetRoom(ctx context.Context, id string) (*models.Room, error) {
	return r.loadRoom(ctx, r.client, id)
}

func (r *RedisStore) GetRoomByCode(ctx context.Context, code string) (*models.Room, error) {
	id, err := r.client.Get(ctx, r.codeKey(code)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: code %s", ErrRoomNotFound, code)
	}
	if err != nil {
		return nil, fmt.Errorf("redis: get code %s: %w", code, err)
	}
	room, err := r.loadRoom(ctx, r.client, id)
	if err != nil {
		return nil, err
	}
	if !room.Active || room.Code != code {
		return nil, fmt.Errorf("%w: code %s", ErrRoomNotFound, code)
	}
	return room, nil
}

func (r *RedisStore) DeleteRoom(ctx context.Context, id string) error {
	return r.watch(ctx, func(tx *redis.Tx) error {
		room, err := r.loadRoom(ctx, tx, id)
		if err != nil {
			return err
		}
		owner, err := tx.Get(ctx, r.codeKey(room.Code)).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("redis: get code %s: %w", room.Code, err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if owner == id {
				pipe.Del(ctx, r.codeKey(room.Code))
			}
			for _, p := range room.Participants {
				pipe.SRem(ctx, r.userKey(p.UserID), id)
			}
			pipe.SRem(ctx, r.roomsKey(), id)
			pipe.Del(ctx, r.roomKey(id))
			return nil
		})
		return err
	}, r.roomKey(id))
}

func (r *RedisStore) ListRooms(ctx context.Context, q RoomQuery) ([]*models.Room, error) {
	indexKey := r.roomsKey()
	if q.ParticipantID != "" {
		indexKey = r.userKey(q.ParticipantID)
	}

	ids, err := r.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: list room ids: %w", err)
	}
	if len(ids) == 0 {
		return []*models.Room{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.roomKey(id)
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: load rooms: %w", err)
	}

	candidates := make([]*models.Room, 0, len(values))
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			continue // deleted between SMEMBERS and MGET
		}
		var room models.Room
		if err := json.Unmarshal([]byte(s), &room); err != nil {
			return nil, fmt.Errorf("redis: decode room %s: %w", ids[i], err)
		}
		candidates = append(candidates, &room)
	}
	return selectRooms(candidates, q), nil
}

func (r *RedisStore) AddMessage(ctx context.Context, msg *models.ChatMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.msgKey(msg.ID), data, 0)
		pipe.ZAdd(ctx, r.roomMsgsKey(msg.RoomID), &redis.Z{
			Score:  float64(msg.Timestamp.UnixMicro()),
			Member: msg.ID,
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis: add message %s: %w", msg.ID, err)
	}
	return nil
}

func (r *RedisStore) GetMessage(ctx context.Context, id string) (*models.ChatMessage, error) {
	data, err := r.client.Get(ctx, r.msgKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrMessageNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("redis: get message %s: %w", id, err)
	}
	var msg models.ChatMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("redis: decode message %s: %w", id, err)
	}
	return &msg, nil
}

func (r *RedisStore) DeleteMessage(ctx context.Context, id string) error {
	msg, err := r.GetMessage(ctx, id)
	if err != nil {
		return err
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRem(ctx, r.roomMsgsKey(msg.RoomID), id)
		pipe.Del(ctx, r.msgKey(id))
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis: delete message %s: %w", id, err)
	}
	return nil
}

func (r *RedisStore) ListMessages(ctx context.Context, roomID string, before time.Time, limit int) ([]*models.ChatMessage, error) {
	// Scores have microsecond resolution, so the bound is inclusive and the
	// exact cut happens after decoding.
	upper := "+inf"
	if !before.IsZero() {
		upper = strconv.FormatInt(before.UnixMicro(), 10)
	}
	rangeBy := &redis.ZRangeBy{Min: "-inf", Max: upper}
	if limit > 0 {
		rangeBy.Count = int64(limit) + 16
	}

	ids, err := r.client.ZRevRangeByScore(ctx, r.roomMsgsKey(roomID), rangeBy).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: list message ids: %w", err)
	}
	out := make([]*models.ChatMessage, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.msgKey(id)
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: load messages: %w", err)
	}
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var msg models.ChatMessage
		if err := json.Unmarshal([]byte(s), &msg); err != nil {
			return nil, fmt.Errorf("redis: decode message %s: %w", ids[i], err)
		}
		if !before.IsZero() && !msg.Timestamp.Before(before) {
			continue
		}
		out = append(out, &msg)
	}

	sortMessagesNewestFirst(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *RedisStore) DeleteRoomMessages(ctx context.Context, roomID string) (int, error) {
	ids, err := r.client.ZRange(ctx, r.roomMsgsKey(roomID), 0, -1).Result()
	if err != nil {
		return 0, fmt.Errorf("redis: list message ids: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, r.msgKey(id))
	}
	keys = append(keys, r.roomMsgsKey(roomID))
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return 0, fmt.Errorf("redis: delete room messages: %w", err)
	}
	return len(ids), nil
}

func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
