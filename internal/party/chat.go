// Watchparty - Synchronized Group Playback for Podcast Communities
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchparty

package party

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/time/rate"

	"github.com/tomtom215/watchparty/internal/broadcast"
	"github.com/tomtom215/watchparty/internal/cache"
	"github.com/tomtom215/watchparty/internal/logging"
	"github.com/tomtom215/watchparty/internal/metrics"
	"github.com/tomtom215/watchparty/internal/models"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 100

	// Idle limiters are dropped after this long; a fresh one starts full.
	limiterIdleTTL = 10 * time.Minute
)

// ChatRelay persists room chat and delivers it to the room topic.
type ChatRelay struct {
	*core

	limMu    sync.Mutex
	limiters *cache.Cache[*rate.Limiter]
}

func newChatRelay(c *core) *ChatRelay {
	return &ChatRelay{
		core:     c,
		limiters: cache.New[*rate.Limiter](limiterIdleTTL, time.Minute),
	}
}

// Close stops the limiter cleanup loop.
func (cr *ChatRelay) Close() {
	cr.limiters.Close()
}

// allow applies the per-user token bucket for roomID.
func (cr *ChatRelay) allow(roomID, userID string) bool {
	if cr.cfg.ChatRatePerSecond <= 0 {
		return true
	}
	key := roomID + "/" + userID

	cr.limMu.Lock()
	defer cr.limMu.Unlock()
	lim, ok := cr.limiters.Get(key)
	if !ok {
		lim = rate.NewLimiter(rate.Limit(cr.cfg.ChatRatePerSecond), cr.cfg.ChatBurst)
	}
	// Refresh the TTL on every use.
	cr.limiters.Set(key, lim)
	return lim.Allow()
}

// canChat checks the caller may post in room.
func canChat(room *models.Room, caller Caller) error {
	if !room.Active {
		return notFound("room %s has ended", room.ID)
	}
	if !room.HasParticipant(caller.UserID) {
		return forbidden("not a participant of room %s", room.ID)
	}
	if !room.AllowChat {
		return forbidden("chat is disabled in this room")
	}
	return nil
}

// SendMessage stores a chat message. Delivery is left to the caller through
// Deliver, or use Post for both.
func (cr *ChatRelay) SendMessage(ctx context.Context, caller Caller, roomID, text string) (*models.ChatMessage, error) {
	return cr.sendMessage(ctx, caller, roomID, text, false)
}

func (cr *ChatRelay) sendMessage(ctx context.Context, caller Caller, roomID, text string, deliver bool) (*models.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, invalid("message is empty")
	}
	if utf8.RuneCountInString(text) > cr.cfg.MaxMessageLength {
		return nil, invalid("message exceeds %d characters", cr.cfg.MaxMessageLength)
	}
	return cr.persist(ctx, "chat", caller, roomID, deliver, func(at time.Time) *models.ChatMessage {
		return models.NewChatMessage(roomID, caller.author(), text, at)
	})
}

// SendReaction stores an emoji reaction and delivers it.
func (cr *ChatRelay) SendReaction(ctx context.Context, caller Caller, roomID, reaction string) (*models.ChatMessage, error) {
	reaction = strings.TrimSpace(reaction)
	if reaction == "" || utf8.RuneCountInString(reaction) > cr.cfg.MaxReactionLength {
		return nil, invalid("reaction must be 1 to %d characters", cr.cfg.MaxReactionLength)
	}
	return cr.persist(ctx, "reaction", caller, roomID, true, func(at time.Time) *models.ChatMessage {
		return models.NewReaction(roomID, caller.author(), reaction, at)
	})
}

// persist checks, stores and optionally delivers a message with the room
// lock held, so it is ordered against close, kick and ban.
func (cr *ChatRelay) persist(ctx context.Context, op string, caller Caller, roomID string, deliver bool, build func(time.Time) *models.ChatMessage) (*models.ChatMessage, error) {
	if err := caller.validate(); err != nil {
		return nil, err
	}
	var msg *models.ChatMessage
	err := cr.withRoom(ctx, op, roomID, func(room *models.Room) error {
		if err := canChat(room, caller); err != nil {
			return err
		}
		if !cr.allow(roomID, caller.UserID) {
			metrics.ChatRateLimited.Inc()
			return fmt.Errorf("%w: slow down", ErrRateLimited)
		}
		built := build(cr.now())
		if err := built.Validate(); err != nil {
			return invalid("%v", err)
		}
		if err := cr.reg.Store().AddMessage(ctx, built); err != nil {
			return err
		}
		metrics.RecordChatMessage(string(built.Type))
		if deliver {
			cr.Deliver(ctx, built)
		}
		msg = built
		return nil
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// Deliver publishes a stored message on the room chat topic.
func (cr *ChatRelay) Deliver(ctx context.Context, msg *models.ChatMessage) {
	cr.publish(ctx, msg.RoomID, broadcast.KindChat, msg)
}

// Post stores and delivers a chat message.
func (cr *ChatRelay) Post(ctx context.Context, caller Caller, roomID, text string) (*models.ChatMessage, error) {
	return cr.sendMessage(ctx, caller, roomID, text, true)
}

// DeleteMessage removes one of the caller's own messages. Hosts cannot
// delete other people's messages.
func (cr *ChatRelay) DeleteMessage(ctx context.Context, caller Caller, roomID, messageID string) error {
	if err := caller.validate(); err != nil {
		return err
	}
	if messageID == "" {
		return invalid("message id is required")
	}
	msg, err := cr.reg.Store().GetMessage(ctx, messageID)
	if err != nil {
		return classify(err)
	}
	if !msg.IsAuthoredBy(caller.UserID) {
		return forbidden("only the author can delete a message")
	}
	if msg.RoomID != roomID {
		return invalid("message %s does not belong to room %s", messageID, roomID)
	}
	return cr.withRoom(ctx, "delete-message", roomID, func(*models.Room) error {
		if err := cr.reg.Store().DeleteMessage(ctx, messageID); err != nil {
			return err
		}
		logging.ForRoom(ctx, "chat", roomID, caller.UserID).Debug().Str("message_id", messageID).Msg("Message deleted")
		cr.publish(ctx, roomID, broadcast.KindMessageDeleted, models.MessageDeletedEvent{
			RoomID:    roomID,
			MessageID: messageID,
			DeletedBy: caller.UserID,
			Timestamp: cr.now(),
		})
		return nil
	})
}

// ListMessages returns room history newest first. A zero before starts from
// the latest message.
func (cr *ChatRelay) ListMessages(ctx context.Context, caller Caller, roomID string, limit int, before time.Time) ([]*models.ChatMessage, error) {
	if err := caller.validate(); err != nil {
		return nil, err
	}
	if limit == 0 {
		limit = defaultHistoryLimit
	}
	if limit < 1 || limit > maxHistoryLimit {
		return nil, invalid("limit must be between 1 and %d", maxHistoryLimit)
	}
	room, err := cr.reg.Get(ctx, roomID)
	if err != nil {
		return nil, classify(err)
	}
	if !room.HasParticipant(caller.UserID) {
		return nil, forbidden("not a participant of room %s", roomID)
	}
	msgs, err := cr.reg.Store().ListMessages(ctx, roomID, before, limit)
	if err != nil {
		return nil, classify(err)
	}
	return msgs, nil
}
