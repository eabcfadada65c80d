// Watchparty - Synchronized Group Playback for Podcast Communities
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchparty

package party

import (
	"context"
	"time"

	"github.com/tomtom215/watchparty/internal/broadcast"
	"github.com/tomtom215/watchparty/internal/logging"
	"github.com/tomtom215/watchparty/internal/metrics"
	"github.com/tomtom215/watchparty/internal/models"
	"github.com/tomtom215/watchparty/internal/registry"
)

// core is the state shared by the party services.
type core struct {
	reg      *registry.Registry
	bc       broadcast.Broadcaster
	catalog  ContentCatalog
	identity IdentityProvider
	cfg      Config
	now      func() time.Time
}

// roomFunc mutates a locked copy of a room. Returning an error aborts the
// operation before anything is persisted or published.
type roomFunc func(room *models.Room) error

// withRoom runs fn with the room lock held and records the outcome under op.
func (c *core) withRoom(ctx context.Context, op, roomID string, fn roomFunc) error {
	err := c.lockedRoom(ctx, roomID, fn)
	metrics.RecordRoomOperation(op, err)
	return err
}

func (c *core) lockedRoom(ctx context.Context, roomID string, fn roomFunc) error {
	if roomID == "" {
		return invalid("room id is required")
	}
	unlock, err := c.reg.Lock(ctx, roomID)
	if err != nil {
		return classify(err)
	}
	defer unlock()

	room, err := c.reg.Get(ctx, roomID)
	if err != nil {
		return classify(err)
	}
	return classify(fn(room))
}

// activeRoom loads roomID and fails with NotFound when it has ended.
func (c *core) activeRoom(ctx context.Context, roomID string) (*models.Room, error) {
	room, err := c.reg.Get(ctx, roomID)
	if err != nil {
		return nil, classify(err)
	}
	if !room.Active {
		return nil, notFound("room %s has ended", roomID)
	}
	return room, nil
}

// save persists room through the registry.
func (c *core) save(ctx context.Context, room *models.Room) error {
	return classify(c.reg.Save(ctx, room))
}

// publish sends payload on the room topic. The mutation it reports is already
// committed, so failures are logged and swallowed.
func (c *core) publish(ctx context.Context, roomID string, kind broadcast.Kind, payload any) {
	if err := c.bc.Publish(context.WithoutCancel(ctx), broadcast.Topic(roomID, kind), payload); err != nil {
		logging.CtxErr(ctx, err).
			Str("room_id", roomID).
			Str("kind", string(kind)).
			Msg("Room event not delivered")
	}
}

func (c *core) publishUpdate(ctx context.Context, room *models.Room) {
	c.publish(ctx, room.ID, broadcast.KindUpdate, room)
}

// postSystem persists a system message and delivers it on the chat topic.
func (c *core) postSystem(ctx context.Context, roomID string, event models.SystemEvent, text string, extra map[string]string) {
	msg := models.NewSystemMessage(roomID, event, text, c.now(), extra)
	if err := c.reg.Store().AddMessage(ctx, msg); err != nil {
		logging.CtxErr(ctx, err).
			Str("room_id", roomID).
			Str("event", string(event)).
			Msg("System message not stored")
	} else {
		metrics.RecordChatMessage(string(models.MessageTypeSystem))
	}
	c.publish(ctx, roomID, broadcast.KindChat, msg)
}

// displayName picks a readable name for system messages.
func displayName(username, userID string) string {
	if username != "" {
		return username
	}
	return userID
}

func participantName(room *models.Room, userID string) string {
	if p, ok := room.Participant(userID); ok {
		return displayName(p.Username, userID)
	}
	return userID
}
