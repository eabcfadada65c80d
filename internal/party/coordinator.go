// Watchparty - Synchronized Group Playback for Podcast Communities
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchparty

package party

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/tomtom215/watchparty/internal/broadcast"
	"github.com/tomtom215/watchparty/internal/logging"
	"github.com/tomtom215/watchparty/internal/metrics"
	"github.com/tomtom215/watchparty/internal/models"
	"github.com/tomtom215/watchparty/internal/registry"
	"github.com/tomtom215/watchparty/internal/store"
)

// CreateRoomRequest describes a new room.
type CreateRoomRequest struct {
	PodcastID string `json:"podcastId" validate:"required,max=128"`
	RoomName  string `json:"roomName" validate:"max=100"`
	Public    bool   `json:"publish"`
}

// SettingsPatch changes room settings. Nil fields are left alone.
type SettingsPatch struct {
	Name            *string `json:"roomName,omitempty" validate:"omitempty,max=100"`
	Public          *bool   `json:"publish,omitempty"`
	AllowChat       *bool   `json:"allowChat,omitempty"`
	HostOnlyControl *bool   `json:"hostOnlyControl,omitempty"`
	MaxParticipants *int    `json:"maxParticipants,omitempty" validate:"omitempty,min=1"`
}

// Coordinator manages room membership, moderation and lifecycle.
type Coordinator struct {
	*core
	newCode func(n int) (string, error)
}

func newCoordinator(c *core) *Coordinator {
	return &Coordinator{core: c, newCode: generateCode}
}

// CreateRoom opens a room for req.PodcastID with the caller as host.
func (co *Coordinator) CreateRoom(ctx context.Context, caller Caller, req CreateRoomRequest) (*models.Room, error) {
	room, err := co.createRoom(ctx, caller, req)
	metrics.RecordRoomOperation("create", err)
	return room, err
}

func (co *Coordinator) createRoom(ctx context.Context, caller Caller, req CreateRoomRequest) (*models.Room, error) {
	if err := caller.validate(); err != nil {
		return nil, err
	}
	podcastID := strings.TrimSpace(req.PodcastID)
	if podcastID == "" {
		return nil, invalid("podcast id is required")
	}
	name := strings.TrimSpace(req.RoomName)
	if utf8.RuneCountInString(name) > co.cfg.MaxRoomNameLength {
		return nil, invalid("room name exceeds %d characters", co.cfg.MaxRoomNameLength)
	}

	title, thumbnail, err := co.podcastInfo(ctx, podcastID)
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = fmt.Sprintf("%s's watch party", displayName(caller.Username, caller.UserID))
	}

	now := co.now()
	room := &models.Room{
		ID:               uuid.NewString(),
		Name:             name,
		HostUserID:       caller.UserID,
		PodcastID:        podcastID,
		PodcastTitle:     title,
		PodcastThumbnail: thumbnail,
		Participants:     []models.Participant{caller.participant(now)},
		MaxParticipants:  co.cfg.MaxParticipants,
		Public:           req.Public,
		AllowChat:        true,
		HostOnlyControl:  true,
		BannedUserIDs:    []string{},
		Active:           true,
		CreatedAt:        now,
		ExpiresAt:        now.Add(co.cfg.RoomTTL),
		LastUpdated:      now,
	}

	for attempt := 0; attempt < co.cfg.CodeAttempts; attempt++ {
		code, err := co.newCode(co.cfg.CodeLength)
		if err != nil {
			return nil, err
		}
		room.Code = code
		err = co.reg.Insert(ctx, room)
		if errors.Is(err, registry.ErrCodeTaken) {
			logging.Debug().Str("code", code).Int("attempt", attempt+1).Msg("Room code collision, retrying")
			continue
		}
		if err != nil {
			return nil, classify(err)
		}

		logging.ForRoom(ctx, "coordinator", room.ID, caller.UserID).Info().
			Str("code", room.Code).
			Str("podcast_id", podcastID).
			Bool("public", room.Public).
			Msg("Room created")
		co.publishUpdate(ctx, room)
		return room.Clone(), nil
	}
	return nil, fmt.Errorf("%w: no free room code after %d attempts", ErrContention, co.cfg.CodeAttempts)
}

// podcastInfo checks the catalog for podcastID. Title and thumbnail are
// decoration; failing to fetch them does not fail the caller.
func (co *Coordinator) podcastInfo(ctx context.Context, podcastID string) (title, thumbnail string, err error) {
	exists, err := co.catalog.PodcastExists(ctx, podcastID)
	if err != nil {
		return "", "", fmt.Errorf("%w: content catalog: %w", ErrUpstream, err)
	}
	if !exists {
		return "", "", notFound("podcast %s", podcastID)
	}
	if title, err = co.catalog.PodcastTitle(ctx, podcastID); err != nil {
		logging.CtxWarn(ctx).Err(err).Str("podcast_id", podcastID).Msg("Podcast title unavailable")
	}
	if thumbnail, err = co.catalog.PodcastThumbnail(ctx, podcastID); err != nil {
		logging.CtxWarn(ctx).Err(err).Str("podcast_id", podcastID).Msg("Podcast thumbnail unavailable")
	}
	return title, thumbnail, nil
}

// JoinRoom adds the caller to the active room holding code. Joining a room
// the caller is already in marks them online again.
func (co *Coordinator) JoinRoom(ctx context.Context, caller Caller, code string) (*models.Room, error) {
	if err := caller.validate(); err != nil {
		return nil, err
	}
	code = NormalizeCode(code)
	if code == "" {
		return nil, invalid("room code is required")
	}
	if !validCode(code, co.cfg.CodeLength) {
		err := notFound("no active room with code %s", code)
		metrics.RecordRoomOperation("join", err)
		return nil, err
	}
	found, err := co.reg.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, store.ErrRoomNotFound) {
			err = notFound("no active room with code %s", code)
		}
		metrics.RecordRoomOperation("join", err)
		return nil, classify(err)
	}

	var joined *models.Room
	err = co.withRoom(ctx, "join", found.ID, func(room *models.Room) error {
		if !room.Active || room.Code != code {
			return notFound("no active room with code %s", code)
		}
		if room.IsBanned(caller.UserID) {
			return forbidden("banned from room")
		}
		rejoin := room.HasParticipant(caller.UserID)
		if !rejoin && room.IsFull() {
			return fmt.Errorf("%w: room is full (%d participants)", ErrConflict, room.MaxParticipants)
		}

		now := co.now()
		room.AddParticipant(caller.participant(now))
		room.Touch(now)
		if err := co.save(ctx, room); err != nil {
			return err
		}

		logging.ForRoom(ctx, "coordinator", room.ID, caller.UserID).Info().
			Bool("rejoin", rejoin).
			Int("participants", len(room.Participants)).
			Msg("Participant joined")
		co.publishUpdate(ctx, room)
		co.postSystem(ctx, room.ID, models.SystemEventUserJoined,
			fmt.Sprintf("%s joined the room", displayName(caller.Username, caller.UserID)),
			map[string]string{"userId": caller.UserID})
		joined = room
		return nil
	})
	return joined, err
}

// LeaveRoom removes the caller. A leaving host hands the room to the
// earliest remaining participant, or closes it when nobody is left.
func (co *Coordinator) LeaveRoom(ctx context.Context, caller Caller, roomID string) error {
	if err := caller.validate(); err != nil {
		return err
	}
	return co.withRoom(ctx, "leave", roomID, func(room *models.Room) error {
		if !room.Active {
			return notFound("room %s has ended", roomID)
		}
		left, ok := room.RemoveParticipant(caller.UserID)
		if !ok {
			return notFound("not a participant of room %s", roomID)
		}
		name := displayName(left.Username, left.UserID)
		now := co.now()
		log := logging.ForRoom(ctx, "coordinator", room.ID, caller.UserID)

		if !room.IsHost(caller.UserID) {
			room.Touch(now)
			if err := co.save(ctx, room); err != nil {
				return err
			}
			log.Info().Msg("Participant left")
			co.postSystem(ctx, room.ID, models.SystemEventUserLeft, name+" left the room",
				map[string]string{"userId": caller.UserID})
			co.publishUpdate(ctx, room)
			return nil
		}

		next, ok := room.EarliestParticipant()
		if !ok {
			room.Deactivate(now)
			if err := co.save(ctx, room); err != nil {
				return err
			}
			log.Info().Msg("Host left an empty room, room closed")
			co.publish(ctx, room.ID, broadcast.KindClosed, models.RoomClosedEvent{
				RoomID:    room.ID,
				Reason:    models.CloseReasonHostLeft,
				Message:   "The host left the room",
				Timestamp: now,
			})
			return nil
		}

		room.HostUserID = next.UserID
		room.Touch(now)
		if err := co.save(ctx, room); err != nil {
			return err
		}
		log.Info().Str("new_host", next.UserID).Msg("Host left, host transferred")
		co.publishUpdate(ctx, room)
		co.postSystem(ctx, room.ID, models.SystemEventHostTransferred,
			fmt.Sprintf("%s left, %s is now the host", name, displayName(next.Username, next.UserID)),
			map[string]string{"previousHostId": caller.UserID, "newHostId": next.UserID})
		return nil
	})
}

// hostRoom checks the room is active and the caller hosts it.
func hostRoom(room *models.Room, caller Caller) error {
	if !room.Active {
		return notFound("room %s has ended", room.ID)
	}
	if !room.IsHost(caller.UserID) {
		return forbidden("only the host can do this")
	}
	return nil
}

// KickUser removes target from the room. The target may rejoin.
func (co *Coordinator) KickUser(ctx context.Context, caller Caller, roomID, target, reason string) error {
	if err := caller.validate(); err != nil {
		return err
	}
	if target == "" {
		return invalid("target user is required")
	}
	return co.withRoom(ctx, "kick", roomID, func(room *models.Room) error {
		if err := hostRoom(room, caller); err != nil {
			return err
		}
		if target == caller.UserID {
			return invalid("cannot kick yourself")
		}
		removed, ok := room.RemoveParticipant(target)
		if !ok {
			return notFound("user %s is not in the room", target)
		}
		now := co.now()
		room.Touch(now)
		if err := co.save(ctx, room); err != nil {
			return err
		}

		logging.ForRoom(ctx, "coordinator", room.ID, caller.UserID).Info().
			Str("target", target).Str("reason", reason).Msg("Participant kicked")
		co.publish(ctx, room.ID, broadcast.KindKick, models.ModerationEvent{
			RoomID:       room.ID,
			Action:       models.ModerationKick,
			TargetUserID: target,
			ActorUserID:  caller.UserID,
			Reason:       reason,
			Timestamp:    now,
		})
		co.postSystem(ctx, room.ID, models.SystemEventUserKicked,
			displayName(removed.Username, target)+" was removed from the room",
			map[string]string{"userId": target})
		co.publishUpdate(ctx, room)
		return nil
	})
}

// BanUser removes target if present and blocks future joins. Banning an
// absent, already banned user changes nothing.
func (co *Coordinator) BanUser(ctx context.Context, caller Caller, roomID, target, reason string) error {
	if err := caller.validate(); err != nil {
		return err
	}
	if target == "" {
		return invalid("target user is required")
	}
	return co.withRoom(ctx, "ban", roomID, func(room *models.Room) error {
		if err := hostRoom(room, caller); err != nil {
			return err
		}
		if target == caller.UserID {
			return invalid("cannot ban yourself")
		}
		removed, present := room.RemoveParticipant(target)
		if !room.Ban(target) && !present {
			return nil
		}
		now := co.now()
		room.Touch(now)
		if err := co.save(ctx, room); err != nil {
			return err
		}

		name := removed.Username
		if !present {
			name = co.lookupName(ctx, target)
		}
		logging.ForRoom(ctx, "coordinator", room.ID, caller.UserID).Info().
			Str("target", target).Bool("present", present).Str("reason", reason).Msg("User banned")
		co.publish(ctx, room.ID, broadcast.KindBan, models.ModerationEvent{
			RoomID:       room.ID,
			Action:       models.ModerationBan,
			TargetUserID: target,
			ActorUserID:  caller.UserID,
			Reason:       reason,
			Timestamp:    now,
		})
		co.postSystem(ctx, room.ID, models.SystemEventUserBanned,
			displayName(name, target)+" was banned from the room",
			map[string]string{"userId": target})
		co.publishUpdate(ctx, room)
		return nil
	})
}

// lookupName asks the identity provider for a username, falling back to the id.
func (co *Coordinator) lookupName(ctx context.Context, userID string) string {
	if co.identity == nil {
		return userID
	}
	profile, err := co.identity.LookupUser(ctx, userID)
	if err != nil {
		logging.CtxWarn(ctx).Err(err).Str("user_id", userID).Msg("User lookup failed")
		return userID
	}
	return displayName(profile.Username, userID)
}

// UnbanUser lifts a ban. It does not rejoin the user.
func (co *Coordinator) UnbanUser(ctx context.Context, caller Caller, roomID, target string) error {
	if err := caller.validate(); err != nil {
		return err
	}
	if target == "" {
		return invalid("target user is required")
	}
	return co.withRoom(ctx, "unban", roomID, func(room *models.Room) error {
		if err := hostRoom(room, caller); err != nil {
			return err
		}
		if !room.Unban(target) {
			return notFound("user %s is not banned", target)
		}
		room.Touch(co.now())
		if err := co.save(ctx, room); err != nil {
			return err
		}
		logging.ForRoom(ctx, "coordinator", room.ID, caller.UserID).Info().Str("target", target).Msg("User unbanned")
		co.publishUpdate(ctx, room)
		return nil
	})
}

// TransferHost hands the room to another participant.
func (co *Coordinator) TransferHost(ctx context.Context, caller Caller, roomID, target string) (*models.Room, error) {
	if err := caller.validate(); err != nil {
		return nil, err
	}
	if target == "" {
		return nil, invalid("target user is required")
	}
	var out *models.Room
	err := co.withRoom(ctx, "transfer_host", roomID, func(room *models.Room) error {
		if err := hostRoom(room, caller); err != nil {
			return err
		}
		if target == caller.UserID {
			return invalid("already the host")
		}
		next, ok := room.Participant(target)
		if !ok {
			return notFound("user %s is not in the room", target)
		}
		room.HostUserID = target
		room.Touch(co.now())
		if err := co.save(ctx, room); err != nil {
			return err
		}
		co.publishUpdate(ctx, room)
		co.postSystem(ctx, room.ID, models.SystemEventHostTransferred,
			displayName(next.Username, target)+" is now the host",
			map[string]string{"previousHostId": caller.UserID, "newHostId": target})
		out = room
		return nil
	})
	return out, err
}

// CloseRoom ends the room for everyone.
func (co *Coordinator) CloseRoom(ctx context.Context, caller Caller, roomID string) error {
	if err := caller.validate(); err != nil {
		return err
	}
	return co.withRoom(ctx, "close", roomID, func(room *models.Room) error {
		if err := hostRoom(room, caller); err != nil {
			return err
		}
		now := co.now()
		room.Deactivate(now)
		if err := co.save(ctx, room); err != nil {
			return err
		}
		logging.ForRoom(ctx, "coordinator", room.ID, caller.UserID).Info().Msg("Room closed by host")
		co.postSystem(ctx, room.ID, models.SystemEventRoomClosed, "The host closed the room", nil)
		co.publish(ctx, room.ID, broadcast.KindClosed, models.RoomClosedEvent{
			RoomID:    room.ID,
			Reason:    models.CloseReasonClosedByHost,
			Message:   "The host closed the room",
			Timestamp: now,
		})
		return nil
	})
}

// UpdateSettings applies patch to the room.
func (co *Coordinator) UpdateSettings(ctx context.Context, caller Caller, roomID string, patch SettingsPatch) (*models.Room, error) {
	if err := caller.validate(); err != nil {
		return nil, err
	}
	var name string
	if patch.Name != nil {
		name = strings.TrimSpace(*patch.Name)
		if name == "" || utf8.RuneCountInString(name) > co.cfg.MaxRoomNameLength {
			return nil, invalid("room name must be 1 to %d characters", co.cfg.MaxRoomNameLength)
		}
	}
	if patch.MaxParticipants != nil && (*patch.MaxParticipants < 1 || *patch.MaxParticipants > co.cfg.MaxParticipantLimit) {
		return nil, invalid("max participants must be between 1 and %d", co.cfg.MaxParticipantLimit)
	}

	var out *models.Room
	err := co.withRoom(ctx, "update_settings", roomID, func(room *models.Room) error {
		if err := hostRoom(room, caller); err != nil {
			return err
		}
		if patch.MaxParticipants != nil {
			if *patch.MaxParticipants < len(room.Participants) {
				return invalid("max participants below current count %d", len(room.Participants))
			}
			room.MaxParticipants = *patch.MaxParticipants
		}
		if patch.Name != nil {
			room.Name = name
		}
		if patch.Public != nil {
			room.Public = *patch.Public
		}
		if patch.AllowChat != nil {
			room.AllowChat = *patch.AllowChat
		}
		if patch.HostOnlyControl != nil {
			room.HostOnlyControl = *patch.HostOnlyControl
		}
		room.Touch(co.now())
		if err := co.save(ctx, room); err != nil {
			return err
		}
		co.publishUpdate(ctx, room)
		out = room
		return nil
	})
	return out, err
}

// ChangeContent switches the room to another podcast and rewinds playback.
func (co *Coordinator) ChangeContent(ctx context.Context, caller Caller, roomID, podcastID string) (*models.Room, error) {
	if err := caller.validate(); err != nil {
		return nil, err
	}
	podcastID = strings.TrimSpace(podcastID)
	if podcastID == "" {
		return nil, invalid("podcast id is required")
	}
	// Catalog I/O happens before the room lock is taken.
	title, thumbnail, err := co.podcastInfo(ctx, podcastID)
	if err != nil {
		metrics.RecordRoomOperation("change_content", err)
		return nil, err
	}

	var out *models.Room
	err = co.withRoom(ctx, "change_content", roomID, func(room *models.Room) error {
		if err := hostRoom(room, caller); err != nil {
			return err
		}
		now := co.now()
		room.PodcastID = podcastID
		room.PodcastTitle = title
		room.PodcastThumbnail = thumbnail
		room.CurrentPosition = 0
		room.IsPlaying = false
		room.Touch(now)
		if err := co.save(ctx, room); err != nil {
			return err
		}
		co.publishUpdate(ctx, room)
		co.publish(ctx, room.ID, broadcast.KindSync, models.SyncEventFromRoom(room, caller.UserID, models.SyncEventSync, now))
		text := "Now playing a new podcast"
		if title != "" {
			text = "Now playing " + title
		}
		co.postSystem(ctx, room.ID, models.SystemEventContentChanged, text,
			map[string]string{"podcastId": podcastID})
		out = room
		return nil
	})
	return out, err
}

// MarkOffline records that userID has no open connection to the room.
func (co *Coordinator) MarkOffline(ctx context.Context, roomID, userID string) error {
	return co.withRoom(ctx, "presence", roomID, func(room *models.Room) error {
		if !room.Active {
			return nil
		}
		now := co.now()
		if !room.SetOnline(userID, false, now) {
			return nil
		}
		if err := co.save(ctx, room); err != nil {
			return err
		}
		co.publishUpdate(ctx, room)
		return nil
	})
}

// GetRoom returns a snapshot of the room, including ended rooms that have
// not been cleaned up yet.
func (co *Coordinator) GetRoom(ctx context.Context, roomID string) (*models.Room, error) {
	if roomID == "" {
		return nil, invalid("room id is required")
	}
	room, err := co.reg.Get(ctx, roomID)
	if err != nil {
		return nil, classify(err)
	}
	return room, nil
}

// ListPublicRooms pages through active public rooms, newest first.
func (co *Coordinator) ListPublicRooms(ctx context.Context, page, size int) ([]*models.Room, error) {
	return co.listRooms(ctx, store.RoomQuery{State: store.ActiveOnly, PublicOnly: true}, page, size)
}

// ListMyRooms pages through the active rooms the caller participates in.
func (co *Coordinator) ListMyRooms(ctx context.Context, caller Caller, page, size int) ([]*models.Room, error) {
	if err := caller.validate(); err != nil {
		return nil, err
	}
	return co.listRooms(ctx, store.RoomQuery{State: store.ActiveOnly, ParticipantID: caller.UserID}, page, size)
}

func (co *Coordinator) listRooms(ctx context.Context, q store.RoomQuery, page, size int) ([]*models.Room, error) {
	if size == 0 {
		size = co.cfg.DefaultPageSize
	}
	if page < 0 {
		return nil, invalid("page must not be negative")
	}
	if size < 1 || size > co.cfg.MaxPageSize {
		return nil, invalid("size must be between 1 and %d", co.cfg.MaxPageSize)
	}
	if page > math.MaxInt/size {
		return nil, invalid("page %d is out of range", page)
	}
	q.Offset = page * size
	q.Limit = size
	rooms, err := co.reg.Store().ListRooms(ctx, q)
	if err != nil {
		return nil, classify(err)
	}
	return rooms, nil
}
