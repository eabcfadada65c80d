// Watchparty - Synchronized Group Playback for Podcast Communities
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchparty

package models

import "time"

// SyncEventType names the transport action behind a PlaybackSyncEvent.
type SyncEventType string

const (
	SyncEventPlay      SyncEventType = "PLAY"
	SyncEventPause     SyncEventType = "PAUSE"
	SyncEventSeek      SyncEventType = "SEEK"
	SyncEventSync      SyncEventType = "SYNC"
	SyncEventBuffering SyncEventType = "BUFFERING"
	// SyncEventRequested marks a snapshot pulled by a reconnecting client.
	SyncEventRequested SyncEventType = "REQUESTED"
)

// Valid reports whether t may be submitted by a client.
// REQUESTED is generated by the server only.
func (t SyncEventType) Valid() bool {
	switch t {
	case SyncEventPlay, SyncEventPause, SyncEventSeek, SyncEventSync, SyncEventBuffering:
		return true
	}
	return false
}

// PlaybackSyncEvent describes the authoritative playback state at a point in time.
// It is broadcast only, never persisted.
type PlaybackSyncEvent struct {
	RoomID    string        `json:"roomId"`
	UserID    string        `json:"userId"`
	Position  float64       `json:"position"`
	IsPlaying bool          `json:"isPlaying"`
	EventType SyncEventType `json:"eventType"`
	Timestamp time.Time     `json:"timestamp"`
}

// SyncEventFromRoom builds an event reflecting the room's current state.
func SyncEventFromRoom(r *Room, userID string, eventType SyncEventType, at time.Time) *PlaybackSyncEvent {
	return &PlaybackSyncEvent{
		RoomID:    r.ID,
		UserID:    userID,
		Position:  r.CurrentPosition,
		IsPlaying: r.IsPlaying,
		EventType: eventType,
		Timestamp: at,
	}
}

// CloseReason explains why a room stopped accepting activity.
type CloseReason string

const (
	CloseReasonAutoExpired  CloseReason = "AUTO_EXPIRED"
	CloseReasonHostLeft     CloseReason = "HOST_LEFT"
	CloseReasonClosedByHost CloseReason = "CLOSED_BY_HOST"
)

// RoomClosedEvent is published on a room's closed topic.
type RoomClosedEvent struct {
	RoomID    string      `json:"roomId"`
	Reason    CloseReason `json:"reason"`
	Message   string      `json:"message,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// ModerationAction distinguishes kick and ban notices.
type ModerationAction string

const (
	ModerationKick ModerationAction = "KICK"
	ModerationBan  ModerationAction = "BAN"
)

// ModerationEvent is published on a room's kick or ban topic. It names both the
// removed user and the host who acted.
type ModerationEvent struct {
	RoomID       string           `json:"roomId"`
	Action       ModerationAction `json:"action"`
	TargetUserID string           `json:"targetUserId"`
	ActorUserID  string           `json:"actorUserId"`
	Reason       string           `json:"reason,omitempty"`
	Timestamp    time.Time        `json:"timestamp"`
}

// MessageDeletedEvent is published when an author removes a chat message.
type MessageDeletedEvent struct {
	RoomID    string    `json:"roomId"`
	MessageID string    `json:"messageId"`
	DeletedBy string    `json:"deletedBy"`
	Timestamp time.Time `json:"timestamp"`
}
