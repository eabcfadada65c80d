// Watchparty - Synchronized Group Playback for Podcast Communities
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchparty

package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MessageType discriminates the payload carried by a ChatMessage.
type MessageType string

const (
	MessageTypeChat         MessageType = "CHAT"
	MessageTypeSystem       MessageType = "SYSTEM"
	MessageTypePlaybackSync MessageType = "PLAYBACK_SYNC"
	MessageTypeReaction     MessageType = "REACTION"
)

// Valid reports whether t is a known message type.
func (t MessageType) Valid() bool {
	switch t {
	case MessageTypeChat, MessageTypeSystem, MessageTypePlaybackSync, MessageTypeReaction:
		return true
	}
	return false
}

// SystemEvent tags a SYSTEM message so clients can render it distinctly from chat.
type SystemEvent string

const (
	SystemEventUserJoined      SystemEvent = "USER_JOINED"
	SystemEventUserLeft        SystemEvent = "USER_LEFT"
	SystemEventUserKicked      SystemEvent = "USER_KICKED"
	SystemEventUserBanned      SystemEvent = "USER_BANNED"
	SystemEventHostTransferred SystemEvent = "HOST_TRANSFERRED"
	SystemEventContentChanged  SystemEvent = "CONTENT_CHANGED"
	SystemEventRoomExpiring    SystemEvent = "ROOM_EXPIRING"
	SystemEventRoomClosed      SystemEvent = "ROOM_CLOSED"
)

// MetadataEventType is the metadata key mirroring ChatMessage.Event for clients
// that only read the free-form map.
const MetadataEventType = "eventType"

// SystemUserID is the author of messages generated by the service itself.
const SystemUserID = "system"

// ChatMessage is an append-only record in a room's chat log.
//
// Type selects which optional field is meaningful: Event for SYSTEM messages,
// Reaction for REACTION messages. Metadata carries extra string attributes.
type ChatMessage struct {
	ID        string            `json:"id"`
	RoomID    string            `json:"roomId"`
	UserID    string            `json:"userId"`
	Username  string            `json:"username"`
	AvatarURL string            `json:"avatarUrl,omitempty"`
	Text      string            `json:"message"`
	Type      MessageType       `json:"type"`
	Event     SystemEvent       `json:"event,omitempty"`
	Reaction  string            `json:"reaction,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Author identifies who a user-originated message belongs to.
type Author struct {
	UserID    string
	Username  string
	AvatarURL string
}

// NewChatMessage builds a CHAT message.
func NewChatMessage(roomID string, author Author, text string, at time.Time) *ChatMessage {
	return &ChatMessage{
		ID:        uuid.NewString(),
		RoomID:    roomID,
		UserID:    author.UserID,
		Username:  author.Username,
		AvatarURL: author.AvatarURL,
		Text:      text,
		Type:      MessageTypeChat,
		Timestamp: at,
	}
}

// NewReaction builds a REACTION message.
func NewReaction(roomID string, author Author, reaction string, at time.Time) *ChatMessage {
	return &ChatMessage{
		ID:        uuid.NewString(),
		RoomID:    roomID,
		UserID:    author.UserID,
		Username:  author.Username,
		AvatarURL: author.AvatarURL,
		Text:      reaction,
		Type:      MessageTypeReaction,
		Reaction:  reaction,
		Timestamp: at,
	}
}

// NewSystemMessage builds a SYSTEM message tagged with event. Extra metadata
// entries are copied; the event tag is always present under MetadataEventType.
func NewSystemMessage(roomID string, event SystemEvent, text string, at time.Time, extra map[string]string) *ChatMessage {
	meta := make(map[string]string, len(extra)+1)
	for k, v := range extra {
		meta[k] = v
	}
	meta[MetadataEventType] = string(event)

	return &ChatMessage{
		ID:        uuid.NewString(),
		RoomID:    roomID,
		UserID:    SystemUserID,
		Username:  "System",
		Text:      text,
		Type:      MessageTypeSystem,
		Event:     event,
		Timestamp: at,
		Metadata:  meta,
	}
}

// Validate checks that the variant fields agree with Type.
func (m *ChatMessage) Validate() error {
	if m.ID == "" || m.RoomID == "" {
		return fmt.Errorf("message requires id and room id")
	}
	if !m.Type.Valid() {
		return fmt.Errorf("unknown message type %q", m.Type)
	}
	switch m.Type {
	case MessageTypeSystem:
		if m.Event == "" {
			return fmt.Errorf("system message requires an event")
		}
	case MessageTypeReaction:
		if m.Reaction == "" {
			return fmt.Errorf("reaction message requires a reaction")
		}
	case MessageTypeChat:
		if m.Text == "" {
			return fmt.Errorf("chat message requires text")
		}
	}
	return nil
}

// IsAuthoredBy reports whether userID wrote the message.
func (m *ChatMessage) IsAuthoredBy(userID string) bool {
	return m.Type != MessageTypeSystem && m.UserID == userID
}
