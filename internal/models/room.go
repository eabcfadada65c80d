// Watchparty - Synchronized Group Playback for Podcast Communities
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchparty

package models

import (
	"sort"
	"time"
)

// Room defaults applied by the session coordinator when no override is configured.
const (
	DefaultMaxParticipants = 100
	DefaultRoomTTL         = 8 * time.Hour
)

// Participant is a membership record embedded in a Room.
// Participants are unique by UserID within a room and keep their join order.
type Participant struct {
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	AvatarURL string    `json:"avatarUrl,omitempty"`
	JoinedAt  time.Time `json:"joinedAt"`
	IsOnline  bool      `json:"isOnline"`
	LastSeen  time.Time `json:"lastSeen"`
}

// Room is the aggregate root of a watch party session.
//
// A committed Room value is treated as immutable by the registry: mutators work
// on a Clone and hand the copy back for persistence.
type Room struct {
	ID               string        `json:"id"`
	Code             string        `json:"roomCode"`
	Name             string        `json:"roomName"`
	HostUserID       string        `json:"hostUserId"`
	PodcastID        string        `json:"podcastId"`
	PodcastTitle     string        `json:"podcastTitle,omitempty"`
	PodcastThumbnail string        `json:"podcastThumbnail,omitempty"`
	Participants     []Participant `json:"participants"`
	MaxParticipants  int           `json:"maxParticipants"`
	CurrentPosition  float64       `json:"currentPosition"`
	IsPlaying        bool          `json:"isPlaying"`
	Public           bool          `json:"publish"`
	AllowChat        bool          `json:"allowChat"`
	HostOnlyControl  bool          `json:"hostOnlyControl"`
	BannedUserIDs    []string      `json:"bannedUserIds"`
	Active           bool          `json:"active"`
	CreatedAt        time.Time     `json:"createdAt"`
	ExpiresAt        time.Time     `json:"expiresAt"`
	LastUpdated      time.Time     `json:"lastUpdated"`
}

// Clone returns a deep copy of the room.
func (r *Room) Clone() *Room {
	if r == nil {
		return nil
	}
	c := *r
	if r.Participants != nil {
		c.Participants = make([]Participant, len(r.Participants))
		copy(c.Participants, r.Participants)
	}
	if r.BannedUserIDs != nil {
		c.BannedUserIDs = make([]string, len(r.BannedUserIDs))
		copy(c.BannedUserIDs, r.BannedUserIDs)
	}
	return &c
}

// Participant returns the membership record for userID.
func (r *Room) Participant(userID string) (Participant, bool) {
	if i := r.participantIndex(userID); i >= 0 {
		return r.Participants[i], true
	}
	return Participant{}, false
}

// HasParticipant reports whether userID is a member of the room.
func (r *Room) HasParticipant(userID string) bool {
	return r.participantIndex(userID) >= 0
}

func (r *Room) participantIndex(userID string) int {
	for i := range r.Participants {
		if r.Participants[i].UserID == userID {
			return i
		}
	}
	return -1
}

// IsHost reports whether userID currently holds playback authority.
func (r *Room) IsHost(userID string) bool {
	return userID != "" && r.HostUserID == userID
}

// IsFull reports whether another participant would exceed MaxParticipants.
func (r *Room) IsFull() bool {
	return len(r.Participants) >= r.MaxParticipants
}

// AddParticipant appends p, or refreshes the existing record when the user is
// already a member. The original join position and JoinedAt are kept on rejoin.
// It returns true when a new member was added.
func (r *Room) AddParticipant(p Participant) bool {
	if i := r.participantIndex(p.UserID); i >= 0 {
		existing := &r.Participants[i]
		existing.IsOnline = true
		existing.LastSeen = p.LastSeen
		if p.Username != "" {
			existing.Username = p.Username
		}
		if p.AvatarURL != "" {
			existing.AvatarURL = p.AvatarURL
		}
		return false
	}
	r.Participants = append(r.Participants, p)
	return true
}

// RemoveParticipant drops userID from the room, preserving the order of the rest.
func (r *Room) RemoveParticipant(userID string) (Participant, bool) {
	i := r.participantIndex(userID)
	if i < 0 {
		return Participant{}, false
	}
	removed := r.Participants[i]
	r.Participants = append(r.Participants[:i], r.Participants[i+1:]...)
	return removed, true
}

// SetOnline updates presence for userID. It returns false when the user is not a member.
func (r *Room) SetOnline(userID string, online bool, at time.Time) bool {
	i := r.participantIndex(userID)
	if i < 0 {
		return false
	}
	r.Participants[i].IsOnline = online
	r.Participants[i].LastSeen = at
	return true
}

// EarliestParticipant returns the member who joined first. Participants are
// kept in join order, so this is the head of the list.
func (r *Room) EarliestParticipant() (Participant, bool) {
	if len(r.Participants) == 0 {
		return Participant{}, false
	}
	return r.Participants[0], true
}

// IsBanned reports whether userID is in the ban set.
func (r *Room) IsBanned(userID string) bool {
	i := sort.SearchStrings(r.BannedUserIDs, userID)
	return i < len(r.BannedUserIDs) && r.BannedUserIDs[i] == userID
}

// Ban adds userID to the ban set. It returns false if the user was already banned.
func (r *Room) Ban(userID string) bool {
	i := sort.SearchStrings(r.BannedUserIDs, userID)
	if i < len(r.BannedUserIDs) && r.BannedUserIDs[i] == userID {
		return false
	}
	r.BannedUserIDs = append(r.BannedUserIDs, "")
	copy(r.BannedUserIDs[i+1:], r.BannedUserIDs[i:])
	r.BannedUserIDs[i] = userID
	return true
}

// Unban removes userID from the ban set. It returns false if the user was not banned.
func (r *Room) Unban(userID string) bool {
	i := sort.SearchStrings(r.BannedUserIDs, userID)
	if i >= len(r.BannedUserIDs) || r.BannedUserIDs[i] != userID {
		return false
	}
	r.BannedUserIDs = append(r.BannedUserIDs[:i], r.BannedUserIDs[i+1:]...)
	return true
}

// Touch bumps LastUpdated.
func (r *Room) Touch(now time.Time) {
	r.LastUpdated = now
}

// Expired reports whether the room is still active past its expiry horizon.
func (r *Room) Expired(now time.Time) bool {
	return r.Active && !r.ExpiresAt.After(now)
}

// Deactivate closes the room logically. The host is cleared because no
// participant keeps authority over a closed room.
func (r *Room) Deactivate(now time.Time) {
	r.Active = false
	r.IsPlaying = false
	r.HostUserID = ""
	for i := range r.Participants {
		r.Participants[i].IsOnline = false
	}
	r.LastUpdated = now
}
