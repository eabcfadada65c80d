// Watchparty - Synchronized Group Playback for Podcast Communities
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchparty

/*
Package models defines the data structures shared across the watch party core.

Key Components:

  - Room: aggregate root of a session (membership, bans, playback state, expiry)
  - Participant: membership record embedded in a Room, kept in join order
  - ChatMessage: append-only chat record; Type discriminates CHAT, SYSTEM,
    PLAYBACK_SYNC and REACTION payloads
  - PlaybackSyncEvent, RoomClosedEvent, ModerationEvent, MessageDeletedEvent:
    broadcast payloads, never persisted

Room values committed to the registry are never mutated in place. Callers
Clone, modify the copy and save it back.
*/
package models
