// Watchparty - Synchronized Group Playback for Podcast Communities
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchparty

/*
Package party implements the watch party core: room membership and
moderation, playback synchronization, chat, and room expiry.

# Components

  - Coordinator: create, join, leave, kick, ban, unban, host transfer,
    settings, content changes and presence.
  - Synchronizer: the authoritative playback position of each room.
  - ChatRelay: chat messages, reactions, deletion and history.
  - ExpiryScheduler: the expire and cleanup sweeps, run by Serve.

All four share one registry.Registry and one broadcast.Broadcaster and are
built together by New.

# Consistency

Every mutation runs under the room lock taken from the registry:

	lock room -> load copy -> validate -> mutate -> Save (store, then cache) -> publish -> unlock

Events are published before the lock is released, so subscribers see room
events in commit order. A failed publish is logged and counted; the
committed state stands and clients recover with RequestSync.

Lock waits are bounded. A wait that times out fails with ErrContention,
which callers may retry.

# Errors

Every operation returns errors wrapping one of ErrNotFound, ErrForbidden,
ErrConflict, ErrInvalidArgument, ErrContention, ErrUpstream or
ErrRateLimited. Use KindOf to map them onto a transport and IsRetryable to
decide on retries.

# Usage

	svc, err := party.New(party.Deps{
		Registry:    reg,
		Broadcaster: bc,
		Catalog:     catalog,
		Identity:    identity,
		Config:      party.ConfigFrom(cfg.Party),
	})
	if err != nil {
		return err
	}
	room, err := svc.Coordinator.CreateRoom(ctx, caller, party.CreateRoomRequest{PodcastID: "pod-1"})
*/
package party
