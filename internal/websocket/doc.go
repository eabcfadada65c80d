// Watchparty - Synchronized Group Playback for Podcast Communities
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchparty

/*
Package websocket streams room events to connected clients.

The Hub groups clients by room. The broadcast relay hands every room event to
Hub.Deliver, and the hub's single Serve loop writes it to each client of that
room in connection order:

	broker ──► broadcast.Relay ──► Hub.Deliver ──► room clients

Each Client has two goroutines:
  - readPump: reads pings and close frames, unregisters on exit
  - writePump: writes queued frames and keepalive pings

Frames carry the topic kind as their type:

	{"type":"sync","topic":"room/<id>/sync","data":{...}}

Moderation is enforced at the socket too: a kick or ban notice disconnects the
target's connections after it was delivered, and a closed notice disconnects
the whole room. When the last connection of a user in a room drops for any
other reason, the OnDisconnect hook fires so the room can mark them offline.
*/
package websocket
