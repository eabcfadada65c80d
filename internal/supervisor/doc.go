// Watchparty - Synchronized Group Playback for Podcast Communities
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchparty

/*
Package supervisor runs the long-lived parts of the server under a suture v4
tree.

# Layout

	RootSupervisor ("watchparty")
	├── DataSupervisor ("data-layer")
	│   ├── party.ExpiryScheduler (expire and cleanup sweeps)
	│   └── SweepService "store-gc" (badger backend only)
	├── MessagingSupervisor ("messaging-layer")
	│   ├── websocket.Hub
	│   └── broadcast.Relay (broker subscriber into the hub)
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

Each layer restarts independently. A broker outage makes the relay back off
and retry while rooms keep working over HTTP; the hub only loses live pushes.

# Logging

Supervision events go through sutureslog. The serve command passes a
*slog.Logger backed by logging.SlogHandler so these events land in the same
zerolog stream as everything else.

# Shutdown

Canceling the context passed to Serve stops the tree. Each service gets
TreeConfig.ShutdownTimeout; UnstoppedServiceReport names the ones that did not
finish in time.
*/
package supervisor
