// Watchparty - Synchronized Group Playback for Podcast Communities
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchparty

// Package main is the watchparty command.
//
// Watchparty lets listeners of a podcast community play an episode together:
// one host drives the transport, every participant follows, and the room has
// a chat next to it.
//
// # Commands
//
//	watchparty serve              run the HTTP API, websocket streams and sweeps
//	watchparty expire             close every room past its expiry now
//	watchparty expiring           print rooms that expire within the warning window
//	watchparty token <user-id>    mint a caller token for local testing
//	watchparty version            print build information
//
// # Configuration
//
// Settings are layered by koanf, highest priority last:
//   - built-in defaults
//   - a YAML file (--config, CONFIG_PATH, or ./config.yaml)
//   - environment variables, with a .env file loaded first when present
//
// JWT_SECRET is required. See internal/config for the full list.
//
// # Build Information
//
//	go build -ldflags "-X main.version=1.2.0 -X main.commit=$(git rev-parse --short HEAD)" ./cmd/watchparty
package main

import (
	"context"
	"os"

	"github.com/tomtom215/watchparty/internal/logging"
)

// Set at build time.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		logging.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}
