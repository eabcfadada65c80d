// Watchparty - Synchronized Group Playback for Podcast Communities
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchparty

/*
Package logging provides structured logging for watchparty using zerolog.

A single global logger is configured once at startup with Init and used
through the level helpers:

	logging.Init(logging.Config{Level: "info", Format: "json"})
	logging.Info().Str("room_id", id).Msg("Room created")

Request-scoped logging carries the request and correlation ids set by the HTTP
middleware:

	logging.Ctx(ctx).Warn().Err(err).Msg("Broadcast failed")

Room operations add room and user fields with ForRoom. Two adapters route
third-party logs into the same sink: SlogHandler (supervisor tree events via
sutureslog) and WatermillLogger (broker logs).
*/
package logging
