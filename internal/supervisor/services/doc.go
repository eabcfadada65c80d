// Watchparty - Synchronized Group Playback for Podcast Communities
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchparty

/*
Package services adapts components without a Serve(ctx) method to
suture.Service.

HTTPServerService turns ListenAndServe/Shutdown into a context-aware Serve
with a bounded graceful shutdown.

SweepService runs a periodic maintenance function, such as badger value log
GC, on a fixed interval. A failing run is logged and retried on the next tick;
only context cancellation stops the service.

Components that already implement Serve(ctx) error and String() (the websocket
hub, the broker relay, the expiry scheduler) are added to the tree directly.
*/
package services
