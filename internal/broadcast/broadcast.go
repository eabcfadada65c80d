// Watchparty - Synchronized Group Playback for Podcast Communities
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchparty

// Package broadcast fans room events out to subscribers.
//
// Every room owns a fixed set of topics of the form room/{id}/{kind}. The
// Broadcaster publishes onto a single watermill topic (in-process gochannel or
// NATS) and carries the room topic in message metadata; the Relay on each
// instance consumes that stream and hands every event to the local websocket
// hub.
package broadcast

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// Kind is the last segment of a room topic.
type Kind string

const (
	KindUpdate         Kind = "update"
	KindSync           Kind = "sync"
	KindChat           Kind = "chat"
	KindKick           Kind = "kick"
	KindBan            Kind = "ban"
	KindClosed         Kind = "closed"
	KindMessageDeleted Kind = "message-deleted"
)

// Kinds lists every room topic kind in a stable order.
var Kinds = []Kind{KindUpdate, KindSync, KindChat, KindKick, KindBan, KindClosed, KindMessageDeleted}

// Valid reports whether k is a known room topic kind.
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// ErrInvalidTopic is returned when a topic does not name a room event.
var ErrInvalidTopic = errors.New("invalid room topic")

// Topic returns the topic for kind events of roomID.
func Topic(roomID string, kind Kind) string {
	return "room/" + roomID + "/" + string(kind)
}

// ParseTopic splits a room topic into its room id and kind.
func ParseTopic(topic string) (roomID string, kind Kind, err error) {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[0] != "room" || parts[1] == "" {
		return "", "", ErrInvalidTopic
	}
	kind = Kind(parts[2])
	if !kind.Valid() {
		return "", "", ErrInvalidTopic
	}
	return parts[1], kind, nil
}

// Broadcaster publishes an event to a room topic. Implementations must keep
// the order of calls made by a single goroutine.
type Broadcaster interface {
	Publish(ctx context.Context, topic string, payload any) error
}

// Envelope is an event as seen by subscribers.
type Envelope struct {
	ID          string          `json:"id"`
	Topic       string          `json:"topic"`
	RoomID      string          `json:"roomId"`
	Kind        Kind            `json:"kind"`
	Payload     json.RawMessage `json:"payload"`
	PublishedAt time.Time       `json:"publishedAt"`
}

// Decode unmarshals the payload into v.
func (e Envelope) Decode(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// Sink receives relayed envelopes.
type Sink interface {
	Deliver(env Envelope)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(env Envelope)

// Deliver calls f(env).
func (f SinkFunc) Deliver(env Envelope) { f(env) }

// Nop discards every event.
type Nop struct{}

// Publish implements Broadcaster.
func (Nop) Publish(context.Context, string, any) error { return nil }
