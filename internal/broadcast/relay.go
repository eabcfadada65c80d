// Watchparty - Synchronized Group Playback for Podcast Communities
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchparty

package broadcast

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tomtom215/watchparty/internal/logging"
	"github.com/tomtom215/watchparty/internal/metrics"
)

// Relay consumes the room event stream and hands each event to a Sink.
// One relay runs per instance; it is a suture service.
type Relay struct {
	subscriber message.Subscriber
	topic      string
	sink       Sink

	readyOnce sync.Once
	ready     chan struct{}
}

// NewRelay creates a relay reading topic from sub.
func NewRelay(sub message.Subscriber, topic string, sink Sink) *Relay {
	if topic == "" {
		topic = DefaultTopic
	}
	return &Relay{
		subscriber: sub,
		topic:      topic,
		sink:       sink,
		ready:      make(chan struct{}),
	}
}

// Ready is closed once the first subscription is established.
func (r *Relay) Ready() <-chan struct{} {
	return r.ready
}

// Serve implements suture.Service.
func (r *Relay) Serve(ctx context.Context) error {
	messages, err := r.subscriber.Subscribe(ctx, r.topic)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", r.topic, err)
	}
	r.readyOnce.Do(func() { close(r.ready) })

	logging.Info().Str("component", "broadcast-relay").Str("topic", r.topic).Msg("Broadcast relay started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return fmt.Errorf("subscription to %s closed", r.topic)
			}
			r.handle(msg)
		}
	}
}

// handle never nacks: an undeliverable event would be redelivered forever.
func (r *Relay) handle(msg *message.Message) {
	env, err := EnvelopeFromMessage(msg)
	metrics.RecordRelay(err)
	if err != nil {
		logging.Warn().Err(err).Str("message_uuid", msg.UUID).Msg("Dropping malformed room event")
		msg.Ack()
		return
	}
	r.sink.Deliver(env)
	msg.Ack()
}

// String implements fmt.Stringer for suture logs.
func (r *Relay) String() string {
	return "broadcast-relay"
}

// EnvelopeFromMessage rebuilds an Envelope from a published message.
func EnvelopeFromMessage(msg *message.Message) (Envelope, error) {
	topic := msg.Metadata.Get(MetadataTopic)
	roomID, kind, err := ParseTopic(topic)
	if err != nil {
		return Envelope{}, fmt.Errorf("%w: %q", err, topic)
	}

	env := Envelope{
		ID:      msg.UUID,
		Topic:   topic,
		RoomID:  roomID,
		Kind:    kind,
		Payload: append([]byte(nil), msg.Payload...),
	}
	if ts := msg.Metadata.Get(MetadataPublishedAt); ts != "" {
		if t, perr := time.Parse(time.RFC3339Nano, ts); perr == nil {
			env.PublishedAt = t
		}
	}
	return env, nil
}
