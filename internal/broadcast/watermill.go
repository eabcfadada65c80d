// Watchparty - Synchronized Group Playback for Podcast Communities
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchparty

package broadcast

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/cespare/xxhash/v2"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	natsgo "github.com/nats-io/nats.go"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/watchparty/internal/logging"
	"github.com/tomtom215/watchparty/internal/metrics"
)

// Metadata keys set on every published message.
const (
	MetadataTopic       = "room_topic"
	MetadataRoomID      = "room_id"
	MetadataKind        = "kind"
	MetadataPublishedAt = "published_at"
)

// ErrClosed is returned by Publish after Close.
var ErrClosed = errors.New("broadcaster closed")

// publishStripes is the number of ordering slots rooms are hashed onto.
const publishStripes = 64

// Options tunes a WatermillBroadcaster.
type Options struct {
	// Topic is the watermill topic (NATS subject) carrying all room events.
	Topic string
	// Timeout bounds a single publish. Zero means the caller's deadline only.
	Timeout time.Duration

	BreakerName     string
	BreakerFailures uint32
	BreakerTimeout  time.Duration
}

// WatermillBroadcaster publishes room events through a watermill publisher
// guarded by a circuit breaker.
type WatermillBroadcaster struct {
	publisher message.Publisher
	topic     string
	timeout   time.Duration
	cb        *gobreaker.CircuitBreaker[interface{}]
	// slots hold one in-flight publish per stripe of rooms. A publish that
	// outlives its caller keeps the slot until the fabric returns.
	slots []chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewWatermillBroadcaster wraps pub.
func NewWatermillBroadcaster(pub message.Publisher, opts Options) *WatermillBroadcaster {
	if opts.Topic == "" {
		opts.Topic = DefaultTopic
	}
	if opts.BreakerName == "" {
		opts.BreakerName = "broadcast"
	}
	if opts.BreakerFailures == 0 {
		opts.BreakerFailures = 5
	}
	if opts.BreakerTimeout <= 0 {
		opts.BreakerTimeout = 30 * time.Second
	}

	settings := gobreaker.Settings{
		Name:        opts.BreakerName,
		MaxRequests: 1,
		Timeout:     opts.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.BreakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Broadcast circuit breaker state changed")
			metrics.SetCircuitBreakerState(name, from.String(), to.String(), int(to))
		},
	}

	slots := make([]chan struct{}, publishStripes)
	for i := range slots {
		slots[i] = make(chan struct{}, 1)
	}

	return &WatermillBroadcaster{
		publisher: pub,
		topic:     opts.Topic,
		timeout:   opts.Timeout,
		cb:        gobreaker.NewCircuitBreaker[interface{}](settings),
		slots:     slots,
	}
}

// DefaultTopic is the watermill topic used when none is configured.
const DefaultTopic = "watchparty.rooms"

// Publish serializes payload and publishes it for topic. It returns once the
// fabric accepted the message or the deadline passed.
func (b *WatermillBroadcaster) Publish(ctx context.Context, topic string, payload any) error {
	roomID, kind, err := ParseTopic(topic)
	if err != nil {
		return fmt.Errorf("%w: %q", err, topic)
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", kind, err)
	}

	msg := message.NewMessage(uuid.NewString(), data)
	msg.Metadata.Set(MetadataTopic, topic)
	msg.Metadata.Set(MetadataRoomID, roomID)
	msg.Metadata.Set(MetadataKind, string(kind))
	msg.Metadata.Set(MetadataPublishedAt, time.Now().UTC().Format(time.RFC3339Nano))
	msg.Metadata.Set(natsgo.MsgIdHdr, msg.UUID)

	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}
	msg.SetContext(ctx)

	err = b.publish(ctx, roomID, msg)
	metrics.RecordBroadcast(string(kind), err)
	if err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// publish hands msg to the fabric once the room's slot is free. Events of one
// room therefore reach the fabric in call order, even when an earlier publish
// timed out and is still in flight. The breaker sees the fabric's real
// outcome, not the caller's deadline.
//
// A deadline error means the event may still be delivered later.
func (b *WatermillBroadcaster) publish(ctx context.Context, roomID string, msg *message.Message) error {
	slot := b.slots[xxhash.Sum64String(roomID)%uint64(len(b.slots))]
	select {
	case slot <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	done := make(chan error, 1)
	go func() {
		defer func() { <-slot }()
		_, err := b.cb.Execute(func() (interface{}, error) {
			return nil, b.publisher.Publish(b.topic, msg)
		})
		done <- err
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State reports the breaker state.
func (b *WatermillBroadcaster) State() gobreaker.State {
	return b.cb.State()
}

// Close stops accepting events. The underlying publisher is owned by the
// Fabric and closed there.
func (b *WatermillBroadcaster) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}
