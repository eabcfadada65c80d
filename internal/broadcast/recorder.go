// Watchparty - Synchronized Group Playback for Podcast Communities
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchparty

package broadcast

import (
	"context"
	"sync"
)

// Event is one call captured by a Recorder.
type Event struct {
	Topic   string
	RoomID  string
	Kind    Kind
	Payload any
}

// Recorder is an in-memory Broadcaster for tests. It records every publish in
// call order and can be told to fail.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	err    error
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Publish implements Broadcaster. Failed publishes are still recorded.
func (r *Recorder) Publish(_ context.Context, topic string, payload any) error {
	roomID, kind, err := ParseTopic(topic)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{Topic: topic, RoomID: roomID, Kind: kind, Payload: payload})
	return r.err
}

// FailWith makes subsequent publishes return err. Pass nil to recover.
func (r *Recorder) FailWith(err error) {
	r.mu.Lock()
	r.err = err
	r.mu.Unlock()
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// ByKind returns the recorded events of one kind for roomID.
func (r *Recorder) ByKind(roomID string, kind Kind) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, e := range r.events {
		if e.RoomID == roomID && e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// Count returns how many events of kind were recorded for roomID.
func (r *Recorder) Count(roomID string, kind Kind) int {
	return len(r.ByKind(roomID, kind))
}

// Reset forgets every recorded event.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}
