// Watchparty - Synchronized Group Playback for Podcast Communities
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchparty

package websocket

import (
	"context"
	"sort"
	"sync"

	"github.com/goccy/go-json"

	"github.com/tomtom215/watchparty/internal/broadcast"
	"github.com/tomtom215/watchparty/internal/logging"
	"github.com/tomtom215/watchparty/internal/metrics"
	"github.com/tomtom215/watchparty/internal/models"
)

// ShutdownReason identifies why the hub is shutting down.
type ShutdownReason string

const (
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// Client-originated message types. Server-originated messages carry the room
// topic kind (update, sync, chat, ...) as their type.
const (
	MessageTypePing = "ping"
	MessageTypePong = "pong"
)

// Message is a frame sent to a websocket client.
type Message struct {
	Type  string          `json:"type"`
	Topic string          `json:"topic,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// DisconnectFunc is called when the last connection of a user in a room goes away.
type DisconnectFunc func(roomID, userID string)

// Hub tracks websocket clients per room and fans relayed room events out to them.
type Hub struct {
	rooms      map[string]map[*Client]struct{}
	deliveries chan broadcast.Envelope
	Register   chan *Client
	Unregister chan *Client
	mu         sync.RWMutex

	onDisconnect DisconnectFunc
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]struct{}),
		deliveries: make(chan broadcast.Envelope, 1024),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
	}
}

// OnDisconnect installs the presence hook. Call before Serve.
func (h *Hub) OnDisconnect(fn DisconnectFunc) {
	h.onDisconnect = fn
}

// Deliver queues a relayed event. It implements broadcast.Sink and never
// blocks the relay; events are dropped when the hub is saturated.
func (h *Hub) Deliver(env broadcast.Envelope) {
	select {
	case h.deliveries <- env:
	default:
		metrics.WSMessagesDropped.Inc()
		logging.Warn().Str("topic", env.Topic).Msg("websocket delivery queue full, dropping room event")
	}
}

// Serve runs the hub until ctx is canceled. It implements suture.Service.
//
// Lifecycle events are drained before deliveries so a client registered before
// an event was relayed always receives it.
func (h *Hub) Serve(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		default:
		}

		select {
		case client := <-h.Register:
			h.register(client)
			continue
		case client := <-h.Unregister:
			h.unregister(client)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		case client := <-h.Register:
			h.register(client)
		case client := <-h.Unregister:
			h.unregister(client)
		case env := <-h.deliveries:
			h.deliverToRoom(env)
		}
	}
}

// String implements fmt.Stringer for suture logs.
func (h *Hub) String() string {
	return "websocket-hub"
}

func (h *Hub) register(client *Client) {
	h.mu.Lock()
	clients, ok := h.rooms[client.roomID]
	if !ok {
		clients = make(map[*Client]struct{})
		h.rooms[client.roomID] = clients
	}
	clients[client] = struct{}{}
	h.mu.Unlock()

	metrics.WSConnectionsActive.Inc()
	logging.Debug().
		Str("room_id", client.roomID).
		Str("user_id", client.userID).
		Int("room_clients", h.RoomClientCount(client.roomID)).
		Msg("websocket client connected")
}

func (h *Hub) unregister(client *Client) {
	h.mu.Lock()
	removed := h.removeLocked(client)
	lastForUser := removed && !h.userConnectedLocked(client.roomID, client.userID)
	h.mu.Unlock()

	if !removed {
		return
	}
	logging.Debug().
		Str("room_id", client.roomID).
		Str("user_id", client.userID).
		Msg("websocket client disconnected")

	// The hook mutates the room and publishes an update, which comes back
	// through Deliver; running it inline would block this loop on itself.
	if lastForUser && h.onDisconnect != nil {
		go h.onDisconnect(client.roomID, client.userID)
	}
}

// removeLocked drops client and closes its send channel. h.mu must be held.
func (h *Hub) removeLocked(client *Client) bool {
	clients, ok := h.rooms[client.roomID]
	if !ok {
		return false
	}
	if _, ok := clients[client]; !ok {
		return false
	}
	delete(clients, client)
	if len(clients) == 0 {
		delete(h.rooms, client.roomID)
	}
	close(client.send)
	metrics.WSConnectionsActive.Dec()
	return true
}

func (h *Hub) userConnectedLocked(roomID, userID string) bool {
	for c := range h.rooms[roomID] {
		if c.userID == userID {
			return true
		}
	}
	return false
}

// sortedClients returns the room's clients in connection order.
func sortedClients(clients map[*Client]struct{}) []*Client {
	out := make([]*Client, 0, len(clients))
	for c := range clients {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// deliverToRoom sends env to every client in its room. Kick and ban notices
// also disconnect the target, an update drops streams of users who left, and a
// closed notice disconnects everyone.
func (h *Hub) deliverToRoom(env broadcast.Envelope) {
	msg := Message{Type: string(env.Kind), Topic: env.Topic, Data: env.Payload}

	h.mu.Lock()
	clients := sortedClients(h.rooms[env.RoomID])
	if len(clients) == 0 {
		h.mu.Unlock()
		return
	}

	var saturated, toRemove []*Client
	for _, client := range clients {
		select {
		case client.send <- msg:
			metrics.WSMessagesSent.Inc()
		default:
			metrics.WSMessagesDropped.Inc()
			saturated = append(saturated, client)
		}
	}

	switch env.Kind {
	case broadcast.KindKick, broadcast.KindBan:
		var ev models.ModerationEvent
		if err := env.Decode(&ev); err == nil && ev.TargetUserID != "" {
			for _, client := range clients {
				if client.userID == ev.TargetUserID {
					toRemove = append(toRemove, client)
				}
			}
		}
	case broadcast.KindUpdate:
		toRemove = departed(env, clients)
	case broadcast.KindClosed:
		toRemove = clients
	}

	// These removals skip the presence hook: the user was removed by the
	// action that produced this event.
	for _, client := range toRemove {
		h.removeLocked(client)
	}

	var gone []*Client
	for _, client := range saturated {
		if h.removeLocked(client) && !h.userConnectedLocked(client.roomID, client.userID) {
			gone = append(gone, client)
		}
	}
	h.mu.Unlock()

	for _, client := range gone {
		logging.Warn().
			Str("room_id", client.roomID).
			Str("user_id", client.userID).
			Msg("websocket client too slow, disconnecting")
		if h.onDisconnect != nil {
			go h.onDisconnect(client.roomID, client.userID)
		}
	}
}

// departed returns the clients whose user is no longer a participant of the
// room snapshot carried by an update. Streams opened after the snapshot
// belong to a rejoin and are kept.
func departed(env broadcast.Envelope, clients []*Client) []*Client {
	var room models.Room
	if err := env.Decode(&room); err != nil || room.ID != env.RoomID || room.Code == "" {
		return nil
	}
	var out []*Client
	for _, client := range clients {
		if room.HasParticipant(client.userID) || client.connectedAt.After(room.LastUpdated) {
			continue
		}
		out = append(out, client)
	}
	return out
}

func (h *Hub) logGracefulShutdown(ctx context.Context) {
	count := h.ClientCount()
	h.closeAllClients()

	logging.Info().
		Str("component", "websocket-hub").
		Str("reason", string(getShutdownReason(ctx))).
		Int("clients_closed", count).
		Msg("websocket hub stopped")
}

func getShutdownReason(ctx context.Context) ShutdownReason {
	if ctx.Err() == context.DeadlineExceeded {
		return ShutdownReasonContextDeadline
	}
	return ShutdownReasonContextCanceled
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	roomIDs := make([]string, 0, len(h.rooms))
	for id := range h.rooms {
		roomIDs = append(roomIDs, id)
	}
	sort.Strings(roomIDs)
	for _, id := range roomIDs {
		for _, client := range sortedClients(h.rooms[id]) {
			h.removeLocked(client)
		}
	}
}

// ClientCount returns the number of connected clients across all rooms.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, clients := range h.rooms {
		n += len(clients)
	}
	return n
}

// RoomClientCount returns the number of clients connected to roomID.
func (h *Hub) RoomClientCount(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}
