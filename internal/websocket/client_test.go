// Watchparty - Synchronized Group Playback for Podcast Communities
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchparty

package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/watchparty/internal/broadcast"
)

// serveRoom upgrades every request into a client of roomID.
func serveRoom(t *testing.T, hub *Hub, roomID, userID string) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		NewClient(hub, conn, roomID, userID).Start()
	}))
	t.Cleanup(server.Close)
	return server
}

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func waitForClients(t *testing.T, hub *Hub, roomID string, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.RoomClientCount(roomID) != n {
		if time.Now().After(deadline) {
			t.Fatalf("room %s has %d clients, want %d", roomID, hub.RoomClientCount(roomID), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestNewClient(t *testing.T) {
	hub := NewHub()
	a := NewClient(hub, nil, "r1", "alice")
	b := NewClient(hub, nil, "r1", "bob")

	if b.ID() <= a.ID() {
		t.Errorf("client ids not increasing: %d then %d", a.ID(), b.ID())
	}
	if a.RoomID() != "r1" || a.UserID() != "alice" || cap(a.send) != sendBuffer {
		t.Errorf("unexpected client %+v", a)
	}
}

func TestClient_ReceivesRoomEvents(t *testing.T) {
	hub := startHub(t)
	conn := dial(t, serveRoom(t, hub, "r1", "alice"))
	waitForClients(t, hub, "r1", 1)

	hub.Deliver(envelope(t, "r1", broadcast.KindUpdate, map[string]string{"id": "r1"}))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if msg.Type != "update" || msg.Topic != "room/r1/update" || string(msg.Data) != `{"id":"r1"}` {
		t.Errorf("frame = %+v (%s)", msg, msg.Data)
	}
}

func TestClient_PingPong(t *testing.T) {
	hub := startHub(t)
	conn := dial(t, serveRoom(t, hub, "r1", "alice"))
	waitForClients(t, hub, "r1", 1)

	if err := conn.WriteJSON(Message{Type: MessageTypePing}); err != nil {
		t.Fatal(err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatal(err)
	}
	if msg.Type != MessageTypePong {
		t.Errorf("Type = %q, want pong", msg.Type)
	}
}

func TestClient_DisconnectUnregisters(t *testing.T) {
	hub := NewHub()
	gone := make(chan string, 1)
	hub.OnDisconnect(func(roomID, userID string) { gone <- userID })
	startHubFrom(t, hub)

	conn := dial(t, serveRoom(t, hub, "r1", "alice"))
	waitForClients(t, hub, "r1", 1)

	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	_ = conn.Close()

	select {
	case user := <-gone:
		if user != "alice" {
			t.Errorf("hook user = %s", user)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("disconnect hook not fired")
	}
	waitForClients(t, hub, "r1", 0)
}

func TestClient_ClosedRoomClosesSocket(t *testing.T) {
	hub := startHub(t)
	conn := dial(t, serveRoom(t, hub, "r1", "alice"))
	waitForClients(t, hub, "r1", 1)

	hub.Deliver(envelope(t, "r1", broadcast.KindClosed, map[string]string{"reason": "CLOSED_BY_HOST"}))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg Message
	if err := conn.ReadJSON(&msg); err != nil || msg.Type != "closed" {
		t.Fatalf("first frame = %+v, %v", msg, err)
	}
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("expected the server to close the socket")
	}
}
