// Watchparty - Synchronized Group Playback for Podcast Communities
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchparty

package api

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/watchparty/internal/auth"
	"github.com/tomtom215/watchparty/internal/authz"
	"github.com/tomtom215/watchparty/internal/broadcast"
	"github.com/tomtom215/watchparty/internal/catalog"
	"github.com/tomtom215/watchparty/internal/config"
	"github.com/tomtom215/watchparty/internal/identity"
	"github.com/tomtom215/watchparty/internal/models"
	"github.com/tomtom215/watchparty/internal/party"
	"github.com/tomtom215/watchparty/internal/registry"
	"github.com/tomtom215/watchparty/internal/store"
	"github.com/tomtom215/watchparty/internal/websocket"
)

const testSecret = "test-secret-at-least-32-bytes-long!!"

// testServer runs the full router over an in-memory store. Room events go
// through the local watermill fabric and relay into the websocket hub, the
// same path the serve command wires.
type testServer struct {
	*httptest.Server
	svc   *party.Service
	store *store.MemoryStore
	hub   *websocket.Hub
	jwt   *auth.JWTManager
}

type serverOption func(*serverSettings)

type serverSettings struct {
	party      party.Config
	middleware *ChiMiddlewareConfig
	storePing  Pinger
}

func withPartyConfig(fn func(*party.Config)) serverOption {
	return func(s *serverSettings) { fn(&s.party) }
}

func withRateLimit(requests int) serverOption {
	return func(s *serverSettings) {
		s.middleware.RateLimitDisabled = false
		s.middleware.RateLimitRequests = requests
		s.middleware.RateLimitWindow = time.Minute
	}
}

func withStorePing(p Pinger) serverOption {
	return func(s *serverSettings) { s.storePing = p }
}

func newTestServer(t *testing.T, opts ...serverOption) *testServer {
	t.Helper()
	settings := &serverSettings{
		party:      party.DefaultConfig(),
		middleware: DefaultChiMiddlewareConfig(),
	}
	settings.middleware.RateLimitDisabled = true
	for _, opt := range opts {
		opt(settings)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	fabric, err := broadcast.NewFabric(config.BrokerConfig{Mode: config.BrokerModeLocal})
	require.NoError(t, err)
	t.Cleanup(func() { _ = fabric.Close() })
	bc := broadcast.NewWatermillBroadcaster(fabric.Publisher, broadcast.Options{Timeout: 2 * time.Second})

	hub := websocket.NewHub()
	go func() { _ = hub.Serve(ctx) }()
	relay := broadcast.NewRelay(fabric.Subscriber, broadcast.DefaultTopic, hub)
	go func() { _ = relay.Serve(ctx) }()
	select {
	case <-relay.Ready():
	case <-time.After(5 * time.Second):
		t.Fatal("relay did not subscribe")
	}

	mem := store.NewMemoryStore()
	reg := registry.New(mem, registry.Config{LockTimeout: 2 * time.Second})
	svc, err := party.New(party.Deps{
		Registry:    reg,
		Broadcaster: bc,
		Catalog: catalog.NewStaticCatalog(
			catalog.Podcast{ID: "pod-1", Title: "Hardcore History"},
			catalog.Podcast{ID: "pod-2", Title: "Radiolab"},
		),
		Identity: identity.New(config.UpstreamConfig{}),
		Config:   settings.party,
	})
	require.NoError(t, err)
	t.Cleanup(svc.Close)
	hub.OnDisconnect(func(roomID, userID string) {
		_ = svc.Coordinator.MarkOffline(context.Background(), roomID, userID)
	})

	var ping Pinger = mem
	if settings.storePing != nil {
		ping = settings.storePing
	}
	handler, err := NewHandler(HandlerDeps{
		Service: svc,
		Callers: identity.ClaimsProvider{},
		Hub:     hub,
		Store:   ping,
		Version: "test",
	})
	require.NoError(t, err)

	jwtManager, err := auth.NewJWTManager(config.SecurityConfig{JWTSecret: testSecret, JWTIssuer: "watchparty-test"})
	require.NoError(t, err)
	enforcer, err := authz.NewEnforcer(authz.EnforcerConfig{})
	require.NoError(t, err)
	t.Cleanup(enforcer.Close)

	router, err := NewRouter(RouterDeps{
		Handler:       handler,
		Authenticator: auth.NewJWTAuthenticator(jwtManager),
		Enforcer:      enforcer,
		Middleware:    settings.middleware,
	})
	require.NoError(t, err)

	srv := httptest.NewServer(router.Setup())
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, svc: svc, store: mem, hub: hub, jwt: jwtManager}
}

// token signs a token for userID carrying roles.
func (s *testServer) token(t *testing.T, userID string, roles ...string) string {
	t.Helper()
	tok, err := s.jwt.GenerateToken(auth.AuthSubject{ID: userID, Username: "user " + userID, Roles: roles})
	require.NoError(t, err)
	return tok
}

// envelope is APIResponse with the payload left raw.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error"`
	Meta    *APIMeta        `json:"meta"`
}

type result struct {
	status int
	header http.Header
	body   envelope
	raw    []byte
}

func (r result) decode(t *testing.T, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(r.body.Data, v), "data: %s", r.body.Data)
}

func (r result) code() string {
	if r.body.Error == nil {
		return ""
	}
	return r.body.Error.Code
}

// do sends a request with an optional bearer token and JSON body.
func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) result {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, s.URL+path, reader)
	require.NoError(t, err)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	res := result{status: resp.StatusCode, header: resp.Header, raw: raw}
	if len(raw) > 0 && resp.Header.Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, json.Unmarshal(raw, &res.body), "body: %s", raw)
	}
	return res
}

// createRoom creates a room hosted by hostID and returns it.
func (s *testServer) createRoom(t *testing.T, hostID string, public bool) *models.Room {
	t.Helper()
	res := s.do(t, http.MethodPost, "/api/v1/rooms", s.token(t, hostID), map[string]interface{}{
		"podcastId": "pod-1",
		"roomName":  "Friday listen",
		"publish":   public,
	})
	require.Equal(t, http.StatusCreated, res.status, string(res.raw))
	var room models.Room
	res.decode(t, &room)
	return &room
}

// join adds userID to room.
func (s *testServer) join(t *testing.T, room *models.Room, userID string) {
	t.Helper()
	res := s.do(t, http.MethodPost, "/api/v1/rooms/join", s.token(t, userID), map[string]string{"code": room.Code})
	require.Equal(t, http.StatusOK, res.status, string(res.raw))
}
