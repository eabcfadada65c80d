// Watchparty - Synchronized Group Playback for Podcast Communities
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchparty

package upstream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/watchparty/internal/logging"
)

func TestClient_GetJSON(t *testing.T) {
	var gotAuth, gotRequestID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotRequestID = r.Header.Get("X-Request-ID")
		switch r.URL.Path {
		case "/things/a b":
			_, _ = w.Write([]byte(`{"name":"spaced"}`))
		case "/things/bad":
			_, _ = w.Write([]byte(`{not json`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := New(Config{Name: "things", BaseURL: srv.URL + "/", Token: "tok", Timeout: time.Second})
	assert.Equal(t, "things", c.Name())

	ctx := logging.ContextWithRequestID(context.Background(), "req-1")
	var out struct {
		Name string `json:"name"`
	}
	require.NoError(t, c.GetJSON(ctx, Path("things", "a b"), &out))
	assert.Equal(t, "spaced", out.Name)
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, "req-1", gotRequestID)

	err := c.GetJSON(ctx, Path("things", "missing"), &out)
	assert.ErrorIs(t, err, ErrNotFound)

	err = c.GetJSON(ctx, Path("things", "bad"), &out)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestClient_BreakerIgnoresNotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	c := New(Config{Name: "things", BaseURL: srv.URL, FailureThreshold: 1})
	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, c.GetJSON(context.Background(), "/x", &struct{}{}), ErrNotFound)
	}
	assert.Equal(t, gobreaker.StateClosed, c.State())
}

func TestClient_BreakerOpens(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(Config{Name: "things", BaseURL: srv.URL, FailureThreshold: 1, OpenTimeout: time.Minute})
	assert.ErrorIs(t, c.GetJSON(context.Background(), "/x", &struct{}{}), ErrUnavailable)
	assert.Equal(t, gobreaker.StateOpen, c.State())

	err := c.GetJSON(context.Background(), "/x", &struct{}{})
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}

func TestPath(t *testing.T) {
	assert.Equal(t, "/users/a%2Fb", Path("users", "a/b"))
	assert.Equal(t, "", Path())
}
