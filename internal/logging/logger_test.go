// Watchparty - Synchronized Group Playback for Podcast Communities
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchparty

package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/rs/zerolog"
)

// captureGlobal swaps the global logger for one writing to a buffer.
func captureGlobal(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := Logger()
	prevLevel := zerolog.GlobalLevel()
	SetLogger(NewTestLogger(&buf))
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	t.Cleanup(func() {
		SetLogger(prev)
		zerolog.SetGlobalLevel(prevLevel)
	})
	return &buf
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	if cfg.Level != "info" {
		t.Errorf("expected default level 'info', got '%s'", cfg.Level)
	}
	if cfg.Format != "json" {
		t.Errorf("expected default format 'json', got '%s'", cfg.Format)
	}
	if cfg.Service != "watchparty" {
		t.Errorf("expected service 'watchparty', got '%s'", cfg.Service)
	}
}

func TestInit(t *testing.T) {
	var buf bytes.Buffer
	prev := Logger()
	t.Cleanup(func() { SetLogger(prev); SetLevelString("info") })

	Init(Config{Level: "debug", Format: "json", Timestamp: true, Service: "wp-test", Output: &buf})
	Info().Msg("test message")

	out := buf.String()
	for _, want := range []string{"test message", `"level":"info"`, `"service":"wp-test"`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %s, got: %s", want, out)
		}
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warning", zerolog.WarnLevel},
		{" error ", zerolog.ErrorLevel},
		{"off", zerolog.Disabled},
		{"nonsense", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.input); got != tt.expected {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
		}
	}

	if ValidLevel("nonsense") || !ValidLevel("warn") {
		t.Error("ValidLevel returned wrong result")
	}
}

func TestCtxAddsRequestFields(t *testing.T) {
	buf := captureGlobal(t)

	ctx := ContextWithRequestID(context.Background(), "req-1")
	ctx = ContextWithCorrelationID(ctx, "corr-1")
	CtxInfo(ctx).Msg("hello")

	out := buf.String()
	if !strings.Contains(out, `"request_id":"req-1"`) || !strings.Contains(out, `"correlation_id":"corr-1"`) {
		t.Errorf("missing context ids in %s", out)
	}
	if RequestIDFromContext(context.Background()) != "" {
		t.Error("expected empty request id for bare context")
	}
	if len(GenerateCorrelationID()) != 8 {
		t.Error("expected 8 character correlation id")
	}
}

func TestForRoom(t *testing.T) {
	buf := captureGlobal(t)

	ForRoom(context.Background(), "session", "room-9", "u1").Info().Msg("joined")
	ForRoom(context.Background(), "expiry", "", "").Info().Msg("sweep")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if !strings.Contains(lines[0], `"room_id":"room-9"`) || !strings.Contains(lines[0], `"user_id":"u1"`) {
		t.Errorf("missing room fields: %s", lines[0])
	}
	if strings.Contains(lines[1], "room_id") {
		t.Errorf("empty room id should be omitted: %s", lines[1])
	}
}

func TestSlogHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewSlogHandlerWithLogger(NewTestLogger(&buf)))

	logger.WithGroup("svc").With("name", "http-server").Warn("restarting",
		"attempt", 2,
		slog.Group("backoff", slog.Duration("wait", 0)),
		"err", errors.New("boom"),
	)

	out := buf.String()
	for _, want := range []string{
		`"level":"warn"`,
		`"svc.name":"http-server"`,
		`"svc.attempt":2`,
		`"svc.backoff.wait"`,
		`"svc.err":"boom"`,
		`"message":"restarting"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in %s", want, out)
		}
	}
}

func TestSlogToZerologLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   slog.Level
		want zerolog.Level
	}{
		{slog.LevelDebug - 4, zerolog.TraceLevel},
		{slog.LevelDebug, zerolog.DebugLevel},
		{slog.LevelInfo, zerolog.InfoLevel},
		{slog.LevelWarn, zerolog.WarnLevel},
		{slog.LevelError + 4, zerolog.ErrorLevel},
	}
	for _, tt := range tests {
		if got := slogToZerologLevel(tt.in); got != tt.want {
			t.Errorf("slogToZerologLevel(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestWatermillLogger(t *testing.T) {
	var buf bytes.Buffer
	var adapter watermill.LoggerAdapter = NewWatermillLoggerWithLogger(NewTestLogger(&buf))

	adapter = adapter.With(watermill.LogFields{"topic": "watchparty.events"})
	adapter.Error("publish failed", errors.New("nats: timeout"), watermill.LogFields{"message_uuid": "m1"})

	out := buf.String()
	for _, want := range []string{`"topic":"watchparty.events"`, `"message_uuid":"m1"`, `"error":"nats: timeout"`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in %s", want, out)
		}
	}
}
