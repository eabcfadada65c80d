// Watchparty - Synchronized Group Playback for Podcast Communities
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchparty

package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/watchparty/internal/auth"
	"github.com/tomtom215/watchparty/internal/config"
	"github.com/tomtom215/watchparty/internal/models"
)

func TestVersionCommand(t *testing.T) {
	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})

	if err := root.Execute(); err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out.String(), "watchparty dev") {
		t.Errorf("unexpected output %q", out.String())
	}
}

func TestRootCommand_Subcommands(t *testing.T) {
	root := newRootCommand()
	for _, name := range []string{"serve", "expire", "expiring", "token", "version"} {
		if cmd, _, err := root.Find([]string{name}); err != nil || cmd.Name() != name {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("JWT_SECRET", "a-test-secret-that-is-at-least-32-bytes-long")
	t.Setenv("STORE_BACKEND", "memory")

	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"token", "user-1", "--username", "Ada", "--role", "admin"})
	if err := root.Execute(); err != nil {
		t.Fatalf("token: %v", err)
	}

	manager, err := auth.NewJWTManager(config.SecurityConfig{
		JWTSecret: "a-test-secret-that-is-at-least-32-bytes-long",
		JWTIssuer: mustLoad(t).Security.JWTIssuer,
		TokenTTL:  time.Hour,
	})
	if err != nil {
		t.Fatal(err)
	}
	claims, err := manager.ValidateToken(strings.TrimSpace(out.String()))
	if err != nil {
		t.Fatalf("minted token does not validate: %v", err)
	}
	if claims.Subject != "user-1" || claims.Username != "Ada" {
		t.Errorf("unexpected claims %+v", claims)
	}
	if len(claims.Roles) != 1 || claims.Roles[0] != "admin" {
		t.Errorf("roles = %v, want [admin]", claims.Roles)
	}
}

func TestLoadConfig_RejectsBadLogLevel(t *testing.T) {
	t.Setenv("JWT_SECRET", "a-test-secret-that-is-at-least-32-bytes-long")
	t.Setenv("STORE_BACKEND", "memory")

	if _, err := loadConfig(&globalFlags{logLevel: "loud"}); err == nil {
		t.Fatal("expected error for unknown log level")
	}
}

func TestPrintRooms(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	var empty bytes.Buffer
	if err := printRooms(&empty, nil, now); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(empty.String(), "no rooms") {
		t.Errorf("empty listing = %q", empty.String())
	}

	var out bytes.Buffer
	rooms := []*models.Room{{
		Code:         "ABC123",
		Name:         "Friday listen",
		HostUserID:   "host-1",
		Participants: []models.Participant{{UserID: "host-1"}, {UserID: "u-2"}},
		ExpiresAt:    now.Add(90 * time.Minute),
	}}
	if err := printRooms(&out, rooms, now); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header and one row, got %q", out.String())
	}
	for _, want := range []string{"ABC123", "Friday listen", "host-1", "2", "1h30m0s"} {
		if !strings.Contains(lines[1], want) {
			t.Errorf("row %q missing %q", lines[1], want)
		}
	}
}

func mustLoad(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	return cfg
}
