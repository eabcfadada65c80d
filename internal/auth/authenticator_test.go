// Watchparty - Synchronized Group Playback for Podcast Communities
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchparty

package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestJWTAuthenticator_Sources(t *testing.T) {
	manager := newTestManager(t, "")
	token, err := manager.GenerateToken(AuthSubject{ID: "user-1", Username: "alice"})
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	a := NewJWTAuthenticator(manager)

	tests := []struct {
		name    string
		build   func() *http.Request
		wantErr error
	}{
		{
			name: "bearer header",
			build: func() *http.Request {
				r := httptest.NewRequest(http.MethodGet, "/api/v1/rooms/mine", nil)
				r.Header.Set("Authorization", "Bearer "+token)
				return r
			},
		},
		{
			name: "lowercase scheme",
			build: func() *http.Request {
				r := httptest.NewRequest(http.MethodGet, "/", nil)
				r.Header.Set("Authorization", "bearer "+token)
				return r
			},
		},
		{
			name: "cookie",
			build: func() *http.Request {
				r := httptest.NewRequest(http.MethodGet, "/", nil)
				r.AddCookie(&http.Cookie{Name: "token", Value: token})
				return r
			},
		},
		{
			name: "query on websocket upgrade",
			build: func() *http.Request {
				r := httptest.NewRequest(http.MethodGet, "/api/v1/rooms/r1/ws?access_token="+token, nil)
				r.Header.Set("Upgrade", "websocket")
				return r
			},
		},
		{
			name: "query ignored on plain requests",
			build: func() *http.Request {
				return httptest.NewRequest(http.MethodGet, "/api/v1/rooms/mine?access_token="+token, nil)
			},
			wantErr: ErrNoCredentials,
		},
		{
			name: "basic scheme",
			build: func() *http.Request {
				r := httptest.NewRequest(http.MethodGet, "/", nil)
				r.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
				return r
			},
			wantErr: ErrNoCredentials,
		},
		{
			name: "garbage token",
			build: func() *http.Request {
				r := httptest.NewRequest(http.MethodGet, "/", nil)
				r.Header.Set("Authorization", "Bearer abc")
				return r
			},
			wantErr: ErrInvalidCredentials,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subject, err := a.Authenticate(context.Background(), tt.build())
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Authenticate() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Authenticate() error = %v", err)
			}
			if subject.ID != "user-1" || subject.Username != "alice" {
				t.Errorf("subject = %+v", subject)
			}
		})
	}
}

func TestJWTAuthenticator_Expired(t *testing.T) {
	manager := newTestManager(t, "")
	manager.now = func() time.Time { return time.Now().Add(-3 * time.Hour) }
	token, err := manager.GenerateToken(AuthSubject{ID: "user-1"})
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	manager.now = time.Now

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	_, err = NewJWTAuthenticator(manager).Authenticate(context.Background(), r)
	if !errors.Is(err, ErrExpiredCredentials) {
		t.Errorf("Authenticate() error = %v, want ErrExpiredCredentials", err)
	}
}

func TestAuthSubject_Roles(t *testing.T) {
	subject := &AuthSubject{ID: "u1", Roles: []string{"admin", "listener"}}

	if !subject.HasRole("admin") {
		t.Error("HasRole(admin) = false")
	}
	if subject.HasRole("") {
		t.Error("HasRole(\"\") = true")
	}
	if !subject.HasAnyRole("moderator", "listener") {
		t.Error("HasAnyRole(moderator, listener) = false")
	}
	if subject.HasAnyRole() {
		t.Error("HasAnyRole() = true")
	}
}

func TestAuthSubject_IsExpired(t *testing.T) {
	if (&AuthSubject{}).IsExpired() {
		t.Error("subject without expiry reported expired")
	}
	if !(&AuthSubject{ExpiresAt: time.Now().Add(-time.Minute).Unix()}).IsExpired() {
		t.Error("past expiry not reported")
	}
}

func TestSubjectContext(t *testing.T) {
	if GetAuthSubject(context.Background()) != nil {
		t.Error("empty context returned a subject")
	}
	subject := &AuthSubject{ID: "u1"}
	if got := GetAuthSubject(WithSubject(context.Background(), subject)); got != subject {
		t.Errorf("GetAuthSubject() = %v, want %v", got, subject)
	}
}
