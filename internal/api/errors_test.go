// Watchparty - Synchronized Group Playback for Podcast Communities
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchparty

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/watchparty/internal/auth"
	"github.com/tomtom215/watchparty/internal/authz"
	"github.com/tomtom215/watchparty/internal/party"
	"github.com/tomtom215/watchparty/internal/validation"
)

func TestRespondError(t *testing.T) {
	type sample struct {
		Code string `json:"code" validate:"required"`
	}
	verr := validation.ValidateStruct(sample{})
	require.Error(t, verr)

	tests := []struct {
		name       string
		err        error
		status     int
		code       string
		retryAfter string
		hidden     bool
	}{
		{"bad request", fmt.Errorf("%w: unexpected EOF", errBadRequest), http.StatusBadRequest, ErrCodeBadRequest, "", false},
		{"validation", verr, http.StatusBadRequest, ErrCodeValidation, "", false},
		{"no credentials", auth.ErrNoCredentials, http.StatusUnauthorized, ErrCodeUnauthorized, "", false},
		{"expired", fmt.Errorf("jwt: %w", auth.ErrExpiredCredentials), http.StatusUnauthorized, ErrCodeUnauthorized, "", false},
		{"no subject", authz.ErrNoSubject, http.StatusUnauthorized, ErrCodeUnauthorized, "", false},
		{"denied", authz.ErrDenied, http.StatusForbidden, ErrCodeForbidden, "", false},
		{"not found", fmt.Errorf("%w: room r1", party.ErrNotFound), http.StatusNotFound, ErrCodeNotFound, "", false},
		{"forbidden", party.ErrForbidden, http.StatusForbidden, ErrCodeForbidden, "", false},
		{"conflict", party.ErrConflict, http.StatusConflict, ErrCodeConflict, "", false},
		{"invalid", party.ErrInvalidArgument, http.StatusBadRequest, ErrCodeValidation, "", false},
		{"contention", party.ErrContention, http.StatusServiceUnavailable, ErrCodeContention, "1", false},
		{"upstream", fmt.Errorf("%w: redis: dial tcp", party.ErrUpstream), http.StatusBadGateway, ErrCodeUpstream, "5", true},
		{"rate limited", party.ErrRateLimited, http.StatusTooManyRequests, ErrCodeRateLimited, "1", false},
		{"internal", errors.New("disk on fire"), http.StatusInternalServerError, ErrCodeInternalError, "", true},
		{"canceled", context.Canceled, 499, ErrCodeInternalError, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/api/v1/rooms/r1", nil)

			respondError(w, r, tt.err)

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.retryAfter, w.Header().Get("Retry-After"))

			var body APIResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.False(t, body.Success)
			require.NotNil(t, body.Error)
			assert.Equal(t, tt.code, body.Error.Code)
			if tt.hidden {
				assert.NotContains(t, body.Error.Message, tt.err.Error())
			}
		})
	}
}

func TestRespondError_ValidationDetails(t *testing.T) {
	type sample struct {
		UserID string `json:"userId" validate:"required"`
	}
	err := validation.ValidateStruct(sample{})
	require.Error(t, err)

	w := httptest.NewRecorder()
	respondError(w, httptest.NewRequest(http.MethodPost, "/", nil), err)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "userId")
}
