// Watchparty - Synchronized Group Playback for Podcast Communities
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchparty

package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/watchparty/internal/validation"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 64 << 10

// errBadRequest marks malformed input rejected before validation.
var errBadRequest = errors.New("bad request")

type joinRoomRequest struct {
	Code string `json:"code" validate:"required,roomcode"`
}

type changeContentRequest struct {
	PodcastID string `json:"podcastId" validate:"required,max=128"`
}

type transferHostRequest struct {
	UserID string `json:"userId" validate:"required,max=128"`
}

type sendMessageRequest struct {
	Message string `json:"message" validate:"required,notblank"`
}

type sendReactionRequest struct {
	Reaction string `json:"reaction" validate:"required,notblank"`
}

type moderationRequest struct {
	UserID string `json:"userId" validate:"required,max=128"`
	Reason string `json:"reason" validate:"max=500"`
}

// decodeJSON reads one JSON object from the body into dst and validates it.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return fmt.Errorf("%w: request body is empty", errBadRequest)
		case errors.As(err, &maxErr):
			return fmt.Errorf("%w: request body exceeds %d bytes", errBadRequest, maxBodyBytes)
		default:
			return fmt.Errorf("%w: invalid JSON: %v", errBadRequest, err)
		}
	}
	if dec.More() {
		return fmt.Errorf("%w: request body must hold a single JSON object", errBadRequest)
	}
	if verr := validation.ValidateStruct(dst); verr != nil {
		return verr
	}
	return nil
}

// queryInt parses an optional non-negative integer query parameter. Absent
// parameters yield 0 so the service applies its default.
func queryInt(r *http.Request, name string) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer", errBadRequest, name)
	}
	return n, nil
}

// queryTime parses an optional RFC 3339 timestamp query parameter.
func queryTime(r *http.Request, name string) (time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be an RFC 3339 timestamp", errBadRequest, name)
	}
	return t, nil
}
