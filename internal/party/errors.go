// Watchparty - Synchronized Group Playback for Podcast Communities
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchparty

package party

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomtom215/watchparty/internal/registry"
	"github.com/tomtom215/watchparty/internal/store"
)

// Error kinds returned by every party operation. Callers match them with
// errors.Is; the wrapped message carries the detail.
var (
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrConflict        = errors.New("conflict")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrContention      = errors.New("room busy, retry")
	ErrUpstream        = errors.New("upstream unavailable")
	ErrRateLimited     = errors.New("rate limited")
)

// Kind classifies an error for transports.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindForbidden
	KindConflict
	KindInvalidArgument
	KindContention
	KindUpstream
	KindRateLimited
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindConflict:
		return "conflict"
	case KindInvalidArgument:
		return "invalid_argument"
	case KindContention:
		return "contention"
	case KindUpstream:
		return "upstream"
	case KindRateLimited:
		return "rate_limited"
	default:
		return "internal"
	}
}

var kindSentinels = []struct {
	kind Kind
	err  error
}{
	{KindNotFound, ErrNotFound},
	{KindForbidden, ErrForbidden},
	{KindConflict, ErrConflict},
	{KindInvalidArgument, ErrInvalidArgument},
	{KindContention, ErrContention},
	{KindUpstream, ErrUpstream},
	{KindRateLimited, ErrRateLimited},
}

// KindOf returns the kind of err. Unclassified errors are KindInternal.
func KindOf(err error) Kind {
	if err == nil {
		return KindInternal
	}
	for _, s := range kindSentinels {
		if errors.Is(err, s.err) {
			return s.kind
		}
	}
	return KindInternal
}

// IsRetryable reports whether the same request may succeed later.
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case KindContention, KindUpstream, KindRateLimited:
		return true
	}
	return false
}

// classify maps registry and store errors onto the party kinds.
// Already classified errors and context cancellation pass through.
func classify(err error) error {
	if err == nil || KindOf(err) != KindInternal {
		return err
	}
	switch {
	case errors.Is(err, store.ErrRoomNotFound), errors.Is(err, store.ErrMessageNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, registry.ErrContention):
		return fmt.Errorf("%w: %w", ErrContention, err)
	case errors.Is(err, registry.ErrCodeTaken), errors.Is(err, store.ErrCodeInUse), errors.Is(err, store.ErrRoomExists):
		return fmt.Errorf("%w: %w", ErrConflict, err)
	case errors.Is(err, store.ErrUnavailable), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	return err
}

func notFound(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

func forbidden(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrForbidden, fmt.Sprintf(format, args...))
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}
