// Watchparty - Synchronized Group Playback for Podcast Communities
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchparty

package party

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tomtom215/watchparty/internal/registry"
	"github.com/tomtom215/watchparty/internal/store"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		err       error
		kind      Kind
		retryable bool
	}{
		{notFound("room r1"), KindNotFound, false},
		{forbidden("nope"), KindForbidden, false},
		{fmt.Errorf("%w: full", ErrConflict), KindConflict, false},
		{invalid("bad"), KindInvalidArgument, false},
		{fmt.Errorf("%w: busy", ErrContention), KindContention, true},
		{fmt.Errorf("%w: catalog", ErrUpstream), KindUpstream, true},
		{ErrRateLimited, KindRateLimited, true},
		{errors.New("boom"), KindInternal, false},
		{nil, KindInternal, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.kind, KindOf(tt.err), "%v", tt.err)
		assert.Equal(t, tt.retryable, IsRetryable(tt.err), "%v", tt.err)
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "not_found", KindNotFound.String())
	assert.Equal(t, "rate_limited", KindRateLimited.String())
	assert.Equal(t, "internal", KindInternal.String())
}

func TestClassify(t *testing.T) {
	tests := []struct {
		in   error
		want error
	}{
		{fmt.Errorf("%w: r1", store.ErrRoomNotFound), ErrNotFound},
		{fmt.Errorf("%w: m1", store.ErrMessageNotFound), ErrNotFound},
		{fmt.Errorf("%w: room:r1", registry.ErrContention), ErrContention},
		{fmt.Errorf("%w: ABC123", registry.ErrCodeTaken), ErrConflict},
		{store.ErrRoomExists, ErrConflict},
		{fmt.Errorf("%w: breaker open", store.ErrUnavailable), ErrUpstream},
		{context.DeadlineExceeded, ErrUpstream},
	}
	for _, tt := range tests {
		got := classify(tt.in)
		assert.ErrorIs(t, got, tt.want)
		assert.ErrorIs(t, got, tt.in, "original error must stay in the chain")
	}

	already := forbidden("host only")
	assert.Same(t, already, classify(already))
	assert.ErrorIs(t, classify(context.Canceled), context.Canceled)
	assert.Equal(t, KindInternal, KindOf(classify(context.Canceled)))
	assert.NoError(t, classify(nil))
}
