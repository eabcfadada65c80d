// Watchparty - Synchronized Group Playback for Podcast Communities
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchparty

package party

import (
	"errors"
	"time"

	"github.com/tomtom215/watchparty/internal/broadcast"
	"github.com/tomtom215/watchparty/internal/registry"
)

// Deps wires the party services to their collaborators.
type Deps struct {
	Registry    *registry.Registry
	Broadcaster broadcast.Broadcaster
	Catalog     ContentCatalog
	Identity    IdentityProvider
	Config      Config
	// Clock defaults to time.Now.
	Clock func() time.Time
}

// Service groups the party components built over one registry.
type Service struct {
	Coordinator *Coordinator
	Sync        *Synchronizer
	Chat        *ChatRelay
	Expiry      *ExpiryScheduler
}

// New builds the party services.
func New(deps Deps) (*Service, error) {
	if deps.Registry == nil {
		return nil, errors.New("party: registry is required")
	}
	if deps.Catalog == nil {
		return nil, errors.New("party: content catalog is required")
	}
	if deps.Broadcaster == nil {
		deps.Broadcaster = broadcast.Nop{}
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}

	c := &core{
		reg:      deps.Registry,
		bc:       deps.Broadcaster,
		catalog:  deps.Catalog,
		identity: deps.Identity,
		cfg:      deps.Config.withDefaults(),
		now:      deps.Clock,
	}
	return &Service{
		Coordinator: newCoordinator(c),
		Sync:        &Synchronizer{core: c},
		Chat:        newChatRelay(c),
		Expiry:      &ExpiryScheduler{core: c},
	}, nil
}

// Close releases background resources.
func (s *Service) Close() {
	s.Chat.Close()
}
