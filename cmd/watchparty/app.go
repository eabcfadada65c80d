// Watchparty - Synchronized Group Playback for Podcast Communities
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchparty

package main

import (
	"context"
	"fmt"

	"github.com/tomtom215/watchparty/internal/broadcast"
	"github.com/tomtom215/watchparty/internal/catalog"
	"github.com/tomtom215/watchparty/internal/config"
	"github.com/tomtom215/watchparty/internal/identity"
	"github.com/tomtom215/watchparty/internal/logging"
	"github.com/tomtom215/watchparty/internal/party"
	"github.com/tomtom215/watchparty/internal/registry"
	"github.com/tomtom215/watchparty/internal/store"
)

// app holds the components shared by every command that touches rooms.
type app struct {
	cfg         *config.Config
	store       *store.Guarded
	fabric      *broadcast.Fabric
	broadcaster *broadcast.WatermillBroadcaster
	identity    *identity.Provider
	rooms       *registry.Registry
	service     *party.Service

	closers []func()
}

// newApp opens storage and the broadcast fabric and builds the party
// services. On error everything opened so far is released.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}
	if err := a.open(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) open(ctx context.Context) error {
	cfg := a.cfg

	var err error
	a.store, err = store.Open(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("open room store: %w", err)
	}
	a.closers = append(a.closers, func() {
		if cerr := a.store.Close(); cerr != nil {
			logging.Warn().Err(cerr).Msg("Error closing room store")
		}
	})

	a.fabric, err = broadcast.NewFabric(cfg.Broker)
	if err != nil {
		return fmt.Errorf("create broadcast fabric: %w", err)
	}
	a.closers = append(a.closers, func() {
		if cerr := a.fabric.Close(); cerr != nil {
			logging.Warn().Err(cerr).Msg("Error closing broadcast fabric")
		}
	})

	a.broadcaster = broadcast.NewWatermillBroadcaster(a.fabric.Publisher, broadcast.Options{
		Topic:           cfg.Broker.Topic,
		Timeout:         cfg.Broker.PublishTimeout,
		BreakerName:     "broadcast-" + cfg.Broker.Mode,
		BreakerFailures: cfg.Broker.BreakerFailures,
		BreakerTimeout:  cfg.Broker.BreakerTimeout,
	})
	a.closers = append(a.closers, func() {
		if cerr := a.broadcaster.Close(); cerr != nil {
			logging.Warn().Err(cerr).Msg("Error closing broadcaster")
		}
	})

	podcasts, closeCatalog, err := catalog.Open(cfg.Upstream)
	if err != nil {
		return fmt.Errorf("open content catalog: %w", err)
	}
	a.closers = append(a.closers, closeCatalog)

	a.identity = identity.New(cfg.Upstream)
	a.closers = append(a.closers, a.identity.Directory.Close)

	a.rooms = registry.New(a.store, registry.Config{LockTimeout: cfg.Party.LockTimeout})

	a.service, err = party.New(party.Deps{
		Registry:    a.rooms,
		Broadcaster: a.broadcaster,
		Catalog:     podcasts,
		Identity:    a.identity,
		Config:      party.ConfigFrom(cfg.Party),
	})
	if err != nil {
		return fmt.Errorf("create party services: %w", err)
	}
	a.closers = append(a.closers, a.service.Close)

	logging.Info().
		Str("store", cfg.Store.Backend).
		Str("broker", cfg.Broker.Mode).
		Bool("remote_catalog", cfg.Upstream.CatalogURL != "").
		Msg("Watch party services ready")
	return nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
