// Watchparty - Synchronized Group Playback for Podcast Communities
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchparty

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomtom215/watchparty/internal/api"
	"github.com/tomtom215/watchparty/internal/auth"
	"github.com/tomtom215/watchparty/internal/authz"
	"github.com/tomtom215/watchparty/internal/broadcast"
	"github.com/tomtom215/watchparty/internal/config"
	"github.com/tomtom215/watchparty/internal/identity"
	"github.com/tomtom215/watchparty/internal/logging"
	"github.com/tomtom215/watchparty/internal/metrics"
	"github.com/tomtom215/watchparty/internal/supervisor"
	"github.com/tomtom215/watchparty/internal/supervisor/services"
	"github.com/tomtom215/watchparty/internal/websocket"
)

const slowRequestThreshold = 2 * time.Second

func newServeCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the watch party server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(parent context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logging.Info().
		Str("version", version).
		Str("commit", commit).
		Str("addr", cfg.Server.Addr()).
		Str("environment", cfg.Server.Environment).
		Msg("Starting watchparty")

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	metrics.SetAppInfo(version, runtime.Version())
	if _, err := a.rooms.Warm(ctx); err != nil {
		// Rooms load lazily on first access.
		logging.Warn().Err(err).Msg("Could not warm room registry")
	}

	hub := websocket.NewHub()
	hub.OnDisconnect(func(roomID, userID string) {
		// The request context is gone by now.
		offCtx, cancel := context.WithTimeout(context.Background(), cfg.Party.LockTimeout+time.Second)
		defer cancel()
		if err := a.service.Coordinator.MarkOffline(offCtx, roomID, userID); err != nil {
			logging.Debug().Err(err).Str("room_id", roomID).Str("user_id", userID).Msg("Mark offline failed")
		}
	})
	relay := broadcast.NewRelay(a.fabric.Subscriber, cfg.Broker.Topic, hub)

	router, enforcer, err := buildRouter(cfg, a, hub)
	if err != nil {
		return err
	}
	defer enforcer.Close()

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       2 * time.Minute,
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfigFrom(cfg.Supervisor))
	if err != nil {
		return fmt.Errorf("create supervisor tree: %w", err)
	}

	tree.AddDataService(a.service.Expiry)
	if cfg.Store.Backend == config.StoreBackendBadger {
		tree.AddDataService(services.NewSweepService("store-gc", cfg.Store.GCInterval, func(context.Context) error {
			return a.store.RunGC()
		}))
	}
	tree.AddMessagingService(hub)
	tree.AddMessagingService(relay)
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	logging.Info().Str("addr", cfg.Server.Addr()).Msg("Watchparty listening")

	err = tree.Serve(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("supervisor tree: %w", err)
	}

	if report, rerr := tree.UnstoppedServiceReport(); rerr == nil && len(report) > 0 {
		for _, svc := range report {
			logging.Warn().Str("service", svc.Name).Msg("Service did not stop in time")
		}
	}
	logging.Info().Msg("Watchparty stopped")
	return nil
}

// buildRouter wires authentication, authorization and the API handlers.
func buildRouter(cfg *config.Config, a *app, hub *websocket.Hub) (http.Handler, *authz.Enforcer, error) {
	jwtManager, err := auth.NewJWTManager(cfg.Security)
	if err != nil {
		return nil, nil, fmt.Errorf("create JWT manager: %w", err)
	}

	enforcer, err := authz.NewEnforcer(authz.ConfigFrom(cfg.Security))
	if err != nil {
		return nil, nil, fmt.Errorf("create authorization enforcer: %w", err)
	}

	handler, err := api.NewHandler(api.HandlerDeps{
		Service:   a.service,
		Callers:   identity.ClaimsProvider{},
		Hub:       hub,
		Store:     a.store,
		WSOrigins: cfg.Security.WSOrigins,
		Version:   version,
	})
	if err != nil {
		enforcer.Close()
		return nil, nil, fmt.Errorf("create API handler: %w", err)
	}

	router, err := api.NewRouter(api.RouterDeps{
		Handler:       handler,
		Authenticator: auth.NewJWTAuthenticator(jwtManager),
		Enforcer:      enforcer,
		Middleware:    api.ChiMiddlewareConfigFrom(cfg.Security),
		SlowRequest:   slowRequestThreshold,
	})
	if err != nil {
		enforcer.Close()
		return nil, nil, fmt.Errorf("create API router: %w", err)
	}
	return router.Setup(), enforcer, nil
}
