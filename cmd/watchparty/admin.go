// Watchparty - Synchronized Group Playback for Podcast Communities
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchparty

package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/tomtom215/watchparty/internal/auth"
	"github.com/tomtom215/watchparty/internal/models"
)

// The maintenance commands open the store directly. With the badger backend
// the server must be stopped first; otherwise use POST /api/v1/admin/rooms/expire.

func newExpireCommand(flags *globalFlags) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "expire",
		Short: "Close every active room past its expiry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.service.Expiry.ForceExpireRooms(ctx)
			if err != nil {
				return fmt.Errorf("expire rooms: %w", err)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "expired %d room(s)\n", n)
			return err
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", time.Minute, "overall deadline")
	return cmd
}

func newExpiringCommand(flags *globalFlags) *cobra.Command {
	var (
		timeout time.Duration
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "expiring",
		Short: "List active rooms that expire within the warning window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			rooms, err := a.service.Expiry.ListRoomsExpiringSoon(ctx)
			if err != nil {
				return fmt.Errorf("list expiring rooms: %w", err)
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(rooms)
			}
			return printRooms(cmd.OutOrStdout(), rooms, time.Now())
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "overall deadline")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print rooms as JSON")
	return cmd
}

func printRooms(w io.Writer, rooms []*models.Room, now time.Time) error {
	if len(rooms) == 0 {
		_, err := fmt.Fprintln(w, "no rooms expiring soon")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CODE\tNAME\tHOST\tPARTICIPANTS\tEXPIRES IN")
	for _, r := range rooms {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
			r.Code, r.Name, r.HostUserID, len(r.Participants), r.ExpiresAt.Sub(now).Truncate(time.Second))
	}
	return tw.Flush()
}

func newTokenCommand(flags *globalFlags) *cobra.Command {
	var (
		username string
		roles    []string
	)

	cmd := &cobra.Command{
		Use:   "token <user-id>",
		Short: "Mint a signed caller token",
		Long: "Mint a caller token signed with the configured JWT secret. " +
			"Intended for local testing; production tokens come from the platform.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			manager, err := auth.NewJWTManager(cfg.Security)
			if err != nil {
				return fmt.Errorf("create JWT manager: %w", err)
			}
			if username == "" {
				username = args[0]
			}
			token, err := manager.GenerateToken(auth.AuthSubject{
				ID:       args[0],
				Username: username,
				Roles:    roles,
			})
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "display name (defaults to the user id)")
	cmd.Flags().StringSliceVar(&roles, "role", nil, "role to grant, repeatable (e.g. admin)")
	return cmd
}
