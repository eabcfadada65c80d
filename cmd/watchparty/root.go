// Watchparty - Synchronized Group Playback for Podcast Communities
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchparty

package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/tomtom215/watchparty/internal/config"
	"github.com/tomtom215/watchparty/internal/logging"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	logLevel   string
}

func newRootCommand() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:           "watchparty",
		Short:         "Synchronized group playback for podcast communities",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "path to a YAML config file")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "override logging.level (debug, info, warn, error)")

	root.AddCommand(
		newServeCommand(flags),
		newExpireCommand(flags),
		newExpiringCommand(flags),
		newTokenCommand(flags),
		newVersionCommand(),
	)
	return root
}

// loadConfig reads configuration and initializes the global logger from it.
func loadConfig(flags *globalFlags) (*config.Config, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	if flags.logLevel != "" {
		if !logging.ValidLevel(flags.logLevel) {
			return nil, fmt.Errorf("invalid --log-level %q", flags.logLevel)
		}
		cfg.Logging.Level = flags.logLevel
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.Logging.Level
	logCfg.Format = cfg.Logging.Format
	logCfg.Caller = cfg.Logging.Caller
	logging.Init(logCfg)
	return cfg, nil
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "watchparty %s (commit %s, %s %s/%s)\n",
				version, commit, runtime.Version(), runtime.GOOS, runtime.GOARCH)
			return err
		},
	}
}
