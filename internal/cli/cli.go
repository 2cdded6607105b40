// Copyright (C) 2025-2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli wires configuration, logging and the refresh engine into the
// pipewatch commands.
package cli

import (
	"github.com/spf13/cobra"
)

const appName = "pipewatch"

// Version is set at build time with -ldflags "-X ...cli.Version=...".
var Version = "0.1.0-dev"

// NewRootCmd builds the command tree. Without a subcommand it runs the
// dashboard.
func NewRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   appName,
		Short: "Live terminal dashboard for CodePipeline pipelines",
		Long: `pipewatch polls AWS CodePipeline for the pipelines whose names match a
pattern and shows one aggregated status per pipeline. Select a row to see
every stage and action of that pipeline.

Examples:
  # Watch pipelines starting with "integration" (default)
  pipewatch

  # Print the current status once
  pipewatch status --output json

  # Run headless with the HTTP API
  pipewatch serve`,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDashboard(cmd, configPath)
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default: ./pipewatch.yaml, ./config, $HOME/.pipewatch)")

	root.AddCommand(
		newStatusCmd(&configPath),
		newServeCmd(&configPath),
		newVersionCmd(),
	)
	return root
}

// Execute runs the CLI application
func Execute() error {
	return NewRootCmd().Execute()
}
