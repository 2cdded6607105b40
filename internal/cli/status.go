// Copyright (C) 2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"time"

	"github.com/noldarim/pipewatch/internal/report"
	"github.com/spf13/cobra"
)

func newStatusCmd(configPath *string) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Fetch one cycle and print the aggregated status",
		Long: `Run a single poll cycle and print one row per watched pipeline.
Exits non-zero when the cycle fails.

Examples:
  pipewatch status
  pipewatch status --output yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := report.ParseFormat(output)
			if err != nil {
				return err
			}

			a, err := bootstrap(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				a.close(ctx)
			}()

			if err := a.engine.RunCycle(cmd.Context()); err != nil {
				return err
			}
			return report.Write(cmd.OutOrStdout(), a.state.Latest(), format, time.Now())
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", string(report.FormatTable), "output format: table, json or yaml")
	return cmd
}
