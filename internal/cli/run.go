// Copyright (C) 2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/noldarim/pipewatch/internal/logger"
	"github.com/noldarim/pipewatch/internal/server"
	"github.com/noldarim/pipewatch/internal/tui"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

// runDashboard runs the TUI, plus the HTTP API when server.enabled is set.
// Quitting does not wait for in-flight fetches.
func runDashboard(cmd *cobra.Command, configPath string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := bootstrap(ctx, configPath)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.close(shutdownCtx)
	}()

	mainLog := logger.GetLogger("main")

	if a.cfg.Server.Enabled {
		srv := server.New(ctx, &a.cfg.Server, a.state, a.engine)
		go func() {
			if err := srv.Run(ctx); err != nil {
				mainLog.Error().Err(err).Msg("API server failed")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	mainLog.Info().Msg("Starting TUI")
	if err := tui.StartTUI(ctx, a.engine); err != nil {
		mainLog.Error().Err(err).Msg("Error running TUI")
		return err
	}
	mainLog.Info().Msg("Application shutting down")
	return nil
}
