// Copyright (C) 2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/noldarim/pipewatch/internal/logger"
	"github.com/noldarim/pipewatch/internal/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newServeCmd(configPath *string) *cobra.Command {
	var (
		host string
		port int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the refresh loop headless and expose the HTTP API",
		Long: `Poll on the configured interval without a terminal UI and serve:

  GET  /api/v1/pipelines         latest rows and cycle metadata
  GET  /api/v1/pipelines/{name}  full snapshot of one pipeline
  POST /api/v1/refresh           start a cycle now
  GET  /healthz                  refresh loop health
  GET  /ws                       one JSON message per published cycle`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := bootstrap(ctx, *configPath)
			if err != nil {
				return err
			}
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				a.close(shutdownCtx)
			}()

			if cmd.Flags().Changed("host") {
				a.cfg.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				a.cfg.Server.Port = port
			}
			srv := server.New(ctx, &a.cfg.Server, a.state, a.engine)
			mainLog := logger.GetLogger("main")

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return a.engine.Run(gctx)
			})
			g.Go(func() error {
				return srv.Run(gctx)
			})
			g.Go(func() error {
				<-gctx.Done()
				mainLog.Info().Msg("Shutting down API server")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			})
			return g.Wait()
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "listen host (overrides server.host)")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (overrides server.port)")
	return cmd
}
