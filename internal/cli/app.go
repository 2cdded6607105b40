// Copyright (C) 2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"

	"github.com/noldarim/pipewatch/internal/codepipeline"
	"github.com/noldarim/pipewatch/internal/config"
	"github.com/noldarim/pipewatch/internal/dashboard"
	"github.com/noldarim/pipewatch/internal/fetcher"
	"github.com/noldarim/pipewatch/internal/logger"
	"github.com/noldarim/pipewatch/internal/ratelimit"
	"github.com/noldarim/pipewatch/internal/refresh"
	"github.com/noldarim/pipewatch/internal/telemetry"
)

// newAPI creates the remote pipeline client. Tests replace it.
var newAPI = func(ctx context.Context, cfg config.AWSConfig) (fetcher.API, error) {
	return codepipeline.NewFromConfig(ctx, cfg)
}

// app is the wired dependency graph shared by every command.
type app struct {
	cfg      *config.AppConfig
	state    *dashboard.State
	engine   *refresh.Engine
	shutdown telemetry.ShutdownFunc
}

// bootstrap loads configuration, initializes logging and tracing, and builds
// the refresh engine.
func bootstrap(ctx context.Context, configPath string) (*app, error) {
	cfg, err := config.NewConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}
	if err := logger.Initialize(&cfg.Log); err != nil {
		return nil, fmt.Errorf("error initializing logger: %w", err)
	}

	mainLog := logger.GetLogger("main")
	mainLog.Info().Str("version", Version).Msg("Starting pipewatch")

	shutdown, err := telemetry.Setup(ctx, cfg.Tracing, Version)
	if err != nil {
		// Tracing is optional; keep going without it.
		mainLog.Warn().Err(err).Msg("Tracing setup failed")
	}

	api, err := newAPI(ctx, cfg.AWS)
	if err != nil {
		return nil, err
	}
	limiter, err := ratelimit.New(cfg.RateLimit.Count, cfg.RateLimit.Per, cfg.RateLimit.Burst)
	if err != nil {
		return nil, err
	}
	f, err := fetcher.New(api, limiter, fetcher.Options{
		NamePattern:    cfg.Poll.NamePattern,
		DetailTimeout:  cfg.Poll.DetailTimeout,
		MaxConcurrency: cfg.Poll.MaxConcurrency,
	})
	if err != nil {
		return nil, err
	}

	state := dashboard.NewState()
	mainLog.Info().
		Str("pattern", cfg.Poll.NamePattern).
		Dur("interval", cfg.Poll.Interval).
		Str("rate_limit", limiter.String()).
		Msg("Refresh engine ready")

	return &app{
		cfg:      cfg,
		state:    state,
		engine:   refresh.NewEngine(f, state, cfg.Poll.Interval),
		shutdown: shutdown,
	}, nil
}

// close flushes traces and closes log files.
func (a *app) close(ctx context.Context) {
	if err := a.shutdown(ctx); err != nil {
		l := logger.GetLogger("main")
		l.Error().Err(err).Msg("Tracing shutdown failed")
	}
	logger.CloseGlobal()
}
