// Copyright (C) 2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server exposes the dashboard state over REST and pushes every
// published cycle to WebSocket clients.
package server

import (
	"context"
	"sync"

	"github.com/noldarim/pipewatch/internal/dashboard"
	"github.com/noldarim/pipewatch/internal/logger"
	"github.com/rs/zerolog"
)

var (
	log     *zerolog.Logger
	logOnce sync.Once
)

func getLog() *zerolog.Logger {
	logOnce.Do(func() {
		l := logger.GetAPILogger()
		log = &l
	})
	return log
}

// CycleBroadcaster forwards every cycle published to the state to all
// connected WebSocket clients.
type CycleBroadcaster struct {
	state   *dashboard.State
	clients *ClientRegistry
}

// NewCycleBroadcaster creates a broadcaster for state.
func NewCycleBroadcaster(state *dashboard.State, clients *ClientRegistry) *CycleBroadcaster {
	return &CycleBroadcaster{state: state, clients: clients}
}

// Run forwards cycles until ctx is cancelled.
func (b *CycleBroadcaster) Run(ctx context.Context) {
	cycles, cancel := b.state.Subscribe()
	defer cancel()

	for {
		select {
		case c, ok := <-cycles:
			if !ok {
				return
			}
			b.clients.Broadcast(c)
		case <-ctx.Done():
			getLog().Info().Msg("Cycle broadcaster stopped (context cancelled)")
			return
		}
	}
}
