// Copyright (C) 2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tui runs the terminal dashboard.
package tui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/noldarim/pipewatch/internal/dashboard"
	"github.com/noldarim/pipewatch/internal/logger"
	"github.com/noldarim/pipewatch/internal/refresh"
	"github.com/noldarim/pipewatch/internal/tui/messages"
)

// StartTUI runs the dashboard until the user quits or ctx is cancelled.
// In-flight fetches are abandoned on exit.
func StartTUI(ctx context.Context, engine *refresh.Engine) error {
	p := tea.NewProgram(NewModel(ctx, engine), tea.WithAltScreen(), tea.WithContext(ctx))

	// Cycles published by other writers (the HTTP refresh endpoint) must
	// redraw the table too.
	fwdCtx, stop := context.WithCancel(ctx)
	defer stop()
	go forwardCycles(fwdCtx, engine.State(), p.Send)

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		l := logger.GetTUILogger()
		l.Info().Msg("Dashboard stopped by signal")
		return nil
	}
	return err
}

// forwardCycles sends a CyclePublishedMsg for every cycle published to state
// until ctx is cancelled.
func forwardCycles(ctx context.Context, state *dashboard.State, send func(tea.Msg)) {
	cycles, cancel := state.Subscribe()
	defer cancel()

	for {
		select {
		case c, ok := <-cycles:
			if !ok {
				return
			}
			send(messages.CyclePublishedMsg{Cycle: c})
		case <-ctx.Done():
			return
		}
	}
}
