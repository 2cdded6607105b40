// Copyright (C) 2025-2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package messages defines the messages exchanged between the dashboard
// components inside the bubbletea event loop.
package messages

import (
	"time"

	"github.com/noldarim/pipewatch/internal/pipeline"
)

// TickMsg fires once per refresh interval.
type TickMsg time.Time

// CycleDoneMsg carries the settled result of one poll cycle. Exactly one of
// Cycle and Err is set.
type CycleDoneMsg struct {
	Cycle *pipeline.Cycle
	Err   error
}

// SelectPipelineMsg is emitted when the user selects a summary row. Display
// is the text shown in the table, possibly truncated.
type SelectPipelineMsg struct {
	Display string
}

// CyclePublishedMsg is sent whenever a cycle reaches the dashboard state,
// including cycles started outside the event loop (HTTP refresh).
type CyclePublishedMsg struct {
	Cycle *pipeline.Cycle
}
