// Copyright (C) 2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package pipeline

import "time"

// Cycle is the outcome of one complete poll pass. It is only produced once
// every detail fetch of the pass has settled.
type Cycle struct {
	ID         string         `json:"id" yaml:"id"`
	StartedAt  time.Time      `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time      `json:"finished_at" yaml:"finished_at"`
	Watched    int            `json:"watched" yaml:"watched"`
	Snapshots  []Snapshot     `json:"snapshots" yaml:"snapshots"`
	Failures   []FetchFailure `json:"failures,omitempty" yaml:"failures,omitempty"`
}

// FetchFailure records a pipeline dropped from a cycle because its detail
// call failed.
type FetchFailure struct {
	Pipeline string `json:"pipeline" yaml:"pipeline"`
	Message  string `json:"message" yaml:"message"`
}

// Rows returns the summary rows of the cycle in snapshot order.
func (c *Cycle) Rows() []Row {
	if c == nil {
		return nil
	}
	return SummarizeAll(c.Snapshots)
}

// Duration is the wall time the cycle took.
func (c *Cycle) Duration() time.Duration {
	if c == nil {
		return 0
	}
	return c.FinishedAt.Sub(c.StartedAt)
}
