// Copyright (C) 2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package pipeline holds the polled pipeline records and the status
// aggregation applied to them.
package pipeline

import "time"

// Action execution statuses reported by CodePipeline.
const (
	StatusSucceeded  = "Succeeded"
	StatusFailed     = "Failed"
	StatusInProgress = "InProgress"
	StatusStopping   = "Stopping"
	StatusStopped    = "Stopped"
	StatusAbandoned  = "Abandoned"

	// StatusUnknown labels an action that has never executed.
	StatusUnknown = "Unknown"
)

// Ref identifies a pipeline in the watched set.
type Ref struct {
	Name string `json:"name" yaml:"name"`
}

// Snapshot is the full state of one pipeline captured during a poll cycle.
// Stage and action order is kept exactly as returned by the service.
type Snapshot struct {
	Name   string  `json:"name" yaml:"name"`
	Stages []Stage `json:"stages" yaml:"stages"`
}

// Stage is an ordered phase of a pipeline.
type Stage struct {
	Name    string   `json:"name" yaml:"name"`
	Actions []Action `json:"actions" yaml:"actions"`
}

// Action is the smallest unit of execution within a stage.
type Action struct {
	Name             string     `json:"name" yaml:"name"`
	Status           string     `json:"status,omitempty" yaml:"status,omitempty"`
	LastStatusChange *time.Time `json:"last_status_change,omitempty" yaml:"last_status_change,omitempty"`
	RevisionURL      string     `json:"revision_url,omitempty" yaml:"revision_url,omitempty"`
	EntityURL        string     `json:"entity_url,omitempty" yaml:"entity_url,omitempty"`
}

// Link returns the most specific URL available for the action: the revision
// link, then the entity link, then empty.
func (a Action) Link() string {
	if a.RevisionURL != "" {
		return a.RevisionURL
	}
	return a.EntityURL
}

// ActionCount returns the number of actions across all stages.
func (s Snapshot) ActionCount() int {
	n := 0
	for _, st := range s.Stages {
		n += len(st.Actions)
	}
	return n
}

// Row is the aggregated summary of one snapshot.
type Row struct {
	Name   string `json:"name" yaml:"name"`
	Status string `json:"status" yaml:"status"`
}
