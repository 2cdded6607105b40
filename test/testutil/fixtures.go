// Copyright (C) 2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package testutil

import (
	"time"

	"github.com/noldarim/pipewatch/internal/pipeline"
)

// FixedTime is the reference timestamp used by fixtures.
var FixedTime = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

// BuildDeploySnapshot returns a two-stage pipeline whose deploy action failed.
func BuildDeploySnapshot(name string) pipeline.Snapshot {
	changed := FixedTime
	return pipeline.Snapshot{
		Name: name,
		Stages: []pipeline.Stage{
			{
				Name: "Build",
				Actions: []pipeline.Action{{
					Name:             "CodeBuild",
					Status:           pipeline.StatusSucceeded,
					LastStatusChange: &changed,
					RevisionURL:      "https://example.com/commit/abc123",
					EntityURL:        "https://example.com/build",
				}},
			},
			{
				Name: "Deploy",
				Actions: []pipeline.Action{{
					Name:             "ECSDeploy",
					Status:           pipeline.StatusFailed,
					LastStatusChange: &changed,
					EntityURL:        "https://example.com/deploy",
				}},
			},
		},
	}
}

// SucceededSnapshot returns a single-action pipeline that succeeded.
func SucceededSnapshot(name string) pipeline.Snapshot {
	return pipeline.Snapshot{
		Name: name,
		Stages: []pipeline.Stage{{
			Name:    "Source",
			Actions: []pipeline.Action{{Name: "GitHub", Status: pipeline.StatusSucceeded}},
		}},
	}
}

// InProgressSnapshot returns a pipeline with one running action.
func InProgressSnapshot(name string) pipeline.Snapshot {
	return pipeline.Snapshot{
		Name: name,
		Stages: []pipeline.Stage{
			{Name: "Source", Actions: []pipeline.Action{{Name: "GitHub", Status: pipeline.StatusSucceeded}}},
			{Name: "Test", Actions: []pipeline.Action{{Name: "Integration", Status: pipeline.StatusInProgress}}},
		},
	}
}

// SampleCycle returns a published cycle holding the given snapshots.
func SampleCycle(snaps ...pipeline.Snapshot) *pipeline.Cycle {
	return &pipeline.Cycle{
		ID:         "cycle-test",
		StartedAt:  FixedTime,
		FinishedAt: FixedTime.Add(time.Second),
		Watched:    len(snaps),
		Snapshots:  snaps,
	}
}
