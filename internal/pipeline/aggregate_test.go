// Copyright (C) 2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package pipeline

import (
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
)

func snapshotWith(statuses ...[]string) Snapshot {
	s := Snapshot{Name: "integration-test"}
	for i, stage := range statuses {
		st := Stage{Name: string(rune('A' + i))}
		for _, status := range stage {
			st.Actions = append(st.Actions, Action{Name: "act", Status: status})
		}
		s.Stages = append(s.Stages, st)
	}
	return s
}

func TestAggregate(t *testing.T) {
	tests := []struct {
		name     string
		snapshot Snapshot
		expected string
	}{
		{
			name:     "no stages",
			snapshot: Snapshot{Name: "empty"},
			expected: StatusSucceeded,
		},
		{
			name:     "stages without actions",
			snapshot: Snapshot{Name: "empty", Stages: []Stage{{Name: "Source"}}},
			expected: StatusSucceeded,
		},
		{
			name:     "all succeeded",
			snapshot: snapshotWith([]string{StatusSucceeded}, []string{StatusSucceeded, StatusSucceeded}),
			expected: StatusSucceeded,
		},
		{
			name:     "failed wins over everything",
			snapshot: snapshotWith([]string{StatusInProgress, StatusSucceeded}, []string{StatusFailed, ""}),
			expected: StatusFailed,
		},
		{
			name:     "in progress beats abandoned",
			snapshot: snapshotWith([]string{StatusAbandoned}, []string{StatusSucceeded, StatusInProgress}),
			expected: StatusInProgress,
		},
		{
			name:     "stopped beats abandoned",
			snapshot: snapshotWith([]string{StatusAbandoned, StatusStopped}),
			expected: StatusStopped,
		},
		{
			name:     "unknown status beats absent",
			snapshot: snapshotWith([]string{"", "Queued"}),
			expected: "Queued",
		},
		{
			name:     "unlisted statuses break ties lexically",
			snapshot: snapshotWith([]string{"Waiting", "Queued"}),
			expected: "Queued",
		},
		{
			// Absent is the only remaining status; its label is Unknown.
			name:     "only absent statuses",
			snapshot: snapshotWith([]string{"", StatusSucceeded}),
			expected: StatusUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Aggregate(tt.snapshot))
		})
	}
}

func TestAggregate_FailedAlwaysWins(t *testing.T) {
	others := []string{StatusSucceeded, StatusInProgress, StatusAbandoned, StatusStopped, "", "Queued"}
	for _, other := range others {
		for pos := 0; pos < 2; pos++ {
			stage := []string{other, other}
			stage[pos] = StatusFailed
			assert.Equal(t, StatusFailed, Aggregate(snapshotWith(stage, []string{other})), "other=%q pos=%d", other, pos)
		}
	}
}

func TestAggregate_RemainingStatusIsOneOfPresent(t *testing.T) {
	cases := [][]string{
		{StatusSucceeded, StatusInProgress},
		{StatusAbandoned, StatusSucceeded, StatusStopping},
		{"Queued", StatusSucceeded},
		{StatusStopped, StatusStopped},
		{"", StatusSucceeded},
		{"", "Queued"},
		{StatusSucceeded, "", StatusAbandoned},
	}
	for _, statuses := range cases {
		got := Aggregate(snapshotWith(statuses))
		assert.NotEqual(t, StatusFailed, got)
		assert.NotEqual(t, StatusSucceeded, got)
		labels := lo.Map(statuses, func(s string, _ int) string { return Label(s) })
		assert.Contains(t, labels, got, "statuses=%q", statuses)
	}
}

func TestLabel(t *testing.T) {
	assert.Equal(t, StatusUnknown, Label(""))
	assert.Equal(t, StatusInProgress, Label(StatusInProgress))
	assert.Equal(t, "Queued", Label("Queued"))
}

func TestAggregate_Deterministic(t *testing.T) {
	a := snapshotWith([]string{"Queued", StatusAbandoned, StatusInProgress})
	b := snapshotWith([]string{StatusInProgress, "Queued", StatusAbandoned})
	for i := 0; i < 20; i++ {
		assert.Equal(t, StatusInProgress, Aggregate(a))
		assert.Equal(t, Aggregate(a), Aggregate(b))
	}
}

func TestSummarizeAll(t *testing.T) {
	snaps := []Snapshot{
		{Name: "integration-b", Stages: []Stage{
			{Name: "Build", Actions: []Action{{Name: "build", Status: StatusSucceeded}}},
			{Name: "Deploy", Actions: []Action{{Name: "deploy", Status: StatusFailed}}},
		}},
		{Name: "integration-a"},
	}

	rows := SummarizeAll(snaps)

	assert.Equal(t, []Row{
		{Name: "integration-b", Status: StatusFailed},
		{Name: "integration-a", Status: StatusSucceeded},
	}, rows)
}

func TestActionLink(t *testing.T) {
	assert.Equal(t, "rev", Action{RevisionURL: "rev", EntityURL: "ent"}.Link())
	assert.Equal(t, "ent", Action{EntityURL: "ent"}.Link())
	assert.Equal(t, "", Action{}.Link())
}
