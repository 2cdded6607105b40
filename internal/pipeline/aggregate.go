// Copyright (C) 2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package pipeline

import (
	"sort"

	"github.com/samber/lo"
)

// severity ranks the statuses that can win when a pipeline is neither failed
// nor fully succeeded. Higher wins. Statuses not listed rank between Abandoned
// and an absent status, ordered lexically.
var severity = map[string]int{
	StatusInProgress: 40,
	StatusStopping:   30,
	StatusStopped:    20,
	StatusAbandoned:  10,
}

// Aggregate reduces every action status of the snapshot to a single label.
//
// Any Failed action makes the pipeline Failed. A pipeline whose actions all
// Succeeded, or that has no actions, is Succeeded. Otherwise the label of the
// most severe remaining status is returned, so an absent status that wins
// comes back as Unknown.
func Aggregate(s Snapshot) string {
	statuses := make([]string, 0, s.ActionCount())
	for _, st := range s.Stages {
		for _, a := range st.Actions {
			statuses = append(statuses, a.Status)
		}
	}

	if lo.Contains(statuses, StatusFailed) {
		return StatusFailed
	}

	remaining := lo.Uniq(lo.Reject(statuses, func(status string, _ int) bool {
		return status == StatusSucceeded
	}))
	if len(remaining) == 0 {
		return StatusSucceeded
	}

	sort.SliceStable(remaining, func(i, j int) bool {
		return outranks(remaining[i], remaining[j])
	})
	return Label(remaining[0])
}

// Label is the display label of an action status. An absent status, from an
// action that never executed, is labelled Unknown; every other status is its
// own label.
func Label(status string) string {
	if status == "" {
		return StatusUnknown
	}
	return status
}

// outranks reports whether status a sorts before b in severity order.
func outranks(a, b string) bool {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		return ra > rb
	}
	return a < b
}

func rank(status string) int {
	if status == "" {
		return 0
	}
	if r, ok := severity[status]; ok {
		return r
	}
	return 5
}

// Summarize builds the summary row for a snapshot.
func Summarize(s Snapshot) Row {
	return Row{Name: s.Name, Status: Aggregate(s)}
}

// SummarizeAll builds summary rows in snapshot order.
func SummarizeAll(snaps []Snapshot) []Row {
	return lo.Map(snaps, func(s Snapshot, _ int) Row {
		return Summarize(s)
	})
}
