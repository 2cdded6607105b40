// Copyright (C) 2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package dashboard holds the latest published poll cycle. It is the source
// of truth for the detail view and the HTTP API.
package dashboard

import (
	"strings"
	"sync"
	"sync/atomic"

	"github.com/noldarim/pipewatch/internal/pipeline"
)

// State holds at most one cycle, the latest. Replace swaps it atomically so a
// reader sees either the old or the new cycle, never a mix.
type State struct {
	latest atomic.Pointer[pipeline.Cycle]

	mu   sync.Mutex
	subs map[int]chan *pipeline.Cycle
	next int
}

// NewState returns an empty State.
func NewState() *State {
	return &State{subs: make(map[int]chan *pipeline.Cycle)}
}

// Replace publishes c as the latest cycle and notifies subscribers. A nil
// cycle is ignored.
func (s *State) Replace(c *pipeline.Cycle) {
	if c == nil {
		return
	}
	s.latest.Store(c)

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs {
		// Keep only the newest cycle for slow subscribers.
		select {
		case <-ch:
		default:
		}
		ch <- c
	}
}

// Latest returns the latest cycle, or nil before the first publish.
func (s *State) Latest() *pipeline.Cycle {
	return s.latest.Load()
}

// Rows returns the summary rows of the latest cycle.
func (s *State) Rows() []pipeline.Row {
	return s.Latest().Rows()
}

// Lookup resolves the text shown in the summary table to the full snapshot.
// The first snapshot, in cycle order, whose name starts with the display text
// wins. Display text may be truncated with a trailing ellipsis.
func (s *State) Lookup(display string) (pipeline.Snapshot, bool) {
	c := s.Latest()
	if c == nil {
		return pipeline.Snapshot{}, false
	}
	prefix := strings.TrimSuffix(display, Ellipsis)
	if prefix == "" {
		return pipeline.Snapshot{}, false
	}
	for _, snap := range c.Snapshots {
		if snap.Name == display {
			return snap, true
		}
	}
	for _, snap := range c.Snapshots {
		if strings.HasPrefix(snap.Name, prefix) {
			return snap, true
		}
	}
	return pipeline.Snapshot{}, false
}

// Get returns the snapshot with exactly the given name.
func (s *State) Get(name string) (pipeline.Snapshot, bool) {
	c := s.Latest()
	if c == nil {
		return pipeline.Snapshot{}, false
	}
	for _, snap := range c.Snapshots {
		if snap.Name == name {
			return snap, true
		}
	}
	return pipeline.Snapshot{}, false
}

// Subscribe returns a channel that receives every published cycle and a
// function that cancels the subscription. Slow readers only see the newest
// cycle.
func (s *State) Subscribe() (<-chan *pipeline.Cycle, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.next
	s.next++
	ch := make(chan *pipeline.Cycle, 1)
	s.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
			close(ch)
		})
	}
}
