// Copyright (C) 2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package refresh drives poll cycles and publishes their results.
package refresh

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/noldarim/pipewatch/internal/dashboard"
	"github.com/noldarim/pipewatch/internal/logger"
	"github.com/noldarim/pipewatch/internal/pipeline"
	"github.com/rs/zerolog"
)

// ErrBusy is returned when a cycle is requested while another is running.
var ErrBusy = errors.New("refresh already in progress")

var (
	log     *zerolog.Logger
	logOnce sync.Once
)

func getLog() *zerolog.Logger {
	logOnce.Do(func() {
		l := logger.GetRefreshLogger()
		log = &l
	})
	return log
}

// Fetcher produces one complete cycle.
type Fetcher interface {
	Fetch(ctx context.Context) (*pipeline.Cycle, error)
}

// Status describes the outcome of the most recent cycles.
type Status struct {
	Fetching    bool
	LastSuccess time.Time
	LastError   error
	LastErrorAt time.Time
	Skipped     int
}

// Engine owns the Idle/Fetching state machine. At most one cycle runs at a
// time; requests made while Fetching are skipped.
type Engine struct {
	fetcher  Fetcher
	state    *dashboard.State
	interval time.Duration

	fetching atomic.Bool
	wg       sync.WaitGroup

	mu     sync.Mutex
	status Status
}

// NewEngine creates an Engine publishing into state every interval.
func NewEngine(f Fetcher, state *dashboard.State, interval time.Duration) *Engine {
	return &Engine{fetcher: f, state: state, interval: interval}
}

// Interval returns the tick interval.
func (e *Engine) Interval() time.Duration {
	return e.interval
}

// State returns the state the engine publishes into.
func (e *Engine) State() *dashboard.State {
	return e.state
}

// Fetching reports whether a cycle is running.
func (e *Engine) Fetching() bool {
	return e.fetching.Load()
}

// TryBegin moves the engine from Idle to Fetching. It returns false, and
// counts a skipped tick, when a cycle is already running.
func (e *Engine) TryBegin() bool {
	if e.fetching.CompareAndSwap(false, true) {
		return true
	}
	e.mu.Lock()
	e.status.Skipped++
	e.mu.Unlock()
	getLog().Debug().Msg("Tick skipped, previous cycle still fetching")
	return false
}

// Complete publishes the cycle on success, records err otherwise, and moves
// the engine back to Idle. A failed cycle leaves the published state untouched.
func (e *Engine) Complete(c *pipeline.Cycle, err error) {
	defer e.fetching.Store(false)
	if err == nil && c == nil {
		err = errors.New("fetch returned no cycle")
	}

	e.mu.Lock()
	if err != nil {
		e.status.LastError = err
		e.status.LastErrorAt = time.Now()
	} else {
		e.status.LastError = nil
		e.status.LastSuccess = c.FinishedAt
	}
	e.mu.Unlock()

	if err != nil {
		getLog().Error().Err(err).Msg("Cycle failed, keeping previous results")
		return
	}
	e.state.Replace(c)
	getLog().Debug().Str("cycle", c.ID).Int("rows", len(c.Snapshots)).Msg("Cycle published")
}

// Fetch runs one cycle without the Idle check. Callers must have won
// TryBegin and must hand the result to Complete.
func (e *Engine) Fetch(ctx context.Context) (*pipeline.Cycle, error) {
	return e.fetcher.Fetch(ctx)
}

// RunCycle runs one fetch and publish sequence. It returns ErrBusy when a
// cycle is already running.
func (e *Engine) RunCycle(ctx context.Context) error {
	if !e.TryBegin() {
		return ErrBusy
	}
	c, err := e.fetcher.Fetch(ctx)
	e.Complete(c, err)
	return err
}

// Trigger starts a cycle in the background and returns immediately. It
// returns false when a cycle is already running.
func (e *Engine) Trigger(ctx context.Context) bool {
	if !e.TryBegin() {
		return false
	}
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		c, err := e.fetcher.Fetch(ctx)
		e.Complete(c, err)
	}()
	return true
}

// Wait blocks until every cycle started by Trigger has completed.
func (e *Engine) Wait() {
	e.wg.Wait()
}

// Run triggers one cycle immediately and then one per interval until ctx is
// done. A slow cycle makes the following ticks skip instead of queueing.
func (e *Engine) Run(ctx context.Context) error {
	getLog().Info().Dur("interval", e.interval).Msg("Refresh loop started")
	defer e.Wait()

	e.Trigger(ctx)
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			getLog().Info().Msg("Refresh loop stopped")
			return nil
		case <-ticker.C:
			e.Trigger(ctx)
		}
	}
}

// Status returns a copy of the engine status.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	st := e.status
	st.Fetching = e.fetching.Load()
	return st
}
