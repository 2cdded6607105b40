// Copyright (C) 2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package testutil

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/noldarim/pipewatch/internal/pipeline"
	"github.com/stretchr/testify/mock"
)

// MockAPI is a testify mock of the remote pipeline service.
type MockAPI struct {
	mock.Mock
}

func (m *MockAPI) ListPipelines(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockAPI) GetPipelineState(ctx context.Context, name string) (pipeline.Snapshot, error) {
	args := m.Called(ctx, name)
	return args.Get(0).(pipeline.Snapshot), args.Error(1)
}

// StaticAPI serves a fixed pipeline list and per-pipeline snapshots or errors.
// It is safe for concurrent use and counts detail calls.
type StaticAPI struct {
	Names     []string
	Snapshots map[string]pipeline.Snapshot
	Errors    map[string]error
	ListErr   error

	detailCalls atomic.Int32
	mu          sync.Mutex
	requested   []string
}

func (s *StaticAPI) ListPipelines(ctx context.Context) ([]string, error) {
	if s.ListErr != nil {
		return nil, s.ListErr
	}
	out := make([]string, len(s.Names))
	copy(out, s.Names)
	return out, nil
}

func (s *StaticAPI) GetPipelineState(ctx context.Context, name string) (pipeline.Snapshot, error) {
	s.detailCalls.Add(1)
	s.mu.Lock()
	s.requested = append(s.requested, name)
	s.mu.Unlock()

	if err := s.Errors[name]; err != nil {
		return pipeline.Snapshot{}, err
	}
	if snap, ok := s.Snapshots[name]; ok {
		return snap, nil
	}
	return pipeline.Snapshot{Name: name}, nil
}

// DetailCalls returns how many detail calls were made.
func (s *StaticAPI) DetailCalls() int {
	return int(s.detailCalls.Load())
}

// Requested returns the pipelines whose details were requested.
func (s *StaticAPI) Requested() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.requested))
	copy(out, s.requested)
	return out
}

// CountingLimiter grants every request immediately, or fails with Err.
type CountingLimiter struct {
	Err   error
	calls atomic.Int32
}

func (c *CountingLimiter) Acquire(ctx context.Context) error {
	c.calls.Add(1)
	if c.Err != nil {
		return c.Err
	}
	return ctx.Err()
}

// Calls returns how many tokens were requested.
func (c *CountingLimiter) Calls() int {
	return int(c.calls.Load())
}
