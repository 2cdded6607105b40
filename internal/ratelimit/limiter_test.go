// Copyright (C) 2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package ratelimit

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Validation(t *testing.T) {
	_, err := New(0, time.Second, 1)
	assert.Error(t, err)

	_, err = New(5, 0, 1)
	assert.Error(t, err)

	// 1ns / 5 truncates to a zero interval, which would disable throttling.
	_, err = New(5, time.Nanosecond, 1)
	assert.Error(t, err)

	l, err := New(5, time.Second, 0)
	require.NoError(t, err)
	assert.Equal(t, "5/1s", l.String())
}

func TestAcquire_SequentialGrantsAreSpaced(t *testing.T) {
	l, err := New(5, time.Second, 1)
	require.NoError(t, err)

	ctx := context.Background()
	start := time.Now()
	var grants []time.Duration
	for i := 0; i < 6; i++ {
		require.NoError(t, l.Acquire(ctx))
		grants = append(grants, time.Since(start))
	}

	// First token is immediate, the rest are 200ms apart: six grants need at
	// least one full second.
	assert.GreaterOrEqual(t, grants[5], 950*time.Millisecond)
	for i := 1; i < len(grants); i++ {
		assert.GreaterOrEqual(t, grants[i]-grants[i-1], 150*time.Millisecond, "grant %d", i)
	}
}

func TestAcquire_ConcurrentCallersNeverExceedRate(t *testing.T) {
	l, err := New(5, time.Second, 1)
	require.NoError(t, err)

	const callers = 10
	var (
		mu     sync.Mutex
		grants []time.Time
		wg     sync.WaitGroup
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.Acquire(context.Background()); err == nil {
				mu.Lock()
				grants = append(grants, time.Now())
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Len(t, grants, callers)
	// Any window of six consecutive grants spans at least one second.
	sort.Slice(grants, func(i, j int) bool { return grants[i].Before(grants[j]) })
	for i := 5; i < len(grants); i++ {
		assert.GreaterOrEqual(t, grants[i].Sub(grants[i-5]), 950*time.Millisecond)
	}
}

func TestAcquire_CancelledContext(t *testing.T) {
	l, err := New(1, time.Hour, 1)
	require.NoError(t, err)

	require.NoError(t, l.Acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err = l.Acquire(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLimiter))
}

func TestAcquire_WaitersServedInCallOrder(t *testing.T) {
	l, err := New(20, time.Second, 1)
	require.NoError(t, err)

	const waiters = 5
	var (
		mu      sync.Mutex
		granted []int
		wg      sync.WaitGroup
	)
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, l.Acquire(context.Background()))
			mu.Lock()
			granted = append(granted, i)
			mu.Unlock()
		}()
		// Let this waiter reserve before the next one calls Acquire.
		time.Sleep(5 * time.Millisecond)
	}
	wg.Wait()

	assert.Equal(t, []int{0, 1, 2, 3, 4}, granted)
}
