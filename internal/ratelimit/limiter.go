// Copyright (C) 2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ratelimit throttles outbound calls to the remote API with a single
// process-wide token bucket.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// ErrLimiter marks a failure inside the limiter itself. It aborts the current
// fetch cycle but never the process.
var ErrLimiter = errors.New("rate limiter failure")

// Limiter grants at most count tokens per period, up to burst at once.
// Waiters are served in the order they called Acquire.
type Limiter struct {
	limiter *rate.Limiter
	count   int
	per     time.Duration
}

// New creates a limiter that replenishes count tokens every per.
func New(count int, per time.Duration, burst int) (*Limiter, error) {
	if count <= 0 {
		return nil, fmt.Errorf("rate limit count must be positive, got %d", count)
	}
	if per <= 0 {
		return nil, fmt.Errorf("rate limit period must be positive, got %s", per)
	}
	if burst <= 0 {
		burst = 1
	}
	every := per / time.Duration(count)
	if every <= 0 {
		// rate.Every(0) means no limit at all.
		return nil, fmt.Errorf("rate limit %d/%s is too fine to enforce", count, per)
	}
	return &Limiter{
		limiter: rate.NewLimiter(rate.Every(every), burst),
		count:   count,
		per:     per,
	}, nil
}

// Acquire blocks until a token is available or ctx is done.
func (l *Limiter) Acquire(ctx context.Context) error {
	if err := l.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrLimiter, err)
	}
	return nil
}

// String describes the configured rate, e.g. "5/1s".
func (l *Limiter) String() string {
	return fmt.Sprintf("%d/%s", l.count, l.per)
}
