// Copyright (C) 2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package fetcher lists the watched pipelines and retrieves their state,
// one rate-limiter token per detail call.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/noldarim/pipewatch/internal/logger"
	"github.com/noldarim/pipewatch/internal/pipeline"
	"github.com/noldarim/pipewatch/internal/ratelimit"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrList means the pipeline listing failed and the cycle was aborted.
	ErrList = errors.New("list pipelines failed")
	// ErrDetail means a single pipeline's state could not be retrieved.
	ErrDetail = errors.New("get pipeline state failed")
)

var (
	log     *zerolog.Logger
	logOnce sync.Once
)

func getLog() *zerolog.Logger {
	logOnce.Do(func() {
		l := logger.GetFetcherLogger()
		log = &l
	})
	return log
}

const tracerName = "github.com/noldarim/pipewatch/internal/fetcher"

// API is the remote orchestration service.
type API interface {
	ListPipelines(ctx context.Context) ([]string, error)
	GetPipelineState(ctx context.Context, name string) (pipeline.Snapshot, error)
}

// Acquirer hands out permission for one outbound detail call.
type Acquirer interface {
	Acquire(ctx context.Context) error
}

// Options configures a Fetcher.
type Options struct {
	// NamePattern is matched case-insensitively against pipeline names.
	NamePattern    string
	DetailTimeout  time.Duration
	MaxConcurrency int
}

// Fetcher produces one Cycle per call to Fetch.
type Fetcher struct {
	api            API
	limiter        Acquirer
	pattern        *regexp.Regexp
	detailTimeout  time.Duration
	maxConcurrency int
	now            func() time.Time
}

// New creates a Fetcher. The name pattern is compiled case-insensitive.
func New(api API, limiter Acquirer, opts Options) (*Fetcher, error) {
	if api == nil {
		return nil, errors.New("fetcher requires an API client")
	}
	if limiter == nil {
		return nil, errors.New("fetcher requires a rate limiter")
	}
	pattern, err := regexp.Compile("(?i)" + opts.NamePattern)
	if err != nil {
		return nil, fmt.Errorf("invalid name pattern %q: %w", opts.NamePattern, err)
	}
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = 1
	}
	return &Fetcher{
		api:            api,
		limiter:        limiter,
		pattern:        pattern,
		detailTimeout:  opts.DetailTimeout,
		maxConcurrency: opts.MaxConcurrency,
		now:            time.Now,
	}, nil
}

// Watches reports whether a pipeline name belongs to the watched set.
func (f *Fetcher) Watches(name string) bool {
	return f.pattern.MatchString(name)
}

// ListWatched lists all pipelines and keeps those matching the name pattern.
// Listing is not rate limited.
func (f *Fetcher) ListWatched(ctx context.Context) ([]pipeline.Ref, error) {
	names, err := f.api.ListPipelines(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrList, err)
	}
	watched := lo.Filter(names, func(name string, _ int) bool {
		return f.Watches(name)
	})
	return lo.Map(watched, func(name string, _ int) pipeline.Ref {
		return pipeline.Ref{Name: name}
	}), nil
}

// Details waits for a rate-limiter token and then retrieves the state of one
// pipeline. The detail timeout covers the API call only, not the token wait.
func (f *Fetcher) Details(ctx context.Context, ref pipeline.Ref) (pipeline.Snapshot, error) {
	if err := f.limiter.Acquire(ctx); err != nil {
		return pipeline.Snapshot{}, err
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "fetcher.Details",
		trace.WithAttributes(attribute.String("pipeline.name", ref.Name)))
	defer span.End()

	if f.detailTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.detailTimeout)
		defer cancel()
	}

	snap, err := f.api.GetPipelineState(ctx, ref.Name)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "get pipeline state")
		return pipeline.Snapshot{}, fmt.Errorf("%w for %q: %w", ErrDetail, ref.Name, err)
	}
	if snap.Name == "" {
		snap.Name = ref.Name
	}
	return snap, nil
}

// Fetch runs one complete cycle: list, filter, then fetch every watched
// pipeline concurrently. Pipelines whose detail call fails are dropped and
// recorded in Cycle.Failures. A listing or rate limiter failure aborts the
// cycle. The cycle is returned only after all detail calls settled, with
// snapshots in listing order.
func (f *Fetcher) Fetch(ctx context.Context) (*pipeline.Cycle, error) {
	cycle := &pipeline.Cycle{ID: uuid.NewString(), StartedAt: f.now()}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "fetcher.Fetch",
		trace.WithAttributes(attribute.String("cycle.id", cycle.ID)))
	defer span.End()

	l := getLog().With().Str("cycle", cycle.ID).Logger()

	refs, err := f.ListWatched(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list pipelines")
		l.Error().Err(err).Msg("Listing pipelines failed, cycle aborted")
		return nil, err
	}
	cycle.Watched = len(refs)
	span.SetAttributes(attribute.Int("pipelines.watched", len(refs)))

	snaps := make([]*pipeline.Snapshot, len(refs))
	failures := make([]error, len(refs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.maxConcurrency)
	for i, ref := range refs {
		g.Go(func() error {
			snap, err := f.Details(gctx, ref)
			if err != nil {
				if errors.Is(err, ratelimit.ErrLimiter) {
					return err
				}
				failures[i] = err
				return nil
			}
			snaps[i] = &snap
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "rate limiter")
		l.Error().Err(err).Msg("Rate limiter failed, cycle aborted")
		return nil, err
	}

	for i, ref := range refs {
		if failures[i] != nil {
			l.Warn().Err(failures[i]).Str("pipeline", ref.Name).Msg("Dropping pipeline from cycle")
			cycle.Failures = append(cycle.Failures, pipeline.FetchFailure{
				Pipeline: ref.Name,
				Message:  failures[i].Error(),
			})
			continue
		}
		cycle.Snapshots = append(cycle.Snapshots, *snaps[i])
	}
	cycle.FinishedAt = f.now()

	l.Info().
		Int("watched", cycle.Watched).
		Int("fetched", len(cycle.Snapshots)).
		Int("dropped", len(cycle.Failures)).
		Dur("took", cycle.Duration()).
		Msg("Cycle fetched")
	return cycle, nil
}
