// Copyright (C) 2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package codepipeline implements the remote pipeline API on top of AWS
// CodePipeline.
package codepipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/codepipeline"
	"github.com/aws/aws-sdk-go-v2/service/codepipeline/types"
	pwconfig "github.com/noldarim/pipewatch/internal/config"
	"github.com/noldarim/pipewatch/internal/logger"
	"github.com/noldarim/pipewatch/internal/pipeline"
	"github.com/rs/zerolog"
)

var (
	log     *zerolog.Logger
	logOnce sync.Once
)

func getLog() *zerolog.Logger {
	logOnce.Do(func() {
		l := logger.GetAWSLogger()
		log = &l
	})
	return log
}

// API is the subset of the CodePipeline SDK client used here.
type API interface {
	codepipeline.ListPipelinesAPIClient
	GetPipelineState(ctx context.Context, params *codepipeline.GetPipelineStateInput, optFns ...func(*codepipeline.Options)) (*codepipeline.GetPipelineStateOutput, error)
}

// Client lists pipelines and reads their state.
type Client struct {
	api API
}

// NewClient wraps an SDK client.
func NewClient(api API) *Client {
	return &Client{api: api}
}

// NewFromConfig loads AWS credentials the standard way (environment, shared
// config, instance role) and applies the region, profile and endpoint
// overrides from cfg.
func NewFromConfig(ctx context.Context, cfg pwconfig.AWSConfig) (*Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(cfg.Profile))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	api := codepipeline.NewFromConfig(awsCfg, func(o *codepipeline.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	getLog().Debug().
		Str("region", awsCfg.Region).
		Str("profile", cfg.Profile).
		Str("endpoint", cfg.Endpoint).
		Msg("CodePipeline client created")
	return NewClient(api), nil
}

// ListPipelines returns the names of every pipeline in the account, following
// pagination.
func (c *Client) ListPipelines(ctx context.Context) ([]string, error) {
	var names []string
	p := codepipeline.NewListPipelinesPaginator(c.api, &codepipeline.ListPipelinesInput{})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, summary := range page.Pipelines {
			if name := aws.ToString(summary.Name); name != "" {
				names = append(names, name)
			}
		}
	}
	getLog().Debug().Int("count", len(names)).Msg("Listed pipelines")
	return names, nil
}

// GetPipelineState returns the current state of one pipeline.
func (c *Client) GetPipelineState(ctx context.Context, name string) (pipeline.Snapshot, error) {
	out, err := c.api.GetPipelineState(ctx, &codepipeline.GetPipelineStateInput{
		Name: aws.String(name),
	})
	if err != nil {
		return pipeline.Snapshot{}, err
	}
	snap := toSnapshot(out)
	if snap.Name == "" {
		snap.Name = name
	}
	return snap, nil
}

func toSnapshot(out *codepipeline.GetPipelineStateOutput) pipeline.Snapshot {
	snap := pipeline.Snapshot{
		Name:   aws.ToString(out.PipelineName),
		Stages: make([]pipeline.Stage, 0, len(out.StageStates)),
	}
	for _, st := range out.StageStates {
		stage := pipeline.Stage{
			Name:    aws.ToString(st.StageName),
			Actions: make([]pipeline.Action, 0, len(st.ActionStates)),
		}
		for _, as := range st.ActionStates {
			stage.Actions = append(stage.Actions, toAction(as))
		}
		snap.Stages = append(snap.Stages, stage)
	}
	return snap
}

func toAction(as types.ActionState) pipeline.Action {
	a := pipeline.Action{
		Name:        aws.ToString(as.ActionName),
		RevisionURL: aws.ToString(as.RevisionUrl),
		EntityURL:   aws.ToString(as.EntityUrl),
	}
	if ex := as.LatestExecution; ex != nil {
		a.Status = string(ex.Status)
		a.LastStatusChange = ex.LastStatusChange
	}
	return a
}
