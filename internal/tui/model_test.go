// Copyright (C) 2025-2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package tui

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/noldarim/pipewatch/internal/dashboard"
	"github.com/noldarim/pipewatch/internal/fetcher"
	"github.com/noldarim/pipewatch/internal/pipeline"
	"github.com/noldarim/pipewatch/internal/refresh"
	"github.com/noldarim/pipewatch/internal/tui/messages"
	"github.com/noldarim/pipewatch/test/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestModel(t *testing.T, api fetcher.API) (Model, *refresh.Engine) {
	t.Helper()
	f, err := fetcher.New(api, &testutil.CountingLimiter{}, fetcher.Options{
		NamePattern:    "^integration",
		MaxConcurrency: 4,
	})
	require.NoError(t, err)
	engine := refresh.NewEngine(f, dashboard.NewState(), 5*time.Millisecond)
	m := NewModel(context.Background(), engine)
	updated, _ := m.Update(testutil.WindowSizeMsg(120, 40))
	return updated.(Model), engine
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	updated, cmd := testutil.SendMessage(m, msg)
	return updated.(Model), cmd
}

// runInit executes Init and feeds the cycle result back into the model.
func runInit(t *testing.T, m Model) Model {
	t.Helper()
	var done *messages.CycleDoneMsg
	for _, msg := range testutil.CollectMessages(m.Init()) {
		if d, ok := msg.(messages.CycleDoneMsg); ok {
			done = &d
		}
	}
	require.NotNil(t, done, "Init should start a cycle")
	m, _ = update(t, m, *done)
	return m
}

func threePipelines() *testutil.StaticAPI {
	return &testutil.StaticAPI{
		Names: []string{"integration-a", "other-c", "integration-b", "integration-c"},
		Snapshots: map[string]pipeline.Snapshot{
			"integration-a": testutil.BuildDeploySnapshot("integration-a"),
			"integration-b": testutil.SucceededSnapshot("integration-b"),
			"integration-c": testutil.InProgressSnapshot("integration-c"),
		},
	}
}

func TestModel_InitRunsImmediateCycle(t *testing.T) {
	m, engine := newTestModel(t, threePipelines())
	m = runInit(t, m)

	assert.False(t, engine.Fetching())
	assert.Equal(t, []pipeline.Row{
		{Name: "integration-a", Status: pipeline.StatusFailed},
		{Name: "integration-b", Status: pipeline.StatusSucceeded},
		{Name: "integration-c", Status: pipeline.StatusInProgress},
	}, m.Summary().Rows())
	testutil.AssertViewContains(t, m, "integration-a")
	testutil.AssertViewContains(t, m, "3 watched")
}

func TestModel_SelectShowsBlocksInOrder(t *testing.T) {
	m, _ := newTestModel(t, threePipelines())
	m = runInit(t, m)

	m, cmd := update(t, m, testutil.SpecialKey(tea.KeyEnter))
	require.NotNil(t, cmd)
	m, _ = update(t, m, testutil.ExecuteCommand(cmd))

	blocks := m.Detail().Blocks()
	require.Len(t, blocks, 2)
	assert.Equal(t, "Build", blocks[0].Stage)
	assert.Equal(t, pipeline.StatusSucceeded, blocks[0].Status)
	assert.Equal(t, "Deploy", blocks[1].Stage)
	assert.Equal(t, pipeline.StatusFailed, blocks[1].Status)
	testutil.AssertViewContains(t, m, "ECSDeploy")
}

func TestModel_SelectSecondRowReplacesDetail(t *testing.T) {
	m, _ := newTestModel(t, threePipelines())
	m = runInit(t, m)

	m, cmd := update(t, m, testutil.SpecialKey(tea.KeyEnter))
	m, _ = update(t, m, testutil.ExecuteCommand(cmd))
	m, _ = update(t, m, testutil.SpecialKey(tea.KeyDown))
	m, cmd = update(t, m, testutil.SpecialKey(tea.KeyEnter))
	m, _ = update(t, m, testutil.ExecuteCommand(cmd))

	assert.Equal(t, "integration-b", m.Detail().Pipeline())
	require.Len(t, m.Detail().Blocks(), 1)
	assert.Equal(t, "Source", m.Detail().Blocks()[0].Stage)
}

func TestModel_OneDetailFailureKeepsOtherRows(t *testing.T) {
	api := threePipelines()
	api.Errors = map[string]error{"integration-b": errors.New("throttled")}
	m, _ := newTestModel(t, api)
	m = runInit(t, m)

	rows := m.Summary().Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, "integration-a", rows[0].Name)
	assert.Equal(t, "integration-c", rows[1].Name)
	testutil.AssertViewContains(t, m, "1 dropped")
}

func TestModel_FailedCycleKeepsPreviousRows(t *testing.T) {
	m, engine := newTestModel(t, threePipelines())
	m = runInit(t, m)
	before := m.Summary().Rows()

	require.True(t, engine.TryBegin())
	m, _ = update(t, m, messages.CycleDoneMsg{Err: errors.New("list failed")})

	assert.Equal(t, before, m.Summary().Rows())
	assert.False(t, engine.Fetching())
	testutil.AssertViewContains(t, m, "list failed")
}

func TestModel_RefreshKey(t *testing.T) {
	m, engine := newTestModel(t, threePipelines())

	m, cmd := update(t, m, testutil.KeyPress("r"))
	require.NotNil(t, cmd)
	assert.True(t, engine.Fetching())

	// A second request while fetching is skipped.
	m, second := update(t, m, testutil.KeyPress("r"))
	assert.Nil(t, second)
	testutil.AssertViewContains(t, m, "refresh already in progress")

	m, _ = update(t, m, testutil.ExecuteCommand(cmd))
	assert.False(t, engine.Fetching())
	assert.Len(t, m.Summary().Rows(), 3)
}

func TestModel_TickStartsCycleAndReschedules(t *testing.T) {
	m, _ := newTestModel(t, threePipelines())

	var ticks, cycles int
	_, cmd := update(t, m, messages.TickMsg(time.Now()))
	for _, msg := range testutil.CollectMessages(cmd) {
		switch msg.(type) {
		case messages.TickMsg:
			ticks++
		case messages.CycleDoneMsg:
			cycles++
		}
	}
	assert.Equal(t, 1, ticks)
	assert.Equal(t, 1, cycles)
}

func TestModel_QuitKeys(t *testing.T) {
	keys := []tea.KeyMsg{
		testutil.KeyPress("q"),
		testutil.SpecialKey(tea.KeyEsc),
		testutil.SpecialKey(tea.KeyCtrlC),
	}
	for _, k := range keys {
		t.Run(k.String(), func(t *testing.T) {
			m, _ := newTestModel(t, threePipelines())
			_, cmd := update(t, m, k)
			testutil.AssertQuitMessage(t, cmd)
		})
	}
}

func TestModel_SwitchFocus(t *testing.T) {
	m, _ := newTestModel(t, threePipelines())
	m = runInit(t, m)

	m, _ = update(t, m, testutil.SpecialKey(tea.KeyTab))
	assert.Equal(t, DetailPane, m.Focus())

	// Navigation keys go to the detail pane now.
	m, _ = update(t, m, testutil.SpecialKey(tea.KeyDown))
	assert.Equal(t, 0, m.Summary().Cursor())

	m, _ = update(t, m, testutil.SpecialKey(tea.KeyTab))
	assert.Equal(t, SummaryPane, m.Focus())
}

func TestModel_ViewBeforeFirstCycle(t *testing.T) {
	m, _ := newTestModel(t, threePipelines())
	testutil.AssertViewNotEmpty(t, m)
	testutil.AssertViewContains(t, m, "waiting for first cycle")
}

func TestModel_NarrowTerminalStacksPanes(t *testing.T) {
	m, _ := newTestModel(t, threePipelines())
	m = runInit(t, m)
	m, _ = update(t, m, testutil.WindowSizeMsg(60, 30))
	testutil.AssertViewContains(t, m, "integration-a")
}

func TestModel_CyclePublishedOutsideLoopRedrawsTable(t *testing.T) {
	api := threePipelines()
	m, engine := newTestModel(t, api)
	m = runInit(t, m)
	require.Equal(t, pipeline.StatusFailed, m.Summary().Rows()[0].Status)

	// A cycle started elsewhere, e.g. by the HTTP refresh endpoint.
	api.Snapshots["integration-a"] = testutil.SucceededSnapshot("integration-a")
	require.True(t, engine.Trigger(context.Background()))
	engine.Wait()

	m, cmd := update(t, m, messages.CyclePublishedMsg{Cycle: engine.State().Latest()})
	testutil.AssertNoCommand(t, cmd)
	assert.Equal(t, engine.State().Rows(), m.Summary().Rows())
	assert.Equal(t, pipeline.StatusSucceeded, m.Summary().Rows()[0].Status)

	// The detail pane reads the same cycle the table shows.
	m, cmd = update(t, m, testutil.SpecialKey(tea.KeyEnter))
	m, _ = update(t, m, testutil.ExecuteCommand(cmd))
	require.Len(t, m.Detail().Blocks(), 1)
	assert.Equal(t, pipeline.StatusSucceeded, m.Detail().Blocks()[0].Status)
}

func TestForwardCycles(t *testing.T) {
	state := dashboard.NewState()
	received := make(chan tea.Msg, 8)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		forwardCycles(ctx, state, func(msg tea.Msg) { received <- msg })
	}()

	cycle := testutil.SampleCycle(testutil.SucceededSnapshot("integration-a"))
	var got tea.Msg
	// Publish until the forwarder has subscribed and relayed a cycle.
	require.Eventually(t, func() bool {
		state.Replace(cycle)
		select {
		case got = <-received:
			return true
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)

	published, ok := got.(messages.CyclePublishedMsg)
	require.True(t, ok)
	assert.Same(t, cycle, published.Cycle)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("forwardCycles did not stop after cancel")
	}
}

func TestModel_SelectUnknownPipelineShowsNotFound(t *testing.T) {
	m, _ := newTestModel(t, threePipelines())
	m = runInit(t, m)

	m, cmd := update(t, m, messages.SelectPipelineMsg{Display: "integration-gone"})
	testutil.AssertNoCommand(t, cmd)
	assert.Empty(t, m.Detail().Blocks())
	assert.Contains(t, m.Detail().View(), "No data for integration-gone")
}
