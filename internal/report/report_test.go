// Copyright (C) 2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package report

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/noldarim/pipewatch/internal/pipeline"
	"github.com/noldarim/pipewatch/test/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func sampleCycle() *pipeline.Cycle {
	c := testutil.SampleCycle(
		testutil.BuildDeploySnapshot("integration-a"),
		testutil.SucceededSnapshot("integration-b"),
	)
	c.Watched = 3
	c.Failures = []pipeline.FetchFailure{{Pipeline: "integration-c", Message: "timeout"}}
	return c
}

func TestParseFormat(t *testing.T) {
	for _, s := range []string{"table", "json", "yaml"} {
		f, err := ParseFormat(s)
		require.NoError(t, err)
		assert.Equal(t, Format(s), f)
	}
	_, err := ParseFormat("xml")
	assert.Error(t, err)
}

func TestWrite_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleCycle(), FormatJSON, time.Now()))

	var doc Document
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "cycle-test", doc.Cycle)
	assert.Equal(t, 3, doc.Watched)
	assert.Equal(t, []pipeline.Row{
		{Name: "integration-a", Status: pipeline.StatusFailed},
		{Name: "integration-b", Status: pipeline.StatusSucceeded},
	}, doc.Pipelines)
	require.Len(t, doc.Failures, 1)
	assert.Equal(t, "integration-c", doc.Failures[0].Pipeline)
}

func TestWrite_YAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleCycle(), FormatYAML, time.Now()))

	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "cycle-test", doc["cycle"])
	assert.Len(t, doc["pipelines"], 2)
}

func TestWrite_EmptyCycleHasEmptyList(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, testutil.SampleCycle(), FormatJSON, time.Now()))
	assert.Contains(t, buf.String(), `"pipelines": []`)
}

func TestWrite_Table(t *testing.T) {
	c := sampleCycle()
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, c, FormatTable, c.FinishedAt.Add(2*time.Minute)))

	out := buf.String()
	assert.Contains(t, out, "PIPELINE")
	assert.Contains(t, out, "integration-a")
	assert.Contains(t, out, pipeline.StatusFailed)
	assert.Contains(t, out, "3 watched, fetched 2 minutes ago")
	assert.Contains(t, out, "dropped integration-c: timeout")
}

func TestWrite_UnknownFormat(t *testing.T) {
	assert.Error(t, Write(&bytes.Buffer{}, sampleCycle(), Format("csv"), time.Now()))
}
