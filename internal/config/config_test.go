// Copyright (C) 2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pipewatch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestNewConfig_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := NewConfig("")
	require.NoError(t, err)

	assert.Equal(t, 60*time.Second, cfg.Poll.Interval)
	assert.Equal(t, "^integration", cfg.Poll.NamePattern)
	assert.Equal(t, 10*time.Second, cfg.Poll.DetailTimeout)
	assert.Equal(t, 5, cfg.RateLimit.Count)
	assert.Equal(t, time.Second, cfg.RateLimit.Per)
	assert.False(t, cfg.Server.Enabled)
	assert.False(t, cfg.Tracing.Enabled)
}

func TestNewConfig_FromFile(t *testing.T) {
	path := writeConfig(t, `
poll:
  interval: 15s
  name_pattern: "^deploy-"
rate_limit:
  count: 2
  per: 500ms
server:
  enabled: true
  port: 9000
  allowed_origins: "http://a.example,http://b.example"
`)

	cfg, err := NewConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 15*time.Second, cfg.Poll.Interval)
	assert.Equal(t, "^deploy-", cfg.Poll.NamePattern)
	assert.Equal(t, 2, cfg.RateLimit.Count)
	assert.Equal(t, 500*time.Millisecond, cfg.RateLimit.Per)
	assert.True(t, cfg.Server.Enabled)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr())
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.Server.AllowedOrigins)
	// Untouched sections keep their defaults.
	assert.Equal(t, 10*time.Second, cfg.Poll.DetailTimeout)
}

func TestNewConfig_EnvOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PIPEWATCH_POLL_NAME_PATTERN", "^staging")
	t.Setenv("PIPEWATCH_AWS_REGION", "eu-west-1")

	cfg, err := NewConfig("")
	require.NoError(t, err)

	assert.Equal(t, "^staging", cfg.Poll.NamePattern)
	assert.Equal(t, "eu-west-1", cfg.AWS.Region)
}

func TestNewConfig_MissingExplicitFile(t *testing.T) {
	_, err := NewConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestNewConfig_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad log level", "log:\n  level: LOUD\n"},
		{"zero interval", "poll:\n  interval: 0s\n"},
		{"bad pattern", "poll:\n  name_pattern: \"[\"\n"},
		{"zero rate", "rate_limit:\n  count: 0\n"},
		{"bad port", "server:\n  enabled: true\n  port: 70000\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewConfig(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestExpandPath(t *testing.T) {
	t.Setenv("PIPEWATCH_TEST_DIR", "/tmp/pw")
	assert.Equal(t, "/tmp/pw/log.txt", expandPath("$PIPEWATCH_TEST_DIR/log.txt"))
	assert.Equal(t, "", expandPath(""))

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "logs"), expandPath("~/logs"))
}
