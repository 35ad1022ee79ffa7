package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadWithoutFileReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "https://www.bahn.de/web/api", cfg.Upstream.BaseURL)
	assert.Equal(t, 15*time.Second, cfg.Upstream.Timeout())
	assert.Equal(t, 60, cfg.Board.TimeWindowMinutes)
	assert.Equal(t, 20, cfg.Board.MaxResults)
	assert.True(t, cfg.Watch.Enabled)
	assert.Equal(t, 2*time.Minute, cfg.Watch.Interval())
}

func TestLoadOverlaysFileOnDefaults(t *testing.T) {
	path := writeConfig(t, `
upstream:
  timeout_seconds: 30
board:
  time_window_minutes: 120
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.Upstream.TimeoutSeconds)
	assert.Equal(t, 120, cfg.Board.TimeWindowMinutes)
	// Untouched fields keep their defaults.
	assert.Equal(t, "https://www.bahn.de/web/api", cfg.Upstream.BaseURL)
	assert.Equal(t, 20, cfg.Board.MaxResults)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"bad base url":       "upstream:\n  base_url: not-a-url\n",
		"timeout too large":  "upstream:\n  timeout_seconds: 600\n",
		"zero time window":   "board:\n  time_window_minutes: 0\n",
		"excessive results":  "board:\n  max_results: 5000\n",
		"zero poll interval": "watch:\n  interval_minutes: 0\n",
	}

	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, content))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadMalformedYAMLFails(t *testing.T) {
	_, err := Load(writeConfig(t, "upstream: [not a mapping"))
	assert.Error(t, err)
}
