package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:3000/api", cfg.API.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.API.Timeout)
	assert.True(t, cfg.Feed.Enabled)
	assert.Equal(t, 50, cfg.Feed.PageLimit)
	assert.Equal(t, 30*time.Second, cfg.Feed.PollInterval)
	assert.NoError(t, cfg.HandleConfig().Validate())
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
api:
  base_url: https://tickets.example.com/api/
  timeout: 3s
feed:
  page_limit: 20
  poll_interval: 1m
profile: night-shift
`), 0o600))
	t.Setenv("TICKETDESK_FEED_ENABLED", "false")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "https://tickets.example.com/api", cfg.API.BaseURL)
	assert.Equal(t, 3*time.Second, cfg.API.Timeout)
	assert.Equal(t, 20, cfg.Feed.PageLimit)
	assert.Equal(t, time.Minute, cfg.Feed.PollInterval)
	assert.False(t, cfg.Feed.Enabled)
	assert.Equal(t, "night-shift", cfg.Profile)
}

func TestLoadConfig_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api: [unterminated"), 0o600))
	_, err := LoadConfig(path)
	require.Error(t, err)
}
