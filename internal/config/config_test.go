package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, ":8080", cfg.Port)
	assert.Equal(t, 8, cfg.Vendor.VendorUTCOffsetHours)
	assert.Equal(t, 5, cfg.RateLimit.MaxCallsPerSecond)
	assert.Equal(t, 2*time.Second, cfg.RateLimit.BackoffBase)
	assert.Equal(t, 5*time.Minute, cfg.RateLimit.BackoffCap)
	assert.Equal(t, 30, cfg.Sync.FullLookbackDays)
	assert.Equal(t, 30*time.Minute, cfg.Sync.StaleRunningTimeout)
	assert.Equal(t, 15*time.Minute, cfg.Sync.BackfillWindow)
	assert.Equal(t, 15.0, cfg.Position.MinMoveMeters)
	assert.Equal(t, 10*time.Minute, cfg.Position.StationaryMinInterval)
}

func TestLoadYAMLFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: ":9090"
vendor:
  token: file-token
  vendor_utc_offset_hours: 0
sync:
  interval: 5m
  devices:
    - d1
    - d2
`), 0o644))
	t.Setenv("FLEETSYNC_CONFIG", path)

	cfg := Load()

	assert.Equal(t, ":9090", cfg.Port)
	assert.Equal(t, "file-token", cfg.Vendor.Token)
	assert.Equal(t, 0, cfg.Vendor.VendorUTCOffsetHours)
	assert.Equal(t, 5*time.Minute, cfg.Sync.Interval)
	assert.Equal(t, []string{"d1", "d2"}, cfg.Sync.Devices)
	// Untouched sections keep their defaults
	assert.Equal(t, 5, cfg.RateLimit.MaxCallsPerSecond)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("vendor:\n  token: file-token\n"), 0o644))
	t.Setenv("FLEETSYNC_CONFIG", path)
	t.Setenv("VENDOR_TOKEN", "env-token")
	t.Setenv("SYNC_DEVICES", "d1, d2 ,,d3")
	t.Setenv("MAX_CALLS_PER_SECOND", "9")

	cfg := Load()

	assert.Equal(t, "env-token", cfg.Vendor.Token)
	assert.Equal(t, []string{"d1", "d2", "d3"}, cfg.Sync.Devices)
	assert.Equal(t, 9, cfg.RateLimit.MaxCallsPerSecond)
}

func TestLoadSurvivesMissingFile(t *testing.T) {
	t.Setenv("FLEETSYNC_CONFIG", "/nonexistent/config.yaml")

	cfg := Load()
	assert.Equal(t, ":8080", cfg.Port, "a bad config path falls back to defaults")
}
