package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "claimscan.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "data/processed", cfg.Data.ProcessedDir)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, int64(1500), cfg.Scanner.MaxClaimsPerMonth)
	assert.InDelta(t, 3.0, cfg.Scanner.RevenueZThreshold, 0.001)
	assert.InDelta(t, 5.0, cfg.Scanner.SpikeMultiplier, 0.001)
	assert.InDelta(t, 0.9, cfg.Scanner.ConsistencyRatio, 0.001)
	assert.Equal(t, int64(30), cfg.Scanner.ConsistencyMinRows)
	assert.InDelta(t, 10000, cfg.Scanner.MinViableTotal, 0.001)
	assert.Equal(t, "https://npiregistry.cms.hhs.gov/api/", cfg.Registry.BaseURL)
	assert.Equal(t, 10, cfg.Registry.TimeoutSecs)
	assert.InDelta(t, 5, cfg.Registry.RequestsPerSec, 0.001)
	assert.False(t, cfg.Registry.Disabled)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/claims
log:
  level: debug
  format: console
scanner:
  max_claims_per_month: 2000
  spike_multiplier: 8
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/claims", cfg.Store.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, int64(2000), cfg.Scanner.MaxClaimsPerMonth)
	assert.InDelta(t, 8.0, cfg.Scanner.SpikeMultiplier, 0.001)
	// Defaults still apply for unset values
	assert.InDelta(t, 3.0, cfg.Scanner.RevenueZThreshold, 0.001)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("CLAIMSCAN_STORE_DRIVER", "postgres")
	t.Setenv("CLAIMSCAN_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("CLAIMSCAN_SCANNER_MIN_VIABLE_TOTAL", "25000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.InDelta(t, 25000, cfg.Scanner.MinViableTotal, 0.001)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}
