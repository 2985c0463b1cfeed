package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/railzwaylabs/biochar/internal/methodology"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("BIOCHAR_CONFIG_FILE", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, int64(1), cfg.NodeID)
	assert.Equal(t, 4, cfg.Recalc.Workers)
	assert.Equal(t, 2*time.Minute, cfg.Recalc.LockTTL)
	assert.Equal(t, "@every 5m", cfg.Scheduler.StaleSweepSpec)
	assert.Empty(t, cfg.Redis.Addr)
	assert.False(t, cfg.IsProduction())
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("BIOCHAR_CONFIG_FILE", "")
	t.Setenv("BIOCHAR_ENV", "production")
	t.Setenv("BIOCHAR_HTTP_ADDR", ":9090")
	t.Setenv("BIOCHAR_RECALC_WORKERS", "8")
	t.Setenv("BIOCHAR_REDIS_ADDR", "localhost:6379")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, 8, cfg.Recalc.Workers)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "biochar.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http_addr: \":7070\"\nrecalc:\n  queue_size: 16\n"), 0o600))
	t.Setenv("BIOCHAR_CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.HTTPAddr)
	assert.Equal(t, 16, cfg.Recalc.QueueSize)
	assert.Equal(t, 4, cfg.Recalc.Workers)
}

func TestLoadRejectsInvalidWorkers(t *testing.T) {
	t.Setenv("BIOCHAR_CONFIG_FILE", "")
	t.Setenv("BIOCHAR_RECALC_WORKERS", "0")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsNodeOutOfRange(t *testing.T) {
	t.Setenv("BIOCHAR_CONFIG_FILE", "")
	t.Setenv("BIOCHAR_NODE_ID", "2048")

	_, err := Load()
	assert.Error(t, err)
}

func writeMethodology(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
}

func TestLoadMethodologyKeepsDefaultsForMissingKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "methodology.yaml")
	writeMethodology(t, path, "version: puro-biochar-2025.v1\nhcorg_threshold: 0.6\n")

	params, err := LoadMethodology(path)
	require.NoError(t, err)

	def := methodology.Default()
	assert.Equal(t, "puro-biochar-2025.v1", params.Version)
	assert.Equal(t, 0.6, params.HCorgThreshold)
	assert.Equal(t, def.CO2PerCarbon, params.CO2PerCarbon)
	assert.Equal(t, def.BiomassShares, params.BiomassShares)
}

func TestLoadMethodologyRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "methodology.yaml")
	writeMethodology(t, path, "version: broken\nbiomass_shares:\n  transport: 0.9\n")

	_, err := LoadMethodology(path)
	assert.ErrorIs(t, err, methodology.ErrInvalidParams)
}

func TestNewMethodologyHolderDefault(t *testing.T) {
	holder, err := NewMethodologyHolder(MethodologyParams{Config: Config{}, Log: zap.NewNop()})
	require.NoError(t, err)
	assert.Equal(t, methodology.Default().Version, holder.Current().Version)
}

func TestMethodologyWatcherReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "methodology.yaml")
	writeMethodology(t, path, "version: edition-a\n")

	holder, err := NewMethodologyHolder(MethodologyParams{
		Config: Config{MethodologyFile: path},
		Log:    zap.NewNop(),
	})
	require.NoError(t, err)
	require.Equal(t, "edition-a", holder.Current().Version)

	watcher := NewMethodologyWatcher(holder, zap.NewNop(), path)
	require.NoError(t, watcher.Watch())

	writeMethodology(t, path, "version: edition-b\n")
	require.Eventually(t, func() bool {
		return holder.Current().Version == "edition-b"
	}, 5*time.Second, 20*time.Millisecond)
}
