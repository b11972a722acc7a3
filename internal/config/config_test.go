package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 10000, cfg.Build.BatchSize)
	assert.Equal(t, 64, cfg.Build.CacheSizeMB)
	assert.NotEmpty(t, cfg.STAC.CatalogURL)
	require.NoError(t, cfg.Validate())
}

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().Build.BatchSize, cfg.Build.BatchSize)
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
build:
  batch_size: 500
  cache_size_mb: 16
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 500, cfg.Build.BatchSize)
	assert.Equal(t, 16, cfg.Build.CacheSizeMB)
	assert.Equal(t, "debug", cfg.Log.Level)
	// Unset fields keep their defaults.
	assert.Equal(t, 10000, cfg.Diff.ChunkSize)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("GAZETTEER_BATCH_SIZE", "250")
	t.Setenv("GAZETTEER_LOG_LEVEL", "warn")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 250, cfg.Build.BatchSize)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestValidate_RejectsBadValues(t *testing.T) {
	cfg := Default()
	cfg.Build.BatchSize = 0
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Diff.ChunkSize = -1
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.STAC.CatalogURL = ""
	assert.Error(t, cfg.Validate())
}
