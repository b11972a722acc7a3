// Package config loads gazetteer configuration from YAML with
// environment-variable overrides. Values such as the release identifier
// and output paths are threaded explicitly through constructors; nothing
// here is consulted as ambient state after startup.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	gazerrors "github.com/overture-tools/gazetteer/internal/errors"
)

// Config is the complete gazetteer configuration.
type Config struct {
	Build BuildConfig `yaml:"build"`
	Diff  DiffConfig  `yaml:"diff"`
	STAC  STACConfig  `yaml:"stac"`
	Log   LogConfig   `yaml:"log"`
}

// BuildConfig tunes index construction. Batch size bounds peak memory
// and transaction size only; it never changes the built index contents.
type BuildConfig struct {
	// BatchSize is the number of features inserted per transaction.
	BatchSize int `yaml:"batch_size"`

	// CacheSizeMB is the SQLite page cache size during the build.
	CacheSizeMB int `yaml:"cache_size_mb"`

	// ReverseCacheSize is the LRU entry count for reverse-geocode
	// results. Zero disables the cache.
	ReverseCacheSize int `yaml:"reverse_cache_size"`
}

// DiffConfig tunes changeset generation.
type DiffConfig struct {
	// ChunkSize controls how often a progress marker is emitted into
	// the upsert statement log.
	ChunkSize int `yaml:"chunk_size"`
}

// STACConfig configures release discovery.
type STACConfig struct {
	// CatalogURL is the root STAC catalog.
	CatalogURL string `yaml:"catalog_url"`

	// TimeoutSeconds bounds a single catalog fetch.
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Build: BuildConfig{
			BatchSize:        10000,
			CacheSizeMB:      64,
			ReverseCacheSize: 1024,
		},
		Diff: DiffConfig{
			ChunkSize: 10000,
		},
		STAC: STACConfig{
			CatalogURL:     "https://stac.overturemaps.org/catalog.json",
			TimeoutSeconds: 30,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from path, falling back to defaults when the
// path is empty, then applies environment overrides and validates.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, gazerrors.New(gazerrors.ErrCodeConfigNotFound,
				fmt.Sprintf("cannot read config %s", path), err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, gazerrors.ConfigError(
				fmt.Sprintf("cannot parse config %s", path), err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies GAZETTEER_* environment variables.
// Env vars take priority over file values.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("GAZETTEER_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Build.BatchSize = n
		}
	}
	if v := os.Getenv("GAZETTEER_STAC_URL"); v != "" {
		c.STAC.CatalogURL = v
	}
	if v := os.Getenv("GAZETTEER_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.Build.BatchSize <= 0 {
		return gazerrors.ConfigError(
			fmt.Sprintf("build.batch_size must be positive, got %d", c.Build.BatchSize), nil)
	}
	if c.Build.CacheSizeMB <= 0 {
		return gazerrors.ConfigError(
			fmt.Sprintf("build.cache_size_mb must be positive, got %d", c.Build.CacheSizeMB), nil)
	}
	if c.Build.ReverseCacheSize < 0 {
		return gazerrors.ConfigError(
			fmt.Sprintf("build.reverse_cache_size must not be negative, got %d", c.Build.ReverseCacheSize), nil)
	}
	if c.Diff.ChunkSize <= 0 {
		return gazerrors.ConfigError(
			fmt.Sprintf("diff.chunk_size must be positive, got %d", c.Diff.ChunkSize), nil)
	}
	if c.STAC.CatalogURL == "" {
		return gazerrors.ConfigError("stac.catalog_url must not be empty", nil)
	}
	return nil
}
