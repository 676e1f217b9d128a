// Package config loads and validates the YAML configuration that
// wires together the store roots, partitioning/compression knobs,
// field registry, logging, and metrics for a krxdb process.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Krxdb        KrxdbConfig        `yaml:"krxdb"`
	Store        StoreConfig        `yaml:"store"`
	Partitioning PartitioningConfig `yaml:"partitioning"`
	Pipeline     PipelineConfig     `yaml:"pipeline"`
	Registry     RegistryConfig     `yaml:"registry"`
	Universe     UniverseConfig     `yaml:"universe"`
	Logging      LoggingConfig      `yaml:"logging"`
	Metrics      MetricsConfig      `yaml:"metrics"`
}

type KrxdbConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// StoreConfig points at the persistent store root and the ephemeral
// root the cumulative-multiplier cache is rebuilt under on every
// loader initialization.
type StoreConfig struct {
	Root          string `yaml:"root"`
	EphemeralRoot string `yaml:"ephemeral_root"`
}

// PartitioningConfig controls the on-disk Parquet layout: row-group
// packing size and the block compression codec.
type PartitioningConfig struct {
	RowGroupSize int    `yaml:"row_group_size"`
	Compression  string `yaml:"compression"`
}

// PipelineConfig controls orchestrator fan-out and resume behavior.
type PipelineConfig struct {
	MaxWorkers   int  `yaml:"max_workers"`
	SkipExisting bool `yaml:"skip_existing"`
}

// RegistryConfig points at the declarative field-mapping YAML file.
type RegistryConfig struct {
	Path string `yaml:"path"`
}

// UniverseConfig lists extra named liquidity tiers that loader.Get
// resolves at query time from liquidity_rank. The universe
// materializer always persists the four model.DefaultTiers flags and
// does not read this list; those four stay queryable when it is empty.
type UniverseConfig struct {
	Tiers []TierConfig `yaml:"tiers"`
}

type TierConfig struct {
	Name    string `yaml:"name"`
	MaxRank int32  `yaml:"max_rank"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
	MaxAge int    `yaml:"max_age"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// LoadConfig reads path, applies environment-variable overrides, and
// validates the result. No partial config is ever returned: a
// validation failure surfaces immediately, never a half-initialized
// loader.
//
// path is resolved against APP_ENV first: if a sibling
// "<base>.<env><ext>" file exists for the current environment (e.g.
// config/config.production.yml), it is loaded instead of path, the
// way resolveEnvSpecificPath selects an environment's override file.
func LoadConfig(path string) (*Config, error) {
	env := AppEnvironment()
	resolvedPath := resolveEnvSpecificPath(path, path, envSpecificPaths(path))

	data, err := os.ReadFile(resolvedPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Config{
		Partitioning: PartitioningConfig{
			RowGroupSize: 1000,
			Compression:  "snappy",
		},
		Pipeline: PipelineConfig{
			MaxWorkers:   4,
			SkipExisting: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnvOverrides(&cfg)

	if err := validateConfig(&cfg, env); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// envSpecificPaths builds the conventional "<base>.<env><ext>" sibling
// paths next to path for every known environment, keeping only the
// ones that actually exist on disk — resolveEnvSpecificPath then picks
// among them by the current APP_ENV.
func envSpecificPaths(path string) map[string]string {
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)

	paths := make(map[string]string)
	for _, env := range []string{EnvironmentDevelopment, EnvironmentStaging, EnvironmentProduction} {
		candidate := fmt.Sprintf("%s.%s%s", base, env, ext)
		if _, err := os.Stat(candidate); err == nil {
			paths[env] = candidate
		}
	}
	return paths
}

// applyEnvOverrides lets deployment environments pin the store root
// and log level without touching the checked-in config file, mirroring
// the credential-override pattern the teacher applies to its storage
// backend.
func applyEnvOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("KRX_STORE_ROOT")); v != "" {
		cfg.Store.Root = v
	}
	if v := strings.TrimSpace(os.Getenv("KRX_EPHEMERAL_ROOT")); v != "" {
		cfg.Store.EphemeralRoot = v
	}
	if v := strings.TrimSpace(os.Getenv("LOG_LEVEL")); v != "" {
		cfg.Logging.Level = v
	}
	if v := strings.TrimSpace(os.Getenv("KRX_MAX_WORKERS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Pipeline.MaxWorkers = n
		}
	}
}

func validateConfig(cfg *Config, env string) error {
	if cfg.Krxdb.Name == "" {
		return fmt.Errorf("krxdb.name is required")
	}
	if cfg.Store.Root == "" {
		return fmt.Errorf("store.root is required")
	}
	if cfg.Store.EphemeralRoot == "" {
		return fmt.Errorf("store.ephemeral_root is required")
	}
	if cfg.Store.EphemeralRoot == cfg.Store.Root {
		return fmt.Errorf("store.ephemeral_root must differ from store.root")
	}
	if cfg.Partitioning.RowGroupSize <= 0 {
		return fmt.Errorf("partitioning.row_group_size must be greater than 0")
	}
	switch cfg.Partitioning.Compression {
	case "snappy", "gzip", "zstd", "uncompressed", "":
	default:
		return fmt.Errorf("partitioning.compression %q is not supported", cfg.Partitioning.Compression)
	}
	if cfg.Pipeline.MaxWorkers <= 0 {
		return fmt.Errorf("pipeline.max_workers must be greater than 0")
	}
	if cfg.Registry.Path == "" {
		return fmt.Errorf("registry.path is required")
	}
	for _, t := range cfg.Universe.Tiers {
		if t.Name == "" {
			return fmt.Errorf("universe.tiers entries require a name")
		}
		if t.MaxRank <= 0 {
			return fmt.Errorf("universe.tiers[%s].max_rank must be greater than 0", t.Name)
		}
	}
	if IsProductionLike(env) && !cfg.Metrics.Enabled {
		return fmt.Errorf("metrics.enabled is required in production-like environments (APP_ENV=%s)", env)
	}
	return nil
}
