// Package config provides loading and parsing of attackgraph.yaml
// configuration files, with environment-variable overrides for deployment
// settings.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables that override file configuration. The names match
// the settings the ingester historically read from its environment.
const (
	EnvNeo4jURI      = "NEO4J_URI"
	EnvNeo4jUser     = "NEO4J_USER"
	EnvNeo4jPassword = "NEO4J_PASSWORD"
	EnvNeo4jDatabase = "NEO4J_DATABASE"
	EnvStixFile      = "STIX_FILE"
	EnvStixURL       = "STIX_URL"
	EnvRedisURL      = "REDIS_URL"
)

// Config is the root attackgraph.yaml structure.
type Config struct {
	Bundle BundleConfig `yaml:"bundle"`
	Neo4j  Neo4jConfig  `yaml:"neo4j"`
	Ingest IngestConfig `yaml:"ingest"`
}

// BundleConfig locates the STIX bundle and controls pre-ingestion filtering.
type BundleConfig struct {
	// Path is the local bundle file. When absent, the bundle is downloaded
	// from URL (and written back to Path if set).
	Path string `yaml:"path,omitempty"`

	// URL is the remote bundle location. Empty uses the canonical MITRE
	// CTI URL.
	URL string `yaml:"url,omitempty"`

	// Filter is a CEL expression selecting which objects to ingest. Empty
	// applies the default revoked/deprecated filter; "true" keeps all.
	Filter string `yaml:"filter,omitempty"`

	Cache CacheConfig `yaml:"cache,omitempty"`
}

// CacheConfig enables Redis caching of downloaded bundles.
type CacheConfig struct {
	// RedisURL enables the cache when non-empty
	// (e.g. "redis://localhost:6379").
	RedisURL string `yaml:"redis_url,omitempty"`

	// TTL is a Go duration string for cached bundles. Default: 24h.
	TTL string `yaml:"ttl,omitempty"`
}

// GetTTL parses the cache TTL, falling back to the default on absence or
// parse failure.
func (c *CacheConfig) GetTTL() time.Duration {
	if c == nil || c.TTL == "" {
		return 24 * time.Hour
	}
	d, err := time.ParseDuration(c.TTL)
	if err != nil {
		return 24 * time.Hour
	}
	return d
}

// Neo4jConfig holds graph store connection settings.
type Neo4jConfig struct {
	URI      string `yaml:"uri"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database,omitempty"`
}

// IngestConfig holds pipeline tuning knobs.
type IngestConfig struct {
	// Workers is the per-phase worker pool size. Default: 4.
	Workers int `yaml:"workers,omitempty"`

	// ProgressEvery is how many processed objects between progress log
	// lines. Default: 500.
	ProgressEvery int `yaml:"progress_every,omitempty"`
}

// GetWorkers returns the configured worker count or the default.
func (c *IngestConfig) GetWorkers() int {
	if c == nil || c.Workers <= 0 {
		return 4
	}
	return c.Workers
}

// GetProgressEvery returns the configured progress interval or the default.
func (c *IngestConfig) GetProgressEvery() int {
	if c == nil || c.ProgressEvery <= 0 {
		return 500
	}
	return c.ProgressEvery
}

// Default returns the configuration used when no file is provided:
// local enterprise-attack bundle with download fallback, Neo4j on
// localhost.
func Default() *Config {
	return &Config{
		Bundle: BundleConfig{
			Path: "enterprise-attack/enterprise-attack.json",
		},
		Neo4j: Neo4jConfig{
			URI:      "bolt://localhost:7687",
			Username: "neo4j",
		},
	}
}

// Load reads and parses an attackgraph.yaml file. If path is a directory,
// it looks for attackgraph.yaml or attackgraph.yml inside it. Environment
// overrides are applied after parsing.
func Load(path string) (*Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config path: %w", err)
	}
	if info.IsDir() {
		found := ""
		for _, name := range []string{"attackgraph.yaml", "attackgraph.yml"} {
			candidate := filepath.Join(path, name)
			if _, err := os.Stat(candidate); err == nil {
				found = candidate
				break
			}
		}
		if found == "" {
			return nil, fmt.Errorf("no attackgraph.yaml found in %s", path)
		}
		path = found
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	cfg.ApplyEnv()
	return cfg, nil
}

// ApplyEnv overrides file settings with environment variables when set.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvNeo4jURI); v != "" {
		c.Neo4j.URI = v
	}
	if v := os.Getenv(EnvNeo4jUser); v != "" {
		c.Neo4j.Username = v
	}
	if v := os.Getenv(EnvNeo4jPassword); v != "" {
		c.Neo4j.Password = v
	}
	if v := os.Getenv(EnvNeo4jDatabase); v != "" {
		c.Neo4j.Database = v
	}
	if v := os.Getenv(EnvStixFile); v != "" {
		c.Bundle.Path = v
	}
	if v := os.Getenv(EnvStixURL); v != "" {
		c.Bundle.URL = v
	}
	if v := os.Getenv(EnvRedisURL); v != "" {
		c.Bundle.Cache.RedisURL = v
	}
}

// Validate checks settings needed for a real (non-dry-run) ingestion.
func (c *Config) Validate() error {
	if c.Neo4j.URI == "" {
		return fmt.Errorf("neo4j.uri is required")
	}
	if c.Bundle.Path == "" && c.Bundle.URL == "" {
		return fmt.Errorf("bundle.path or bundle.url is required")
	}
	return nil
}
