package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "enterprise-attack/enterprise-attack.json", cfg.Bundle.Path)
	assert.Equal(t, "bolt://localhost:7687", cfg.Neo4j.URI)
	assert.Equal(t, "neo4j", cfg.Neo4j.Username)
	assert.Equal(t, 4, cfg.Ingest.GetWorkers())
	assert.Equal(t, 500, cfg.Ingest.GetProgressEvery())
	assert.Equal(t, 24*time.Hour, cfg.Bundle.Cache.GetTTL())
	require.NoError(t, cfg.Validate())
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "attackgraph.yaml")
	content := `
bundle:
  path: /data/enterprise-attack.json
  filter: "true"
  cache:
    redis_url: redis://localhost:6379
    ttl: 2h
neo4j:
  uri: bolt://graph:7687
  username: ingest
  password: secret
  database: attack
ingest:
  workers: 8
  progress_every: 100
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/data/enterprise-attack.json", cfg.Bundle.Path)
	assert.Equal(t, "true", cfg.Bundle.Filter)
	assert.Equal(t, "redis://localhost:6379", cfg.Bundle.Cache.RedisURL)
	assert.Equal(t, 2*time.Hour, cfg.Bundle.Cache.GetTTL())
	assert.Equal(t, "bolt://graph:7687", cfg.Neo4j.URI)
	assert.Equal(t, "ingest", cfg.Neo4j.Username)
	assert.Equal(t, "secret", cfg.Neo4j.Password)
	assert.Equal(t, "attack", cfg.Neo4j.Database)
	assert.Equal(t, 8, cfg.Ingest.GetWorkers())
	assert.Equal(t, 100, cfg.Ingest.GetProgressEvery())
}

func TestLoad_Directory(t *testing.T) {
	dir := t.TempDir()
	content := "neo4j:\n  uri: bolt://dirhost:7687\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "attackgraph.yml"), []byte(content), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "bolt://dirhost:7687", cfg.Neo4j.URI)

	// Partial files keep defaults for everything else.
	assert.Equal(t, "enterprise-attack/enterprise-attack.json", cfg.Bundle.Path)
}

func TestLoad_DirectoryWithoutConfig(t *testing.T) {
	_, err := Load(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no attackgraph.yaml found")
}

func TestLoad_MissingPath(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvNeo4jURI, "bolt://envhost:7687")
	t.Setenv(EnvNeo4jUser, "envuser")
	t.Setenv(EnvNeo4jPassword, "envpass")
	t.Setenv(EnvNeo4jDatabase, "envdb")
	t.Setenv(EnvStixFile, "/env/bundle.json")
	t.Setenv(EnvStixURL, "https://example.com/bundle.json")
	t.Setenv(EnvRedisURL, "redis://envredis:6379")

	cfg := Default()
	cfg.ApplyEnv()

	assert.Equal(t, "bolt://envhost:7687", cfg.Neo4j.URI)
	assert.Equal(t, "envuser", cfg.Neo4j.Username)
	assert.Equal(t, "envpass", cfg.Neo4j.Password)
	assert.Equal(t, "envdb", cfg.Neo4j.Database)
	assert.Equal(t, "/env/bundle.json", cfg.Bundle.Path)
	assert.Equal(t, "https://example.com/bundle.json", cfg.Bundle.URL)
	assert.Equal(t, "redis://envredis:6379", cfg.Bundle.Cache.RedisURL)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Neo4j.URI = ""
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Bundle.Path = ""
	cfg.Bundle.URL = ""
	require.Error(t, cfg.Validate())

	cfg.Bundle.URL = "https://example.com/bundle.json"
	cfg.Neo4j.URI = "bolt://localhost:7687"
	require.NoError(t, cfg.Validate())
}

func TestCacheConfig_GetTTL(t *testing.T) {
	var nilCache *CacheConfig
	assert.Equal(t, 24*time.Hour, nilCache.GetTTL())
	assert.Equal(t, 24*time.Hour, (&CacheConfig{TTL: "not a duration"}).GetTTL())
	assert.Equal(t, 30*time.Minute, (&CacheConfig{TTL: "30m"}).GetTTL())
}
