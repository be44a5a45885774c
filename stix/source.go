package stix

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultBundleURL is the canonical location of the MITRE ATT&CK enterprise
// bundle, used when no local file is available.
const DefaultBundleURL = "https://raw.githubusercontent.com/mitre/cti/master/enterprise-attack/enterprise-attack.json"

// ErrCacheMiss indicates the requested bundle is not present in the cache.
var ErrCacheMiss = errors.New("bundle not in cache")

// Cache stores downloaded bundle payloads keyed by their source URL so
// repeated ingestion runs skip the multi-megabyte download.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
}

// RedisCache is a Cache backed by a Redis instance.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache connects to Redis using a connection URL
// (e.g. "redis://localhost:6379") and verifies the connection with a ping.
func NewRedisCache(ctx context.Context, url string, ttl time.Duration) (*RedisCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &RedisCache{client: client, ttl: ttl}, nil
}

// Get returns the cached payload for key, or ErrCacheMiss.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("cache get: %w", err)
	}
	return data, nil
}

// Set stores the payload for key. A zero ttl falls back to the cache's
// configured TTL.
func (c *RedisCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.ttl
	}
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// Close releases the underlying Redis connection.
func (c *RedisCache) Close() error { return c.client.Close() }

// cacheKey namespaces cached bundles by source URL.
func cacheKey(url string) string { return "attackgraph:bundle:" + url }

// Source supplies the raw bundle. Resolution order: local file if present,
// then cache, then HTTP download (which also refreshes the file and cache).
type Source struct {
	// Path is the local bundle file. May be empty to always fetch.
	Path string

	// URL is the remote bundle location. Defaults to DefaultBundleURL.
	URL string

	// Cache is optional; when nil, downloads are not cached.
	Cache Cache

	// HTTPClient is optional; when nil, a client with a 60s timeout is used.
	HTTPClient *http.Client

	Logger *slog.Logger
}

// Load obtains and parses the bundle.
func (s *Source) Load(ctx context.Context) (*Bundle, error) {
	data, err := s.fetch(ctx)
	if err != nil {
		return nil, err
	}
	return ParseBundle(data)
}

func (s *Source) fetch(ctx context.Context) ([]byte, error) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if s.Path != "" {
		data, err := os.ReadFile(s.Path)
		if err == nil {
			logger.Info("loaded STIX bundle from file", "component", "stix", "path", s.Path, "bytes", len(data))
			return data, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read bundle file: %w", err)
		}
	}

	url := s.URL
	if url == "" {
		url = DefaultBundleURL
	}

	if s.Cache != nil {
		data, err := s.Cache.Get(ctx, cacheKey(url))
		if err == nil {
			logger.Info("loaded STIX bundle from cache", "component", "stix", "url", url, "bytes", len(data))
			return data, nil
		}
		if !errors.Is(err, ErrCacheMiss) {
			logger.Warn("bundle cache read failed", "component", "stix", "error", err)
		}
	}

	data, err := s.download(ctx, url)
	if err != nil {
		return nil, err
	}
	logger.Info("downloaded STIX bundle", "component", "stix", "url", url, "bytes", len(data))

	if s.Cache != nil {
		if err := s.Cache.Set(ctx, cacheKey(url), data, 0); err != nil {
			logger.Warn("bundle cache write failed", "component", "stix", "error", err)
		}
	}
	if s.Path != "" {
		if err := s.writeFile(data); err != nil {
			logger.Warn("bundle file write failed", "component", "stix", "path", s.Path, "error", err)
		}
	}
	return data, nil
}

func (s *Source) download(ctx context.Context, url string) ([]byte, error) {
	client := s.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build bundle request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download bundle from %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bundle download from %s returned status %d", url, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read bundle response: %w", err)
	}
	return data, nil
}

func (s *Source) writeFile(data []byte) error {
	if dir := filepath.Dir(s.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(s.Path, data, 0o644)
}
