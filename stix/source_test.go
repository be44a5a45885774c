package stix

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBundleJSON = `{"type":"bundle","id":"bundle--t","objects":[{"type":"tool","id":"tool--1","name":"PsExec"}]}`

// mapCache is an in-process Cache for exercising Source resolution order.
type mapCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	sets    int
}

func newMapCache() *mapCache {
	return &mapCache{entries: map[string][]byte{}}
}

func (c *mapCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.entries[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	return data, nil
}

func (c *mapCache) Set(_ context.Context, key string, data []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = data
	c.sets++
	return nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestSource_LoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bundle.json")
	require.NoError(t, os.WriteFile(path, []byte(testBundleJSON), 0o644))

	src := &Source{Path: path, Logger: quietLogger()}
	bundle, err := src.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, bundle.Objects, 1)
	assert.Equal(t, "tool--1", bundle.Objects[0].ID())
}

func TestSource_DownloadPopulatesCacheAndFile(t *testing.T) {
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests++
		w.Write([]byte(testBundleJSON))
	}))
	defer server.Close()

	path := filepath.Join(t.TempDir(), "bundle.json")
	cache := newMapCache()
	src := &Source{Path: path, URL: server.URL, Cache: cache, Logger: quietLogger()}

	bundle, err := src.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, bundle.Objects, 1)
	assert.Equal(t, 1, requests)
	assert.Equal(t, 1, cache.sets)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, testBundleJSON, string(data))

	// Second load hits the file, not the server.
	_, err = src.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, requests)
}

func TestSource_CacheHitSkipsDownload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Error("server should not be contacted on cache hit")
	}))
	defer server.Close()

	cache := newMapCache()
	require.NoError(t, cache.Set(context.Background(), cacheKey(server.URL), []byte(testBundleJSON), 0))

	src := &Source{URL: server.URL, Cache: cache, Logger: quietLogger()}
	bundle, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "bundle--t", bundle.ID)
}

func TestSource_DownloadErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	src := &Source{URL: server.URL, Logger: quietLogger()}
	_, err := src.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "returned status 503")
}
