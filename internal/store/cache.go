package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/xelth-com/wotrack/internal/models"
)

// Snapshot is the whole local collection as persisted in one blob
type Snapshot struct {
	Documents []models.Document `json:"documents"`
	// Tombstones are ids deleted locally that a remote listing may still return
	Tombstones map[string]time.Time `json:"tombstones,omitempty"`
	// Unsynced maps ids written locally since their last successful remote
	// save to the revision of that write
	Unsynced map[string]uint64 `json:"unsynced,omitempty"`
}

// Cache is durable key-value persistence of the full collection
type Cache interface {
	Read(ctx context.Context) (Snapshot, error)
	Write(ctx context.Context, snap Snapshot) error
}

// EncodeSnapshot serializes a snapshot
func EncodeSnapshot(snap Snapshot) ([]byte, error) {
	if snap.Documents == nil {
		snap.Documents = []models.Document{}
	}
	return json.Marshal(snap)
}

// DecodeSnapshot parses a snapshot blob. Caches written before tombstones
// existed hold a bare JSON array of documents; those are accepted too.
func DecodeSnapshot(data []byte) (Snapshot, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return Snapshot{}, nil
	}

	if trimmed[0] == '[' {
		var docs []models.Document
		if err := json.Unmarshal(trimmed, &docs); err != nil {
			return Snapshot{}, fmt.Errorf("decode legacy cache: %w", err)
		}
		return Snapshot{Documents: docs}, nil
	}

	var snap Snapshot
	if err := json.Unmarshal(trimmed, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("decode cache: %w", err)
	}
	return snap, nil
}

// FileCache keeps the snapshot in a single JSON file
type FileCache struct {
	path string
}

// NewFileCache creates a file-backed cache
func NewFileCache(path string) *FileCache {
	return &FileCache{path: path}
}

// Read loads the snapshot; a missing file is an empty collection
func (c *FileCache) Read(ctx context.Context) (Snapshot, error) {
	data, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return Snapshot{}, nil
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("read cache file: %w", err)
	}
	return DecodeSnapshot(data)
}

// Write replaces the file atomically via rename
func (c *FileCache) Write(ctx context.Context, snap Snapshot) error {
	data, err := EncodeSnapshot(snap)
	if err != nil {
		return fmt.Errorf("encode cache: %w", err)
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".docs-cache-*")
	if err != nil {
		return fmt.Errorf("create temp cache file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close cache file: %w", err)
	}
	if err := os.Rename(tmpName, c.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace cache file: %w", err)
	}
	return nil
}

// RedisCache keeps the snapshot under one Redis key
type RedisCache struct {
	client *redis.Client
	key    string
}

// NewRedisCache connects to Redis and verifies the connection
func NewRedisCache(redisURL, key string) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisCacheWithClient(client, key), nil
}

// NewRedisCacheWithClient creates a cache from an existing Redis client
func NewRedisCacheWithClient(client *redis.Client, key string) *RedisCache {
	if key == "" {
		key = "wotrack:docs_cache"
	}
	return &RedisCache{client: client, key: key}
}

// Read loads the snapshot; a missing key is an empty collection
func (c *RedisCache) Read(ctx context.Context) (Snapshot, error) {
	data, err := c.client.Get(ctx, c.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Snapshot{}, nil
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("get cache key: %w", err)
	}
	return DecodeSnapshot(data)
}

// Write stores the snapshot without expiration
func (c *RedisCache) Write(ctx context.Context, snap Snapshot) error {
	data, err := EncodeSnapshot(snap)
	if err != nil {
		return fmt.Errorf("encode cache: %w", err)
	}
	if err := c.client.Set(ctx, c.key, data, 0).Err(); err != nil {
		return fmt.Errorf("set cache key: %w", err)
	}
	return nil
}

// Close closes the Redis connection
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// MemoryCache holds the encoded snapshot in memory. Used when no durable
// backend is configured and in tests.
type MemoryCache struct {
	mu       sync.Mutex
	data     []byte
	writeErr error
}

// NewMemoryCache creates an empty in-memory cache
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{}
}

// Read decodes the last written snapshot
func (c *MemoryCache) Read(ctx context.Context) (Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return DecodeSnapshot(c.data)
}

// Write stores the encoded snapshot, or fails if a write error was injected
func (c *MemoryCache) Write(ctx context.Context, snap Snapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.writeErr != nil {
		return c.writeErr
	}
	data, err := EncodeSnapshot(snap)
	if err != nil {
		return err
	}
	c.data = data
	return nil
}

// FailWrites makes subsequent writes return err; nil restores normal behaviour
func (c *MemoryCache) FailWrites(err error) {
	c.mu.Lock()
	c.writeErr = err
	c.mu.Unlock()
}
