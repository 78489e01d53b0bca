package store

import (
	"log"

	"github.com/xelth-com/wotrack/internal/config"
)

// Open builds the configured cache backend. The returned func releases it.
func Open(cfg config.CacheConfig) (Cache, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Backend {
	case "redis":
		rc, err := NewRedisCache(cfg.RedisURL, cfg.Key)
		if err != nil {
			return nil, nil, err
		}
		log.Printf("🗄️ Cache: redis key %s", rc.key)
		return rc, rc.Close, nil
	case "memory":
		log.Println("🗄️ Cache: memory only, nothing survives a restart")
		return NewMemoryCache(), noop, nil
	default:
		log.Printf("🗄️ Cache: file %s", cfg.Path)
		return NewFileCache(cfg.Path), noop, nil
	}
}
