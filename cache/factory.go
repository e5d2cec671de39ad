package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go-link-redirector/config"
)

// New builds the Cache selected by cfg.CacheBackend.
func New(ctx context.Context, cfg *config.Config) (Cache, error) {
	switch cfg.CacheBackend {
	case config.BackendMemory:
		return NewMemoryCache(cfg.CacheShards, cfg.CacheCleanupInterval), nil
	case config.BackendRedis:
		client := redis.NewClient(cfg.RedisOptions())
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		return NewRedisCache(client), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.CacheBackend)
	}
}
