package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go-link-redirector/config"
)

// New builds the Limiter selected by cfg.RateLimitBackend.
func New(ctx context.Context, cfg *config.Config) (Limiter, error) {
	switch cfg.RateLimitBackend {
	case config.BackendMemory:
		return NewMemoryLimiter(16, time.Minute), nil
	case config.BackendRedis:
		client := redis.NewClient(cfg.RedisOptions())
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		return NewRedisLimiter(client, "rate"), nil
	default:
		return nil, fmt.Errorf("unknown rate limit backend %q", cfg.RateLimitBackend)
	}
}

// Policies derives the create and follow policies from cfg.
func Policies(cfg *config.Config) map[Scope]Policy {
	return map[Scope]Policy{
		ScopeCreate: {
			Quota:    Quota{Limit: cfg.CreateLimit, Window: cfg.CreateWindow},
			FailOpen: cfg.CreateFailOpen,
		},
		ScopeFollow: {
			Quota:    Quota{Limit: cfg.FollowLimit, Window: cfg.FollowWindow},
			FailOpen: cfg.FollowFailOpen,
		},
	}
}
