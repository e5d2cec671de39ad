package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter counts events per fixed window in Redis so several service
// instances share one quota. INCR is atomic, which makes the admission
// decision atomic per key across all instances.
type RedisLimiter struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// NewRedisLimiter wraps client. Keys are written under prefix.
func NewRedisLimiter(client *redis.Client, prefix string) *RedisLimiter {
	if prefix == "" {
		prefix = "rate"
	}
	return &RedisLimiter{client: client, prefix: prefix, now: time.Now}
}

// Allow increments the counter of the current window and admits the event
// while the count stays within quota.Limit.
func (l *RedisLimiter) Allow(ctx context.Context, scope Scope, key string, quota Quota) (Result, error) {
	if err := quota.validate(); err != nil {
		return Result{}, err
	}

	now := l.now().UTC()
	windowStart := now.Truncate(quota.Window)
	redisKey := fmt.Sprintf("%s:%s:%s:%d", l.prefix, scope, key, windowStart.Unix())

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	// The key embeds the window start, so the TTL only bounds memory.
	pipe.Expire(ctx, redisKey, 2*quota.Window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Result{}, fmt.Errorf("redis incr: %w", err)
	}

	if incr.Val() > int64(quota.Limit) {
		return Result{Allowed: false, RetryAfter: windowStart.Add(quota.Window).Sub(now)}, nil
	}
	return Result{Allowed: true}, nil
}

// Close closes the Redis connection
func (l *RedisLimiter) Close() error {
	return l.client.Close()
}
