package ratelimit

import (
	"context"
	"hash/fnv"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type bucketKey struct {
	scope Scope
	key   string
}

type bucket struct {
	limiter *rate.Limiter
	quota   Quota
}

type limiterShard struct {
	mu      sync.Mutex
	buckets map[bucketKey]*bucket
}

// MemoryLimiter keeps one token bucket per (scope, key). A bucket holds
// quota.Limit tokens and refills at Limit per Window, so a burst of Limit
// events is admitted and capacity then returns gradually over the window.
type MemoryLimiter struct {
	shards []*limiterShard
	now    func() time.Time
	stop   chan struct{}
	once   sync.Once
}

// NewMemoryLimiter returns a MemoryLimiter. A positive cleanupInterval starts
// a goroutine that drops buckets which have fully refilled, since those are
// indistinguishable from new ones.
func NewMemoryLimiter(shards int, cleanupInterval time.Duration) *MemoryLimiter {
	if shards <= 0 {
		shards = 16
	}
	l := &MemoryLimiter{
		shards: make([]*limiterShard, shards),
		now:    time.Now,
		stop:   make(chan struct{}),
	}
	for i := range l.shards {
		l.shards[i] = &limiterShard{buckets: make(map[bucketKey]*bucket)}
	}
	if cleanupInterval > 0 {
		go l.cleanupIdleBuckets(cleanupInterval)
	}
	return l
}

func (l *MemoryLimiter) shardFor(k bucketKey) *limiterShard {
	h := fnv.New32a()
	h.Write([]byte(k.scope))
	h.Write([]byte{0})
	h.Write([]byte(k.key))
	return l.shards[h.Sum32()%uint32(len(l.shards))]
}

func newBucket(q Quota) *bucket {
	return &bucket{
		limiter: rate.NewLimiter(rate.Every(q.Window/time.Duration(q.Limit)), q.Limit),
		quota:   q,
	}
}

// Allow consumes one token for (scope, key) if available. The check and the
// consumption happen under the shard lock, so they are atomic per key.
func (l *MemoryLimiter) Allow(ctx context.Context, scope Scope, key string, quota Quota) (Result, error) {
	if err := quota.validate(); err != nil {
		return Result{}, err
	}

	k := bucketKey{scope: scope, key: key}
	s := l.shardFor(k)
	now := l.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.buckets[k]
	if !ok || b.quota != quota {
		b = newBucket(quota)
		s.buckets[k] = b
	}

	tokens := b.limiter.TokensAt(now)
	if tokens < 1 {
		// Tokens return at Limit per Window.
		wait := time.Duration(math.Ceil((1 - tokens) * float64(quota.Window) / float64(quota.Limit)))
		return Result{Allowed: false, RetryAfter: wait}, nil
	}
	b.limiter.AllowN(now, 1)
	return Result{Allowed: true}, nil
}

// Len returns the number of tracked buckets.
func (l *MemoryLimiter) Len() int {
	n := 0
	for _, s := range l.shards {
		s.mu.Lock()
		n += len(s.buckets)
		s.mu.Unlock()
	}
	return n
}

// DropIdle removes buckets that have refilled completely.
func (l *MemoryLimiter) DropIdle() {
	now := l.now()
	for _, s := range l.shards {
		s.mu.Lock()
		for k, b := range s.buckets {
			if b.limiter.TokensAt(now) >= float64(b.limiter.Burst()) {
				delete(s.buckets, k)
			}
		}
		s.mu.Unlock()
	}
}

func (l *MemoryLimiter) cleanupIdleBuckets(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.DropIdle()
		case <-l.stop:
			return
		}
	}
}

// Close stops the cleanup goroutine.
func (l *MemoryLimiter) Close() error {
	l.once.Do(func() { close(l.stop) })
	return nil
}
