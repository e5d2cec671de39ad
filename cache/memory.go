package cache

import (
	"context"
	"hash/fnv"
	"sync"
	"time"
)

type entry struct {
	value     string
	expiresAt time.Time
}

type shard struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// MemoryCache is an in-process Cache split into independently locked shards.
// Expired entries are dropped lazily on Get and periodically by a janitor.
type MemoryCache struct {
	shards []*shard
	now    func() time.Time
	stop   chan struct{}
	once   sync.Once
}

// NewMemoryCache returns a MemoryCache with the given shard count. A positive
// cleanupInterval starts a janitor goroutine that runs until Close.
func NewMemoryCache(shards int, cleanupInterval time.Duration) *MemoryCache {
	if shards <= 0 {
		shards = 32
	}
	c := &MemoryCache{
		shards: make([]*shard, shards),
		now:    time.Now,
		stop:   make(chan struct{}),
	}
	for i := range c.shards {
		c.shards[i] = &shard{entries: make(map[string]entry)}
	}
	if cleanupInterval > 0 {
		go c.janitor(cleanupInterval)
	}
	return c
}

func (c *MemoryCache) shardFor(key string) *shard {
	h := fnv.New32a()
	h.Write([]byte(key))
	return c.shards[h.Sum32()%uint32(len(c.shards))]
}

// Get returns the value for key if it has not expired.
func (c *MemoryCache) Get(ctx context.Context, key string) (string, bool, error) {
	s := c.shardFor(key)
	now := c.now()

	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return "", false, nil
	}
	if !now.Before(e.expiresAt) {
		s.mu.Lock()
		// Re-check: a concurrent Set may have refreshed the entry.
		if cur, ok := s.entries[key]; ok && !now.Before(cur.expiresAt) {
			delete(s.entries, key)
		}
		s.mu.Unlock()
		return "", false, nil
	}
	return e.value, true, nil
}

// Set stores value under key for ttl. Non-positive ttl falls back to DefaultTTL.
func (c *MemoryCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s := c.shardFor(key)
	e := entry{value: value, expiresAt: c.now().Add(ttl)}

	s.mu.Lock()
	s.entries[key] = e
	s.mu.Unlock()
	return nil
}

// Len returns the number of stored entries, expired or not.
func (c *MemoryCache) Len() int {
	n := 0
	for _, s := range c.shards {
		s.mu.RLock()
		n += len(s.entries)
		s.mu.RUnlock()
	}
	return n
}

// DeleteExpired removes every expired entry.
func (c *MemoryCache) DeleteExpired() {
	now := c.now()
	for _, s := range c.shards {
		s.mu.Lock()
		for key, e := range s.entries {
			if !now.Before(e.expiresAt) {
				delete(s.entries, key)
			}
		}
		s.mu.Unlock()
	}
}

func (c *MemoryCache) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.DeleteExpired()
		case <-c.stop:
			return
		}
	}
}

// Close stops the janitor. The cache stays usable afterwards.
func (c *MemoryCache) Close() error {
	c.once.Do(func() { close(c.stop) })
	return nil
}
