// Package config provides configuration settings for the link redirector service.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

// Backend names accepted by the cache, store and rate limiter factories.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
	BackendMySQL  = "mysql"
)

// Config holds the configuration settings for the application.
type Config struct {
	ServerPort      string        `env:"SERVER_PORT" envDefault:":3000"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"5s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	GinMode         string        `env:"GIN_MODE" envDefault:"release"`
	TrustedProxies  []string      `env:"TRUSTED_PROXIES" envSeparator:","`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	LogDevelopment  bool          `env:"LOG_DEVELOPMENT" envDefault:"false"`

	CacheBackend         string        `env:"CACHE_BACKEND" envDefault:"memory"`
	CacheTTL             time.Duration `env:"CACHE_TTL" envDefault:"1h"`
	CacheShards          int           `env:"CACHE_SHARDS" envDefault:"32"`
	CacheCleanupInterval time.Duration `env:"CACHE_CLEANUP_INTERVAL" envDefault:"1m"`

	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	RedisPoolSize int    `env:"REDIS_POOL_SIZE" envDefault:"10"`

	StoreDriver   string `env:"STORE_DRIVER" envDefault:"memory"`
	StoreCapacity int    `env:"STORE_CAPACITY" envDefault:"1000000"`
	DatabaseURL   string `env:"DATABASE_URL" envDefault:"file:links.db"`
	MySQLDSN      string `env:"MYSQL_DSN"`

	RateLimitBackend string        `env:"RATE_LIMIT_BACKEND" envDefault:"memory"`
	DisableRateLimit bool          `env:"DISABLE_RATE_LIMIT" envDefault:"false"`
	CreateLimit      int           `env:"CREATE_LIMIT" envDefault:"10"`
	CreateWindow     time.Duration `env:"CREATE_WINDOW" envDefault:"24h"`
	FollowLimit      int           `env:"FOLLOW_LIMIT" envDefault:"100"`
	FollowWindow     time.Duration `env:"FOLLOW_WINDOW" envDefault:"24h"`
	// Behaviour when the limiter backend itself fails: admit (open) or reject (closed).
	CreateFailOpen bool `env:"CREATE_FAIL_OPEN" envDefault:"false"`
	FollowFailOpen bool `env:"FOLLOW_FAIL_OPEN" envDefault:"true"`

	ShortCodeBytes int `env:"SHORT_CODE_BYTES" envDefault:"6"`
}

// DefaultConfig returns the default configuration settings.
func DefaultConfig() *Config {
	return &Config{
		ServerPort:           ":3000",
		RequestTimeout:       5 * time.Second,
		ShutdownTimeout:      10 * time.Second,
		GinMode:              "release",
		LogLevel:             "info",
		CacheBackend:         BackendMemory,
		CacheTTL:             time.Hour,
		CacheShards:          32,
		CacheCleanupInterval: time.Minute,
		RedisAddr:            "localhost:6379",
		RedisPoolSize:        10,
		StoreDriver:          BackendMemory,
		StoreCapacity:        1000000,
		DatabaseURL:          "file:links.db",
		RateLimitBackend:     BackendMemory,
		CreateLimit:          10,
		CreateWindow:         24 * time.Hour,
		FollowLimit:          100,
		FollowWindow:         24 * time.Hour,
		CreateFailOpen:       false,
		FollowFailOpen:       true,
		ShortCodeBytes:       6,
	}
}

// Load reads an optional .env file and then the process environment on top of
// the defaults.
func Load(envFiles ...string) (*Config, error) {
	// A missing .env file is normal outside local development.
	_ = godotenv.Load(envFiles...)

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first setting that cannot be used to start the service.
func (c *Config) Validate() error {
	switch {
	case c.CreateLimit <= 0 || c.CreateWindow <= 0:
		return errors.New("invalid create rate limit configuration")
	case c.FollowLimit <= 0 || c.FollowWindow <= 0:
		return errors.New("invalid follow rate limit configuration")
	case c.CacheTTL <= 0:
		return errors.New("cache TTL must be positive")
	case c.ShortCodeBytes <= 0:
		return errors.New("short code entropy must be positive")
	case c.RequestTimeout <= 0:
		return errors.New("request timeout must be positive")
	}

	if c.CacheBackend != BackendMemory && c.CacheBackend != BackendRedis {
		return fmt.Errorf("unknown cache backend %q", c.CacheBackend)
	}
	if c.RateLimitBackend != BackendMemory && c.RateLimitBackend != BackendRedis {
		return fmt.Errorf("unknown rate limit backend %q", c.RateLimitBackend)
	}
	switch c.StoreDriver {
	case BackendMemory, BackendSQLite:
	case BackendMySQL:
		if c.MySQLDSN == "" {
			return errors.New("MYSQL_DSN is required for the mysql store")
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.StoreDriver)
	}
	return nil
}

// RedisOptions returns client options for the shared Redis instance used by
// the redis cache and rate limiter backends.
func (c *Config) RedisOptions() *redis.Options {
	return &redis.Options{
		Addr:     c.RedisAddr,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
		PoolSize: c.RedisPoolSize,
	}
}
