// Package redis provides the Redis-backed observation cache.
package redis

import (
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds Redis connection settings.
type Config struct {
	// Address is host:port or a redis:// or rediss:// URL. A URL's password
	// and database take precedence over the fields below.
	Address  string
	Password string
	DB       int

	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int

	// KeyPrefix namespaces every key written by the cache.
	KeyPrefix string

	// DefaultTTL applies when a Set carries no TTL. Zero keeps entries until evicted.
	DefaultTTL time.Duration
}

// DefaultConfig returns a local-development configuration.
func DefaultConfig() Config {
	return Config{
		Address:      "localhost:6379",
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		KeyPrefix:    "react-agent:",
		DefaultTTL:   time.Hour,
	}
}

func (c Config) options() (*redis.Options, error) {
	opts := &redis.Options{Addr: c.Address, Password: c.Password, DB: c.DB}
	if strings.Contains(c.Address, "://") {
		parsed, err := redis.ParseURL(c.Address)
		if err != nil {
			return nil, fmt.Errorf("parse redis address: %w", err)
		}
		opts = parsed
	}
	opts.DialTimeout = c.DialTimeout
	opts.ReadTimeout = c.ReadTimeout
	opts.WriteTimeout = c.WriteTimeout
	opts.PoolSize = c.PoolSize
	return opts, nil
}
