package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/felixgeelhaar/react-agent/domain/cache"
	"github.com/felixgeelhaar/react-agent/infrastructure/logging"
)

// Cache is a Redis-backed implementation of cache.Cache, shared between
// processes running the same tools.
type Cache struct {
	client     *redis.Client
	keyPrefix  string
	defaultTTL time.Duration
	counters   cache.Counters
}

// NewCache connects to Redis and verifies the connection.
func NewCache(cfg Config) (*Cache, error) {
	opts, err := cfg.options()
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Join(cache.ErrConnectionFailed, err)
	}

	logging.Debug().
		Add(logging.Component("redis_cache")).
		Add(logging.Str("address", opts.Addr)).
		Msg("connected")

	return NewCacheFromClient(client, cfg.KeyPrefix, cfg.DefaultTTL), nil
}

// NewCacheFromClient wraps an existing client.
func NewCacheFromClient(client *redis.Client, keyPrefix string, defaultTTL time.Duration) *Cache {
	return &Cache{client: client, keyPrefix: keyPrefix, defaultTTL: defaultTTL}
}

func (c *Cache) key(k string) string {
	return c.keyPrefix + "obs:" + k
}

// Get retrieves a value.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	val, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, false, wrapError(err)
	}
	if !c.counters.Lookup(err == nil) {
		return nil, false, nil
	}
	return val, true, nil
}

// Set stores a value.
func (c *Cache) Set(ctx context.Context, key string, value []byte, opts cache.SetOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if key == "" {
		return cache.ErrInvalidKey
	}

	ttl := opts.TTL
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	return wrapError(c.client.Set(ctx, c.key(key), value, ttl).Err())
}

// Delete removes a key.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return wrapError(c.client.Del(ctx, c.key(key)).Err())
}

// Exists reports whether a key is present.
func (c *Cache) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	n, err := c.client.Exists(ctx, c.key(key)).Result()
	if err != nil {
		return false, wrapError(err)
	}
	return n > 0, nil
}

// Clear deletes every key under the cache's namespace.
func (c *Cache) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	iter := c.client.Scan(ctx, 0, c.key("*"), 100).Iterator()
	batch := make([]string, 0, 100)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == cap(batch) {
			if err := c.client.Del(ctx, batch...).Err(); err != nil {
				return wrapError(err)
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return wrapError(err)
	}
	if len(batch) > 0 {
		return wrapError(c.client.Del(ctx, batch...).Err())
	}
	return nil
}

// Stats returns hit and miss counters. Size is not tracked.
func (c *Cache) Stats() cache.Stats {
	return c.counters.Snapshot(0)
}

// Close closes the client.
func (c *Cache) Close() error {
	return c.client.Close()
}

func wrapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return errors.Join(cache.ErrOperationTimeout, err)
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return errors.Join(cache.ErrOperationTimeout, err)
	}
	return err
}

var (
	_ cache.Cache         = (*Cache)(nil)
	_ cache.StatsProvider = (*Cache)(nil)
)
