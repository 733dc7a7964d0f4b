package memory

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/felixgeelhaar/react-agent/domain/cache"
)

type cacheEntry struct {
	value     []byte
	expiresAt time.Time
}

func (e cacheEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// Cache is an in-process LRU implementation of cache.Cache.
// Entries expire after the per-Set TTL, bounded by the cache-wide default.
type Cache struct {
	lru        *expirable.LRU[string, cacheEntry]
	defaultTTL time.Duration
	counters   cache.Counters
}

// CacheOption configures the cache.
type CacheOption func(*cacheOptions)

type cacheOptions struct {
	size int
	ttl  time.Duration
}

// WithMaxSize sets the maximum number of entries. Zero means unbounded.
func WithMaxSize(size int) CacheOption {
	return func(o *cacheOptions) {
		o.size = size
	}
}

// WithDefaultTTL sets the lifetime of entries stored without a TTL.
func WithDefaultTTL(ttl time.Duration) CacheOption {
	return func(o *cacheOptions) {
		o.ttl = ttl
	}
}

// NewCache creates a new in-memory cache holding 1000 entries by default.
func NewCache(opts ...CacheOption) *Cache {
	o := cacheOptions{size: 1000}
	for _, opt := range opts {
		opt(&o)
	}
	return &Cache{
		lru:        expirable.NewLRU[string, cacheEntry](o.size, nil, o.ttl),
		defaultTTL: o.ttl,
	}
}

// Get retrieves a value from the cache.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	entry, ok := c.lru.Get(key)
	if ok && entry.expired(time.Now()) {
		c.lru.Remove(key)
		ok = false
	}
	if !c.counters.Lookup(ok) {
		return nil, false, nil
	}
	return append([]byte(nil), entry.value...), true, nil
}

// Set stores a copy of value.
func (c *Cache) Set(ctx context.Context, key string, value []byte, opts cache.SetOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if key == "" {
		return cache.ErrInvalidKey
	}

	entry := cacheEntry{value: append([]byte(nil), value...)}
	if opts.TTL > 0 {
		entry.expiresAt = time.Now().Add(opts.TTL)
	}
	c.lru.Add(key, entry)
	return nil
}

// Delete removes a key.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.lru.Remove(key)
	return nil
}

// Exists reports whether an unexpired entry is present.
func (c *Cache) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	entry, ok := c.lru.Peek(key)
	return ok && !entry.expired(time.Now()), nil
}

// Clear removes all entries.
func (c *Cache) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.lru.Purge()
	return nil
}

func (c *Cache) Stats() cache.Stats {
	return c.counters.Snapshot(int64(c.lru.Len()))
}

// Len returns the number of entries, including ones awaiting expiry.
func (c *Cache) Len() int {
	return c.lru.Len()
}

var (
	_ cache.Cache         = (*Cache)(nil)
	_ cache.StatsProvider = (*Cache)(nil)
)
