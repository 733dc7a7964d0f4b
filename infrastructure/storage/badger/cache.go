package badger

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/felixgeelhaar/react-agent/domain/cache"
)

// Cache keeps observations under "<prefix>cache:" and lets Badger expire
// them through entry TTLs.
type Cache struct {
	db         *badger.DB
	ns         []byte
	defaultTTL time.Duration
	counters   cache.Counters
	gc         *gcLoop
	ownsDB     bool
}

// NewCache opens a database for the cache alone. Entries stored without a
// TTL expire after defaultTTL, or never when it is zero.
func NewCache(cfg Config, defaultTTL time.Duration) (*Cache, error) {
	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}
	c := NewCacheFromDB(db, cfg.KeyPrefix, defaultTTL)
	c.gc = startGC(db, cfg.GCInterval, cfg.GCDiscardRatio)
	c.ownsDB = true
	return c, nil
}

// NewCacheFromDB shares db with a RunStore. Close leaves db open.
func NewCacheFromDB(db *badger.DB, keyPrefix string, defaultTTL time.Duration) *Cache {
	return &Cache{
		db:         db,
		ns:         []byte(keyPrefix + "cache:"),
		defaultTTL: defaultTTL,
		gc:         startGC(db, 0, 0),
	}
}

func (c *Cache) key(k string) []byte {
	return append(append(make([]byte, 0, len(c.ns)+len(k)), c.ns...), k...)
}

// read runs fn on the item under key. It reports false, without error, when
// the key is absent or expired.
func (c *Cache) read(ctx context.Context, key string, fn func(*badger.Item) error) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(c.key(key))
		if err != nil {
			return err
		}
		if fn == nil {
			return nil
		}
		return fn(item)
	})
	switch {
	case errors.Is(err, badger.ErrKeyNotFound):
		return false, nil
	case err != nil:
		return false, err
	}
	return true, nil
}

func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	found, err := c.read(ctx, key, func(item *badger.Item) (err error) {
		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	if !c.counters.Lookup(found) {
		return nil, false, nil
	}
	return value, true, nil
}

func (c *Cache) Exists(ctx context.Context, key string) (bool, error) {
	return c.read(ctx, key, nil)
}

func (c *Cache) Set(ctx context.Context, key string, value []byte, opts cache.SetOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if key == "" {
		return cache.ErrInvalidKey
	}

	entry := badger.NewEntry(c.key(key), value)
	if ttl := entryTTL(opts.TTL, c.defaultTTL); ttl > 0 {
		entry = entry.WithTTL(ttl)
	}
	return c.db.Update(func(txn *badger.Txn) error { return txn.SetEntry(entry) })
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.db.Update(func(txn *badger.Txn) error { return txn.Delete(c.key(key)) })
}

// Clear drops the cache namespace. Runs stored in a shared database stay.
func (c *Cache) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.db.DropPrefix(c.ns)
}

// Stats counts live keys with a key-only scan.
func (c *Cache) Stats() cache.Stats {
	var live int64
	_ = c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = c.ns
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			live++
		}
		return nil
	})
	return c.counters.Snapshot(live)
}

func (c *Cache) Close() error {
	c.gc.Stop()
	if c.ownsDB {
		return c.db.Close()
	}
	return nil
}

// entryTTL prefers the per-entry TTL.
func entryTTL(entry, fallback time.Duration) time.Duration {
	if entry > 0 {
		return entry
	}
	return fallback
}

var (
	_ cache.Cache         = (*Cache)(nil)
	_ cache.StatsProvider = (*Cache)(nil)
)
