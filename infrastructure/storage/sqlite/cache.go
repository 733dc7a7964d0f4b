package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/felixgeelhaar/react-agent/domain/cache"
)

const (
	cacheSchema = `
CREATE TABLE IF NOT EXISTS tool_cache (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	expires_at INTEGER
);
CREATE INDEX IF NOT EXISTS idx_tool_cache_expires_at ON tool_cache(expires_at);`

	// Expiry is stored as unix milliseconds; NULL never expires.
	liveRow = `(expires_at IS NULL OR expires_at > ?)`
	ownRow  = `substr(key, 1, ?) = ?`

	cacheSelect = `SELECT value FROM tool_cache WHERE key = ? AND ` + liveRow
	cacheExists = `SELECT 1 FROM tool_cache WHERE key = ? AND ` + liveRow
	cacheUpsert = `INSERT INTO tool_cache (key, value, expires_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`
	cacheDelete = `DELETE FROM tool_cache WHERE key = ?`
	cacheClear  = `DELETE FROM tool_cache WHERE ` + ownRow
	cacheExpire = `DELETE FROM tool_cache WHERE expires_at IS NOT NULL AND expires_at <= ? AND ` + ownRow
	cacheCount  = `SELECT COUNT(*) FROM tool_cache WHERE ` + ownRow + ` AND ` + liveRow
)

// Cache keeps observations in the tool_cache table. Keys are stored with
// the configured prefix so several agents can share one file.
type Cache struct {
	db         *sql.DB
	prefix     string
	defaultTTL time.Duration
	counters   cache.Counters
	ownsDB     bool
	now        func() time.Time
}

// NewCache opens a database for the cache alone. Entries stored without a
// TTL expire after defaultTTL, or never when it is zero.
func NewCache(cfg Config, defaultTTL time.Duration) (*Cache, error) {
	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}
	c, err := NewCacheFromDB(db, cfg.KeyPrefix, defaultTTL)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	c.ownsDB = true
	return c, nil
}

// NewCacheFromDB shares db with a RunStore. Close leaves db open.
func NewCacheFromDB(db *sql.DB, keyPrefix string, defaultTTL time.Duration) (*Cache, error) {
	if _, err := db.Exec(cacheSchema); err != nil {
		return nil, errors.Join(ErrMigrationFailed, err)
	}
	return &Cache{db: db, prefix: keyPrefix, defaultTTL: defaultTTL, now: time.Now}, nil
}

// Get treats expired rows as misses. Cleanup deletes them.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	var value []byte
	err := c.db.QueryRowContext(ctx, cacheSelect, c.prefix+key, millis(c.now())).Scan(&value)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, false, err
	}
	if !c.counters.Lookup(err == nil) {
		return nil, false, nil
	}
	return value, true, nil
}

func (c *Cache) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	var one int
	err := c.db.QueryRowContext(ctx, cacheExists, c.prefix+key, millis(c.now())).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func (c *Cache) Set(ctx context.Context, key string, value []byte, opts cache.SetOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if key == "" {
		return cache.ErrInvalidKey
	}

	var expiresAt sql.NullInt64
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	if ttl > 0 {
		expiresAt = sql.NullInt64{Int64: millis(c.now().Add(ttl)), Valid: true}
	}
	_, err := c.db.ExecContext(ctx, cacheUpsert, c.prefix+key, value, expiresAt)
	return err
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := c.db.ExecContext(ctx, cacheDelete, c.prefix+key)
	return err
}

// Clear removes the rows under the cache's prefix.
func (c *Cache) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := c.db.ExecContext(ctx, cacheClear, len(c.prefix), c.prefix)
	return err
}

// Cleanup deletes expired rows under the prefix and returns how many went.
func (c *Cache) Cleanup(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	res, err := c.db.ExecContext(ctx, cacheExpire, millis(c.now()), len(c.prefix), c.prefix)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Stats sizes the cache by its live rows.
func (c *Cache) Stats() cache.Stats {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var live int64
	_ = c.db.QueryRowContext(ctx, cacheCount, len(c.prefix), c.prefix, millis(c.now())).Scan(&live)
	return c.counters.Snapshot(live)
}

func (c *Cache) Close() error {
	if c.ownsDB {
		return c.db.Close()
	}
	return nil
}

var (
	_ cache.Cache         = (*Cache)(nil)
	_ cache.StatsProvider = (*Cache)(nil)
)
