// Package cache defines the observation cache used for cacheable tools.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sync/atomic"
	"time"
)

var (
	ErrInvalidKey       = errors.New("empty cache key")
	ErrConnectionFailed = errors.New("cache backend unreachable")
	ErrOperationTimeout = errors.New("cache call timed out")
)

// Cache stores encoded tool results by key. Implementations must be safe
// for concurrent use by the runs of a batch.
type Cache interface {
	// Get reports a miss as (nil, false, nil), not as an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, opts SetOptions) error
	// Delete ignores missing keys.
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	// Clear removes the entries this cache owns and nothing else under a
	// shared backend.
	Clear(ctx context.Context) error
}

type SetOptions struct {
	// TTL of the entry. Zero falls back to the backend default.
	TTL time.Duration
}

// Key derives the cache key of a tool invocation from its name and JSON
// input. The NUL separator keeps ("ab", "c") and ("a", "bc") apart.
func Key(toolName string, input []byte) string {
	h := sha256.New()
	h.Write([]byte(toolName))
	h.Write([]byte{0})
	h.Write(input)
	return hex.EncodeToString(h.Sum(nil))
}

type Stats struct {
	Hits   int64
	Misses int64
	Size   int64
}

// HitRate is zero before the first lookup.
func (s Stats) HitRate() float64 {
	lookups := s.Hits + s.Misses
	if lookups == 0 {
		return 0
	}
	return float64(s.Hits) / float64(lookups)
}

// StatsProvider is implemented by caches that count lookups.
type StatsProvider interface {
	Stats() Stats
}

// Counters counts lookups for backends. The zero value is ready to use.
type Counters struct {
	hits   atomic.Int64
	misses atomic.Int64
}

// Lookup records one Get and returns hit.
func (c *Counters) Lookup(hit bool) bool {
	if hit {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return hit
}

// Snapshot returns the counters with the backend's current size.
func (c *Counters) Snapshot(size int64) Stats {
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load(), Size: size}
}
