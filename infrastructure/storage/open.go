// Package storage selects the run store and observation cache backends
// named in the runtime configuration.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/react-agent/domain/cache"
	"github.com/felixgeelhaar/react-agent/domain/config"
	"github.com/felixgeelhaar/react-agent/domain/run"
	"github.com/felixgeelhaar/react-agent/infrastructure/logging"
	"github.com/felixgeelhaar/react-agent/infrastructure/storage/badger"
	"github.com/felixgeelhaar/react-agent/infrastructure/storage/filesystem"
	"github.com/felixgeelhaar/react-agent/infrastructure/storage/memory"
	"github.com/felixgeelhaar/react-agent/infrastructure/storage/mongodb"
	"github.com/felixgeelhaar/react-agent/infrastructure/storage/postgres"
	"github.com/felixgeelhaar/react-agent/infrastructure/storage/redis"
	"github.com/felixgeelhaar/react-agent/infrastructure/storage/sqlite"
)

// ErrUnknownBackend indicates a backend name with no implementation.
var ErrUnknownBackend = errors.New("unknown storage backend")

// Backend names.
const (
	BackendNone     = "none"
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendBadger   = "badger"
	BackendMongoDB  = "mongodb"
	BackendRedis    = "redis"
)

// Default locations used when the configuration names none.
const (
	DefaultResultDir = "results"
	DefaultBadgerDir = "react-agent-data"
	DefaultCacheDir  = "react-agent-cache"
)

// Open returns the run store selected by cfg. The "none" backend returns a
// nil store and no error. Stores holding connections implement run.Closer.
func Open(ctx context.Context, cfg config.StorageConfig) (run.Store, error) {
	backend := cfg.Backend
	if backend == "" {
		backend = BackendNone
	}

	var (
		store run.Store
		err   error
	)
	switch backend {
	case BackendNone:
		return nil, nil
	case BackendMemory:
		store = memory.NewRunStore()
	case BackendFile:
		store, err = filesystem.NewRunStore(orDefault(cfg.Path, DefaultResultDir))
	case BackendSQLite:
		store, err = sqlite.NewRunStore(sqliteConfig(cfg.DSN, cfg.Path))
	case BackendPostgres:
		store, err = openPostgres(ctx, cfg)
	case BackendBadger:
		store, err = badger.NewRunStore(badger.InDir(orDefault(cfg.Path, DefaultBadgerDir)))
	case BackendMongoDB:
		store, err = openMongo(ctx, cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s run store: %w", backend, err)
	}

	logging.Debug().
		Add(logging.Component("storage")).
		Add(logging.Str("backend", backend)).
		Msg("run store opened")
	return store, nil
}

func openPostgres(ctx context.Context, cfg config.StorageConfig) (run.Store, error) {
	pcfg := postgres.DefaultConfig()
	pcfg.DSN = cfg.DSN
	pcfg.Database = cfg.Database
	pool, err := postgres.NewPool(ctx, pcfg)
	if err != nil {
		return nil, err
	}
	store := postgres.NewRunStore(pool, pcfg.Schema)
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

func openMongo(ctx context.Context, cfg config.StorageConfig) (run.Store, error) {
	mcfg := mongodb.DefaultConfig()
	mcfg.URI = cfg.DSN
	mcfg.Database = cfg.Database
	client, err := mongodb.NewClient(ctx, mcfg)
	if err != nil {
		return nil, err
	}
	collection := orDefault(cfg.Collection, "results")
	if err := client.CreateIndexes(ctx, collection); err != nil {
		_ = client.Close(ctx)
		return nil, err
	}
	return mongodb.NewRunStore(client, collection), nil
}

func sqliteConfig(dsn, path string) sqlite.Config {
	switch {
	case dsn != "":
		cfg := sqlite.DefaultConfig()
		cfg.DSN = dsn
		return cfg
	case path != "":
		return sqlite.AtPath(path)
	default:
		return sqlite.DefaultConfig()
	}
}

// OpenCache returns the observation cache selected by cfg. The "none"
// backend returns a nil cache and no error.
func OpenCache(cfg config.CacheConfig) (cache.Cache, error) {
	backend := cfg.Backend
	if backend == "" {
		backend = BackendNone
	}
	ttl := cfg.TTL.Duration()

	var (
		c   cache.Cache
		err error
	)
	switch backend {
	case BackendNone:
		return nil, nil
	case BackendMemory:
		c = memory.NewCache(memory.WithMaxSize(cfg.Size), memory.WithDefaultTTL(ttl))
	case BackendRedis:
		rcfg := redis.DefaultConfig()
		rcfg.DefaultTTL = ttl
		if cfg.RedisAddr != "" {
			rcfg.Address = cfg.RedisAddr
		}
		c, err = redis.NewCache(rcfg)
	case BackendSQLite:
		c, err = sqlite.NewCache(sqliteConfig("", cfg.Path), ttl)
	case BackendBadger:
		c, err = badger.NewCache(badger.InDir(orDefault(cfg.Path, DefaultCacheDir)), ttl)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s cache: %w", backend, err)
	}
	return c, nil
}

// Close releases v when it holds a connection. Nil and connectionless
// values are ignored.
func Close(v any) error {
	if c, ok := v.(run.Closer); ok {
		return c.Close()
	}
	return nil
}

// SaveTimeout bounds persisting one result after a run completes.
const SaveTimeout = 10 * time.Second

// Persist saves result when store is non-nil. Failures are logged and
// returned. The save outlives cancellation of ctx.
func Persist(ctx context.Context, store run.Store, result run.Record) error {
	if store == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), SaveTimeout)
	defer cancel()

	if err := store.Save(ctx, result); err != nil {
		logging.Warn().
			Add(logging.Component("storage")).
			Add(logging.RunID(result.RunID)).
			Add(logging.ErrorField(err)).
			Msg("failed to persist result")
		return err
	}
	return nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
