// Package badger provides BadgerDB-backed result and cache storage.
package badger

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/felixgeelhaar/react-agent/infrastructure/logging"
)

// ErrConnectionFailed is returned when the database cannot be opened.
var ErrConnectionFailed = errors.New("badger: connection failed")

// Config configures a BadgerDB store.
type Config struct {
	// Dir holds the database files. Empty keeps everything in memory.
	Dir string

	// SyncWrites fsyncs every write.
	SyncWrites bool

	// KeyPrefix namespaces keys so results and cache can share a directory.
	KeyPrefix string

	// GCInterval spaces value log garbage collection. Zero disables it.
	GCInterval     time.Duration
	GCDiscardRatio float64

	// ValueLogFileSize caps one value log file in bytes.
	ValueLogFileSize int64
}

// DefaultConfig returns an in-memory configuration with periodic GC.
func DefaultConfig() Config {
	return Config{
		GCInterval:       5 * time.Minute,
		GCDiscardRatio:   0.5,
		ValueLogFileSize: 64 << 20,
	}
}

// InDir returns DefaultConfig stored under dir.
func InDir(dir string) Config {
	cfg := DefaultConfig()
	cfg.Dir = dir
	return cfg
}

func openDB(cfg Config) (*badger.DB, error) {
	opts := badger.DefaultOptions(cfg.Dir).
		WithInMemory(cfg.Dir == "").
		WithSyncWrites(cfg.SyncWrites).
		WithNumVersionsToKeep(1).
		WithLogger(dbLogger{dir: cfg.Dir})
	if cfg.ValueLogFileSize > 0 {
		opts = opts.WithValueLogFileSize(cfg.ValueLogFileSize)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Join(ErrConnectionFailed, err)
	}
	return db, nil
}

// dbLogger forwards Badger's warnings and errors to the agent log.
type dbLogger struct {
	dir string
}

func (l dbLogger) event(e *logging.LogEvent, format string, args []any) {
	e.Add(logging.Component("badger")).
		Add(logging.Str("dir", l.dir)).
		Msg(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l dbLogger) Errorf(format string, args ...any)   { l.event(logging.Error(), format, args) }
func (l dbLogger) Warningf(format string, args ...any) { l.event(logging.Warn(), format, args) }
func (l dbLogger) Infof(string, ...any)                {}
func (l dbLogger) Debugf(string, ...any)               {}

// gcLoop runs value log garbage collection until stopped.
type gcLoop struct {
	stop chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

func startGC(db *badger.DB, interval time.Duration, discardRatio float64) *gcLoop {
	g := &gcLoop{stop: make(chan struct{})}
	if interval <= 0 || db.Opts().InMemory {
		return g
	}

	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-g.stop:
				return
			case <-ticker.C:
				for db.RunValueLogGC(discardRatio) == nil {
				}
			}
		}
	}()
	return g
}

func (g *gcLoop) Stop() {
	g.once.Do(func() { close(g.stop) })
	g.wg.Wait()
}

var _ badger.Logger = dbLogger{}
