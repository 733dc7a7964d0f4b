// Package sqlite provides SQLite-backed result and cache storage.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Errors
var (
	ErrConnectionFailed = errors.New("sqlite: connection failed")
	ErrMigrationFailed  = errors.New("sqlite: migration failed")
)

// DefaultDSN is used when neither a DSN nor a path is configured.
const DefaultDSN = "file:react-agent.db?mode=rwc"

// Config configures a SQLite database. Tables are created on open.
type Config struct {
	DSN string

	// JournalMode is applied with PRAGMA journal_mode. Empty keeps the
	// driver default.
	JournalMode string

	// BusyTimeout makes writers wait for a locked database.
	BusyTimeout time.Duration

	// KeyPrefix namespaces cache keys.
	KeyPrefix string
}

// DefaultConfig returns a WAL configuration for DefaultDSN.
func DefaultConfig() Config {
	return Config{
		DSN:         DefaultDSN,
		JournalMode: "WAL",
		BusyTimeout: 5 * time.Second,
	}
}

// AtPath returns DefaultConfig for the database file at path, creating it
// when missing.
func AtPath(path string) Config {
	cfg := DefaultConfig()
	cfg.DSN = "file:" + filepath.ToSlash(path) + "?mode=rwc"
	return cfg
}

// openDB opens the database with one connection, which serialises writers
// the way SQLite requires.
func openDB(cfg Config) (*sql.DB, error) {
	if cfg.DSN == "" {
		cfg.DSN = DefaultDSN
	}

	db, err := sql.Open("sqlite3", cfg.DSN)
	if err != nil {
		return nil, errors.Join(ErrConnectionFailed, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	var pragmas []string
	if cfg.JournalMode != "" {
		pragmas = append(pragmas, "PRAGMA journal_mode="+cfg.JournalMode)
	}
	if cfg.BusyTimeout > 0 {
		pragmas = append(pragmas, fmt.Sprintf("PRAGMA busy_timeout=%d", cfg.BusyTimeout.Milliseconds()))
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, errors.Join(ErrConnectionFailed, fmt.Errorf("%s: %w", pragma, err))
		}
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.Join(ErrConnectionFailed, err)
	}
	return db, nil
}

func millis(t time.Time) int64 {
	return t.UnixMilli()
}
