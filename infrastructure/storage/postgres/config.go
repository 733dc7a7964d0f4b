// Package postgres provides a PostgreSQL-backed result store.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/tracelog"

	"github.com/felixgeelhaar/react-agent/infrastructure/logging"
)

// ErrConnectionFailed is returned when the pool cannot reach the server.
var ErrConnectionFailed = errors.New("postgres: connection failed")

// DefaultDSN points at a local server.
const DefaultDSN = "postgres://postgres@localhost:5432/react_agent?sslmode=disable"

// Config configures the connection pool behind the result store.
type Config struct {
	// DSN is a URL or keyword/value connection string.
	DSN string

	// Database overrides the database named in DSN.
	Database string

	// Schema holds the results table.
	Schema string

	MaxConns        int32
	MinConns        int32
	MaxConnIdleTime time.Duration
	ConnectTimeout  time.Duration

	// QueryLogLevel logs queries at or above this pgx level through the
	// agent log. LogLevelNone disables query logging.
	QueryLogLevel tracelog.LogLevel
}

// DefaultConfig returns a small pool on DefaultDSN that logs query errors.
func DefaultConfig() Config {
	return Config{
		DSN:             DefaultDSN,
		Schema:          "public",
		MaxConns:        4,
		MinConns:        1,
		MaxConnIdleTime: 30 * time.Minute,
		ConnectTimeout:  10 * time.Second,
		QueryLogLevel:   tracelog.LogLevelError,
	}
}

// poolConfig parses the DSN and applies the pool settings.
func (c Config) poolConfig() (*pgxpool.Config, error) {
	dsn := c.DSN
	if dsn == "" {
		dsn = DefaultDSN
	}
	pc, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	if c.Database != "" {
		pc.ConnConfig.Database = c.Database
	}
	if c.MaxConns > 0 {
		pc.MaxConns = c.MaxConns
	}
	if c.MinConns > 0 {
		pc.MinConns = c.MinConns
	}
	if c.MaxConnIdleTime > 0 {
		pc.MaxConnIdleTime = c.MaxConnIdleTime
	}
	if c.ConnectTimeout > 0 {
		pc.ConnConfig.ConnectTimeout = c.ConnectTimeout
	}
	if c.QueryLogLevel != tracelog.LogLevelNone && c.QueryLogLevel != 0 {
		pc.ConnConfig.Tracer = &tracelog.TraceLog{
			Logger:   tracelog.LoggerFunc(logQuery),
			LogLevel: c.QueryLogLevel,
		}
	}
	return pc, nil
}

func logQuery(_ context.Context, level tracelog.LogLevel, msg string, data map[string]any) {
	var e *logging.LogEvent
	switch level {
	case tracelog.LogLevelError:
		e = logging.Error()
	case tracelog.LogLevelWarn:
		e = logging.Warn()
	case tracelog.LogLevelInfo:
		e = logging.Info()
	default:
		e = logging.Debug()
	}
	e = e.Add(logging.Component("postgres"))
	if sql, ok := data["sql"].(string); ok {
		e = e.Add(logging.Str("sql", sql))
	}
	if err, ok := data["err"].(error); ok {
		e = e.Add(logging.ErrorField(err))
	}
	e.Msg(msg)
}

// NewPool creates a connection pool and verifies it with a ping.
func NewPool(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	pc, err := cfg.poolConfig()
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Join(ErrConnectionFailed, err)
	}
	return pool, nil
}
