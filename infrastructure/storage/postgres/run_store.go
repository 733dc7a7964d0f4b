package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/felixgeelhaar/react-agent/domain/agent"
	"github.com/felixgeelhaar/react-agent/domain/run"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// uniqueViolation is the SQLSTATE for duplicate keys.
const uniqueViolation = "23505"

// RunStore is a PostgreSQL-backed implementation of run.Store. The full
// result is kept as JSONB next to indexed filter columns.
type RunStore struct {
	pool   *pgxpool.Pool
	schema string
}

// NewRunStore creates a PostgreSQL run store.
func NewRunStore(pool *pgxpool.Pool, schema string) *RunStore {
	if schema == "" {
		schema = "public"
	}
	return &RunStore{
		pool:   pool,
		schema: schema,
	}
}

func (s *RunStore) tableName() string {
	return pgx.Identifier{s.schema, "results"}.Sanitize()
}

// Migrate creates the results table and its indexes.
func (s *RunStore) Migrate(ctx context.Context) error {
	table := s.tableName()
	statements := []string{
		fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %s`, pgx.Identifier{s.schema}.Sanitize()),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			query TEXT NOT NULL,
			status TEXT NOT NULL,
			iteration_count INTEGER NOT NULL,
			data JSONB NOT NULL,
			started_at TIMESTAMPTZ NOT NULL,
			ended_at TIMESTAMPTZ
		)`, table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS results_status_idx ON %s (status)`, table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS results_started_at_idx ON %s (started_at)`, table),
	}
	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return s.wrapError(err)
		}
	}
	return nil
}

// Save persists a terminal result.
func (s *RunStore) Save(ctx context.Context, r agent.Result) error {
	if err := run.Validate(r); err != nil {
		return err
	}

	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	var endedAt *time.Time
	if !r.EndedAt.IsZero() {
		endedAt = &r.EndedAt
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, query, status, iteration_count, data, started_at, ended_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, s.tableName())

	_, err = s.pool.Exec(ctx, query,
		r.RunID,
		r.Query,
		string(r.Status),
		r.IterationCount,
		data,
		r.StartedAt,
		endedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return run.ErrRunExists
		}
		return s.wrapError(err)
	}
	return nil
}

// Get retrieves a result by run ID.
func (s *RunStore) Get(ctx context.Context, id string) (agent.Result, error) {
	if id == "" {
		return agent.Result{}, run.ErrInvalidRunID
	}

	query := fmt.Sprintf(`SELECT data FROM %s WHERE id = $1`, s.tableName())

	var data []byte
	if err := s.pool.QueryRow(ctx, query, id).Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return agent.Result{}, run.ErrRunNotFound
		}
		return agent.Result{}, s.wrapError(err)
	}

	var r agent.Result
	if err := json.Unmarshal(data, &r); err != nil {
		return agent.Result{}, fmt.Errorf("unmarshal result: %w", err)
	}
	return r, nil
}

// Delete removes a result by run ID.
func (s *RunStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return run.ErrInvalidRunID
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, s.tableName())
	tag, err := s.pool.Exec(ctx, query, id)
	if err != nil {
		return s.wrapError(err)
	}
	if tag.RowsAffected() == 0 {
		return run.ErrRunNotFound
	}
	return nil
}

// List returns results matching the filter.
func (s *RunStore) List(ctx context.Context, filter run.ListFilter) ([]agent.Result, error) {
	query, args := s.buildListQuery(filter)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, s.wrapError(err)
	}
	defer rows.Close()

	results := []agent.Result{}
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var r agent.Result
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("unmarshal result: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, s.wrapError(err)
	}
	return results, nil
}

// Count returns the number of results matching the filter.
func (s *RunStore) Count(ctx context.Context, filter run.ListFilter) (int64, error) {
	whereClause, args := buildWhereClause(filter)
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s %s`, s.tableName(), whereClause)

	var count int64
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, s.wrapError(err)
	}
	return count, nil
}

// Close releases the pool.
func (s *RunStore) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

func (s *RunStore) buildListQuery(filter run.ListFilter) (string, []any) {
	whereClause, args := buildWhereClause(filter)

	query := fmt.Sprintf(`SELECT data FROM %s %s`, s.tableName(), whereClause)

	direction := "ASC"
	if filter.Descending {
		direction = "DESC"
	}
	query += fmt.Sprintf(" ORDER BY %s %s NULLS LAST, id", filter.OrderBy.Column(), direction)

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}
	return query, args
}

func buildWhereClause(filter run.ListFilter) (string, []any) {
	var conditions []string
	var args []any

	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			statuses[i] = string(status)
		}
		args = append(args, statuses)
		conditions = append(conditions, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		conditions = append(conditions, fmt.Sprintf("started_at >= $%d", len(args)))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		conditions = append(conditions, fmt.Sprintf("started_at < $%d", len(args)))
	}
	if filter.QueryContains != "" {
		args = append(args, strings.ToLower(filter.QueryContains))
		conditions = append(conditions, fmt.Sprintf("strpos(lower(query), $%d) > 0", len(args)))
	}

	if len(conditions) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}

func (s *RunStore) wrapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return errors.Join(run.ErrOperationTimeout, err)
	}
	return errors.Join(run.ErrConnectionFailed, err)
}

var _ run.Store = (*RunStore)(nil)
