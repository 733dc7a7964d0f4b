package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/mattn/go-sqlite3"

	"github.com/felixgeelhaar/react-agent/domain/agent"
	"github.com/felixgeelhaar/react-agent/domain/run"
)

const (
	resultsSchema = `
CREATE TABLE IF NOT EXISTS results (
	id              TEXT PRIMARY KEY,
	query           TEXT NOT NULL,
	status          TEXT NOT NULL,
	iteration_count INTEGER NOT NULL,
	data            BLOB NOT NULL,
	started_at      INTEGER NOT NULL,
	ended_at        INTEGER
);
CREATE INDEX IF NOT EXISTS idx_results_status ON results(status);
CREATE INDEX IF NOT EXISTS idx_results_started_at ON results(started_at);`

	resultInsert = `INSERT INTO results (id, query, status, iteration_count, data, started_at, ended_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`
	resultSelect = `SELECT data FROM results WHERE id = ?`
	resultDelete = `DELETE FROM results WHERE id = ?`
)

// RunStore keeps each result as a JSON document beside the columns that
// history filters on, so List and Count filter in SQL.
type RunStore struct {
	db *sql.DB
}

func NewRunStore(cfg Config) (*RunStore, error) {
	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}
	s, err := NewRunStoreFromDB(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewRunStoreFromDB creates the results table on db if needed.
func NewRunStoreFromDB(db *sql.DB) (*RunStore, error) {
	if _, err := db.Exec(resultsSchema); err != nil {
		return nil, errors.Join(ErrMigrationFailed, err)
	}
	return &RunStore{db: db}, nil
}

func (s *RunStore) Save(ctx context.Context, r agent.Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := run.Validate(r); err != nil {
		return err
	}
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}

	var endedAt sql.NullInt64
	if !r.EndedAt.IsZero() {
		endedAt = sql.NullInt64{Int64: millis(r.EndedAt), Valid: true}
	}
	_, err = s.db.ExecContext(ctx, resultInsert,
		r.RunID, r.Query, string(r.Status), r.IterationCount, data, millis(r.StartedAt), endedAt)
	if isUniqueViolation(err) {
		return run.ErrRunExists
	}
	return err
}

func (s *RunStore) Get(ctx context.Context, id string) (agent.Result, error) {
	var r agent.Result
	if err := ctx.Err(); err != nil {
		return r, err
	}
	if id == "" {
		return r, run.ErrInvalidRunID
	}

	var data []byte
	switch err := s.db.QueryRowContext(ctx, resultSelect, id).Scan(&data); {
	case errors.Is(err, sql.ErrNoRows):
		return r, run.ErrRunNotFound
	case err != nil:
		return r, err
	}
	err := json.Unmarshal(data, &r)
	return r, err
}

func (s *RunStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if id == "" {
		return run.ErrInvalidRunID
	}

	res, err := s.db.ExecContext(ctx, resultDelete, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return run.ErrRunNotFound
	}
	return nil
}

// List skips rows whose document no longer decodes.
func (s *RunStore) List(ctx context.Context, filter run.ListFilter) ([]agent.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	q := selectResults("data", filter)
	q.orderAndPage(filter)
	rows, err := s.db.QueryContext(ctx, q.String(), q.args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	results := []agent.Result{}
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var r agent.Result
		if json.Unmarshal(data, &r) == nil {
			results = append(results, r)
		}
	}
	return results, rows.Err()
}

// Count ignores the filter's paging.
func (s *RunStore) Count(ctx context.Context, filter run.ListFilter) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	q := selectResults("COUNT(*)", filter)
	var n int64
	err := s.db.QueryRowContext(ctx, q.String(), q.args...).Scan(&n)
	return n, err
}

func (s *RunStore) Close() error {
	return s.db.Close()
}

// DB exposes the connection so a Cache can share the file.
func (s *RunStore) DB() *sql.DB {
	return s.db
}

// query accumulates SQL text and its positional arguments.
type query struct {
	strings.Builder
	args  []any
	where bool
}

func (q *query) cond(expr string, args ...any) {
	if q.where {
		q.WriteString(" AND ")
	} else {
		q.WriteString(" WHERE ")
		q.where = true
	}
	q.WriteString(expr)
	q.args = append(q.args, args...)
}

func selectResults(cols string, f run.ListFilter) *query {
	q := &query{}
	q.WriteString("SELECT " + cols + " FROM results")

	if len(f.Statuses) > 0 {
		args := make([]any, len(f.Statuses))
		for i, st := range f.Statuses {
			args[i] = string(st)
		}
		q.cond("status IN (?"+strings.Repeat(", ?", len(args)-1)+")", args...)
	}
	if !f.From.IsZero() {
		q.cond("started_at >= ?", millis(f.From))
	}
	if !f.To.IsZero() {
		q.cond("started_at < ?", millis(f.To))
	}
	if f.QueryContains != "" {
		q.cond("instr(lower(query), ?) > 0", strings.ToLower(f.QueryContains))
	}
	return q
}

// orderAndPage sorts with id as the tie breaker. SQLite needs a LIMIT for
// OFFSET, and -1 means no limit.
func (q *query) orderAndPage(f run.ListFilter) {
	q.WriteString(" ORDER BY " + f.OrderBy.Column())
	if f.Descending {
		q.WriteString(" DESC")
	}
	q.WriteString(", id")

	if f.Limit <= 0 && f.Offset <= 0 {
		return
	}
	limit := f.Limit
	if limit <= 0 {
		limit = -1
	}
	q.WriteString(" LIMIT ? OFFSET ?")
	q.args = append(q.args, limit, f.Offset)
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey || se.ExtendedCode == sqlite3.ErrConstraintUnique
}

var _ run.Store = (*RunStore)(nil)
