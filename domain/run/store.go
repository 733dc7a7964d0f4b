// Package run defines persistence of completed task results.
package run

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/felixgeelhaar/react-agent/domain/agent"
)

// Record is the persisted form of a task result. Its key is RunID.
type Record = agent.Result

// Store persists task results keyed by run ID. Results are write-once.
type Store interface {
	// Save persists a terminal result.
	Save(ctx context.Context, result agent.Result) error

	// Get retrieves a result by run ID.
	Get(ctx context.Context, id string) (agent.Result, error)

	// Delete removes a result by run ID.
	Delete(ctx context.Context, id string) error

	// List returns results matching the filter.
	List(ctx context.Context, filter ListFilter) ([]agent.Result, error)

	// Count returns the number of results matching the filter, ignoring paging.
	Count(ctx context.Context, filter ListFilter) (int64, error)
}

// Closer is implemented by stores holding connections or file handles.
type Closer interface {
	Close() error
}

// ListFilter specifies criteria for listing results.
type ListFilter struct {
	// Statuses filters by terminal status (empty means all).
	Statuses []agent.Status

	// From keeps results started at or after this time.
	From time.Time

	// To keeps results started before this time.
	To time.Time

	// QueryContains keeps results whose query contains the text, case-insensitively.
	QueryContains string

	// Limit is the maximum number of results (0 = no limit).
	Limit int

	// Offset skips results for pagination.
	Offset int

	// OrderBy selects the sort key. Default is OrderByStartedAt.
	OrderBy OrderBy

	// Descending reverses the sort order.
	Descending bool
}

// OrderBy specifies how to sort results.
type OrderBy string

const (
	OrderByStartedAt OrderBy = "started_at"
	OrderByEndedAt   OrderBy = "ended_at"
	OrderByID        OrderBy = "id"
	OrderByStatus    OrderBy = "status"
)

// Validate checks a result before it is stored.
func Validate(result agent.Result) error {
	if result.RunID == "" {
		return ErrInvalidRunID
	}
	if !result.Status.IsTerminal() {
		return ErrNotTerminal
	}
	return nil
}

// Matches reports whether a result passes the filter's predicates.
func (f ListFilter) Matches(r agent.Result) bool {
	if len(f.Statuses) > 0 {
		found := false
		for _, s := range f.Statuses {
			if r.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if !f.From.IsZero() && r.StartedAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && !r.StartedAt.Before(f.To) {
		return false
	}
	if f.QueryContains != "" && !strings.Contains(strings.ToLower(r.Query), strings.ToLower(f.QueryContains)) {
		return false
	}
	return true
}

// Apply filters, sorts and pages results in memory. Stores without a query
// language use it after loading their records.
func (f ListFilter) Apply(results []agent.Result) []agent.Result {
	out := make([]agent.Result, 0, len(results))
	for _, r := range results {
		if f.Matches(r) {
			out = append(out, r)
		}
	}

	less := f.less()
	sort.SliceStable(out, func(i, j int) bool {
		if f.Descending {
			return less(out[j], out[i])
		}
		return less(out[i], out[j])
	})

	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return []agent.Result{}
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out
}

// Count returns how many results pass the predicates.
func (f ListFilter) Count(results []agent.Result) int64 {
	var n int64
	for _, r := range results {
		if f.Matches(r) {
			n++
		}
	}
	return n
}

func (f ListFilter) less() func(a, b agent.Result) bool {
	switch f.OrderBy {
	case OrderByEndedAt:
		return func(a, b agent.Result) bool { return a.EndedAt.Before(b.EndedAt) }
	case OrderByID:
		return func(a, b agent.Result) bool { return a.RunID < b.RunID }
	case OrderByStatus:
		return func(a, b agent.Result) bool { return a.Status < b.Status }
	default:
		return func(a, b agent.Result) bool { return a.StartedAt.Before(b.StartedAt) }
	}
}

// Column maps an OrderBy to the column name used by SQL stores.
func (o OrderBy) Column() string {
	switch o {
	case OrderByEndedAt:
		return "ended_at"
	case OrderByID:
		return "id"
	case OrderByStatus:
		return "status"
	default:
		return "started_at"
	}
}
