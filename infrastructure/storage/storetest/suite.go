// Package storetest exercises run.Store implementations against a shared
// set of behaviours.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/felixgeelhaar/react-agent/domain/agent"
	"github.com/felixgeelhaar/react-agent/domain/run"
)

// Result builds a terminal result fixture.
func Result(id, query string, status agent.Status, started time.Time) agent.Result {
	r := agent.Result{
		RunID:          id,
		Query:          query,
		Status:         status,
		IterationCount: 1,
		StartedAt:      started.UTC().Truncate(time.Millisecond),
		EndedAt:        started.Add(time.Second).UTC().Truncate(time.Millisecond),
		ElapsedTime:    time.Second,
		History: []agent.Step{{
			Reasoning:   "look it up",
			Action:      "search_action",
			Args:        map[string]any{"query": query},
			Observation: "found",
			Succeeded:   true,
			Timestamp:   started.UTC().Truncate(time.Millisecond),
		}},
	}
	switch status {
	case agent.StatusFinished:
		r.FinalAnswer = "answer to " + query
	case agent.StatusFailed:
		r.Error = "oracle unavailable"
	}
	return r
}

// Run executes the shared run.Store behaviours. newStore must return an
// empty store for every call.
func Run(t *testing.T, newStore func(t *testing.T) run.Store) {
	t.Helper()

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("save and get", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		want := Result("run-1", "Weather in Hanoi", agent.StatusFinished, base)
		if err := store.Save(ctx, want); err != nil {
			t.Fatalf("Save() error = %v", err)
		}

		got, err := store.Get(ctx, "run-1")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got.Query != want.Query {
			t.Errorf("Query = %q, want %q", got.Query, want.Query)
		}
		if got.Status != want.Status {
			t.Errorf("Status = %v, want %v", got.Status, want.Status)
		}
		if got.FinalAnswer != want.FinalAnswer {
			t.Errorf("FinalAnswer = %q, want %q", got.FinalAnswer, want.FinalAnswer)
		}
		if len(got.History) != 1 || got.History[0].Action != "search_action" {
			t.Errorf("History = %+v, want one search_action step", got.History)
		}
		if !got.StartedAt.Equal(want.StartedAt) {
			t.Errorf("StartedAt = %v, want %v", got.StartedAt, want.StartedAt)
		}
	})

	t.Run("duplicate save", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		r := Result("dup", "q", agent.StatusFinished, base)
		if err := store.Save(ctx, r); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		if err := store.Save(ctx, r); !errors.Is(err, run.ErrRunExists) {
			t.Errorf("Save() error = %v, want ErrRunExists", err)
		}
	})

	t.Run("invalid input", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		if err := store.Save(ctx, agent.Result{Status: agent.StatusFinished}); !errors.Is(err, run.ErrInvalidRunID) {
			t.Errorf("Save() error = %v, want ErrInvalidRunID", err)
		}
		if err := store.Save(ctx, agent.Result{RunID: "r", Status: agent.StatusRunning}); !errors.Is(err, run.ErrNotTerminal) {
			t.Errorf("Save() error = %v, want ErrNotTerminal", err)
		}
		if _, err := store.Get(ctx, ""); !errors.Is(err, run.ErrInvalidRunID) {
			t.Errorf("Get() error = %v, want ErrInvalidRunID", err)
		}
	})

	t.Run("missing", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		if _, err := store.Get(ctx, "nope"); !errors.Is(err, run.ErrRunNotFound) {
			t.Errorf("Get() error = %v, want ErrRunNotFound", err)
		}
		if err := store.Delete(ctx, "nope"); !errors.Is(err, run.ErrRunNotFound) {
			t.Errorf("Delete() error = %v, want ErrRunNotFound", err)
		}
	})

	t.Run("delete", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		if err := store.Save(ctx, Result("gone", "q", agent.StatusExhausted, base)); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		if err := store.Delete(ctx, "gone"); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if _, err := store.Get(ctx, "gone"); !errors.Is(err, run.ErrRunNotFound) {
			t.Errorf("Get() after Delete error = %v, want ErrRunNotFound", err)
		}
	})

	t.Run("list and count", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		statuses := []agent.Status{agent.StatusFinished, agent.StatusFailed, agent.StatusExhausted, agent.StatusFinished}
		for i, s := range statuses {
			r := Result(fmt.Sprintf("run-%d", i), fmt.Sprintf("query %d about Hanoi", i), s, base.Add(time.Duration(i)*time.Minute))
			if err := store.Save(ctx, r); err != nil {
				t.Fatalf("Save() error = %v", err)
			}
		}

		all, err := store.List(ctx, run.ListFilter{})
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(all) != 4 {
			t.Fatalf("List() len = %d, want 4", len(all))
		}
		if all[0].RunID != "run-0" || all[3].RunID != "run-3" {
			t.Errorf("List() order = %s..%s, want run-0..run-3", all[0].RunID, all[3].RunID)
		}

		finished, err := store.List(ctx, run.ListFilter{Statuses: []agent.Status{agent.StatusFinished}, Descending: true})
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(finished) != 2 || finished[0].RunID != "run-3" {
			t.Errorf("List(finished, desc) = %v, want [run-3 run-0]", ids(finished))
		}

		page, err := store.List(ctx, run.ListFilter{Limit: 2, Offset: 1})
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(page) != 2 || page[0].RunID != "run-1" {
			t.Errorf("List(page) = %v, want [run-1 run-2]", ids(page))
		}

		recent, err := store.List(ctx, run.ListFilter{From: base.Add(2 * time.Minute)})
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(recent) != 2 {
			t.Errorf("List(from) = %v, want 2 results", ids(recent))
		}

		matched, err := store.List(ctx, run.ListFilter{QueryContains: "query 2"})
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(matched) != 1 || matched[0].RunID != "run-2" {
			t.Errorf("List(query) = %v, want [run-2]", ids(matched))
		}

		n, err := store.Count(ctx, run.ListFilter{Statuses: []agent.Status{agent.StatusFinished}, Limit: 1})
		if err != nil {
			t.Fatalf("Count() error = %v", err)
		}
		if n != 2 {
			t.Errorf("Count() = %d, want 2", n)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		store := newStore(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if err := store.Save(ctx, Result("c", "q", agent.StatusFinished, base)); err == nil {
			t.Error("Save() with cancelled context should fail")
		}
	})
}

func ids(rs []agent.Result) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.RunID
	}
	return out
}
