package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/felixgeelhaar/react-agent/domain/agent"
	"github.com/felixgeelhaar/react-agent/domain/run"
	"github.com/felixgeelhaar/react-agent/infrastructure/storage/memory"
	"github.com/felixgeelhaar/react-agent/infrastructure/storage/storetest"
)

func TestRunStore(t *testing.T) {
	t.Parallel()

	storetest.Run(t, func(t *testing.T) run.Store {
		return memory.NewRunStore()
	})
}

func TestRunStore_Isolation(t *testing.T) {
	t.Parallel()

	store := memory.NewRunStore()
	ctx := context.Background()

	r := storetest.Result("iso", "q", agent.StatusFinished, time.Now())
	if err := store.Save(ctx, r); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	r.History[0].Observation = "mutated"

	got, err := store.Get(ctx, "iso")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.History[0].Observation != "found" {
		t.Errorf("Observation = %q, want found", got.History[0].Observation)
	}
}

func TestRunStore_ClearAndLen(t *testing.T) {
	t.Parallel()

	store := memory.NewRunStore()
	ctx := context.Background()

	for _, id := range []string{"a", "b"} {
		if err := store.Save(ctx, storetest.Result(id, "q", agent.StatusExhausted, time.Now())); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}
	if store.Len() != 2 {
		t.Errorf("Len() = %d, want 2", store.Len())
	}

	store.Clear()
	if store.Len() != 0 {
		t.Errorf("Len() after Clear = %d, want 0", store.Len())
	}
}
