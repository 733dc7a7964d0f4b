package memory

import (
	"context"
	"sync"

	"github.com/felixgeelhaar/react-agent/domain/agent"
	"github.com/felixgeelhaar/react-agent/domain/run"
)

// RunStore keeps results for the life of the process. Results are cloned
// on the way in and out, so callers never share history with the store.
type RunStore struct {
	mu   sync.RWMutex
	runs map[string]agent.Result
}

func NewRunStore() *RunStore {
	return &RunStore{runs: make(map[string]agent.Result)}
}

func (s *RunStore) Save(ctx context.Context, r agent.Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := run.Validate(r); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.runs[r.RunID]; dup {
		return run.ErrRunExists
	}
	s.runs[r.RunID] = r.Clone()
	return nil
}

func (s *RunStore) Get(ctx context.Context, id string) (agent.Result, error) {
	if err := checkID(ctx, id); err != nil {
		return agent.Result{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.runs[id]
	if !ok {
		return agent.Result{}, run.ErrRunNotFound
	}
	return r.Clone(), nil
}

func (s *RunStore) Delete(ctx context.Context, id string) error {
	if err := checkID(ctx, id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[id]; !ok {
		return run.ErrRunNotFound
	}
	delete(s.runs, id)
	return nil
}

func (s *RunStore) List(ctx context.Context, filter run.ListFilter) ([]agent.Result, error) {
	all, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return filter.Apply(all), nil
}

func (s *RunStore) Count(ctx context.Context, filter run.ListFilter) (int64, error) {
	all, err := s.snapshot(ctx)
	if err != nil {
		return 0, err
	}
	return filter.Count(all), nil
}

func (s *RunStore) snapshot(ctx context.Context) ([]agent.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]agent.Result, 0, len(s.runs))
	for _, r := range s.runs {
		out = append(out, r.Clone())
	}
	return out, nil
}

// Clear drops every stored result.
func (s *RunStore) Clear() {
	s.mu.Lock()
	clear(s.runs)
	s.mu.Unlock()
}

func (s *RunStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.runs)
}

func checkID(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if id == "" {
		return run.ErrInvalidRunID
	}
	return nil
}

var _ run.Store = (*RunStore)(nil)
