// Package filesystem stores task results as JSON files on local disk.
package filesystem

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/felixgeelhaar/react-agent/domain/agent"
	"github.com/felixgeelhaar/react-agent/domain/run"
	"github.com/felixgeelhaar/react-agent/infrastructure/logging"
)

const (
	filePrefix = "result_"
	fileSuffix = ".json"
)

// RunStore implements run.Store with one indented JSON file per result,
// named result_<id>.json.
type RunStore struct {
	dir string
	mu  sync.RWMutex
}

// NewRunStore creates a filesystem run store rooted at dir.
func NewRunStore(dir string) (*RunStore, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create result directory: %w", err)
	}
	return &RunStore{dir: dir}, nil
}

// Dir returns the directory results are written to.
func (s *RunStore) Dir() string {
	return s.dir
}

// Path returns the file a result with the given ID is stored in.
func (s *RunStore) Path(id string) string {
	return filepath.Join(s.dir, filePrefix+id+fileSuffix)
}

// Save writes a terminal result. The file is written to a temporary name
// and renamed so readers never see a partial document.
func (s *RunStore) Save(ctx context.Context, r agent.Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := run.Validate(r); err != nil {
		return err
	}
	if !validID(r.RunID) {
		return run.ErrInvalidRunID
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.Path(r.RunID)
	if _, err := os.Stat(path); err == nil {
		return run.ErrRunExists
	}

	tmp, err := os.CreateTemp(s.dir, ".result-*")
	if err != nil {
		return fmt.Errorf("failed to create result file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()           // #nosec G104 -- best-effort cleanup in error path
		os.Remove(tmp.Name()) // #nosec G104 -- best-effort cleanup in error path
		return fmt.Errorf("failed to write result: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name()) // #nosec G104 -- best-effort cleanup in error path
		return fmt.Errorf("failed to close result file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name()) // #nosec G104 -- best-effort cleanup in error path
		return fmt.Errorf("failed to store result: %w", err)
	}

	logging.ForRun(r.RunID).Debug().
		Add(logging.Str("path", path)).
		Msg("result saved")
	return nil
}

// Get reads a result by run ID.
func (s *RunStore) Get(ctx context.Context, id string) (agent.Result, error) {
	if err := ctx.Err(); err != nil {
		return agent.Result{}, err
	}
	if !validID(id) {
		return agent.Result{}, run.ErrInvalidRunID
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.read(s.Path(id))
}

// Delete removes a result file.
func (s *RunStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !validID(id) {
		return run.ErrInvalidRunID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.Path(id)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return run.ErrRunNotFound
		}
		return fmt.Errorf("failed to delete result: %w", err)
	}
	return nil
}

// List returns results matching the filter.
func (s *RunStore) List(ctx context.Context, filter run.ListFilter) ([]agent.Result, error) {
	all, err := s.all(ctx)
	if err != nil {
		return nil, err
	}
	return filter.Apply(all), nil
}

// Count returns the number of results matching the filter.
func (s *RunStore) Count(ctx context.Context, filter run.ListFilter) (int64, error) {
	all, err := s.all(ctx)
	if err != nil {
		return 0, err
	}
	return filter.Count(all), nil
}

func (s *RunStore) all(ctx context.Context) ([]agent.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read result directory: %w", err)
	}

	out := make([]agent.Result, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		r, err := s.read(filepath.Join(s.dir, name))
		if err != nil {
			logging.Warn().
				Add(logging.Str("file", name)).
				Add(logging.ErrorField(err)).
				Msg("skipping unreadable result")
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *RunStore) read(path string) (agent.Result, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is built from a validated run ID
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return agent.Result{}, run.ErrRunNotFound
		}
		return agent.Result{}, fmt.Errorf("failed to read result: %w", err)
	}

	var r agent.Result
	if err := json.Unmarshal(data, &r); err != nil {
		return agent.Result{}, fmt.Errorf("failed to decode result: %w", err)
	}
	return r, nil
}

func validID(id string) bool {
	if id == "" || id == "." || id == ".." {
		return false
	}
	return !strings.ContainsAny(id, `/\`)
}

var _ run.Store = (*RunStore)(nil)
