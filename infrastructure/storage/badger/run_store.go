package badger

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/felixgeelhaar/react-agent/domain/agent"
	"github.com/felixgeelhaar/react-agent/domain/run"
)

// RunStore is a BadgerDB-backed implementation of run.Store.
type RunStore struct {
	db        *badger.DB
	keyPrefix string
	gc        *gcLoop
	ownsDB    bool
}

// NewRunStore opens a BadgerDB run store.
func NewRunStore(cfg Config) (*RunStore, error) {
	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}

	return &RunStore{
		db:        db,
		keyPrefix: cfg.KeyPrefix,
		gc:        startGC(db, cfg.GCInterval, cfg.GCDiscardRatio),
		ownsDB:    true,
	}, nil
}

// NewRunStoreFromDB creates a run store on an existing database. Close
// leaves the database open.
func NewRunStoreFromDB(db *badger.DB, keyPrefix string) *RunStore {
	return &RunStore{db: db, keyPrefix: keyPrefix, gc: startGC(db, 0, 0)}
}

func (s *RunStore) prefix() []byte {
	return []byte(s.keyPrefix + "result:")
}

func (s *RunStore) key(id string) []byte {
	return append(s.prefix(), id...)
}

// Save persists a terminal result.
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

	return s.db.Update(func(txn *badger.Txn) error {
		k := s.key(r.RunID)
		_, err := txn.Get(k)
		if err == nil {
			return run.ErrRunExists
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(k, data)
	})
}

// Get retrieves a result by run ID.
func (s *RunStore) Get(ctx context.Context, id string) (agent.Result, error) {
	if err := ctx.Err(); err != nil {
		return agent.Result{}, err
	}
	if id == "" {
		return agent.Result{}, run.ErrInvalidRunID
	}

	var r agent.Result
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(s.key(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &r)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return agent.Result{}, run.ErrRunNotFound
	}
	if err != nil {
		return agent.Result{}, err
	}
	return r, nil
}

// Delete removes a result by run ID.
func (s *RunStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if id == "" {
		return run.ErrInvalidRunID
	}

	return s.db.Update(func(txn *badger.Txn) error {
		k := s.key(id)
		if _, err := txn.Get(k); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return run.ErrRunNotFound
			}
			return err
		}
		return txn.Delete(k)
	})
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

	var out []agent.Result
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = s.prefix()

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var r agent.Result
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &r)
			})
			if err != nil {
				continue
			}
			out = append(out, r)
		}
		return nil
	})
	return out, err
}

// Close stops garbage collection and closes the database if the store
// opened it.
func (s *RunStore) Close() error {
	s.gc.Stop()
	if !s.ownsDB {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying BadgerDB database.
func (s *RunStore) DB() *badger.DB {
	return s.db
}

var _ run.Store = (*RunStore)(nil)
