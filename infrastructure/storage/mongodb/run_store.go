package mongodb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/felixgeelhaar/react-agent/domain/agent"
	"github.com/felixgeelhaar/react-agent/domain/run"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// resultDocument is the MongoDB representation of a result. Filter fields
// are top-level; the full result is kept as its JSON encoding.
type resultDocument struct {
	ID             string     `bson:"_id"`
	Query          string     `bson:"query"`
	Status         string     `bson:"status"`
	IterationCount int        `bson:"iteration_count"`
	StartedAt      time.Time  `bson:"started_at"`
	EndedAt        *time.Time `bson:"ended_at,omitempty"`
	Data           string     `bson:"data"`
}

// RunStore is a MongoDB-backed implementation of run.Store.
type RunStore struct {
	collection   *mongo.Collection
	queryTimeout time.Duration
	client       *Client
}

// NewRunStore creates a MongoDB run store on the named collection.
func NewRunStore(client *Client, collectionName string) *RunStore {
	if collectionName == "" {
		collectionName = "results"
	}
	return &RunStore{
		collection:   client.Collection(collectionName),
		queryTimeout: client.config.QueryTimeout,
		client:       client,
	}
}

// Save persists a terminal result.
func (s *RunStore) Save(ctx context.Context, r agent.Result) error {
	if err := run.Validate(r); err != nil {
		return err
	}

	doc, err := toDocument(r)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	if _, err := s.collection.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
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

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	var doc resultDocument
	if err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return agent.Result{}, run.ErrRunNotFound
		}
		return agent.Result{}, s.wrapError(err)
	}
	return fromDocument(doc)
}

// Delete removes a result by run ID.
func (s *RunStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return run.ErrInvalidRunID
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	res, err := s.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return s.wrapError(err)
	}
	if res.DeletedCount == 0 {
		return run.ErrRunNotFound
	}
	return nil
}

// List returns results matching the filter.
func (s *RunStore) List(ctx context.Context, filter run.ListFilter) ([]agent.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	cursor, err := s.collection.Find(ctx, buildFilter(filter), buildFindOptions(filter))
	if err != nil {
		return nil, s.wrapError(err)
	}
	defer func() { _ = cursor.Close(ctx) }()

	results := []agent.Result{}
	for cursor.Next(ctx) {
		var doc resultDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, s.wrapError(err)
		}
		r, err := fromDocument(doc)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	if err := cursor.Err(); err != nil {
		return nil, s.wrapError(err)
	}
	return results, nil
}

// Count returns the number of results matching the filter.
func (s *RunStore) Count(ctx context.Context, filter run.ListFilter) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	count, err := s.collection.CountDocuments(ctx, buildFilter(filter))
	if err != nil {
		return 0, s.wrapError(err)
	}
	return count, nil
}

// Close disconnects the underlying client.
func (s *RunStore) Close() error {
	if s.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.queryTimeout)
	defer cancel()
	return s.client.Close(ctx)
}

func buildFilter(filter run.ListFilter) bson.M {
	m := bson.M{}

	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			statuses[i] = string(status)
		}
		m["status"] = bson.M{"$in": statuses}
	}

	started := bson.M{}
	if !filter.From.IsZero() {
		started["$gte"] = filter.From
	}
	if !filter.To.IsZero() {
		started["$lt"] = filter.To
	}
	if len(started) > 0 {
		m["started_at"] = started
	}

	if filter.QueryContains != "" {
		m["query"] = bson.M{"$regex": primitive.Regex{Pattern: regexp.QuoteMeta(filter.QueryContains), Options: "i"}}
	}
	return m
}

func buildFindOptions(filter run.ListFilter) *options.FindOptions {
	opts := options.Find()

	field := filter.OrderBy.Column()
	if field == "id" {
		field = "_id"
	}
	dir := 1
	if filter.Descending {
		dir = -1
	}
	opts.SetSort(bson.D{{Key: field, Value: dir}, {Key: "_id", Value: 1}})

	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}
	if filter.Offset > 0 {
		opts.SetSkip(int64(filter.Offset))
	}
	return opts
}

func toDocument(r agent.Result) (resultDocument, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return resultDocument{}, fmt.Errorf("marshal result: %w", err)
	}
	doc := resultDocument{
		ID:             r.RunID,
		Query:          r.Query,
		Status:         string(r.Status),
		IterationCount: r.IterationCount,
		StartedAt:      r.StartedAt,
		Data:           string(data),
	}
	if !r.EndedAt.IsZero() {
		ended := r.EndedAt
		doc.EndedAt = &ended
	}
	return doc, nil
}

func fromDocument(doc resultDocument) (agent.Result, error) {
	var r agent.Result
	if err := json.Unmarshal([]byte(doc.Data), &r); err != nil {
		return agent.Result{}, fmt.Errorf("unmarshal result: %w", err)
	}
	return r, nil
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
