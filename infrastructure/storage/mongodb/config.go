// Package mongodb provides a MongoDB-backed result store.
package mongodb

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/event"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/felixgeelhaar/react-agent/infrastructure/logging"
)

// ErrConnectionFailed is returned when the server cannot be reached.
var ErrConnectionFailed = errors.New("mongodb: connection failed")

// Config configures the MongoDB client behind the result store.
type Config struct {
	URI      string
	Database string

	// AppName is reported to the server in the connection handshake.
	AppName string

	// ConnectTimeout bounds connecting and the initial ping.
	ConnectTimeout time.Duration

	// QueryTimeout bounds each store operation.
	QueryTimeout time.Duration

	MaxPoolSize uint64
}

// DefaultConfig returns the configuration for a local server.
func DefaultConfig() Config {
	return Config{
		URI:            "mongodb://localhost:27017",
		Database:       "react_agent",
		AppName:        "react-agent",
		ConnectTimeout: 10 * time.Second,
		QueryTimeout:   30 * time.Second,
		MaxPoolSize:    10,
	}
}

// Client is a connected MongoDB database handle.
type Client struct {
	client   *mongo.Client
	database *mongo.Database
	config   Config
}

// commandMonitor logs failed server commands through the agent log.
func commandMonitor() *event.CommandMonitor {
	return &event.CommandMonitor{
		Failed: func(_ context.Context, e *event.CommandFailedEvent) {
			logging.Warn().
				Add(logging.Component("mongodb")).
				Add(logging.Operation(e.CommandName)).
				Add(logging.Str("failure", e.Failure)).
				Msg("command failed")
		},
	}
}

// NewClient connects and pings the server.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	def := DefaultConfig()
	if cfg.URI == "" {
		cfg.URI = def.URI
	}
	if cfg.Database == "" {
		cfg.Database = def.Database
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = def.ConnectTimeout
	}
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = def.QueryTimeout
	}

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetMonitor(commandMonitor())
	if cfg.AppName != "" {
		opts = opts.SetAppName(cfg.AppName)
	}
	if cfg.MaxPoolSize > 0 {
		opts = opts.SetMaxPoolSize(cfg.MaxPoolSize)
	}

	connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, opts)
	if err != nil {
		return nil, errors.Join(ErrConnectionFailed, err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Join(ErrConnectionFailed, err)
	}

	return &Client{
		client:   client,
		database: client.Database(cfg.Database),
		config:   cfg,
	}, nil
}

// Collection returns a collection from the database.
func (c *Client) Collection(name string) *mongo.Collection {
	return c.database.Collection(name)
}

// Close disconnects from MongoDB.
func (c *Client) Close(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}

// CreateIndexes creates the indexes used by result listing.
func (c *Client) CreateIndexes(ctx context.Context, collection string) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "started_at", Value: -1}}},
		{Keys: bson.D{{Key: "started_at", Value: -1}}},
	}
	_, err := c.Collection(collection).Indexes().CreateMany(ctx, indexes)
	return err
}
