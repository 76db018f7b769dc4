// Package database owns the MongoDB connection. The connection is created once at process start with Connect
// and closed with Disconnect; components receive collections from it rather than dialing themselves.
package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/aptlist/users/internal/log"
)

type Database struct {
	client  *mongo.Client
	db      *mongo.Database
	timeout time.Duration
	logger  *log.Logger
}

// Options configures Connect.
type Options struct {
	URI      string
	Database string
	// Timeout bounds connecting, pinging and disconnecting.
	Timeout time.Duration
}

// Connect creates a MongoDB client for opts.URI and verifies the server is reachable.
func Connect(ctx context.Context, opts Options, logger *log.Logger) (*Database, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}

	connectCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().
		ApplyURI(opts.URI).
		SetConnectTimeout(opts.Timeout).
		SetServerSelectionTimeout(opts.Timeout))
	if err != nil {
		return nil, fmt.Errorf("error creating MongoDB client: %w", err)
	}

	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("error pinging MongoDB: %w", err)
	}

	logger.Infof("Connected to MongoDB database %s", opts.Database)
	return New(client, opts.Database, opts.Timeout, logger), nil
}

// New wraps an existing client.
func New(client *mongo.Client, database string, timeout time.Duration, logger *log.Logger) *Database {
	return &Database{
		client:  client,
		db:      client.Database(database),
		timeout: timeout,
		logger:  logger,
	}
}

// Collection returns a handle to the named collection.
func (d *Database) Collection(name string) *mongo.Collection {
	return d.db.Collection(name)
}

// Name returns the database name.
func (d *Database) Name() string {
	return d.db.Name()
}

// Disconnect closes the client, waiting at most the configured timeout for in-flight operations.
func (d *Database) Disconnect(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if err := d.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("error disconnecting from MongoDB: %w", err)
	}
	d.logger.Info("Disconnected from MongoDB")
	return nil
}
