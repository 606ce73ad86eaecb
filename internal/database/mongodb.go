package database

import (
	"context"
	"fmt"

	"github.com/cineverse/cineverse/backend/go-services/internal/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ConnectMongo opens a connection to the user store and verifies it with a
// ping. Caller should call client.Disconnect(ctx) on shutdown.
func ConnectMongo(ctx context.Context, cfg config.MongoDBConfig) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	clientOpts := options.Client().ApplyURI(cfg.URI)
	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, nil
}

// UsersCollection returns the users collection for the configured database.
func UsersCollection(client *mongo.Client, cfg config.MongoDBConfig) *mongo.Collection {
	return client.Database(cfg.Database).Collection("users")
}
