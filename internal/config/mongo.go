package config

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func ConnectMongoDB(cfg *Config) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %v", err)
	}

	// Test connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %v", err)
	}

	if err := createIndexes(ctx, client, cfg); err != nil {
		return nil, fmt.Errorf("failed to create indexes: %v", err)
	}

	return client, nil
}

func createIndexes(ctx context.Context, client *mongo.Client, cfg *Config) error {
	db := client.Database(cfg.DBName)

	// Chunks collection: the unique (document_id, chunk_index) key backs the
	// upsert semantics that make re-ingestion idempotent. The Atlas vector
	// index itself is managed out of band.
	chunks := db.Collection(cfg.ChunksCollection)
	chunkIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "document_id", Value: 1}, {Key: "chunk_index", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "source", Value: 1}},
		},
	}
	_, err := chunks.Indexes().CreateMany(ctx, chunkIndexes)
	if err != nil {
		return err
	}

	// Documents collection tracks ingest jobs (status, chunk counts).
	documents := db.Collection("documents")
	docIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "source", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "created_at", Value: -1}},
		},
	}
	_, err = documents.Indexes().CreateMany(ctx, docIndexes)
	return err
}
