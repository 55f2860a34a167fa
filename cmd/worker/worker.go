package main

import (
	"context"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"rag-backend/internal/ai"
	"rag-backend/internal/config"
	"rag-backend/internal/logger"
	"rag-backend/internal/queue"
	"rag-backend/internal/retry"
	"rag-backend/internal/vectorstore"
	"rag-backend/services"
)

// The worker consumes queued PDF ingest jobs so large uploads never block
// an HTTP request on chunking and embedding.
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	slogger := logger.New(cfg)

	mongoClient, err := config.ConnectMongoDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		mongoClient.Disconnect(ctx)
	}()

	ctx := context.Background()
	embedder, err := ai.NewGeminiEmbedder(ctx, cfg.GeminiAPIKey, cfg.EmbeddingsModel, cfg.VectorDimensions)
	if err != nil {
		log.Fatal("Failed to initialize embeddings client:", err)
	}
	defer embedder.Close()

	store := vectorstore.NewMongoStore(mongoClient, cfg.DBName, cfg.ChunksCollection,
		cfg.VectorDimensions, cfg.VectorEnabled, cfg.VectorIndexName)

	chunker, err := services.NewChunker(cfg.MaxChunkSize, cfg.ChunkOverlap, cfg.BoundaryLookback)
	if err != nil {
		log.Fatal("Invalid chunking config:", err)
	}
	policy := retry.Policy{
		MaxAttempts: cfg.RetryMaxAttempts,
		BaseDelay:   cfg.RetryBaseDelay,
		MaxDelay:    cfg.RetryMaxDelay,
		Jitter:      0.2,
	}
	ingestSvc := services.NewIngestService(chunker, embedder, store, policy, cfg.GatewayTimeout, slogger)

	docs := mongoClient.Database(cfg.DBName).Collection("documents")
	processor := queue.NewTaskProcessor(ingestSvc, docs, slogger)

	server := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.RedisURL,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		},
		asynq.Config{
			Concurrency: 4,
			Queues: map[string]int{
				"ingest": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TaskIngestPDF, processor.ProcessIngestPDF)

	slogger.Info("worker starting", "queue", "ingest")
	if err := server.Run(mux); err != nil {
		log.Fatal("Worker stopped:", err)
	}
}
