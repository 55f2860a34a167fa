package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"rag-backend/internal/ai"
	"rag-backend/internal/config"
	"rag-backend/internal/logger"
	"rag-backend/internal/retry"
	"rag-backend/internal/session"
	"rag-backend/internal/telemetry"
	"rag-backend/internal/vectorstore"
	"rag-backend/middleware"
	"rag-backend/routes"
	"rag-backend/services"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	slogger := logger.New(cfg)

	shutdownTracer, err := telemetry.InitTracer("rag-backend", cfg.OTLPEndpoint, slogger)
	if err != nil {
		slogger.Warn("tracing disabled", "error", err)
	} else {
		defer shutdownTracer()
	}
	metrics, err := telemetry.NewMetrics()
	if err != nil {
		log.Fatal("Failed to initialize metrics:", err)
	}

	// Connect to MongoDB
	mongoClient, err := config.ConnectMongoDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		mongoClient.Disconnect(ctx)
	}()

	// Redis backs sessions, rate limiting and the ingest queue. The API can
	// run without it, with those features disabled.
	var rdb *redis.Client
	var sessions *session.Store
	var queueClient *asynq.Client
	rdb, err = config.NewRedisClient(cfg)
	if err != nil {
		slogger.Warn("redis unavailable, sessions/rate-limiting/async ingest disabled", "error", err)
		rdb = nil
	} else {
		sessions = session.NewStore(rdb, cfg.SessionTTL, cfg.SessionMaxTurns)
		queueClient = asynq.NewClient(asynq.RedisClientOpt{
			Addr:     cfg.RedisURL,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer queueClient.Close()
	}

	// Gateway clients, constructed once and injected into the pipelines.
	ctx := context.Background()
	embedder, err := ai.NewGeminiEmbedder(ctx, cfg.GeminiAPIKey, cfg.EmbeddingsModel, cfg.VectorDimensions)
	if err != nil {
		log.Fatal("Failed to initialize embeddings client:", err)
	}
	defer embedder.Close()

	chatClient, err := ai.NewGeminiChat(ctx, cfg.GeminiAPIKey, cfg.ChatModel, slogger)
	if err != nil {
		log.Fatal("Failed to initialize chat client:", err)
	}
	defer chatClient.Close()

	store := vectorstore.NewMongoStore(mongoClient, cfg.DBName, cfg.ChunksCollection,
		cfg.VectorDimensions, cfg.VectorEnabled, cfg.VectorIndexName)

	policy := retry.Policy{
		MaxAttempts: cfg.RetryMaxAttempts,
		BaseDelay:   cfg.RetryBaseDelay,
		MaxDelay:    cfg.RetryMaxDelay,
		Jitter:      0.2,
	}

	chunker, err := services.NewChunker(cfg.MaxChunkSize, cfg.ChunkOverlap, cfg.BoundaryLookback)
	if err != nil {
		log.Fatal("Invalid chunking config:", err)
	}
	ingestSvc := services.NewIngestService(chunker, embedder, store, policy, cfg.GatewayTimeout, slogger)
	retrievalSvc := services.NewRetrievalService(embedder, store, services.RetrievalConfig{
		DefaultTopK:      cfg.TopKDefault,
		MaxTopK:          cfg.TopKMax,
		DefaultThreshold: cfg.DefaultThreshold(),
	}, policy, cfg.GatewayTimeout, slogger)
	chatSvc, err := services.NewChatService(retrievalSvc, chatClient, services.ChatConfig{
		SystemInstructions:   cfg.SystemInstructions,
		PromptCharBudget:     cfg.PromptCharBudget,
		MaxConversationTurns: cfg.MaxConversationTurns,
	}, policy, cfg.GatewayTimeout, slogger)
	if err != nil {
		log.Fatal("Invalid chat config:", err)
	}

	// Initialize Gin router
	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.TracingMiddleware())
	router.Use(middleware.EnrichTrace())
	if rdb != nil {
		router.Use(middleware.RateLimitMiddleware(rdb, cfg))
	}

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "X-Requested-With"}
	router.Use(cors.New(corsConfig))

	docs := mongoClient.Database(cfg.DBName).Collection("documents")
	routes.SetupHealthRoutes(router, cfg, mongoClient, rdb)
	routes.SetupIngestRoutes(router, cfg, ingestSvc, docs, queueClient, metrics, slogger)
	routes.SetupChatRoutes(router, cfg, chatSvc, sessions, metrics, slogger)

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		slogger.Info("server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slogger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	slogger.Info("server exited")
}
