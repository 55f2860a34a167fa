package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	GinMode     string
	CORSOrigins []string

	// MongoDB vector store
	MongoURI         string
	DBName           string
	ChunksCollection string
	VectorEnabled    bool
	VectorIndexName  string
	VectorDimensions int

	// Redis (sessions, rate limiting, asynq)
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// Gemini
	GeminiAPIKey         string
	ChatModel            string
	EmbeddingsModel      string
	SystemInstructions   string
	PromptCharBudget     int
	MaxConversationTurns int

	// Chunking
	MaxChunkSize     int
	ChunkOverlap     int
	BoundaryLookback int

	// Retrieval
	TopKDefault         int
	TopKMax             int
	SimilarityThreshold float64 // <= 0 disables the default threshold

	// Gateway calls
	GatewayTimeout   time.Duration
	RetryMaxAttempts int
	RetryBaseDelay   time.Duration
	RetryMaxDelay    time.Duration

	// HTTP limits
	RateLimitReqs   int
	RateLimitWindow int

	// File ingest
	MaxFileSize         int64
	SyncProcessingLimit int64
	FileStorageDir      string

	// Sessions
	SessionTTL      time.Duration
	SessionMaxTurns int

	// Observability
	OTLPEndpoint string
}

func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %v", err)
		}
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		GinMode:     getEnv("GIN_MODE", "debug"),
		CORSOrigins: strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000"), ","),

		MongoURI:         getEnv("MONGO_URI", "mongodb://localhost:27017/rag_backend"),
		DBName:           getEnv("DB_NAME", "rag_backend"),
		ChunksCollection: getEnv("CHUNKS_COLLECTION", "chunks"),
		VectorEnabled:    getEnvBool("MONGODB_VECTOR_ENABLED", false),
		VectorIndexName:  getEnv("MONGODB_VECTOR_INDEX", "chunks_vector"),
		VectorDimensions: getEnvInt("VECTOR_DIM", 768),

		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		GeminiAPIKey:         getEnv("GEMINI_API_KEY", ""),
		ChatModel:            getEnv("GEMINI_CHAT_MODEL", "gemini-2.0-flash"),
		EmbeddingsModel:      getEnv("GOOGLE_EMBEDDINGS_MODEL", "text-embedding-004"),
		SystemInstructions:   getEnv("SYSTEM_INSTRUCTIONS", ""),
		PromptCharBudget:     getEnvInt("PROMPT_CHAR_BUDGET", 12000),
		MaxConversationTurns: getEnvInt("MAX_CONVERSATION_TURNS", 20),

		MaxChunkSize:     getEnvInt("MAX_CHUNK_SIZE", 1000),
		ChunkOverlap:     getEnvInt("CHUNK_OVERLAP", 200),
		BoundaryLookback: getEnvInt("CHUNK_BOUNDARY_LOOKBACK", 120),

		TopKDefault:         getEnvInt("TOP_K_DEFAULT", 4),
		TopKMax:             getEnvInt("TOP_K_MAX", 20),
		SimilarityThreshold: getEnvFloat64("SIMILARITY_THRESHOLD", 0),

		GatewayTimeout:   time.Duration(getEnvInt("GATEWAY_TIMEOUT", 30)) * time.Second,
		RetryMaxAttempts: getEnvInt("RETRY_MAX_ATTEMPTS", 3),
		RetryBaseDelay:   time.Duration(getEnvInt("RETRY_BASE_DELAY_MS", 500)) * time.Millisecond,
		RetryMaxDelay:    time.Duration(getEnvInt("RETRY_MAX_DELAY_MS", 10000)) * time.Millisecond,

		RateLimitReqs:   getEnvInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow: getEnvInt("RATE_LIMIT_WINDOW", 60),

		MaxFileSize:         getEnvInt64("MAX_FILE_SIZE", 104857600),  // 100MB
		SyncProcessingLimit: getEnvInt64("SYNC_PROCESSING_LIMIT", 20971520), // 20MB
		FileStorageDir:      getEnv("FILE_STORAGE_DIR", "./storage"),

		SessionTTL:      time.Duration(getEnvInt("SESSION_TTL", 86400)) * time.Second,
		SessionMaxTurns: getEnvInt("SESSION_MAX_TURNS", 100),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
	}

	// Validate required fields and fail fast on unusable pipeline settings.
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required - set it in .env file")
	}
	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.MaxChunkSize {
		return nil, fmt.Errorf("CHUNK_OVERLAP must satisfy 0 <= overlap < MAX_CHUNK_SIZE")
	}
	if cfg.BoundaryLookback < 0 || cfg.BoundaryLookback >= cfg.MaxChunkSize-cfg.ChunkOverlap {
		return nil, fmt.Errorf("CHUNK_BOUNDARY_LOOKBACK must be below MAX_CHUNK_SIZE-CHUNK_OVERLAP")
	}
	if cfg.VectorDimensions <= 0 {
		return nil, fmt.Errorf("VECTOR_DIM must be positive")
	}
	if cfg.TopKDefault < 1 || cfg.TopKMax < cfg.TopKDefault {
		return nil, fmt.Errorf("TOP_K_DEFAULT and TOP_K_MAX must satisfy 1 <= default <= max")
	}
	if cfg.PromptCharBudget <= 0 {
		return nil, fmt.Errorf("PROMPT_CHAR_BUDGET must be positive")
	}

	return cfg, nil
}

// DefaultThreshold returns the configured similarity threshold, or nil when
// threshold filtering is disabled.
func (c *Config) DefaultThreshold() *float64 {
	if c.SimilarityThreshold <= 0 {
		return nil
	}
	t := c.SimilarityThreshold
	return &t
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
