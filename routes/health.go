package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"rag-backend/internal/config"
)

// SetupHealthRoutes reports liveness of the backing services. The AI
// gateways are remote quota-billed APIs, so the check verifies they are
// configured rather than issuing a paid call per probe.
func SetupHealthRoutes(router *gin.Engine, cfg *config.Config, mongoClient *mongo.Client, rdb *redis.Client) {
	router.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		checks := gin.H{}
		healthy := true

		if err := mongoClient.Ping(ctx, nil); err != nil {
			checks["vector_store"] = gin.H{"status": "down", "error": err.Error()}
			healthy = false
		} else {
			checks["vector_store"] = gin.H{"status": "ok"}
		}

		if rdb != nil {
			if err := rdb.Ping(ctx).Err(); err != nil {
				checks["sessions"] = gin.H{"status": "down", "error": err.Error()}
				healthy = false
			} else {
				checks["sessions"] = gin.H{"status": "ok"}
			}
		}

		aiStatus := "ok"
		if cfg.GeminiAPIKey == "" {
			aiStatus = "unconfigured"
			healthy = false
		}
		checks["embeddings"] = gin.H{"status": aiStatus, "model": cfg.EmbeddingsModel}
		checks["chat"] = gin.H{"status": aiStatus, "model": cfg.ChatModel}

		status := http.StatusOK
		overall := "healthy"
		if !healthy {
			status = http.StatusServiceUnavailable
			overall = "degraded"
		}
		c.JSON(status, gin.H{
			"status":    overall,
			"checks":    checks,
			"timestamp": time.Now().UTC(),
		})
	})
}
