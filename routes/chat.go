package routes

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"rag-backend/internal/config"
	"rag-backend/internal/session"
	"rag-backend/internal/telemetry"
	"rag-backend/models"
	"rag-backend/services"
	"rag-backend/utils"
)

// SetupChatRoutes wires the chat endpoint. Conversation state is owned by
// the caller: either the full turn list travels in the request, or a
// conversation_id references the server-side session store. The chat core
// itself holds nothing between calls.
func SetupChatRoutes(router *gin.Engine, cfg *config.Config, chatSvc *services.ChatService, sessions *session.Store, metrics *telemetry.Metrics, logger *slog.Logger) {
	router.POST("/chat", func(c *gin.Context) {
		var req models.ChatRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		ctx := c.Request.Context()
		start := time.Now()

		conversation := req.Conversation
		conversationID := req.ConversationID
		if len(conversation) == 0 && sessions != nil {
			if conversationID == "" {
				conversationID = uuid.NewString()
			} else {
				history, err := sessions.History(ctx, conversationID)
				if err != nil {
					logger.Warn("failed to load session, continuing without history",
						"conversation_id", conversationID, "error", err)
				} else {
					conversation = history
				}
			}
		}

		answer, err := chatSvc.Chat(ctx, conversation, req.Query, req.TopK, req.SimilarityThreshold)
		if err != nil {
			telemetry.RecordOutcome(ctx, metrics.ChatRequests, "error")
			utils.RespondWithPipelineError(c, err)
			return
		}
		telemetry.RecordOutcome(ctx, metrics.ChatRequests, "success")
		metrics.RetrievalDuration.Record(ctx, float64(answer.Timings.RetrievalMs))
		metrics.ChatDuration.Record(ctx, float64(time.Since(start).Milliseconds()))

		// Persist the new turns only for session-managed conversations.
		if sessions != nil && conversationID != "" && len(req.Conversation) == 0 {
			err := sessions.Append(ctx, conversationID,
				models.Turn{Role: models.RoleUser, Content: req.Query},
				models.Turn{Role: models.RoleAssistant, Content: answer.Text},
			)
			if err != nil {
				logger.Warn("failed to persist session turns", "conversation_id", conversationID, "error", err)
			}
		}

		sources := make([]models.SourceChunk, 0, len(answer.Sources))
		for _, sc := range answer.Sources {
			sources = append(sources, models.NewSourceChunk(sc))
		}

		c.JSON(http.StatusOK, models.ChatResponse{
			Answer:         answer.Text,
			Sources:        sources,
			ConversationID: conversationID,
			Timestamp:      answer.Timestamp,
		})
	})
}
