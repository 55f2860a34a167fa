package utils

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"rag-backend/services"
)

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	ErrorCode string      `json:"error_code"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
}

// RespondWithError sends a standardized error response
func RespondWithError(c *gin.Context, statusCode int, errorCode, message string, details interface{}) {
	c.JSON(statusCode, ErrorResponse{
		ErrorCode: errorCode,
		Message:   message,
		Details:   details,
	})
}

// RespondWithBadRequest sends a 400 Bad Request error
func RespondWithBadRequest(c *gin.Context, message string, details interface{}) {
	RespondWithError(c, http.StatusBadRequest, "bad_request", message, details)
}

// RespondWithInternalError sends a 500 Internal Server Error
func RespondWithInternalError(c *gin.Context, message string, details interface{}) {
	RespondWithError(c, http.StatusInternalServerError, "internal_error", message, details)
}

// RespondWithPipelineError maps the pipeline error taxonomy onto HTTP
// statuses and stable error codes: bad input is the caller's fault (400),
// configuration problems are ours (500), and failing remote dependencies
// surface as 502 after local retries are exhausted.
func RespondWithPipelineError(c *gin.Context, err error) {
	var (
		vErr   *services.ValidationError
		cfgErr *services.ConfigurationError
		embErr *services.EmbeddingError
		stErr  *services.StoreError
		genErr *services.GenerationError
	)
	switch {
	case errors.As(err, &vErr):
		RespondWithError(c, http.StatusBadRequest, "validation_error", vErr.Msg, nil)
	case errors.As(err, &cfgErr):
		RespondWithError(c, http.StatusInternalServerError, "configuration_error", cfgErr.Msg, nil)
	case errors.As(err, &embErr):
		RespondWithError(c, http.StatusBadGateway, "embedding_error", "Embedding service failed", gin.H{"error": embErr.Error()})
	case errors.As(err, &stErr):
		RespondWithError(c, http.StatusBadGateway, "store_error", "Vector store failed", gin.H{"error": stErr.Error()})
	case errors.As(err, &genErr):
		RespondWithError(c, http.StatusBadGateway, "generation_error", "Chat completion failed", gin.H{"error": genErr.Error()})
	default:
		RespondWithInternalError(c, "Unexpected error", gin.H{"error": err.Error()})
	}
}
