package routes

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"rag-backend/internal/config"
	"rag-backend/internal/crawler"
	"rag-backend/internal/queue"
	"rag-backend/internal/telemetry"
	"rag-backend/models"
	"rag-backend/services"
	"rag-backend/utils"
)

// SetupIngestRoutes wires the document ingestion endpoints. Raw text and
// URL ingests run inline; PDF uploads above the sync limit are queued for
// the worker.
func SetupIngestRoutes(router *gin.Engine, cfg *config.Config, ingest *services.IngestService, docs *mongo.Collection, queueClient *asynq.Client, metrics *telemetry.Metrics, logger *slog.Logger) {
	group := router.Group("/ingest")

	group.POST("", func(c *gin.Context) {
		var req models.IngestRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		doc := models.Document{
			ID:        req.DocumentID,
			Source:    req.Source,
			Text:      req.Text,
			Metadata:  req.Metadata,
			CreatedAt: time.Now().UTC(),
		}
		if doc.ID == "" {
			doc.ID = uuid.NewString()
		}

		written, err := ingest.Ingest(c.Request.Context(), doc)
		if err != nil {
			telemetry.RecordOutcome(c.Request.Context(), metrics.IngestRequests, "error")
			utils.RespondWithPipelineError(c, err)
			return
		}
		telemetry.RecordOutcome(c.Request.Context(), metrics.IngestRequests, "success")
		metrics.ChunksIngested.Add(c.Request.Context(), int64(written))

		recordDocument(c.Request.Context(), docs, doc, "completed", written, logger)
		c.JSON(http.StatusOK, models.IngestResponse{DocumentID: doc.ID, ChunksWritten: written})
	})

	group.POST("/file", func(c *gin.Context) {
		if err := c.Request.ParseMultipartForm(cfg.MaxFileSize); err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "file_too_large", "File size exceeds maximum limit", nil)
			return
		}

		file, header, err := c.Request.FormFile("file")
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "no_file", "No file provided", nil)
			return
		}
		defer file.Close()

		if header.Size > cfg.MaxFileSize {
			utils.RespondWithError(c, http.StatusBadRequest, "file_too_large", "File size exceeds maximum limit", nil)
			return
		}
		ct := header.Header.Get("Content-Type")
		if !strings.Contains(ct, "pdf") && !strings.HasSuffix(strings.ToLower(header.Filename), ".pdf") {
			utils.RespondWithError(c, http.StatusBadRequest, "invalid_file_type", "Only PDF files are supported", nil)
			return
		}

		// Validate the magic bytes without loading the whole file.
		magic := make([]byte, 5)
		if _, err := io.ReadFull(file, magic); err != nil || string(magic[:4]) != "%PDF" {
			utils.RespondWithError(c, http.StatusBadRequest, "invalid_pdf", "File does not appear to be a valid PDF", nil)
			return
		}
		if _, err := file.Seek(0, io.SeekStart); err != nil {
			utils.RespondWithInternalError(c, "Failed to reset file for saving", nil)
			return
		}

		documentID := uuid.NewString()
		uploadDir := filepath.Join(cfg.FileStorageDir, "uploads")
		if err := os.MkdirAll(uploadDir, 0o755); err != nil {
			utils.RespondWithInternalError(c, "Failed to create upload directory", nil)
			return
		}
		path := filepath.Join(uploadDir, fmt.Sprintf("%s.pdf", documentID))
		dst, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to save upload", nil)
			return
		}
		if _, err := io.Copy(dst, file); err != nil {
			dst.Close()
			os.Remove(path)
			utils.RespondWithInternalError(c, "Failed to save upload", nil)
			return
		}
		dst.Close()

		doc := models.Document{
			ID:        documentID,
			Source:    header.Filename,
			CreatedAt: time.Now().UTC(),
		}

		// Large files go through the worker so the request returns quickly.
		if header.Size > cfg.SyncProcessingLimit && queueClient != nil {
			task, err := queue.NewIngestPDFTask(documentID, header.Filename, path, nil)
			if err != nil {
				os.Remove(path)
				utils.RespondWithInternalError(c, "Failed to create ingest task", nil)
				return
			}
			if _, err := queueClient.Enqueue(task); err != nil {
				os.Remove(path)
				utils.RespondWithInternalError(c, "Failed to enqueue ingest task", gin.H{"error": err.Error()})
				return
			}
			recordDocument(c.Request.Context(), docs, doc, "queued", 0, logger)
			c.JSON(http.StatusAccepted, gin.H{"document_id": documentID, "status": "queued"})
			return
		}

		text, _, err := services.ExtractPDFText(path)
		if err != nil {
			os.Remove(path)
			utils.RespondWithPipelineError(c, err)
			return
		}
		doc.Text = text

		written, err := ingest.Ingest(c.Request.Context(), doc)
		os.Remove(path)
		if err != nil {
			telemetry.RecordOutcome(c.Request.Context(), metrics.IngestRequests, "error")
			utils.RespondWithPipelineError(c, err)
			return
		}
		telemetry.RecordOutcome(c.Request.Context(), metrics.IngestRequests, "success")
		metrics.ChunksIngested.Add(c.Request.Context(), int64(written))

		recordDocument(c.Request.Context(), docs, doc, "completed", written, logger)
		c.JSON(http.StatusOK, models.IngestResponse{DocumentID: doc.ID, ChunksWritten: written})
	})

	group.POST("/url", func(c *gin.Context) {
		var req models.IngestURLRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		pages, err := crawler.Crawl(req.URL, crawlConfig(req))
		if err != nil {
			utils.RespondWithError(c, http.StatusBadGateway, "crawl_error", "Failed to fetch URL", gin.H{"error": err.Error()})
			return
		}

		var responses []models.IngestResponse
		total := 0
		for _, page := range pages {
			doc := models.Document{
				ID:     uuid.NewString(),
				Source: page.URL,
				Text:   page.Text,
				Metadata: map[string]any{
					"title": page.Title,
				},
				CreatedAt: time.Now().UTC(),
			}
			written, err := ingest.Ingest(c.Request.Context(), doc)
			if err != nil {
				telemetry.RecordOutcome(c.Request.Context(), metrics.IngestRequests, "error")
				utils.RespondWithPipelineError(c, err)
				return
			}
			recordDocument(c.Request.Context(), docs, doc, "completed", written, logger)
			responses = append(responses, models.IngestResponse{DocumentID: doc.ID, ChunksWritten: written})
			total += written
		}
		telemetry.RecordOutcome(c.Request.Context(), metrics.IngestRequests, "success")
		metrics.ChunksIngested.Add(c.Request.Context(), int64(total))

		c.JSON(http.StatusOK, gin.H{
			"documents":      responses,
			"pages_crawled":  len(pages),
			"chunks_written": total,
		})
	})
}

// crawlConfig maps the request onto crawler settings. An explicit depth
// wins; otherwise a multi-page crawl gets depth 2 so linked pages are
// reachable, and a single-page fetch stays at depth 1.
func crawlConfig(req models.IngestURLRequest) crawler.Config {
	cfg := crawler.DefaultConfig()
	if req.MaxPages > 0 {
		cfg.MaxPages = req.MaxPages
	}
	switch {
	case req.MaxDepth > 0:
		cfg.MaxDepth = req.MaxDepth
	case cfg.MaxPages > 1:
		cfg.MaxDepth = 2
	}
	return cfg
}

// recordDocument tracks ingest jobs in the documents collection. Failures
// are logged, not surfaced: the ingest itself already succeeded.
func recordDocument(ctx context.Context, docs *mongo.Collection, doc models.Document, status string, chunks int, logger *slog.Logger) {
	_, err := docs.UpdateOne(ctx,
		bson.M{"_id": doc.ID},
		bson.M{"$set": bson.M{
			"source":         doc.Source,
			"metadata":       doc.Metadata,
			"status":         status,
			"chunks_written": chunks,
			"created_at":     doc.CreatedAt,
			"updated_at":     time.Now().UTC(),
		}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		logger.Error("failed to record document", "document_id", doc.ID, "error", err)
	}
}
