// Package queue defines the asynchronous ingest jobs. Large uploads are
// saved to disk by the API process and picked up here by the worker, so the
// HTTP request returns before chunking and embedding run.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/hibiken/asynq"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"rag-backend/models"
	"rag-backend/services"
)

const (
	TaskIngestPDF = "ingest:pdf"

	statusQueued     = "queued"
	statusProcessing = "processing"
	statusCompleted  = "completed"
	statusFailed     = "failed"
)

type IngestPDFPayload struct {
	DocumentID string         `json:"document_id"`
	Source     string         `json:"source"`
	FilePath   string         `json:"file_path"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// NewIngestPDFTask creates the task enqueued by the upload route.
func NewIngestPDFTask(documentID, source, filePath string, metadata map[string]any) (*asynq.Task, error) {
	payload, err := json.Marshal(IngestPDFPayload{
		DocumentID: documentID,
		Source:     source,
		FilePath:   filePath,
		Metadata:   metadata,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(
		TaskIngestPDF,
		payload,
		asynq.MaxRetry(3),
		asynq.Timeout(10*time.Minute),
		asynq.Queue("ingest"),
	), nil
}

// TaskProcessor handles queued ingest jobs in the worker process.
type TaskProcessor struct {
	ingest *services.IngestService
	docs   *mongo.Collection
	logger *slog.Logger
}

func NewTaskProcessor(ingest *services.IngestService, docs *mongo.Collection, logger *slog.Logger) *TaskProcessor {
	return &TaskProcessor{ingest: ingest, docs: docs, logger: logger}
}

// ProcessIngestPDF extracts the saved PDF's text and runs the ingest
// pipeline. The uploaded file is removed once processed; a failed job keeps
// it on disk for the retry.
func (p *TaskProcessor) ProcessIngestPDF(ctx context.Context, t *asynq.Task) error {
	var payload IngestPDFPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal ingest payload: %v: %w", err, asynq.SkipRetry)
	}

	p.logger.Info("processing queued ingest", "document_id", payload.DocumentID, "path", payload.FilePath)
	p.setStatus(ctx, payload.DocumentID, statusProcessing, 0, "")

	text, pageCount, err := services.ExtractPDFText(payload.FilePath)
	if err != nil {
		p.setStatus(ctx, payload.DocumentID, statusFailed, 0, err.Error())
		var vErr *services.ValidationError
		if errors.As(err, &vErr) {
			// Unparseable or empty PDFs never succeed on retry.
			return fmt.Errorf("%s: %w", vErr.Msg, asynq.SkipRetry)
		}
		return err
	}

	written, err := p.ingest.Ingest(ctx, models.Document{
		ID:        payload.DocumentID,
		Source:    payload.Source,
		Text:      text,
		Metadata:  payload.Metadata,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		// Partial writes stay in the store; the asynq retry re-ingests and
		// overwrites them through the upsert keys.
		p.setStatus(ctx, payload.DocumentID, statusFailed, written, err.Error())
		return err
	}

	p.setStatus(ctx, payload.DocumentID, statusCompleted, written, "")
	if err := os.Remove(payload.FilePath); err != nil {
		p.logger.Warn("failed to remove processed upload", "path", payload.FilePath, "error", err)
	}
	p.logger.Info("queued ingest complete", "document_id", payload.DocumentID, "pages", pageCount, "chunks_written", written)
	return nil
}

func (p *TaskProcessor) setStatus(ctx context.Context, documentID, status string, chunks int, errMsg string) {
	update := bson.M{
		"status":         status,
		"chunks_written": chunks,
		"updated_at":     time.Now().UTC(),
	}
	if errMsg != "" {
		update["error"] = errMsg
	}
	_, err := p.docs.UpdateOne(ctx,
		bson.M{"_id": documentID},
		bson.M{"$set": update},
	)
	if err != nil {
		p.logger.Error("failed to update document status", "document_id", documentID, "error", err)
	}
}
