package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"rag-backend/internal/retry"
	"rag-backend/models"
)

// IngestService splits documents into chunks, embeds each chunk, and writes
// the records to the vector store in one upsert batch.
type IngestService struct {
	chunker  *Chunker
	embedder Embedder
	store    VectorStore
	retry    retry.Policy
	timeout  time.Duration
	logger   *slog.Logger
}

func NewIngestService(chunker *Chunker, embedder Embedder, store VectorStore, policy retry.Policy, timeout time.Duration, logger *slog.Logger) *IngestService {
	return &IngestService{
		chunker:  chunker,
		embedder: embedder,
		store:    store,
		retry:    policy,
		timeout:  timeout,
		logger:   logger,
	}
}

// Ingest chunks and embeds the document and upserts the records. It returns
// the number of chunks written to the store, which on failure may be a
// prefix of the document: chunks embedded before an embedding failure are
// flushed and survive, since the batch is not transactional. Re-ingesting
// the same document ID overwrites them via the upsert keys.
func (s *IngestService) Ingest(ctx context.Context, doc models.Document) (int, error) {
	if strings.TrimSpace(doc.Text) == "" {
		return 0, &ValidationError{Msg: "document text must not be empty"}
	}
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}

	chunks := s.chunker.Chunk(doc)
	records := make([]models.VectorRecord, 0, len(chunks))

	for _, ch := range chunks {
		vec, err := s.embedChunk(ctx, ch.Text)
		if err != nil {
			written := s.flush(ctx, records)
			s.logger.Error("ingest aborted on embedding failure",
				"document_id", doc.ID,
				"failed_chunk", ch.Index,
				"chunks_written", written,
				"error", err,
			)
			var cfgErr *ConfigurationError
			if errors.As(err, &cfgErr) {
				return written, cfgErr
			}
			return written, &EmbeddingError{Err: err}
		}
		records = append(records, models.VectorRecord{
			DocumentID: doc.ID,
			ChunkIndex: ch.Index,
			Source:     doc.Source,
			Text:       ch.Text,
			Metadata:   doc.Metadata,
			Embedding:  vec,
		})
	}

	if err := s.upsert(ctx, records); err != nil {
		return 0, &StoreError{Err: err}
	}

	s.logger.Info("document ingested",
		"document_id", doc.ID,
		"source", doc.Source,
		"chunks_written", len(records),
	)
	return len(records), nil
}

func (s *IngestService) embedChunk(ctx context.Context, text string) ([]float32, error) {
	var vec []float32
	err := s.retry.Do(ctx, "embed chunk", func(ctx context.Context) error {
		cctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		v, err := s.embedder.Embed(cctx, text)
		if err != nil {
			return err
		}
		if want := s.embedder.Dimensions(); want > 0 && len(v) != want {
			return retry.Permanent(&ConfigurationError{
				Msg: fmt.Sprintf("embedding dimensionality mismatch: got %d, collection expects %d", len(v), want),
			})
		}
		vec = v
		return nil
	})
	return vec, err
}

func (s *IngestService) upsert(ctx context.Context, records []models.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}
	return s.retry.Do(ctx, "upsert chunks", func(ctx context.Context) error {
		cctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		return s.store.Upsert(cctx, records)
	})
}

// flush writes the records embedded so far. Called on a mid-document
// failure: the partial prefix is committed rather than rolled back, which
// keeps retried ingests idempotent through the upsert keys.
func (s *IngestService) flush(ctx context.Context, records []models.VectorRecord) int {
	if len(records) == 0 {
		return 0
	}
	if err := s.upsert(ctx, records); err != nil {
		s.logger.Error("failed to flush partial ingest", "chunks", len(records), "error", err)
		return 0
	}
	return len(records)
}
