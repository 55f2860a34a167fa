package services

import (
	"context"

	"rag-backend/models"
)

// The three remote gateways the pipelines depend on. Clients are constructed
// once at process start and injected, so tests substitute in-memory stubs.

// Embedder converts text into a fixed-length vector. All embeddings written
// to one collection share the dimensionality reported by Dimensions.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// VectorStore persists vector records and answers nearest-neighbor queries.
// Upsert is keyed on (document_id, chunk_index) so retried or repeated
// ingests overwrite rather than duplicate.
type VectorStore interface {
	Upsert(ctx context.Context, records []models.VectorRecord) error
	Query(ctx context.Context, vector []float32, topK int, filter map[string]any) ([]models.ScoredChunk, error)
}

// ChatModel sends a structured prompt to the language model and returns the
// generated text.
type ChatModel interface {
	Complete(ctx context.Context, system string, history []models.Turn, message string) (string, error)
	Name() string
}
