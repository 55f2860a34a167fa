package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"rag-backend/internal/retry"
	"rag-backend/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// noRetry keeps tests fast and attempt counts predictable.
func noRetry() retry.Policy {
	return retry.Policy{MaxAttempts: 1}
}

const testTimeout = 5 * time.Second

// stubEmbedder returns a fixed-dimension vector, optionally failing on a
// chosen call number (1-based) or on every call.
type stubEmbedder struct {
	dims     int
	failOn   int
	failAll  bool
	vec      []float32
	mu       sync.Mutex
	calls    int
	embedded []string
}

func (e *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.failAll || (e.failOn > 0 && e.calls == e.failOn) {
		return nil, fmt.Errorf("embedder unavailable")
	}
	e.embedded = append(e.embedded, text)
	if e.vec != nil {
		return e.vec, nil
	}
	v := make([]float32, e.dims)
	v[0] = 1
	return v, nil
}

func (e *stubEmbedder) Dimensions() int { return e.dims }

// memoryStore is an in-memory vector store keyed on (document_id,
// chunk_index), mirroring the upsert semantics of the real collection.
type memoryStore struct {
	mu      sync.Mutex
	records map[string]models.VectorRecord
	results []models.ScoredChunk
	upserts int
	failPut bool
	failGet bool
}

func newMemoryStore() *memoryStore {
	return &memoryStore{records: make(map[string]models.VectorRecord)}
}

func (s *memoryStore) Upsert(ctx context.Context, records []models.VectorRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failPut {
		return fmt.Errorf("store write failed")
	}
	s.upserts++
	for _, r := range records {
		s.records[fmt.Sprintf("%s#%d", r.DocumentID, r.ChunkIndex)] = r
	}
	return nil
}

func (s *memoryStore) Query(ctx context.Context, vector []float32, topK int, filter map[string]any) ([]models.ScoredChunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failGet {
		return nil, fmt.Errorf("store query failed")
	}
	out := make([]models.ScoredChunk, len(s.results))
	copy(out, s.results)
	if len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}

func (s *memoryStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func (s *memoryStore) get(docID string, idx int) (models.VectorRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[fmt.Sprintf("%s#%d", docID, idx)]
	return r, ok
}

// stubModel records the prompts it receives and echoes a canned answer.
type stubModel struct {
	answer  string
	err     error
	mu      sync.Mutex
	system  string
	history []models.Turn
	message string
	calls   int
}

func (m *stubModel) Complete(ctx context.Context, system string, history []models.Turn, message string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.system = system
	m.history = append([]models.Turn(nil), history...)
	m.message = message
	if m.err != nil {
		return "", m.err
	}
	return m.answer, nil
}

func (m *stubModel) Name() string { return "stub-model" }

func scored(docID string, idx int, source, text string, score float64) models.ScoredChunk {
	return models.ScoredChunk{
		VectorRecord: models.VectorRecord{
			DocumentID: docID,
			ChunkIndex: idx,
			Source:     source,
			Text:       text,
		},
		Score: score,
	}
}
