package services

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"rag-backend/internal/retry"
	"rag-backend/models"
)

// RetrievalConfig bounds top-K and supplies the default threshold.
type RetrievalConfig struct {
	DefaultTopK      int
	MaxTopK          int
	DefaultThreshold *float64 // nil disables threshold filtering by default
}

// RetrievalService embeds a query and fetches the nearest chunks from the
// vector store, ordered by descending similarity.
type RetrievalService struct {
	embedder Embedder
	store    VectorStore
	cfg      RetrievalConfig
	retry    retry.Policy
	timeout  time.Duration
	logger   *slog.Logger
}

func NewRetrievalService(embedder Embedder, store VectorStore, cfg RetrievalConfig, policy retry.Policy, timeout time.Duration, logger *slog.Logger) *RetrievalService {
	if cfg.DefaultTopK < 1 {
		cfg.DefaultTopK = 4
	}
	if cfg.MaxTopK < cfg.DefaultTopK {
		cfg.MaxTopK = cfg.DefaultTopK
	}
	return &RetrievalService{
		embedder: embedder,
		store:    store,
		cfg:      cfg,
		retry:    policy,
		timeout:  timeout,
		logger:   logger,
	}
}

// Retrieve returns at most topK chunks for the query, highest similarity
// first, ties broken by (document_id, ascending chunk index) for
// determinism. Results below threshold are dropped even when within topK.
// topK <= 0 selects the configured default; threshold nil selects the
// configured default threshold.
func (s *RetrievalService) Retrieve(ctx context.Context, query string, topK int, threshold *float64) ([]models.ScoredChunk, error) {
	if strings.TrimSpace(query) == "" {
		return nil, &ValidationError{Msg: "query must not be empty"}
	}
	if topK <= 0 {
		topK = s.cfg.DefaultTopK
	}
	if topK > s.cfg.MaxTopK {
		topK = s.cfg.MaxTopK
	}
	if threshold == nil {
		threshold = s.cfg.DefaultThreshold
	}

	var vec []float32
	err := s.retry.Do(ctx, "embed query", func(ctx context.Context) error {
		cctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		v, err := s.embedder.Embed(cctx, query)
		if err != nil {
			return err
		}
		vec = v
		return nil
	})
	if err != nil {
		return nil, &EmbeddingError{Err: err}
	}

	var results []models.ScoredChunk
	err = s.retry.Do(ctx, "query vector store", func(ctx context.Context) error {
		cctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		r, err := s.store.Query(cctx, vec, topK, nil)
		if err != nil {
			return err
		}
		results = r
		return nil
	})
	if err != nil {
		return nil, &StoreError{Err: err}
	}

	if threshold != nil {
		kept := results[:0]
		for _, r := range results {
			if r.Score >= *threshold {
				kept = append(kept, r)
			}
		}
		results = kept
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if results[i].DocumentID != results[j].DocumentID {
			return results[i].DocumentID < results[j].DocumentID
		}
		return results[i].ChunkIndex < results[j].ChunkIndex
	})
	if len(results) > topK {
		results = results[:topK]
	}

	s.logger.Debug("retrieval complete", "top_k", topK, "results", len(results))
	return results, nil
}
