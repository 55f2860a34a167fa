package services

import (
	"context"
	"errors"
	"testing"

	"rag-backend/models"
)

func newTestRetrieval(t *testing.T, embedder Embedder, store VectorStore, cfg RetrievalConfig) *RetrievalService {
	t.Helper()
	return NewRetrievalService(embedder, store, cfg, noRetry(), testTimeout, testLogger())
}

func floatPtr(f float64) *float64 { return &f }

func TestRetrieveRejectsEmptyQuery(t *testing.T) {
	svc := newTestRetrieval(t, &stubEmbedder{dims: 4}, newMemoryStore(), RetrievalConfig{})
	for _, q := range []string{"", "  \n "} {
		_, err := svc.Retrieve(context.Background(), q, 0, nil)
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("query %q: got %v, want ValidationError", q, err)
		}
	}
}

func TestRetrieveOrdersByDescendingScore(t *testing.T) {
	store := newMemoryStore()
	store.results = []models.ScoredChunk{
		scored("b", 0, "b.txt", "mid", 0.5),
		scored("a", 2, "a.txt", "best", 0.9),
		scored("c", 1, "c.txt", "worst", 0.1),
	}
	svc := newTestRetrieval(t, &stubEmbedder{dims: 4}, store, RetrievalConfig{DefaultTopK: 4, MaxTopK: 20})

	got, err := svc.Retrieve(context.Background(), "query", 3, nil)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d results, want 3", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].Score > got[i-1].Score {
			t.Fatalf("results out of order at %d: %v then %v", i, got[i-1].Score, got[i].Score)
		}
	}
	if got[0].Text != "best" || got[2].Text != "worst" {
		t.Fatalf("unexpected ordering: %q, %q, %q", got[0].Text, got[1].Text, got[2].Text)
	}
}

func TestRetrieveBreaksTiesDeterministically(t *testing.T) {
	store := newMemoryStore()
	store.results = []models.ScoredChunk{
		scored("b", 0, "", "", 0.7),
		scored("a", 3, "", "", 0.7),
		scored("a", 1, "", "", 0.7),
	}
	svc := newTestRetrieval(t, &stubEmbedder{dims: 4}, store, RetrievalConfig{DefaultTopK: 4, MaxTopK: 20})

	got, err := svc.Retrieve(context.Background(), "query", 3, nil)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	want := []struct {
		doc string
		idx int
	}{{"a", 1}, {"a", 3}, {"b", 0}}
	for i, w := range want {
		if got[i].DocumentID != w.doc || got[i].ChunkIndex != w.idx {
			t.Fatalf("position %d = (%s,%d), want (%s,%d)", i, got[i].DocumentID, got[i].ChunkIndex, w.doc, w.idx)
		}
	}
}

func TestRetrieveAppliesThreshold(t *testing.T) {
	store := newMemoryStore()
	store.results = []models.ScoredChunk{
		scored("a", 0, "", "keep", 0.8),
		scored("a", 1, "", "drop", 0.2),
		scored("a", 2, "", "boundary", 0.5),
	}
	svc := newTestRetrieval(t, &stubEmbedder{dims: 4}, store, RetrievalConfig{DefaultTopK: 4, MaxTopK: 20})

	got, err := svc.Retrieve(context.Background(), "query", 10, floatPtr(0.5))
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d results, want 2 (score at threshold is kept)", len(got))
	}
	for _, r := range got {
		if r.Score < 0.5 {
			t.Fatalf("result below threshold survived: %v", r.Score)
		}
	}
}

func TestRetrieveDefaultThresholdFromConfig(t *testing.T) {
	store := newMemoryStore()
	store.results = []models.ScoredChunk{
		scored("a", 0, "", "", 0.9),
		scored("a", 1, "", "", 0.1),
	}
	cfg := RetrievalConfig{DefaultTopK: 4, MaxTopK: 20, DefaultThreshold: floatPtr(0.5)}
	svc := newTestRetrieval(t, &stubEmbedder{dims: 4}, store, cfg)

	got, err := svc.Retrieve(context.Background(), "query", 0, nil)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d results, want 1 after default threshold", len(got))
	}
}

func TestRetrieveTopKDefaultsAndCap(t *testing.T) {
	store := newMemoryStore()
	for i := 0; i < 30; i++ {
		store.results = append(store.results, scored("a", i, "", "", 1.0-float64(i)/100))
	}
	svc := newTestRetrieval(t, &stubEmbedder{dims: 4}, store, RetrievalConfig{DefaultTopK: 4, MaxTopK: 20})

	got, err := svc.Retrieve(context.Background(), "query", 0, nil)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("topK 0 returned %d results, want default 4", len(got))
	}

	got, err = svc.Retrieve(context.Background(), "query", 100, nil)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(got) > 20 {
		t.Fatalf("topK 100 returned %d results, want at most cap 20", len(got))
	}
}

func TestRetrieveGatewayErrors(t *testing.T) {
	t.Run("embedding failure", func(t *testing.T) {
		svc := newTestRetrieval(t, &stubEmbedder{dims: 4, failAll: true}, newMemoryStore(), RetrievalConfig{})
		_, err := svc.Retrieve(context.Background(), "query", 0, nil)
		var embErr *EmbeddingError
		if !errors.As(err, &embErr) {
			t.Fatalf("got %v, want EmbeddingError", err)
		}
	})
	t.Run("store failure", func(t *testing.T) {
		store := newMemoryStore()
		store.failGet = true
		svc := newTestRetrieval(t, &stubEmbedder{dims: 4}, store, RetrievalConfig{})
		_, err := svc.Retrieve(context.Background(), "query", 0, nil)
		var stErr *StoreError
		if !errors.As(err, &stErr) {
			t.Fatalf("got %v, want StoreError", err)
		}
	})
}
