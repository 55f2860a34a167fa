package models

import (
	"time"
)

// Document is a raw text source submitted for ingestion. It is immutable
// once chunked; re-ingesting the same ID overwrites previous chunks.
type Document struct {
	ID        string         `json:"id" bson:"_id"`
	Source    string         `json:"source" bson:"source"`
	Text      string         `json:"text" bson:"text"`
	Metadata  map[string]any `json:"metadata,omitempty" bson:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at" bson:"created_at"`
}

// Chunk is a bounded substring of a document, the unit of embedding and
// retrieval. Start and End are rune offsets into the document text.
// Consecutive chunks overlap by the configured overlap width.
type Chunk struct {
	DocumentID string `json:"document_id" bson:"document_id"`
	Index      int    `json:"index" bson:"index"`
	Text       string `json:"text" bson:"text"`
	Start      int    `json:"start" bson:"start"`
	End        int    `json:"end" bson:"end"`
}

// VectorRecord is the persisted (embedding, chunk text, metadata) tuple.
// Records are keyed on (DocumentID, ChunkIndex) and never mutated in place;
// writes are upserts so re-ingestion overwrites rather than duplicates.
type VectorRecord struct {
	DocumentID string         `json:"document_id" bson:"document_id"`
	ChunkIndex int            `json:"chunk_index" bson:"chunk_index"`
	Source     string         `json:"source" bson:"source"`
	Text       string         `json:"text" bson:"text"`
	Metadata   map[string]any `json:"metadata,omitempty" bson:"metadata,omitempty"`
	Embedding  []float32      `json:"embedding,omitempty" bson:"embedding"`
}

// ScoredChunk is a retrieval result element: a stored record plus its
// similarity score against the query vector.
type ScoredChunk struct {
	VectorRecord `bson:",inline"`
	Score        float64 `json:"score" bson:"score"`
}

// Turn roles. Conversations are append-only sequences of turns owned by the
// caller; the chat orchestrator never reorders or mutates them.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one conversation entry.
type Turn struct {
	Role    string `json:"role" bson:"role" binding:"required,oneof=user assistant"`
	Content string `json:"content" bson:"content" binding:"required"`
}

// PhaseTimings breaks a chat request down by pipeline phase.
type PhaseTimings struct {
	RetrievalMs      int `json:"retrieval_ms"`
	PromptBuildingMs int `json:"prompt_building_ms"`
	GenerationMs     int `json:"generation_ms"`
}

// Answer is the output of one chat request: the generated text plus the
// exact chunk set that was included in the prompt, for citation.
type Answer struct {
	Text      string        `json:"text"`
	Sources   []ScoredChunk `json:"sources"`
	Model     string        `json:"model,omitempty"`
	Timings   PhaseTimings  `json:"timings"`
	Timestamp time.Time     `json:"timestamp"`
}
