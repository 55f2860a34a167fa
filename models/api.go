package models

import "time"

// IngestRequest is the body of POST /ingest. DocumentID is optional; a UUID
// is assigned when omitted. Re-using an ID overwrites the previous chunks.
type IngestRequest struct {
	DocumentID string         `json:"document_id,omitempty"`
	Source     string         `json:"source,omitempty"`
	Text       string         `json:"text" binding:"required"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

type IngestResponse struct {
	DocumentID    string `json:"document_id"`
	ChunksWritten int    `json:"chunks_written"`
}

// IngestURLRequest is the body of POST /ingest/url. MaxDepth defaults to 2
// when a multi-page crawl is requested without one.
type IngestURLRequest struct {
	URL      string `json:"url" binding:"required,url"`
	MaxPages int    `json:"max_pages,omitempty" binding:"omitempty,min=1,max=50"`
	MaxDepth int    `json:"max_depth,omitempty" binding:"omitempty,min=1,max=5"`
}

// ChatRequest carries the user query plus conversation state. Either the
// full turn list (caller-held history) or a conversation_id referencing the
// server-side session store may be supplied; the turn list wins when both
// are present.
type ChatRequest struct {
	Query               string   `json:"query" binding:"required,min=1,max=4000"`
	Conversation        []Turn   `json:"conversation,omitempty"`
	ConversationID      string   `json:"conversation_id,omitempty"`
	TopK                int      `json:"top_k,omitempty" binding:"omitempty,min=1,max=50"`
	SimilarityThreshold *float64 `json:"similarity_threshold,omitempty" binding:"omitempty,min=0,max=1"`
}

// SourceChunk is the citation view of a chunk that grounded an answer.
// Preview is capped at 500 runes.
type SourceChunk struct {
	DocumentID string         `json:"document_id"`
	ChunkIndex int            `json:"chunk_index"`
	Source     string         `json:"source,omitempty"`
	Score      float64        `json:"score"`
	Preview    string         `json:"preview"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

type ChatResponse struct {
	Answer         string        `json:"answer"`
	Sources        []SourceChunk `json:"sources"`
	ConversationID string        `json:"conversation_id,omitempty"`
	Timestamp      time.Time     `json:"timestamp"`
}

const sourcePreviewLimit = 500

// NewSourceChunk converts a retrieval result into its citation form.
func NewSourceChunk(sc ScoredChunk) SourceChunk {
	preview := sc.Text
	if runes := []rune(preview); len(runes) > sourcePreviewLimit {
		preview = string(runes[:sourcePreviewLimit])
	}
	return SourceChunk{
		DocumentID: sc.DocumentID,
		ChunkIndex: sc.ChunkIndex,
		Source:     sc.Source,
		Score:      sc.Score,
		Preview:    preview,
		Metadata:   sc.Metadata,
	}
}
