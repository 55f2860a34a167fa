package models

import (
	"strings"
	"testing"
)

func TestNewSourceChunkPreviewCap(t *testing.T) {
	sc := ScoredChunk{
		VectorRecord: VectorRecord{
			DocumentID: "doc-1",
			ChunkIndex: 2,
			Source:     "guide.md",
			Text:       strings.Repeat("é", 600),
		},
		Score: 0.87,
	}
	out := NewSourceChunk(sc)
	if got := len([]rune(out.Preview)); got != 500 {
		t.Fatalf("preview holds %d runes, want 500", got)
	}
	if out.DocumentID != "doc-1" || out.ChunkIndex != 2 || out.Source != "guide.md" || out.Score != 0.87 {
		t.Fatalf("citation fields not carried over: %+v", out)
	}
}

func TestNewSourceChunkShortTextUntouched(t *testing.T) {
	sc := ScoredChunk{VectorRecord: VectorRecord{Text: "short"}}
	if out := NewSourceChunk(sc); out.Preview != "short" {
		t.Fatalf("preview = %q, want %q", out.Preview, "short")
	}
}
