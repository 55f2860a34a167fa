package services

import (
	"errors"
	"strings"
	"testing"

	"rag-backend/models"
)

func mustChunker(t *testing.T, size, overlap, lookback int) *Chunker {
	t.Helper()
	c, err := NewChunker(size, overlap, lookback)
	if err != nil {
		t.Fatalf("NewChunker(%d,%d,%d): %v", size, overlap, lookback, err)
	}
	return c
}

func TestNewChunkerValidation(t *testing.T) {
	cases := []struct {
		name                    string
		size, overlap, lookback int
		wantErr                 bool
	}{
		{"valid", 1000, 200, 120, false},
		{"zero overlap", 100, 0, 0, false},
		{"zero size", 0, 0, 0, true},
		{"negative overlap", 100, -1, 0, true},
		{"overlap equals size", 100, 100, 0, true},
		{"lookback too large", 100, 20, 80, true},
		{"negative lookback", 100, 20, -1, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewChunker(tc.size, tc.overlap, tc.lookback)
			if (err != nil) != tc.wantErr {
				t.Fatalf("NewChunker(%d,%d,%d) err=%v, wantErr=%v", tc.size, tc.overlap, tc.lookback, err, tc.wantErr)
			}
			if err != nil {
				var cfgErr *ConfigurationError
				if !errors.As(err, &cfgErr) {
					t.Fatalf("error is %T, want *ConfigurationError", err)
				}
			}
		})
	}
}

func TestChunkEmptyDocument(t *testing.T) {
	c := mustChunker(t, 100, 20, 0)
	if got := c.Chunk(models.Document{ID: "d", Text: ""}); got != nil {
		t.Fatalf("empty document produced %d chunks, want none", len(got))
	}
}

func TestChunkShortDocumentSingleChunk(t *testing.T) {
	c := mustChunker(t, 100, 20, 10)
	doc := models.Document{ID: "d", Text: "short text."}
	chunks := c.Chunk(doc)
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	if chunks[0].Text != doc.Text {
		t.Fatalf("chunk text = %q, want %q", chunks[0].Text, doc.Text)
	}
	if chunks[0].Index != 0 || chunks[0].Start != 0 || chunks[0].End != len([]rune(doc.Text)) {
		t.Fatalf("chunk offsets = (%d,%d,%d)", chunks[0].Index, chunks[0].Start, chunks[0].End)
	}
}

func TestChunkInvariants(t *testing.T) {
	cases := []struct {
		name                    string
		size, overlap, lookback int
		text                    string
	}{
		{"plain no boundaries", 10, 3, 0, strings.Repeat("a", 47)},
		{"with sentences", 40, 10, 15, "One sentence here. Another sentence follows! Third? And then a longer tail without punctuation to force a hard cut somewhere."},
		{"paragraphs", 30, 5, 10, "para one\n\npara two is longer\n\npara three closes the document"},
		{"multibyte runes", 12, 4, 5, strings.Repeat("héllo wörld. ", 8)},
		{"exact multiple", 10, 0, 0, strings.Repeat("b", 30)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := mustChunker(t, tc.size, tc.overlap, tc.lookback)
			doc := models.Document{ID: "doc-1", Text: tc.text}
			chunks := c.Chunk(doc)
			if len(chunks) == 0 {
				t.Fatal("no chunks produced")
			}

			runes := []rune(tc.text)
			for i, ch := range chunks {
				if ch.Index != i {
					t.Fatalf("chunk %d has index %d", i, ch.Index)
				}
				if n := len([]rune(ch.Text)); n > tc.size {
					t.Fatalf("chunk %d length %d exceeds limit %d", i, n, tc.size)
				}
				if ch.Text != string(runes[ch.Start:ch.End]) {
					t.Fatalf("chunk %d text does not match its offsets", i)
				}
				if i > 0 {
					prev := chunks[i-1]
					if ch.Start != prev.End-tc.overlap {
						t.Fatalf("chunk %d starts at %d, want %d (prev end %d, overlap %d)",
							i, ch.Start, prev.End-tc.overlap, prev.End, tc.overlap)
					}
				}
			}
			if last := chunks[len(chunks)-1]; last.End != len(runes) {
				t.Fatalf("last chunk ends at %d, want %d", last.End, len(runes))
			}

			// Dropping each subsequent chunk's leading overlap must
			// reconstruct the document exactly.
			var b strings.Builder
			for i, ch := range chunks {
				text := []rune(ch.Text)
				if i > 0 {
					text = text[tc.overlap:]
				}
				b.WriteString(string(text))
			}
			if b.String() != tc.text {
				t.Fatalf("reconstruction mismatch:\ngot  %q\nwant %q", b.String(), tc.text)
			}
		})
	}
}

func TestChunkPrefersSentenceBoundary(t *testing.T) {
	// "AAAA. BBBB" with size 8 and lookback 5: the hard cut at 8 lands
	// inside "BBBB", but the period at offset 5 is within the lookback
	// window, so the first chunk should end just after it.
	c := mustChunker(t, 8, 1, 5)
	chunks := c.Chunk(models.Document{ID: "d", Text: "AAAA. BBBB"})
	if len(chunks) < 2 {
		t.Fatalf("got %d chunks, want at least 2", len(chunks))
	}
	if chunks[0].Text != "AAAA." {
		t.Fatalf("first chunk = %q, want %q", chunks[0].Text, "AAAA.")
	}
}

func TestChunkHardCutWithoutBoundary(t *testing.T) {
	c := mustChunker(t, 10, 2, 5)
	chunks := c.Chunk(models.Document{ID: "d", Text: strings.Repeat("x", 25)})
	if chunks[0].End != 10 {
		t.Fatalf("first chunk ends at %d, want hard cut at 10", chunks[0].End)
	}
}
