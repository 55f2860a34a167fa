package services

import (
	"fmt"

	"rag-backend/models"
)

// Chunker splits document text into bounded, overlapping chunks. Cuts prefer
// sentence or paragraph breaks within a lookback window behind the size
// limit, falling back to a hard cut so chunk length stays bounded.
//
// Offsets are rune-based so multi-byte text is never split mid-character.
type Chunker struct {
	maxSize  int
	overlap  int
	lookback int
}

// NewChunker validates the chunking parameters. The lookback must stay below
// maxSize-overlap so a boundary-adjusted cut always makes forward progress.
func NewChunker(maxSize, overlap, lookback int) (*Chunker, error) {
	if maxSize <= 0 {
		return nil, &ConfigurationError{Msg: fmt.Sprintf("chunk size must be positive, got %d", maxSize)}
	}
	if overlap < 0 || overlap >= maxSize {
		return nil, &ConfigurationError{Msg: fmt.Sprintf("chunk overlap must satisfy 0 <= overlap < size, got overlap=%d size=%d", overlap, maxSize)}
	}
	if lookback < 0 || lookback >= maxSize-overlap {
		return nil, &ConfigurationError{Msg: fmt.Sprintf("boundary lookback must satisfy 0 <= lookback < size-overlap, got lookback=%d", lookback)}
	}
	return &Chunker{maxSize: maxSize, overlap: overlap, lookback: lookback}, nil
}

// Chunk splits the document into chunks with monotonically increasing
// indices starting at 0. Consecutive chunks overlap by exactly the
// configured overlap; concatenating the chunks in index order and dropping
// the leading overlap of each subsequent chunk reconstructs the document.
func (c *Chunker) Chunk(doc models.Document) []models.Chunk {
	runes := []rune(doc.Text)
	if len(runes) == 0 {
		return nil
	}

	var chunks []models.Chunk
	start := 0
	for idx := 0; ; idx++ {
		end := start + c.maxSize
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = c.preferBreak(runes, start, end)
		}

		chunks = append(chunks, models.Chunk{
			DocumentID: doc.ID,
			Index:      idx,
			Text:       string(runes[start:end]),
			Start:      start,
			End:        end,
		})

		if end == len(runes) {
			return chunks
		}
		start = end - c.overlap
	}
}

// preferBreak moves the cut backward to just after the nearest sentence or
// paragraph break within the lookback window. Returns end unchanged when the
// window holds no break.
func (c *Chunker) preferBreak(runes []rune, start, end int) int {
	limit := end - c.lookback
	if limit < start+c.overlap+1 {
		limit = start + c.overlap + 1
	}
	for j := end; j > limit; j-- {
		if isBreakRune(runes[j-1]) {
			return j
		}
	}
	return end
}

func isBreakRune(r rune) bool {
	switch r {
	case '.', '!', '?', '\n':
		return true
	}
	return false
}
