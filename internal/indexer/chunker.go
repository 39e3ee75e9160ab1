// Package indexer provides document chunking and the ingestion pipeline.
package indexer

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/hyperjump/kioku/internal/models"
)

// Chunker splits text into overlapping word-based chunks.
type Chunker struct {
	chunkSize    int
	chunkOverlap int
}

// NewChunker creates a chunker with the given size and overlap (in words).
// An overlap at or above the size is accepted; the window then advances one word at a time.
func NewChunker(chunkSize, chunkOverlap int) (*Chunker, error) {
	c := &Chunker{chunkSize: chunkSize, chunkOverlap: chunkOverlap}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Chunker) validate() error {
	if c.chunkSize <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", models.ErrInvalidConfiguration, c.chunkSize)
	}
	if c.chunkOverlap < 0 {
		return fmt.Errorf("%w: chunk overlap must not be negative, got %d", models.ErrInvalidConfiguration, c.chunkOverlap)
	}
	return nil
}

// Step is the number of words the window advances per chunk.
func (c *Chunker) Step() int {
	return max(1, c.chunkSize-c.chunkOverlap)
}

// Chunk splits text into chunks with overlapping windows. The last window may be shorter
// than the chunk size. Whitespace-only text yields no chunks and no error.
func (c *Chunker) Chunk(ctx context.Context, docID, text string) ([]models.Chunk, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	words := strings.Fields(text)
	if len(words) == 0 {
		return []models.Chunk{}, nil
	}
	step := c.Step()
	chunks := make([]models.Chunk, 0, len(words)/step+1)
	for start := 0; start < len(words); start += step {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := min(start+c.chunkSize, len(words))
		content := strings.Join(words[start:end], " ")
		index := len(chunks)
		chunks = append(chunks, models.Chunk{
			ID:         fmt.Sprintf("%s_%d", docID, index),
			DocumentID: docID,
			Content:    content,
			Index:      index,
			Start:      start,
			End:        end,
			Metadata: map[string]any{
				"word_count": end - start,
				"char_count": utf8.RuneCountInString(content),
			},
		})
		if end >= len(words) {
			break
		}
	}
	return chunks, nil
}
