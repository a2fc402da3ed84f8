package domain

import (
	"fmt"

	"github.com/tmc/langchaingo/textsplitter"
)

const (
	// DefaultChunkSize is the maximum chunk length in characters.
	DefaultChunkSize = 1000
	// DefaultChunkOverlap is how many characters consecutive chunks share.
	DefaultChunkOverlap = 200
)

// Chunker splits loaded pages into an ordered, finite sequence of text
// chunks. Implementations must be deterministic: the same pages and
// configuration always yield the same sequence.
type Chunker interface {
	Chunk(pages []Page) ([]TextChunk, error)
}

type recursiveChunker struct {
	splitter textsplitter.RecursiveCharacter
}

// NewChunker creates a chunker that splits on paragraph, line, word and
// character boundaries in that order of preference, bounded by size with
// overlap between consecutive chunks. Zero or negative arguments fall back
// to the defaults.
func NewChunker(size, overlap int) Chunker {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = DefaultChunkOverlap
	}
	return &recursiveChunker{
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(size),
			textsplitter.WithChunkOverlap(overlap),
		),
	}
}

// Chunk splits every page and assigns zero-based, contiguous indices across
// the whole document. Each chunk inherits a copy of its page's metadata.
func (c *recursiveChunker) Chunk(pages []Page) ([]TextChunk, error) {
	var chunks []TextChunk
	for _, page := range pages {
		parts, err := c.splitter.SplitText(page.Text)
		if err != nil {
			return nil, fmt.Errorf("failed to split page text: %w", err)
		}
		for _, part := range parts {
			if part == "" {
				continue
			}
			chunks = append(chunks, TextChunk{
				Index:    len(chunks),
				Text:     part,
				Metadata: page.Metadata.Clone(),
			})
		}
	}
	return chunks, nil
}
