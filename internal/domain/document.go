package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

// EmbeddingDim is the fixed dimensionality of chunk and query vectors.
const EmbeddingDim = 1536

// Document represents an ingested file. Documents are immutable once
// created; deletion cascades to all owned chunks.
type Document struct {
	ID         uuid.UUID
	Title      string
	FilePath   string
	UploadedAt time.Time
}

// Chunk is the persistable unit of embedding and retrieval. ChunkIndex is
// zero-based and contiguous within a document, in original document order.
type Chunk struct {
	ID         uuid.UUID
	DocumentID uuid.UUID
	Text       string
	Metadata   Metadata
	ChunkIndex int
	Embedding  pgvector.Vector
}

// Page is one unit of loader output: source text plus provenance metadata
// (e.g. page number for PDFs).
type Page struct {
	Text     string
	Metadata Metadata
}

// TextChunk is a chunker-produced segment before it gains identity and an
// embedding.
type TextChunk struct {
	Index    int
	Text     string
	Metadata Metadata
}

// ScoredChunk augments a chunk with relevance scores for the lifetime of a
// single query. Before reranking, Similarity holds the raw cosine-derived
// score; after reranking it holds the composite score and Components carries
// the per-signal breakdown.
type ScoredChunk struct {
	Chunk
	Similarity         float64
	OriginalSimilarity float64
	Components         *ScoreBreakdown
}

// ScoreBreakdown records the six rerank signal values, pre-weighting, each
// in [0,1].
type ScoreBreakdown struct {
	Semantic       float64
	Position       float64
	Page           float64
	Recency        float64
	Length         float64
	QueryTermMatch float64
}

// AnswerResult is the final output of a query: the synthesized answer, the
// ids of chunks that fed the generation prompt, and the full ranked
// candidate list for transparency. It is returned to the caller and never
// persisted.
type AnswerResult struct {
	Answer     string
	UsedChunks []uuid.UUID
	AllChunks  []ScoredChunk
}
