package domain

import (
	"context"

	"github.com/google/uuid"
)

// DocumentRepository defines the persistence operations for documents.
type DocumentRepository interface {
	// Create inserts a new document.
	Create(ctx context.Context, doc *Document) error

	// GetByID retrieves a document. Returns nil, nil if not found.
	GetByID(ctx context.Context, id uuid.UUID) (*Document, error)

	// List returns all documents ordered by upload time descending.
	List(ctx context.Context) ([]Document, error)

	// Delete removes a document and, via the store's cascade, all of its
	// chunks. Deleting an absent document is not an error.
	Delete(ctx context.Context, id uuid.UUID) error
}

// ChunkRepository defines the persistence and search operations for chunks.
type ChunkRepository interface {
	// InsertBatch persists a batch of chunks. All writes of the batch are
	// issued together and awaited together.
	InsertBatch(ctx context.Context, chunks []Chunk) error

	// Search returns the limit nearest chunks to queryVector by cosine
	// similarity, descending, optionally restricted to one document. An
	// empty store or filter match yields an empty slice, not an error.
	Search(ctx context.Context, queryVector []float32, documentID *uuid.UUID, limit int) ([]ScoredChunk, error)
}

// TransactionManager runs a function inside one atomic unit of work. The
// underlying connection is held for the duration and released on both
// success and failure paths.
type TransactionManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}
