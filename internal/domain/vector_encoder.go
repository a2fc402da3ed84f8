package domain

import "context"

// VectorEncoder defines the interface for generating embeddings. One vector
// is returned per input text, in input order, regardless of how the
// implementation batches the provider calls. A failed sub-batch fails the
// whole call; partial vector lists are never returned.
type VectorEncoder interface {
	Encode(ctx context.Context, texts []string) ([][]float32, error)
	Version() string
}
