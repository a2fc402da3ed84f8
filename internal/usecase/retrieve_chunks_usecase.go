package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"ragdocs/internal/domain"
)

// DefaultRetrieveLimit is the number of nearest-neighbor candidates fetched
// per query.
const DefaultRetrieveLimit = 15

// RetrieveChunksUsecase embeds a query and returns the nearest chunks by
// cosine similarity, descending. No chunks matching is a success with an
// empty result, not a failure.
type RetrieveChunksUsecase interface {
	Retrieve(ctx context.Context, query string, documentID *uuid.UUID, limit int) ([]domain.ScoredChunk, error)
}

type retrieveChunksUsecase struct {
	chunkRepo domain.ChunkRepository
	encoder   domain.VectorEncoder
	logger    *slog.Logger
}

// NewRetrieveChunksUsecase creates a RetrieveChunksUsecase.
func NewRetrieveChunksUsecase(chunkRepo domain.ChunkRepository, encoder domain.VectorEncoder, logger *slog.Logger) RetrieveChunksUsecase {
	return &retrieveChunksUsecase{
		chunkRepo: chunkRepo,
		encoder:   encoder,
		logger:    logger,
	}
}

func (u *retrieveChunksUsecase) Retrieve(ctx context.Context, query string, documentID *uuid.UUID, limit int) ([]domain.ScoredChunk, error) {
	if limit <= 0 {
		limit = DefaultRetrieveLimit
	}

	vectors, err := u.encoder.Encode(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("expected 1 query embedding, got %d", len(vectors))
	}

	results, err := u.chunkRepo.Search(ctx, vectors[0], documentID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}

	u.logger.Info("retrieve_completed",
		slog.Int("candidate_count", len(results)),
		slog.Int("limit", limit),
		slog.Bool("document_scoped", documentID != nil),
	)
	return results, nil
}
