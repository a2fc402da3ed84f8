package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"ragdocs/internal/domain"
)

type chunkRepository struct {
	pool *pgxpool.Pool
}

// NewChunkRepository creates a new ChunkRepository.
func NewChunkRepository(pool *pgxpool.Pool) domain.ChunkRepository {
	return &chunkRepository{pool: pool}
}

type chunkExecutor interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

func (r *chunkRepository) getExecutor(ctx context.Context) chunkExecutor {
	if tx := ExtractTx(ctx); tx != nil {
		return tx
	}
	return r.pool
}

// InsertBatch persists one embedding batch worth of chunks. A transaction is
// a single session, so the per-chunk writes are pipelined into one pgx batch:
// all inserts are issued together in a single round trip and awaited together
// before the caller moves to the next batch.
func (r *chunkRepository) InsertBatch(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	query := `
		INSERT INTO chunks (id, document_id, text, metadata, embedding, chunk_index)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	batch := &pgx.Batch{}
	for _, chunk := range chunks {
		meta, err := json.Marshal(chunk.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal chunk metadata: %w", err)
		}
		batch.Queue(query, chunk.ID, chunk.DocumentID, chunk.Text, meta, chunk.Embedding, chunk.ChunkIndex)
	}

	results := r.getExecutor(ctx).SendBatch(ctx, batch)
	defer func() { _ = results.Close() }()

	for range chunks {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to insert chunk: %w", err)
		}
	}
	return nil
}

func (r *chunkRepository) Search(ctx context.Context, queryVector []float32, documentID *uuid.UUID, limit int) ([]domain.ScoredChunk, error) {
	query := `
		SELECT id, document_id, text, metadata, chunk_index,
		       1 - (embedding <=> $1) AS similarity
		FROM chunks
	`
	args := []interface{}{pgvector.NewVector(queryVector)}
	if documentID != nil {
		query += ` WHERE document_id = $2`
		args = append(args, *documentID)
	}
	args = append(args, limit)
	query += fmt.Sprintf(` ORDER BY similarity DESC LIMIT $%d`, len(args))

	rows, err := r.getExecutor(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}
	defer rows.Close()

	var results []domain.ScoredChunk
	for rows.Next() {
		var (
			sc      domain.ScoredChunk
			rawMeta []byte
		)
		if err := rows.Scan(&sc.ID, &sc.DocumentID, &sc.Text, &rawMeta, &sc.ChunkIndex, &sc.Similarity); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		sc.Metadata = domain.DecodeMetadata(rawMeta)
		results = append(results, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return results, nil
}
