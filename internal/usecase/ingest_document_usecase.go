package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"ragdocs/internal/domain"
)

// DefaultEmbedBatchSize is how many chunks are embedded and persisted per
// round trip to the embedding provider.
const DefaultEmbedBatchSize = 50

// IngestDocumentInput identifies the file to ingest and its display title.
type IngestDocumentInput struct {
	FilePath string
	Title    string
}

// IngestDocumentOutput reports the created document and its chunk count.
type IngestDocumentOutput struct {
	DocumentID uuid.UUID
	ChunkCount int
}

// IngestDocumentUsecase loads a file, chunks it, embeds the chunks in
// batches and persists everything under one atomic unit of work.
type IngestDocumentUsecase interface {
	Ingest(ctx context.Context, input IngestDocumentInput) (*IngestDocumentOutput, error)
}

type ingestDocumentUsecase struct {
	docRepo   domain.DocumentRepository
	chunkRepo domain.ChunkRepository
	txManager domain.TransactionManager
	loader    domain.DocumentLoader
	chunker   domain.Chunker
	encoder   domain.VectorEncoder
	batchSize int
	logger    *slog.Logger
}

// NewIngestDocumentUsecase wires the ingestion pipeline. batchSize <= 0
// falls back to DefaultEmbedBatchSize.
func NewIngestDocumentUsecase(
	docRepo domain.DocumentRepository,
	chunkRepo domain.ChunkRepository,
	txManager domain.TransactionManager,
	loader domain.DocumentLoader,
	chunker domain.Chunker,
	encoder domain.VectorEncoder,
	batchSize int,
	logger *slog.Logger,
) IngestDocumentUsecase {
	if batchSize <= 0 {
		batchSize = DefaultEmbedBatchSize
	}
	return &ingestDocumentUsecase{
		docRepo:   docRepo,
		chunkRepo: chunkRepo,
		txManager: txManager,
		loader:    loader,
		chunker:   chunker,
		encoder:   encoder,
		batchSize: batchSize,
		logger:    logger,
	}
}

// Ingest is all-or-nothing per document: a failure at any stage (load,
// embed, persist) rolls back the whole transaction, so a partial document is
// never visible to queries.
func (u *ingestDocumentUsecase) Ingest(ctx context.Context, input IngestDocumentInput) (*IngestDocumentOutput, error) {
	pages, err := u.loader.Load(ctx, input.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load document: %w", err)
	}

	chunks, err := u.chunker.Chunk(pages)
	if err != nil {
		return nil, fmt.Errorf("failed to chunk document: %w", err)
	}

	doc := &domain.Document{
		ID:         uuid.New(),
		Title:      input.Title,
		FilePath:   input.FilePath,
		UploadedAt: time.Now(),
	}

	u.logger.Info("ingest_started",
		slog.String("document_id", doc.ID.String()),
		slog.String("title", input.Title),
		slog.Int("chunk_count", len(chunks)),
	)

	err = u.txManager.RunInTx(ctx, func(ctx context.Context) error {
		if err := u.docRepo.Create(ctx, doc); err != nil {
			return fmt.Errorf("failed to create document: %w", err)
		}

		// Batches run sequentially, one embedding round trip each, to bound
		// the request rate to the provider. The writes inside a batch are
		// issued together and awaited before the next batch starts.
		for offset := 0; offset < len(chunks); offset += u.batchSize {
			end := offset + u.batchSize
			if end > len(chunks) {
				end = len(chunks)
			}
			if err := u.processBatch(ctx, doc.ID, chunks[offset:end]); err != nil {
				return err
			}
			u.logger.Info("ingest_batch_completed",
				slog.String("document_id", doc.ID.String()),
				slog.Int("batch", offset/u.batchSize+1),
				slog.Int("from", offset),
				slog.Int("to", end),
			)
		}
		return nil
	})
	if err != nil {
		u.logger.Error("ingest_failed",
			slog.String("document_id", doc.ID.String()),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	u.logger.Info("ingest_completed",
		slog.String("document_id", doc.ID.String()),
		slog.Int("chunk_count", len(chunks)),
	)
	return &IngestDocumentOutput{
		DocumentID: doc.ID,
		ChunkCount: len(chunks),
	}, nil
}

func (u *ingestDocumentUsecase) processBatch(ctx context.Context, documentID uuid.UUID, batch []domain.TextChunk) error {
	texts := make([]string, len(batch))
	for i, c := range batch {
		texts[i] = c.Text
	}

	embeddings, err := u.encoder.Encode(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to embed chunk batch: %w", err)
	}
	if len(embeddings) != len(batch) {
		return fmt.Errorf("embeddings count mismatch: expected %d, got %d", len(batch), len(embeddings))
	}

	rows := make([]domain.Chunk, len(batch))
	for i, c := range batch {
		rows[i] = domain.Chunk{
			ID:         uuid.New(),
			DocumentID: documentID,
			Text:       c.Text,
			Metadata:   c.Metadata,
			ChunkIndex: c.Index,
			Embedding:  pgvector.NewVector(embeddings[i]),
		}
	}

	if err := u.chunkRepo.InsertBatch(ctx, rows); err != nil {
		return fmt.Errorf("failed to persist chunk batch: %w", err)
	}
	return nil
}
