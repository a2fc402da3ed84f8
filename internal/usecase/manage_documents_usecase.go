package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"ragdocs/internal/domain"
)

// ManageDocumentsUsecase covers the read and delete side of the document
// lifecycle. Ingestion is the only way documents come into existence.
type ManageDocumentsUsecase interface {
	// List returns all documents, newest upload first.
	List(ctx context.Context) ([]domain.Document, error)

	// Get returns the document or domain.ErrNotFound.
	Get(ctx context.Context, id uuid.UUID) (*domain.Document, error)

	// Delete removes a document and all of its chunks. Idempotent.
	Delete(ctx context.Context, id uuid.UUID) error
}

type manageDocumentsUsecase struct {
	docRepo domain.DocumentRepository
	logger  *slog.Logger
}

// NewManageDocumentsUsecase creates a ManageDocumentsUsecase.
func NewManageDocumentsUsecase(docRepo domain.DocumentRepository, logger *slog.Logger) ManageDocumentsUsecase {
	return &manageDocumentsUsecase{docRepo: docRepo, logger: logger}
}

func (u *manageDocumentsUsecase) List(ctx context.Context) ([]domain.Document, error) {
	docs, err := u.docRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	return docs, nil
}

func (u *manageDocumentsUsecase) Get(ctx context.Context, id uuid.UUID) (*domain.Document, error) {
	doc, err := u.docRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	if doc == nil {
		return nil, domain.ErrNotFound
	}
	return doc, nil
}

func (u *manageDocumentsUsecase) Delete(ctx context.Context, id uuid.UUID) error {
	if err := u.docRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	u.logger.Info("document_deleted", slog.String("document_id", id.String()))
	return nil
}
