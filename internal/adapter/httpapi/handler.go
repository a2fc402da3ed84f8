// Package httpapi exposes the service over HTTP for the routing layer:
// document upload and management plus grounded question answering.
package httpapi

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"ragdocs/internal/domain"
	"ragdocs/internal/usecase"
)

// Handler binds the usecases to echo routes.
type Handler struct {
	ingestUsecase usecase.IngestDocumentUsecase
	queryUsecase  usecase.QueryUsecase
	docsUsecase   usecase.ManageDocumentsUsecase
	uploadDir     string
	logger        *slog.Logger
}

// NewHandler creates a Handler storing uploads under uploadDir.
func NewHandler(
	ingestUsecase usecase.IngestDocumentUsecase,
	queryUsecase usecase.QueryUsecase,
	docsUsecase usecase.ManageDocumentsUsecase,
	uploadDir string,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		ingestUsecase: ingestUsecase,
		queryUsecase:  queryUsecase,
		docsUsecase:   docsUsecase,
		uploadDir:     uploadDir,
		logger:        logger,
	}
}

// Register attaches all API routes.
func (h *Handler) Register(e *echo.Echo) {
	api := e.Group("/api")
	api.POST("/documents", h.UploadDocument)
	api.GET("/documents", h.ListDocuments)
	api.GET("/documents/:id", h.GetDocument)
	api.DELETE("/documents/:id", h.DeleteDocument)
	api.POST("/query", h.Query)
}

type documentResponse struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	FilePath   string    `json:"filepath"`
	UploadedAt time.Time `json:"uploaded_at"`
}

type uploadResponse struct {
	Message  string `json:"message"`
	Document struct {
		ID         string `json:"id"`
		Title      string `json:"title"`
		ChunkCount int    `json:"chunk_count"`
	} `json:"document"`
}

type queryRequest struct {
	Query      string `json:"query"`
	DocumentID string `json:"document_id,omitempty"`
}

type scoredChunkResponse struct {
	ID                 string          `json:"id"`
	DocumentID         string          `json:"document_id"`
	Text               string          `json:"text"`
	Metadata           domain.Metadata `json:"metadata"`
	ChunkIndex         int             `json:"chunk_index"`
	Similarity         float64         `json:"similarity"`
	OriginalSimilarity float64         `json:"original_similarity,omitempty"`
	ScoreComponents    *scoreBreakdown `json:"score_components,omitempty"`
}

type scoreBreakdown struct {
	Semantic       float64 `json:"semantic"`
	Position       float64 `json:"position"`
	Page           float64 `json:"page"`
	Recency        float64 `json:"recency"`
	Length         float64 `json:"length"`
	QueryTermMatch float64 `json:"query_term_match"`
}

type queryResponse struct {
	Answer     string                `json:"answer"`
	UsedChunks []string              `json:"used_chunks"`
	AllChunks  []scoredChunkResponse `json:"all_chunks"`
}

// UploadDocument stores the uploaded file and runs the ingestion pipeline.
// (POST /api/documents)
func (h *Handler) UploadDocument(c echo.Context) error {
	file, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "no file uploaded"})
	}

	title := c.FormValue("title")
	if title == "" {
		title = file.Filename
	}

	storedPath, err := h.storeUpload(file)
	if err != nil {
		h.logger.Error("upload_store_failed", slog.String("error", err.Error()))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to store upload"})
	}

	output, err := h.ingestUsecase.Ingest(c.Request().Context(), usecase.IngestDocumentInput{
		FilePath: storedPath,
		Title:    title,
	})
	if err != nil {
		if errors.Is(err, domain.ErrUnsupportedFormat) {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "unsupported document format"})
		}
		h.logger.Error("ingest_request_failed", slog.String("error", err.Error()))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "error processing document"})
	}

	resp := uploadResponse{Message: "document processed successfully"}
	resp.Document.ID = output.DocumentID.String()
	resp.Document.Title = title
	resp.Document.ChunkCount = output.ChunkCount
	return c.JSON(http.StatusCreated, resp)
}

// ListDocuments returns all documents, newest first.
// (GET /api/documents)
func (h *Handler) ListDocuments(c echo.Context) error {
	docs, err := h.docsUsecase.List(c.Request().Context())
	if err != nil {
		h.logger.Error("list_documents_failed", slog.String("error", err.Error()))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "error retrieving documents"})
	}

	resp := make([]documentResponse, 0, len(docs))
	for _, d := range docs {
		resp = append(resp, toDocumentResponse(d))
	}
	return c.JSON(http.StatusOK, resp)
}

// GetDocument returns one document by id.
// (GET /api/documents/:id)
func (h *Handler) GetDocument(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid document id"})
	}

	doc, err := h.docsUsecase.Get(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "document not found"})
		}
		h.logger.Error("get_document_failed", slog.String("error", err.Error()))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "error retrieving document"})
	}
	return c.JSON(http.StatusOK, toDocumentResponse(*doc))
}

// DeleteDocument removes a document and its chunks. Idempotent.
// (DELETE /api/documents/:id)
func (h *Handler) DeleteDocument(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid document id"})
	}

	if err := h.docsUsecase.Delete(c.Request().Context(), id); err != nil {
		h.logger.Error("delete_document_failed", slog.String("error", err.Error()))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "error deleting document"})
	}
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

// Query answers a question over the corpus, optionally scoped to one
// document.
// (POST /api/query)
func (h *Handler) Query(c echo.Context) error {
	var req queryRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}

	var documentID *uuid.UUID
	if req.DocumentID != "" {
		id, err := uuid.Parse(req.DocumentID)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid document id"})
		}
		documentID = &id
	}

	result, err := h.queryUsecase.Query(c.Request().Context(), req.Query, documentID)
	if err != nil {
		if errors.Is(err, domain.ErrEmptyQuery) {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "query is required"})
		}
		h.logger.Error("query_failed", slog.String("error", err.Error()))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "error processing query"})
	}
	return c.JSON(http.StatusOK, toQueryResponse(result))
}

// storeUpload copies the multipart file into the upload directory under a
// timestamped name, preserving the original extension for format dispatch.
func (h *Handler) storeUpload(file *multipart.FileHeader) (string, error) {
	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create upload dir: %w", err)
	}

	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open upload: %w", err)
	}
	defer func() { _ = src.Close() }()

	name := fmt.Sprintf("%d%s", time.Now().UnixMilli(), filepath.Ext(file.Filename))
	dstPath := filepath.Join(h.uploadDir, name)
	dst, err := os.Create(dstPath)
	if err != nil {
		return "", fmt.Errorf("failed to create upload file: %w", err)
	}
	defer func() { _ = dst.Close() }()

	if _, err := io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("failed to write upload: %w", err)
	}
	return dstPath, nil
}

func toDocumentResponse(d domain.Document) documentResponse {
	return documentResponse{
		ID:         d.ID.String(),
		Title:      d.Title,
		FilePath:   d.FilePath,
		UploadedAt: d.UploadedAt,
	}
}

func toQueryResponse(result *domain.AnswerResult) queryResponse {
	used := make([]string, 0, len(result.UsedChunks))
	for _, id := range result.UsedChunks {
		used = append(used, id.String())
	}

	chunks := make([]scoredChunkResponse, 0, len(result.AllChunks))
	for _, sc := range result.AllChunks {
		item := scoredChunkResponse{
			ID:                 sc.ID.String(),
			DocumentID:         sc.DocumentID.String(),
			Text:               sc.Text,
			Metadata:           sc.Metadata,
			ChunkIndex:         sc.ChunkIndex,
			Similarity:         sc.Similarity,
			OriginalSimilarity: sc.OriginalSimilarity,
		}
		if sc.Components != nil {
			item.ScoreComponents = &scoreBreakdown{
				Semantic:       sc.Components.Semantic,
				Position:       sc.Components.Position,
				Page:           sc.Components.Page,
				Recency:        sc.Components.Recency,
				Length:         sc.Components.Length,
				QueryTermMatch: sc.Components.QueryTermMatch,
			}
		}
		chunks = append(chunks, item)
	}

	return queryResponse{
		Answer:     result.Answer,
		UsedChunks: used,
		AllChunks:  chunks,
	}
}
