package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ragdocs/internal/adapter/httpapi"
	"ragdocs/internal/domain"
	"ragdocs/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubIngestUsecase struct {
	output *usecase.IngestDocumentOutput
	err    error
	input  usecase.IngestDocumentInput
}

func (s *stubIngestUsecase) Ingest(ctx context.Context, input usecase.IngestDocumentInput) (*usecase.IngestDocumentOutput, error) {
	s.input = input
	return s.output, s.err
}

type stubQueryUsecase struct {
	result *domain.AnswerResult
	err    error
	query  string
	docID  *uuid.UUID
}

func (s *stubQueryUsecase) Query(ctx context.Context, text string, documentID *uuid.UUID) (*domain.AnswerResult, error) {
	s.query = text
	s.docID = documentID
	return s.result, s.err
}

type stubDocsUsecase struct {
	docs []domain.Document
	doc  *domain.Document
	err  error
}

func (s *stubDocsUsecase) List(ctx context.Context) ([]domain.Document, error) {
	return s.docs, s.err
}

func (s *stubDocsUsecase) Get(ctx context.Context, id uuid.UUID) (*domain.Document, error) {
	if s.doc == nil && s.err == nil {
		return nil, domain.ErrNotFound
	}
	return s.doc, s.err
}

func (s *stubDocsUsecase) Delete(ctx context.Context, id uuid.UUID) error {
	return s.err
}

func newTestHandler(t *testing.T, ingest *stubIngestUsecase, query *stubQueryUsecase, docs *stubDocsUsecase) *echo.Echo {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	h := httpapi.NewHandler(ingest, query, docs, t.TempDir(), logger)
	e := echo.New()
	h.Register(e)
	return e
}

func multipartUpload(t *testing.T, filename, content, title string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	if title != "" {
		require.NoError(t, writer.WriteField("title", title))
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestHandler_UploadDocument(t *testing.T) {
	ingest := &stubIngestUsecase{
		output: &usecase.IngestDocumentOutput{DocumentID: uuid.New(), ChunkCount: 12},
	}
	e := newTestHandler(t, ingest, &stubQueryUsecase{}, &stubDocsUsecase{})

	body, contentType := multipartUpload(t, "report.txt", "some content", "Quarterly report")
	req := httptest.NewRequest(http.MethodPost, "/api/documents", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Quarterly report", ingest.input.Title)

	var resp struct {
		Document struct {
			ChunkCount int `json:"chunk_count"`
		} `json:"document"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 12, resp.Document.ChunkCount)
}

func TestHandler_UploadDocument_TitleDefaultsToFilename(t *testing.T) {
	ingest := &stubIngestUsecase{
		output: &usecase.IngestDocumentOutput{DocumentID: uuid.New(), ChunkCount: 1},
	}
	e := newTestHandler(t, ingest, &stubQueryUsecase{}, &stubDocsUsecase{})

	body, contentType := multipartUpload(t, "notes.md", "# notes", "")
	req := httptest.NewRequest(http.MethodPost, "/api/documents", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "notes.md", ingest.input.Title)
}

func TestHandler_UploadDocument_UnsupportedFormat(t *testing.T) {
	ingest := &stubIngestUsecase{err: domain.ErrUnsupportedFormat}
	e := newTestHandler(t, ingest, &stubQueryUsecase{}, &stubDocsUsecase{})

	body, contentType := multipartUpload(t, "report.docx", "binary", "")
	req := httptest.NewRequest(http.MethodPost, "/api/documents", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_UploadDocument_NoFile(t *testing.T) {
	e := newTestHandler(t, &stubIngestUsecase{}, &stubQueryUsecase{}, &stubDocsUsecase{})

	req := httptest.NewRequest(http.MethodPost, "/api/documents", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_Query(t *testing.T) {
	chunkID := uuid.New()
	query := &stubQueryUsecase{
		result: &domain.AnswerResult{
			Answer:     "The total is 42.",
			UsedChunks: []uuid.UUID{chunkID},
			AllChunks: []domain.ScoredChunk{
				{
					Chunk: domain.Chunk{
						ID:         chunkID,
						DocumentID: uuid.New(),
						Text:       "total: 42",
						Metadata:   domain.Metadata{"page": float64(1)},
						ChunkIndex: 0,
					},
					Similarity:         0.87,
					OriginalSimilarity: 0.91,
					Components:         &domain.ScoreBreakdown{Semantic: 0.91},
				},
			},
		},
	}
	e := newTestHandler(t, &stubIngestUsecase{}, query, &stubDocsUsecase{})

	payload := `{"query": "what is the total?"}`
	req := httptest.NewRequest(http.MethodPost, "/api/query", bytes.NewBufferString(payload))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "what is the total?", query.query)
	assert.Nil(t, query.docID)

	var resp struct {
		Answer     string   `json:"answer"`
		UsedChunks []string `json:"used_chunks"`
		AllChunks  []struct {
			Similarity         float64 `json:"similarity"`
			OriginalSimilarity float64 `json:"original_similarity"`
		} `json:"all_chunks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "The total is 42.", resp.Answer)
	require.Len(t, resp.UsedChunks, 1)
	assert.Equal(t, chunkID.String(), resp.UsedChunks[0])
	require.Len(t, resp.AllChunks, 1)
	assert.InDelta(t, 0.87, resp.AllChunks[0].Similarity, 1e-9)
	assert.InDelta(t, 0.91, resp.AllChunks[0].OriginalSimilarity, 1e-9)
}

func TestHandler_Query_EmptyQuery(t *testing.T) {
	query := &stubQueryUsecase{err: domain.ErrEmptyQuery}
	e := newTestHandler(t, &stubIngestUsecase{}, query, &stubDocsUsecase{})

	req := httptest.NewRequest(http.MethodPost, "/api/query", bytes.NewBufferString(`{"query": ""}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_Query_DocumentScope(t *testing.T) {
	docID := uuid.New()
	query := &stubQueryUsecase{
		result: &domain.AnswerResult{Answer: "ok", UsedChunks: []uuid.UUID{}, AllChunks: []domain.ScoredChunk{}},
	}
	e := newTestHandler(t, &stubIngestUsecase{}, query, &stubDocsUsecase{})

	payload := `{"query": "scoped", "document_id": "` + docID.String() + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/query", bytes.NewBufferString(payload))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, query.docID)
	assert.Equal(t, docID, *query.docID)
}

func TestHandler_Query_InvalidDocumentID(t *testing.T) {
	e := newTestHandler(t, &stubIngestUsecase{}, &stubQueryUsecase{}, &stubDocsUsecase{})

	payload := `{"query": "q", "document_id": "not-a-uuid"}`
	req := httptest.NewRequest(http.MethodPost, "/api/query", bytes.NewBufferString(payload))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_GetDocument_NotFound(t *testing.T) {
	e := newTestHandler(t, &stubIngestUsecase{}, &stubQueryUsecase{}, &stubDocsUsecase{})

	req := httptest.NewRequest(http.MethodGet, "/api/documents/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_GetDocument_InvalidID(t *testing.T) {
	e := newTestHandler(t, &stubIngestUsecase{}, &stubQueryUsecase{}, &stubDocsUsecase{})

	req := httptest.NewRequest(http.MethodGet, "/api/documents/nope", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_ListDocuments(t *testing.T) {
	docs := &stubDocsUsecase{
		docs: []domain.Document{
			{ID: uuid.New(), Title: "Newest", UploadedAt: time.Now()},
			{ID: uuid.New(), Title: "Older", UploadedAt: time.Now().Add(-time.Hour)},
		},
	}
	e := newTestHandler(t, &stubIngestUsecase{}, &stubQueryUsecase{}, docs)

	req := httptest.NewRequest(http.MethodGet, "/api/documents", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp []struct {
		Title string `json:"title"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 2)
	assert.Equal(t, "Newest", resp[0].Title)
}

func TestHandler_DeleteDocument(t *testing.T) {
	e := newTestHandler(t, &stubIngestUsecase{}, &stubQueryUsecase{}, &stubDocsUsecase{})

	req := httptest.NewRequest(http.MethodDelete, "/api/documents/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success": true}`, rec.Body.String())
}
