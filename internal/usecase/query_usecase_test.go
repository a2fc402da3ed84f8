package usecase_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"ragdocs/internal/domain"
	"ragdocs/internal/usecase"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type mockRetrieveChunksUsecase struct {
	mock.Mock
}

func (m *mockRetrieveChunksUsecase) Retrieve(ctx context.Context, query string, documentID *uuid.UUID, limit int) ([]domain.ScoredChunk, error) {
	args := m.Called(ctx, query, documentID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ScoredChunk), args.Error(1)
}

type mockLLMClient struct {
	mock.Mock
}

func (m *mockLLMClient) Generate(ctx context.Context, system, prompt string, maxTokens int) (*domain.LLMResponse, error) {
	args := m.Called(ctx, system, prompt, maxTokens)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LLMResponse), args.Error(1)
}

func (m *mockLLMClient) Version() string {
	return "mock"
}

func retrievedChunk(index int, similarity float64) domain.ScoredChunk {
	return domain.ScoredChunk{
		Chunk: domain.Chunk{
			ID:         uuid.New(),
			DocumentID: uuid.New(),
			Text:       "retrieved chunk text",
			Metadata:   domain.Metadata{},
			ChunkIndex: index,
		},
		Similarity: similarity,
	}
}

func TestQuery_EmptyQuery(t *testing.T) {
	mockRetrieve := new(mockRetrieveChunksUsecase)
	mockLLM := new(mockLLMClient)
	uc := usecase.NewQueryUsecase(mockRetrieve, usecase.NewGroundedPromptBuilder(), mockLLM, 15, 5, 1000, testLogger())

	for _, query := range []string{"", "   ", "\n\t"} {
		result, err := uc.Query(context.Background(), query, nil)
		assert.ErrorIs(t, err, domain.ErrEmptyQuery)
		assert.Nil(t, result)
	}
	mockRetrieve.AssertNotCalled(t, "Retrieve")
	mockLLM.AssertNotCalled(t, "Generate")
}

func TestQuery_NoCandidatesReturnsFallback(t *testing.T) {
	mockRetrieve := new(mockRetrieveChunksUsecase)
	mockLLM := new(mockLLMClient)
	uc := usecase.NewQueryUsecase(mockRetrieve, usecase.NewGroundedPromptBuilder(), mockLLM, 15, 5, 1000, testLogger())

	mockRetrieve.On("Retrieve", mock.Anything, "unanswerable", (*uuid.UUID)(nil), 15).
		Return([]domain.ScoredChunk{}, nil)

	result, err := uc.Query(context.Background(), "unanswerable", nil)
	require.NoError(t, err)
	assert.Equal(t, usecase.FallbackAnswer, result.Answer)
	assert.NotNil(t, result.UsedChunks)
	assert.Empty(t, result.UsedChunks)
	assert.NotNil(t, result.AllChunks)
	assert.Empty(t, result.AllChunks)
	mockLLM.AssertNotCalled(t, "Generate")
}

func TestQuery_SynthesizesFromTopChunks(t *testing.T) {
	mockRetrieve := new(mockRetrieveChunksUsecase)
	mockLLM := new(mockLLMClient)
	uc := usecase.NewQueryUsecase(mockRetrieve, usecase.NewGroundedPromptBuilder(), mockLLM, 15, 5, 1000, testLogger())

	// Same index, text and metadata, so the final ordering follows the
	// retrieval similarity alone.
	candidates := make([]domain.ScoredChunk, 7)
	for i := range candidates {
		candidates[i] = retrievedChunk(0, 0.9-float64(i)*0.1)
	}

	mockRetrieve.On("Retrieve", mock.Anything, "what is the total?", (*uuid.UUID)(nil), 15).
		Return(candidates, nil)
	mockLLM.On("Generate", mock.Anything, usecase.SystemInstruction, mock.Anything, 1000).
		Return(&domain.LLMResponse{Text: "The total is 42."}, nil)

	result, err := uc.Query(context.Background(), "what is the total?", nil)
	require.NoError(t, err)

	assert.Equal(t, "The total is 42.", result.Answer)
	assert.Len(t, result.AllChunks, 7)
	require.Len(t, result.UsedChunks, 5)
	for i := 0; i < 5; i++ {
		assert.Equal(t, candidates[i].ID, result.UsedChunks[i])
	}
	mockLLM.AssertNumberOfCalls(t, "Generate", 1)
}

func TestQuery_TrimsBeforeRetrieval(t *testing.T) {
	mockRetrieve := new(mockRetrieveChunksUsecase)
	mockLLM := new(mockLLMClient)
	uc := usecase.NewQueryUsecase(mockRetrieve, usecase.NewGroundedPromptBuilder(), mockLLM, 15, 5, 1000, testLogger())

	mockRetrieve.On("Retrieve", mock.Anything, "padded", (*uuid.UUID)(nil), 15).
		Return([]domain.ScoredChunk{}, nil)

	_, err := uc.Query(context.Background(), "  padded  ", nil)
	require.NoError(t, err)
	mockRetrieve.AssertExpectations(t)
}

func TestQuery_DocumentScopePassedThrough(t *testing.T) {
	mockRetrieve := new(mockRetrieveChunksUsecase)
	mockLLM := new(mockLLMClient)
	uc := usecase.NewQueryUsecase(mockRetrieve, usecase.NewGroundedPromptBuilder(), mockLLM, 15, 5, 1000, testLogger())

	docID := uuid.New()
	mockRetrieve.On("Retrieve", mock.Anything, "scoped", &docID, 15).
		Return([]domain.ScoredChunk{}, nil)

	_, err := uc.Query(context.Background(), "scoped", &docID)
	require.NoError(t, err)
	mockRetrieve.AssertExpectations(t)
}

func TestQuery_GenerationFailurePropagates(t *testing.T) {
	mockRetrieve := new(mockRetrieveChunksUsecase)
	mockLLM := new(mockLLMClient)
	uc := usecase.NewQueryUsecase(mockRetrieve, usecase.NewGroundedPromptBuilder(), mockLLM, 15, 5, 1000, testLogger())

	mockRetrieve.On("Retrieve", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]domain.ScoredChunk{retrievedChunk(0, 0.8)}, nil)
	mockLLM.On("Generate", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("provider unavailable"))

	result, err := uc.Query(context.Background(), "question", nil)
	assert.Error(t, err)
	assert.Nil(t, result)
}

func TestQuery_AnswerCache(t *testing.T) {
	mockRetrieve := new(mockRetrieveChunksUsecase)
	mockLLM := new(mockLLMClient)
	uc := usecase.NewQueryUsecase(
		mockRetrieve, usecase.NewGroundedPromptBuilder(), mockLLM,
		15, 5, 1000, testLogger(),
		usecase.WithAnswerCache(8, time.Minute),
	)

	mockRetrieve.On("Retrieve", mock.Anything, "cached question", (*uuid.UUID)(nil), 15).
		Return([]domain.ScoredChunk{retrievedChunk(0, 0.8)}, nil)
	mockLLM.On("Generate", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&domain.LLMResponse{Text: "cached answer"}, nil)

	first, err := uc.Query(context.Background(), "cached question", nil)
	require.NoError(t, err)
	second, err := uc.Query(context.Background(), "cached question", nil)
	require.NoError(t, err)

	assert.Equal(t, first.Answer, second.Answer)
	mockRetrieve.AssertNumberOfCalls(t, "Retrieve", 1)
	mockLLM.AssertNumberOfCalls(t, "Generate", 1)
}
