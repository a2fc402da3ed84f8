package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"ragdocs/internal/domain"
)

const (
	// DefaultAnswerMaxChunks is how many top-ranked chunks feed the prompt.
	DefaultAnswerMaxChunks = 5
	// DefaultAnswerMaxTokens bounds the generated answer length.
	DefaultAnswerMaxTokens = 1000

	// FallbackAnswer is returned, without calling the generation provider,
	// when retrieval yields zero candidates.
	FallbackAnswer = "I couldn't find any relevant information in the documents to answer your question."
)

// QueryUsecase answers a free-text question over the ingested corpus:
// retrieve, rerank, then synthesize a grounded answer.
type QueryUsecase interface {
	Query(ctx context.Context, text string, documentID *uuid.UUID) (*domain.AnswerResult, error)
}

type queryUsecase struct {
	retrieve      RetrieveChunksUsecase
	promptBuilder PromptBuilder
	llmClient     domain.LLMClient
	retrieveLimit int
	maxChunks     int
	maxTokens     int
	cache         *expirable.LRU[string, *domain.AnswerResult]
	logger        *slog.Logger
}

// QueryOption customizes a QueryUsecase.
type QueryOption func(*queryUsecase)

// WithAnswerCache enables an expiring LRU of answers keyed by query and
// document scope. size <= 0 leaves caching off.
func WithAnswerCache(size int, ttl time.Duration) QueryOption {
	return func(u *queryUsecase) {
		if size > 0 {
			u.cache = expirable.NewLRU[string, *domain.AnswerResult](size, nil, ttl)
		}
	}
}

// NewQueryUsecase wires the query pipeline. Non-positive limits fall back to
// the defaults.
func NewQueryUsecase(
	retrieve RetrieveChunksUsecase,
	promptBuilder PromptBuilder,
	llmClient domain.LLMClient,
	retrieveLimit, maxChunks, maxTokens int,
	logger *slog.Logger,
	opts ...QueryOption,
) QueryUsecase {
	if retrieveLimit <= 0 {
		retrieveLimit = DefaultRetrieveLimit
	}
	if maxChunks <= 0 {
		maxChunks = DefaultAnswerMaxChunks
	}
	if maxTokens <= 0 {
		maxTokens = DefaultAnswerMaxTokens
	}
	u := &queryUsecase{
		retrieve:      retrieve,
		promptBuilder: promptBuilder,
		llmClient:     llmClient,
		retrieveLimit: retrieveLimit,
		maxChunks:     maxChunks,
		maxTokens:     maxTokens,
		logger:        logger,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

func (u *queryUsecase) Query(ctx context.Context, text string, documentID *uuid.UUID) (*domain.AnswerResult, error) {
	query := strings.TrimSpace(text)
	if query == "" {
		return nil, domain.ErrEmptyQuery
	}

	cacheKey := u.cacheKey(query, documentID)
	if u.cache != nil {
		if cached, ok := u.cache.Get(cacheKey); ok {
			u.logger.Info("query_cache_hit", slog.String("query", query))
			return cached, nil
		}
	}

	candidates, err := u.retrieve.Retrieve(ctx, query, documentID, u.retrieveLimit)
	if err != nil {
		return nil, err
	}

	// Zero candidates is a defined success outcome, not an error: return the
	// fixed fallback answer without contacting the generation provider.
	if len(candidates) == 0 {
		u.logger.Info("query_no_candidates", slog.String("query", query))
		return &domain.AnswerResult{
			Answer:     FallbackAnswer,
			UsedChunks: []uuid.UUID{},
			AllChunks:  []domain.ScoredChunk{},
		}, nil
	}

	ranked := domain.Rerank(candidates, query)

	result, err := u.synthesize(ctx, query, ranked)
	if err != nil {
		return nil, err
	}

	if u.cache != nil {
		u.cache.Add(cacheKey, result)
	}
	return result, nil
}

func (u *queryUsecase) synthesize(ctx context.Context, query string, ranked []domain.ScoredChunk) (*domain.AnswerResult, error) {
	top := ranked
	if len(top) > u.maxChunks {
		top = top[:u.maxChunks]
	}

	prompt := u.promptBuilder.Build(query, top)

	resp, err := u.llmClient.Generate(ctx, SystemInstruction, prompt, u.maxTokens)
	if err != nil {
		return nil, fmt.Errorf("failed to generate answer: %w", err)
	}

	used := make([]uuid.UUID, len(top))
	for i, c := range top {
		used[i] = c.ID
	}

	u.logger.Info("query_answered",
		slog.String("query", query),
		slog.Int("candidate_count", len(ranked)),
		slog.Int("used_chunks", len(used)),
		slog.String("model", u.llmClient.Version()),
	)

	return &domain.AnswerResult{
		Answer:     resp.Text,
		UsedChunks: used,
		AllChunks:  ranked,
	}, nil
}

func (u *queryUsecase) cacheKey(query string, documentID *uuid.UUID) string {
	if documentID == nil {
		return query
	}
	return query + "|" + documentID.String()
}
