// Package provider holds the clients for the external embedding and
// generation services.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"ragdocs/internal/domain"
)

// DefaultMaxBatch caps how many inputs are sent to the embeddings endpoint
// in a single request.
const DefaultMaxBatch = 100

// OpenAIEmbedder calls the OpenAI embeddings API. Inputs larger than the
// provider batch cap are split into sequential sub-requests; the returned
// vectors always match the input order, and any failed sub-request fails the
// whole call.
type OpenAIEmbedder struct {
	baseURL    string
	apiKey     string
	model      string
	dimensions int
	maxBatch   int
	limiter    *rate.Limiter
	client     *http.Client
}

// NewOpenAIEmbedder constructs an embedder. requestsPerSecond bounds the
// request rate to the provider; zero disables the limiter.
func NewOpenAIEmbedder(baseURL, apiKey, model string, dimensions, maxBatch int, requestsPerSecond float64, client *http.Client) *OpenAIEmbedder {
	if maxBatch <= 0 {
		maxBatch = DefaultMaxBatch
	}
	var limiter *rate.Limiter
	if requestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
	}
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &OpenAIEmbedder{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		dimensions: dimensions,
		maxBatch:   maxBatch,
		limiter:    limiter,
		client:     client,
	}
}

type embeddingRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Encode returns one vector per input text, in input order.
func (e *OpenAIEmbedder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	slog.Info("embed_started",
		slog.Int("text_count", len(texts)),
		slog.String("model", e.model),
	)
	start := time.Now()

	vectors := make([][]float32, 0, len(texts))
	for offset := 0; offset < len(texts); offset += e.maxBatch {
		end := offset + e.maxBatch
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := e.encodeBatch(ctx, texts[offset:end])
		if err != nil {
			slog.Error("embed_failed",
				slog.Int("offset", offset),
				slog.String("error", err.Error()),
				slog.Duration("elapsed", time.Since(start)),
			)
			return nil, err
		}
		vectors = append(vectors, batch...)
	}

	slog.Info("embed_completed",
		slog.Int("embedding_count", len(vectors)),
		slog.Duration("elapsed", time.Since(start)),
	)
	return vectors, nil
}

func (e *OpenAIEmbedder) encodeBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait: %w", err)
		}
	}

	jsonData, err := json.Marshal(embeddingRequest{
		Model:      e.model,
		Input:      texts,
		Dimensions: e.dimensions,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/embeddings", e.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call embeddings endpoint: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("embeddings endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	var respBody embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&respBody); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(respBody.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(respBody.Data))
	}

	// The provider tags each vector with its input index; order by it rather
	// than trusting response array order.
	vectors := make([][]float32, len(texts))
	for _, item := range respBody.Data {
		if item.Index < 0 || item.Index >= len(texts) {
			return nil, fmt.Errorf("embedding index %d out of range", item.Index)
		}
		vectors[item.Index] = item.Embedding
	}
	for i, v := range vectors {
		if v == nil {
			return nil, fmt.Errorf("missing embedding for input %d", i)
		}
	}
	return vectors, nil
}

// Version returns the wrapped model name.
func (e *OpenAIEmbedder) Version() string {
	return e.model
}

var _ domain.VectorEncoder = (*OpenAIEmbedder)(nil)
