package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ragdocs/internal/domain"
)

const (
	anthropicVersion      = "2023-06-01"
	generationTemperature = 0.3
)

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

// AnthropicGenerator sends a system instruction and one user message to the
// Anthropic messages endpoint and returns the generated text verbatim.
type AnthropicGenerator struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// NewAnthropicGenerator constructs a generator for the given endpoint and
// model name.
func NewAnthropicGenerator(baseURL, apiKey, model string, client *http.Client) *AnthropicGenerator {
	if client == nil {
		client = &http.Client{Timeout: 120 * time.Second}
	}
	return &AnthropicGenerator{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		client:  client,
	}
}

// Generate issues one blocking generation call. No retries: a failure fails
// the enclosing operation.
func (g *AnthropicGenerator) Generate(ctx context.Context, system, prompt string, maxTokens int) (*domain.LLMResponse, error) {
	jsonData, err := json.Marshal(anthropicRequest{
		Model:       g.model,
		MaxTokens:   maxTokens,
		Temperature: generationTemperature,
		System:      system,
		Messages:    []anthropicMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal generation request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/messages", g.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create generation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", g.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call generation endpoint: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("generation endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	var respBody anthropicResponse
	if err := json.NewDecoder(resp.Body).Decode(&respBody); err != nil {
		return nil, fmt.Errorf("failed to decode generation response: %w", err)
	}

	var sb strings.Builder
	for _, block := range respBody.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return nil, fmt.Errorf("generation response contained no text")
	}

	return &domain.LLMResponse{Text: sb.String()}, nil
}

// Version returns the wrapped model name.
func (g *AnthropicGenerator) Version() string {
	return g.model
}

var _ domain.LLMClient = (*AnthropicGenerator)(nil)
