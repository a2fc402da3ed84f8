package usecase

import (
	"fmt"
	"strings"

	"ragdocs/internal/domain"
)

// SystemInstruction is the fixed system message sent with every generation
// call: the model must answer only from the supplied context.
const SystemInstruction = "You are a helpful documents assistant. " +
	"Only provide information that is supported by the provided context. " +
	"If the context does not contain enough information to answer the question, state that explicitly. " +
	"Respond concisely and accurately."

// PromptBuilder assembles the user prompt sent to the generation provider.
type PromptBuilder interface {
	Build(query string, chunks []domain.ScoredChunk) string
}

// GroundedPromptBuilder produces a deterministic prompt embedding the
// grounding context and the question. Chunk texts appear in ranked order,
// separated by a blank line.
type GroundedPromptBuilder struct{}

// NewGroundedPromptBuilder creates a GroundedPromptBuilder.
func NewGroundedPromptBuilder() PromptBuilder {
	return &GroundedPromptBuilder{}
}

// Build renders the user prompt. Same query and chunks always yield the same
// string.
func (b *GroundedPromptBuilder) Build(query string, chunks []domain.ScoredChunk) string {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	context := strings.Join(texts, "\n\n")

	var sb strings.Builder
	sb.WriteString("Here is the context from the documents:\n")
	sb.WriteString("---\n")
	sb.WriteString(context)
	sb.WriteString("\n---\n\n")
	sb.WriteString(fmt.Sprintf("Question: %s\n\n", query))
	sb.WriteString("Provide a comprehensive and accurate answer based solely on the information in the provided context. ")
	sb.WriteString("If the context doesn't contain enough information to answer the question, state that clearly.")
	return sb.String()
}
