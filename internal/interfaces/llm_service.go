package interfaces

import (
	"context"

	"github.com/ternarybob/respondeo/internal/models"
)

// Message represents a single message in a chat conversation
type Message struct {
	// Role identifies the message sender: "user", "assistant", or "system"
	Role string

	// Content contains the text content of the message
	Content string
}

// LLMService defines the generation capability used by the answering engine.
// Implementations wrap a hosted model API (Gemini, Claude).
type LLMService interface {
	// Chat generates a free-text completion for the conversation. The messages
	// slice carries system prompt, prior dialogue and the final user message
	// in chronological order.
	Chat(ctx context.Context, messages []Message) (string, error)

	// GenerateAnswer generates a completion constrained to the structured answer
	// shape {"answer": string, "is_answer_found": bool}. A response that cannot be
	// parsed into that shape is reported as ErrGeneration, never defaulted.
	GenerateAnswer(ctx context.Context, messages []Message) (*models.StructuredAnswer, error)

	// HealthCheck verifies the upstream API is reachable and authenticated
	HealthCheck(ctx context.Context) error

	// GetProvider returns the provider name ("gemini", "claude")
	GetProvider() string

	// Close releases client resources
	Close() error
}
