package llm

import (
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/respondeo/internal/common"
	"github.com/ternarybob/respondeo/internal/interfaces"
)

// Services bundles the generation and embedding capabilities chosen by configuration
type Services struct {
	LLM       interfaces.LLMService
	Embedding interfaces.EmbeddingService
}

// Close releases every distinct underlying client
func (s *Services) Close() error {
	if s.LLM != nil {
		if err := s.LLM.Close(); err != nil {
			return err
		}
	}
	if closer, ok := s.Embedding.(interfaces.LLMService); ok && closer != s.LLM {
		return closer.Close()
	}
	return nil
}

// NewServices creates the configured generation provider and the Gemini
// embedding service. When Gemini is also the generation provider a single
// client serves both.
func NewServices(cfg *common.Config, kv interfaces.KeyValueStorage, logger arbor.ILogger) (*Services, error) {
	gemini, err := NewGeminiService(&cfg.Gemini, kv, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding service: %w", err)
	}

	provider := cfg.LLM.DefaultProvider
	if provider == "" {
		provider = common.LLMProviderGemini
	}

	logger.Info().Str("provider", string(provider)).Msg("Initializing generation service")

	switch provider {
	case common.LLMProviderGemini:
		return &Services{LLM: gemini, Embedding: gemini}, nil

	case common.LLMProviderClaude:
		claude, err := NewClaudeService(&cfg.Claude, kv, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create Claude service: %w", err)
		}
		return &Services{LLM: claude, Embedding: gemini}, nil

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", provider)
	}
}
