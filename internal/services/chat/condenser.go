package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/respondeo/internal/interfaces"
	"github.com/ternarybob/respondeo/internal/models"
)

// Condenser rewrites follow-up questions into standalone ones using the conversation history
type Condenser struct {
	llm    interfaces.LLMService
	logger arbor.ILogger
}

// NewCondenser creates a condenser backed by the given generation service
func NewCondenser(llm interfaces.LLMService, logger arbor.ILogger) *Condenser {
	return &Condenser{llm: llm, logger: logger}
}

// Condense returns a standalone version of question. With no history the
// question is returned unchanged and the model is not called.
func (c *Condenser) Condense(ctx context.Context, question string, history []models.ConversationTurn) (string, error) {
	if len(history) == 0 {
		return question, nil
	}

	messages := []interfaces.Message{
		{Role: "user", Content: buildCondensePrompt(question, history)},
	}

	output, err := c.llm.Chat(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("%w: condense: %w", interfaces.ErrGeneration, err)
	}

	standalone := strings.TrimSpace(output)
	if standalone == "" {
		c.logger.Warn().Str("question", question).Msg("Condenser returned empty output, using original question")
		return question, nil
	}

	c.logger.Debug().
		Str("question", question).
		Str("standalone", standalone).
		Int("history_turns", len(history)).
		Msg("Question condensed")

	return standalone, nil
}
