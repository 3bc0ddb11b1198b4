package interfaces

import (
	"context"

	"github.com/ternarybob/respondeo/internal/models"
)

// ChatService answers questions for a conversation session
type ChatService interface {
	// Ask runs the full condense / retrieve / generate pipeline for one question
	// and records the exchange in the session history.
	Ask(ctx context.Context, sessionID string, question string) (*models.AskResult, error)

	History(ctx context.Context, sessionID string) ([]models.ConversationTurn, error)

	ClearHistory(ctx context.Context, sessionID string) error
}
