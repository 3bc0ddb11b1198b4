package interfaces

import (
	"context"

	"github.com/ternarybob/respondeo/internal/models"
)

// ConversationMemory is the session-scoped, append-only conversation log
type ConversationMemory interface {
	GetHistory(ctx context.Context, sessionID string) ([]models.ConversationTurn, error)

	// Append adds turns atomically and in order. Concurrent appends to the
	// same session never interleave.
	Append(ctx context.Context, sessionID string, turns ...models.ConversationTurn) error

	// Clear removes every turn of the session
	Clear(ctx context.Context, sessionID string) error
}
