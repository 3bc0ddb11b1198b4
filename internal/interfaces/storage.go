package interfaces

import (
	"context"

	"github.com/ternarybob/respondeo/internal/models"
)

// IndexStorage persists encoded index snapshots as whole units, one per corpus.
// Presence of a blob distinguishes an empty corpus from one never created.
type IndexStorage interface {
	// SaveIndex replaces the blob for the corpus
	SaveIndex(ctx context.Context, corpus string, data []byte) error

	// LoadIndex returns ErrIndexNotFound when nothing has been saved for the corpus
	LoadIndex(ctx context.Context, corpus string) ([]byte, error)

	DeleteIndex(ctx context.Context, corpus string) error
}

// ConversationStorage is the durable append log behind conversation memory
type ConversationStorage interface {
	// AppendTurns writes the turns after the current tail of the session in one transaction
	AppendTurns(ctx context.Context, sessionID string, turns []models.ConversationTurn) error

	// ListTurns returns turns in append order
	ListTurns(ctx context.Context, sessionID string) ([]models.ConversationTurn, error)

	DeleteSession(ctx context.Context, sessionID string) error
}

// StorageManager owns the database and hands out the storages built on it
type StorageManager interface {
	KeyValueStorage() KeyValueStorage
	IndexStorage() IndexStorage
	ConversationStorage() ConversationStorage

	// LoadEnvFile seeds the key/value store from a KEY=value file
	LoadEnvFile(ctx context.Context, path string) error

	Close() error
}
