package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/respondeo/internal/interfaces"
	"github.com/ternarybob/respondeo/internal/models"
)

// Service provides conversation memory on top of durable conversation storage
type Service struct {
	storage interfaces.ConversationStorage
	logger  arbor.ILogger
}

// Compile-time interface assertion
var _ interfaces.ConversationMemory = (*Service)(nil)

// NewService creates a new conversation memory service
func NewService(storage interfaces.ConversationStorage, logger arbor.ILogger) *Service {
	return &Service{
		storage: storage,
		logger:  logger,
	}
}

func validateSessionID(sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return fmt.Errorf("%w: session id cannot be empty", interfaces.ErrInvalidInput)
	}
	return nil
}

// GetHistory returns the session's turns in order. An unknown session has an empty history.
func (s *Service) GetHistory(ctx context.Context, sessionID string) ([]models.ConversationTurn, error) {
	if err := validateSessionID(sessionID); err != nil {
		return nil, err
	}

	turns, err := s.storage.ListTurns(ctx, sessionID)
	if err != nil {
		s.logger.Error().Err(err).Str("session_id", sessionID).Msg("Failed to read conversation history")
		return nil, err
	}

	s.logger.Debug().Str("session_id", sessionID).Int("turns", len(turns)).Msg("Conversation history read")
	return turns, nil
}

// Append adds turns to the session in one atomic write
func (s *Service) Append(ctx context.Context, sessionID string, turns ...models.ConversationTurn) error {
	if err := validateSessionID(sessionID); err != nil {
		return err
	}
	for i, turn := range turns {
		if turn.Role != models.RoleUser && turn.Role != models.RoleAssistant {
			return fmt.Errorf("%w: turn %d has unknown role %q", interfaces.ErrInvalidInput, i, turn.Role)
		}
	}

	if err := s.storage.AppendTurns(ctx, sessionID, turns); err != nil {
		s.logger.Error().Err(err).Str("session_id", sessionID).Msg("Failed to append conversation turns")
		return err
	}
	return nil
}

// Clear removes the session's history
func (s *Service) Clear(ctx context.Context, sessionID string) error {
	if err := validateSessionID(sessionID); err != nil {
		return err
	}
	return s.storage.DeleteSession(ctx, sessionID)
}
