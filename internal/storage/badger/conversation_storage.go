package badger

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/respondeo/internal/interfaces"
	"github.com/ternarybob/respondeo/internal/models"
)

// ConversationStorage stores session histories as ordered turn records.
// Appends for one session are serialized in-process and committed in a single
// badger transaction together with the session's sequence counter, so a
// question/answer pair lands together or not at all. Only point reads happen
// inside the transaction, so appends to different sessions never conflict.
type ConversationStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
	locks  [sessionLockStripes]sync.Mutex
}

// sessionLockStripes bounds lock memory regardless of how many sessions exist.
const sessionLockStripes = 64

// NewConversationStorage creates a new ConversationStorage instance
func NewConversationStorage(db *BadgerDB, logger arbor.ILogger) interfaces.ConversationStorage {
	return &ConversationStorage{
		db:     db,
		logger: logger,
	}
}

func lockStripe(sessionID string) int {
	h := fnv.New32a()
	h.Write([]byte(sessionID))
	return int(h.Sum32() % sessionLockStripes)
}

// sessionLock returns the stripe guarding the session; unrelated sessions may share it
func (s *ConversationStorage) sessionLock(sessionID string) *sync.Mutex {
	return &s.locks[lockStripe(sessionID)]
}

func turnKey(sessionID string, seq int64) string {
	return fmt.Sprintf("turn:%s:%020d", sessionID, seq)
}

func sessionKey(sessionID string) string {
	return "session:" + sessionID
}

func sessionQuery(sessionID string) *badgerhold.Query {
	return badgerhold.Where("SessionID").Eq(sessionID).Index("SessionID")
}

// AppendTurns writes turns after the current tail of the session
func (s *ConversationStorage) AppendTurns(ctx context.Context, sessionID string, turns []models.ConversationTurn) error {
	if len(turns) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	store := s.db.Store()
	err := store.Badger().Update(func(tx *badger.Txn) error {
		var session models.ConversationSession
		err := store.TxGet(tx, sessionKey(sessionID), &session)
		if err != nil && err != badgerhold.ErrNotFound {
			return fmt.Errorf("failed to read session tail: %w", err)
		}
		seq := session.NextSeq

		now := time.Now()
		for _, turn := range turns {
			record := models.ConversationRecord{
				ID:        turnKey(sessionID, seq),
				SessionID: sessionID,
				Seq:       seq,
				Role:      turn.Role,
				Text:      turn.Text,
				CreatedAt: now,
			}
			if err := store.TxUpsert(tx, record.ID, &record); err != nil {
				return fmt.Errorf("failed to write turn %d: %w", seq, err)
			}
			seq++
		}

		session.ID = sessionID
		session.NextSeq = seq
		session.UpdatedAt = now
		return store.TxUpsert(tx, sessionKey(sessionID), &session)
	})
	if err != nil {
		return fmt.Errorf("failed to append turns for session %s: %w", sessionID, err)
	}

	s.logger.Debug().
		Str("session_id", sessionID).
		Int("turns", len(turns)).
		Msg("Conversation turns appended")

	return nil
}

// ListTurns returns the session's turns in append order
func (s *ConversationStorage) ListTurns(ctx context.Context, sessionID string) ([]models.ConversationTurn, error) {
	var records []models.ConversationRecord
	if err := s.db.Store().Find(&records, sessionQuery(sessionID).SortBy("Seq")); err != nil {
		return nil, fmt.Errorf("failed to list turns for session %s: %w", sessionID, err)
	}

	turns := make([]models.ConversationTurn, 0, len(records))
	for _, r := range records {
		turns = append(turns, r.Turn())
	}
	return turns, nil
}

// DeleteSession removes every turn of the session
func (s *ConversationStorage) DeleteSession(ctx context.Context, sessionID string) error {
	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	store := s.db.Store()
	err := store.Badger().Update(func(tx *badger.Txn) error {
		if err := store.TxDeleteMatching(tx, &models.ConversationRecord{}, sessionQuery(sessionID)); err != nil {
			return err
		}
		err := store.TxDelete(tx, sessionKey(sessionID), &models.ConversationSession{})
		if err != nil && err != badgerhold.ErrNotFound {
			return err
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete session %s: %w", sessionID, err)
	}

	s.logger.Info().Str("session_id", sessionID).Msg("Conversation history cleared")
	return nil
}
