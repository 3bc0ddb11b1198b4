package badger

import (
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/respondeo/internal/common"
	"github.com/ternarybob/respondeo/internal/interfaces"
)

// Manager implements the StorageManager interface for Badger
type Manager struct {
	db           *BadgerDB
	kv           interfaces.KeyValueStorage
	index        interfaces.IndexStorage
	conversation interfaces.ConversationStorage
	logger       arbor.ILogger
}

// NewManager creates a new Badger storage manager
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:           db,
		kv:           NewKVStorage(db, logger),
		index:        NewIndexStorage(db, logger),
		conversation: NewConversationStorage(db, logger),
		logger:       logger,
	}

	logger.Info().Str("path", config.Path).Msg("Badger storage manager initialized")

	return manager, nil
}

// KeyValueStorage returns the KeyValue storage interface
func (m *Manager) KeyValueStorage() interfaces.KeyValueStorage {
	return m.kv
}

// IndexStorage returns the similarity index blob storage
func (m *Manager) IndexStorage() interfaces.IndexStorage {
	return m.index
}

// ConversationStorage returns the conversation history storage
func (m *Manager) ConversationStorage() interfaces.ConversationStorage {
	return m.conversation
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
