package badger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/respondeo/internal/interfaces"
)

// settingRecord is the persisted form of a key/value pair
type settingRecord struct {
	Key         string `badgerhold:"key"`
	Value       string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// KVStorage keeps settings such as API keys. Keys are case-insensitive.
type KVStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewKVStorage creates a new KVStorage instance
func NewKVStorage(db *BadgerDB, logger arbor.ILogger) interfaces.KeyValueStorage {
	return &KVStorage{
		db:     db,
		logger: logger,
	}
}

func settingKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

func (s *KVStorage) Get(ctx context.Context, key string) (string, error) {
	var record settingRecord
	err := s.db.Store().Get(settingKey(key), &record)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return "", interfaces.ErrKeyNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read setting %q: %w", settingKey(key), err)
	}
	return record.Value, nil
}

// Set upserts a value. CreatedAt survives updates; read and write share one transaction.
func (s *KVStorage) Set(ctx context.Context, key string, value string, description string) error {
	id := settingKey(key)
	if id == "" {
		return fmt.Errorf("%w: empty setting key", interfaces.ErrInvalidInput)
	}

	store := s.db.Store()
	now := time.Now()

	err := store.Badger().Update(func(tx *badger.Txn) error {
		record := settingRecord{Key: id, CreatedAt: now}

		var existing settingRecord
		if err := store.TxGet(tx, id, &existing); err == nil {
			record.CreatedAt = existing.CreatedAt
		} else if !errors.Is(err, badgerhold.ErrNotFound) {
			return err
		}

		record.Value = value
		record.Description = description
		record.UpdatedAt = now
		return store.TxUpsert(tx, id, &record)
	})
	if err != nil {
		return fmt.Errorf("failed to write setting %q: %w", id, err)
	}

	s.logger.Debug().Str("key", id).Msg("Setting stored")
	return nil
}

func (s *KVStorage) Delete(ctx context.Context, key string) error {
	err := s.db.Store().Delete(settingKey(key), &settingRecord{})
	if errors.Is(err, badgerhold.ErrNotFound) {
		return interfaces.ErrKeyNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete setting %q: %w", settingKey(key), err)
	}
	return nil
}

// List returns all settings, most recently updated first
func (s *KVStorage) List(ctx context.Context) ([]interfaces.KeyValuePair, error) {
	var records []settingRecord
	if err := s.db.Store().Find(&records, badgerhold.Where("Key").Ne("").SortBy("UpdatedAt").Reverse()); err != nil {
		return nil, fmt.Errorf("failed to list settings: %w", err)
	}

	pairs := make([]interfaces.KeyValuePair, len(records))
	for i, r := range records {
		pairs[i] = interfaces.KeyValuePair{
			Key:         r.Key,
			Value:       r.Value,
			Description: r.Description,
			CreatedAt:   r.CreatedAt,
			UpdatedAt:   r.UpdatedAt,
		}
	}
	return pairs, nil
}

func (s *KVStorage) GetAll(ctx context.Context) (map[string]string, error) {
	var records []settingRecord
	if err := s.db.Store().Find(&records, nil); err != nil {
		return nil, fmt.Errorf("failed to list settings: %w", err)
	}

	values := make(map[string]string, len(records))
	for _, r := range records {
		values[r.Key] = r.Value
	}
	return values, nil
}
