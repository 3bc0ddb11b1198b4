package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/respondeo/internal/interfaces"
	"github.com/ternarybob/respondeo/internal/models"
)

// IndexStorage keeps one encoded index snapshot per corpus
type IndexStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewIndexStorage creates a new IndexStorage instance
func NewIndexStorage(db *BadgerDB, logger arbor.ILogger) interfaces.IndexStorage {
	return &IndexStorage{
		db:     db,
		logger: logger,
	}
}

func indexKey(corpus string) string {
	return "index:" + corpus
}

// SaveIndex replaces the blob for the corpus in a single write
func (s *IndexStorage) SaveIndex(ctx context.Context, corpus string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	blob := models.IndexBlob{
		Corpus:    corpus,
		Data:      data,
		UpdatedAt: time.Now(),
	}
	if err := s.db.Store().Upsert(indexKey(corpus), &blob); err != nil {
		return fmt.Errorf("failed to save index %s: %w", corpus, err)
	}

	s.logger.Debug().
		Str("corpus", corpus).
		Int("bytes", len(data)).
		Msg("Index blob saved")
	return nil
}

// LoadIndex returns the stored blob, or ErrIndexNotFound
func (s *IndexStorage) LoadIndex(ctx context.Context, corpus string) ([]byte, error) {
	var blob models.IndexBlob
	err := s.db.Store().Get(indexKey(corpus), &blob)
	if err == badgerhold.ErrNotFound {
		return nil, interfaces.ErrIndexNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load index %s: %w", corpus, err)
	}
	return blob.Data, nil
}

// DeleteIndex removes the corpus blob; deleting a missing blob is not an error
func (s *IndexStorage) DeleteIndex(ctx context.Context, corpus string) error {
	err := s.db.Store().Delete(indexKey(corpus), &models.IndexBlob{})
	if err != nil && err != badgerhold.ErrNotFound {
		return fmt.Errorf("failed to delete index %s: %w", corpus, err)
	}
	return nil
}
