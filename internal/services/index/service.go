package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/respondeo/internal/interfaces"
	"github.com/ternarybob/respondeo/internal/models"
)

// Service is the similarity index for one corpus. The resident snapshot is
// replaced wholesale on every successful insert, so readers holding an older
// entries slice never observe a partial write.
type Service struct {
	embedder interfaces.EmbeddingService
	storage  interfaces.IndexStorage
	corpus   string
	lambda   float64
	logger   arbor.ILogger

	mu       sync.RWMutex
	loaded   bool
	exists   bool
	snapshot models.IndexSnapshot
}

// Compile-time interface assertion
var _ interfaces.SimilarityIndex = (*Service)(nil)

// NewService creates an index over the named corpus. Nothing is read from
// storage until the first Load, Query or Insert.
func NewService(embedder interfaces.EmbeddingService, storage interfaces.IndexStorage, corpus string, lambda float32, logger arbor.ILogger) *Service {
	if lambda < 0 || lambda > 1 {
		lambda = 0.5
	}
	return &Service{
		embedder: embedder,
		storage:  storage,
		corpus:   corpus,
		lambda:   float64(lambda),
		logger:   logger,
		snapshot: emptySnapshot(corpus),
	}
}

func emptySnapshot(corpus string) models.IndexSnapshot {
	return models.IndexSnapshot{
		Version: models.IndexSnapshotVersion,
		Corpus:  corpus,
	}
}

// Load makes the persisted index resident. A missing blob leaves an empty,
// not-yet-created index; an unreadable one is an ErrIndexLoad.
func (s *Service) Load(ctx context.Context) error {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if loaded {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(ctx)
}

func (s *Service) loadLocked(ctx context.Context) error {
	if s.loaded {
		return nil
	}

	data, err := s.storage.LoadIndex(ctx, s.corpus)
	if errors.Is(err, interfaces.ErrIndexNotFound) {
		s.snapshot = emptySnapshot(s.corpus)
		s.exists = false
		s.loaded = true
		s.logger.Debug().Str("corpus", s.corpus).Msg("No persisted index yet, starting empty")
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: corpus %s: %w", interfaces.ErrIndexLoad, s.corpus, err)
	}

	var snapshot models.IndexSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return fmt.Errorf("%w: corpus %s: corrupt snapshot: %w", interfaces.ErrIndexLoad, s.corpus, err)
	}
	if err := validateSnapshot(&snapshot, s.corpus); err != nil {
		return fmt.Errorf("%w: corpus %s: %w", interfaces.ErrIndexLoad, s.corpus, err)
	}

	s.snapshot = snapshot
	s.exists = true
	s.loaded = true

	s.logger.Info().
		Str("corpus", s.corpus).
		Int("entries", len(snapshot.Entries)).
		Int("dimension", snapshot.Dimension).
		Msg("Similarity index loaded")

	return nil
}

func validateSnapshot(snapshot *models.IndexSnapshot, corpus string) error {
	if snapshot.Version != models.IndexSnapshotVersion {
		return fmt.Errorf("unsupported snapshot version %d", snapshot.Version)
	}
	if snapshot.Corpus != corpus {
		return fmt.Errorf("snapshot belongs to corpus %q", snapshot.Corpus)
	}

	seen := make(map[uint64]struct{}, len(snapshot.Entries))
	for _, e := range snapshot.Entries {
		if len(e.Vector) != snapshot.Dimension {
			return fmt.Errorf("entry %d has %d dimensions, snapshot declares %d", e.ID, len(e.Vector), snapshot.Dimension)
		}
		if e.ID >= snapshot.NextID {
			return fmt.Errorf("entry id %d is not below next id %d", e.ID, snapshot.NextID)
		}
		if _, dup := seen[e.ID]; dup {
			return fmt.Errorf("duplicate entry id %d", e.ID)
		}
		seen[e.ID] = struct{}{}
	}
	return nil
}

// Insert embeds the chunks and persists the grown index. Either every chunk is
// added and flushed, or the resident and persisted index are left untouched.
func (s *Service) Insert(ctx context.Context, chunks []models.TextChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	start := time.Now()
	vectors := make([][]float32, len(chunks))
	for i, chunk := range chunks {
		vector, err := s.embedder.Embed(ctx, chunk.Content)
		if err != nil {
			return fmt.Errorf("%w: chunk %d of %s: %w", interfaces.ErrEmbedding, chunk.ChunkIndex, chunk.SourceID, err)
		}
		if len(vector) == 0 {
			return fmt.Errorf("%w: chunk %d of %s: empty vector", interfaces.ErrEmbedding, chunk.ChunkIndex, chunk.SourceID)
		}
		vectors[i] = vector
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadLocked(ctx); err != nil {
		return err
	}

	dimension := s.snapshot.Dimension
	if dimension == 0 {
		dimension = len(vectors[0])
	}
	for i, vector := range vectors {
		if len(vector) != dimension {
			return fmt.Errorf("%w: chunk %d of %s has %d dimensions, index %s expects %d",
				interfaces.ErrDimensionMismatch, chunks[i].ChunkIndex, chunks[i].SourceID, len(vector), s.corpus, dimension)
		}
	}

	next := s.snapshot
	next.Dimension = dimension
	next.Entries = make([]models.EmbeddedChunk, len(s.snapshot.Entries), len(s.snapshot.Entries)+len(chunks))
	copy(next.Entries, s.snapshot.Entries)
	for i, chunk := range chunks {
		chunk.PageNumbers = slices.Clone(chunk.PageNumbers)
		next.Entries = append(next.Entries, models.EmbeddedChunk{
			ID:     next.NextID,
			Chunk:  chunk,
			Vector: vectors[i],
		})
		next.NextID++
	}
	next.UpdatedAt = time.Now()

	data, err := json.Marshal(&next)
	if err != nil {
		return fmt.Errorf("failed to encode index %s: %w", s.corpus, err)
	}
	if err := s.storage.SaveIndex(ctx, s.corpus, data); err != nil {
		return fmt.Errorf("failed to persist index %s: %w", s.corpus, err)
	}

	s.snapshot = next
	s.exists = true

	s.logger.Info().
		Str("corpus", s.corpus).
		Int("inserted", len(chunks)).
		Int("entries", len(next.Entries)).
		Dur("duration", time.Since(start)).
		Msg("Chunks inserted into similarity index")

	return nil
}

// Query returns up to k chunks for text, re-ranked with maximal marginal
// relevance over the diversityPool nearest neighbours.
func (s *Service) Query(ctx context.Context, text string, k int, diversityPool int) ([]models.TextChunk, error) {
	results := []models.TextChunk{}
	if k <= 0 {
		return results, nil
	}
	if diversityPool <= 0 {
		diversityPool = DefaultDiversityPool(k)
	}
	if diversityPool < k {
		diversityPool = k
	}

	if err := s.Load(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	entries := s.snapshot.Entries
	dimension := s.snapshot.Dimension
	s.mu.RUnlock()

	if len(entries) == 0 {
		return results, nil
	}

	queryVector, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: query: %w", interfaces.ErrEmbedding, err)
	}
	if len(queryVector) != dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, index %s expects %d",
			interfaces.ErrDimensionMismatch, len(queryVector), s.corpus, dimension)
	}

	vectors := make([][]float32, len(entries))
	for i, e := range entries {
		vectors[i] = e.Vector
	}

	candidates := nearest(queryVector, vectors, diversityPool)
	selected := maximalMarginalRelevance(candidates, vectors, k, s.lambda)

	for _, c := range selected {
		chunk := entries[c.pos].Chunk
		chunk.PageNumbers = slices.Clone(chunk.PageNumbers)
		results = append(results, chunk)
	}

	s.logger.Debug().
		Str("corpus", s.corpus).
		Int("k", k).
		Int("pool", len(candidates)).
		Int("returned", len(results)).
		Msg("Similarity index queried")

	return results, nil
}

// Stats reports the resident index state without triggering a load
func (s *Service) Stats() models.IndexStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return models.IndexStats{
		Corpus:    s.corpus,
		Exists:    s.exists,
		Loaded:    s.loaded,
		Entries:   len(s.snapshot.Entries),
		Dimension: s.snapshot.Dimension,
		NextID:    s.snapshot.NextID,
	}
}
