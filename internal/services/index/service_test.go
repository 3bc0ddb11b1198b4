package index

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/respondeo/internal/interfaces"
	"github.com/ternarybob/respondeo/internal/models"
)

// hashEmbedder is a deterministic bag-of-words embedder
type hashEmbedder struct {
	mu     sync.Mutex
	dim    int
	calls  int
	failOn string
	fixed  map[string][]float32
}

func (e *hashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()

	if e.failOn != "" && strings.Contains(text, e.failOn) {
		return nil, errors.New("upstream embedding outage")
	}
	if v, ok := e.fixed[text]; ok {
		return v, nil
	}

	v := make([]float32, e.dim)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(word))
		v[h.Sum32()%uint32(e.dim)]++
	}
	return v, nil
}

func (e *hashEmbedder) Dimension() int { return e.dim }

func (e *hashEmbedder) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// memIndexStorage keeps blobs in a map
type memIndexStorage struct {
	mu      sync.Mutex
	blobs   map[string][]byte
	saves   int
	saveErr error
}

func newMemIndexStorage() *memIndexStorage {
	return &memIndexStorage{blobs: map[string][]byte{}}
}

func (m *memIndexStorage) SaveIndex(ctx context.Context, corpus string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.blobs[corpus] = append([]byte(nil), data...)
	return nil
}

func (m *memIndexStorage) LoadIndex(ctx context.Context, corpus string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.blobs[corpus]
	if !ok {
		return nil, interfaces.ErrIndexNotFound
	}
	return data, nil
}

func (m *memIndexStorage) DeleteIndex(ctx context.Context, corpus string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, corpus)
	return nil
}

func newTestIndex(embedder interfaces.EmbeddingService, storage interfaces.IndexStorage) *Service {
	return NewService(embedder, storage, "test", 0.5, arbor.NewLogger())
}

func sampleChunks() []models.TextChunk {
	return []models.TextChunk{
		{Content: "Refunds must be requested within 30 days", SourceID: "/data/docs/policy.pdf", PageNumbers: []int{3}, ChunkIndex: 0},
		{Content: "Shipping is free for orders over fifty dollars", SourceID: "/data/docs/policy.pdf", PageNumbers: []int{4}, ChunkIndex: 1},
		{Content: "Support is available on weekdays from nine to five", SourceID: "/data/docs/support.pdf", PageNumbers: []int{1}, ChunkIndex: 0},
		{Content: "Gift cards cannot be exchanged for cash", SourceID: "/data/docs/policy.pdf", PageNumbers: []int{5}, ChunkIndex: 2},
	}
}

func TestQuery_EmptyIndexReturnsEmptyResult(t *testing.T) {
	embedder := &hashEmbedder{dim: 32}
	idx := newTestIndex(embedder, newMemIndexStorage())

	results, err := idx.Query(context.Background(), "What is the refund window?", 3, 0)
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
	assert.Equal(t, 0, embedder.callCount(), "empty index should not embed the query")

	stats := idx.Stats()
	assert.True(t, stats.Loaded)
	assert.False(t, stats.Exists)
}

func TestInsertQuery_RoundTrip(t *testing.T) {
	idx := newTestIndex(&hashEmbedder{dim: 64}, newMemIndexStorage())
	ctx := context.Background()
	chunks := sampleChunks()

	require.NoError(t, idx.Insert(ctx, chunks))

	for _, chunk := range chunks {
		t.Run(chunk.Content, func(t *testing.T) {
			results, err := idx.Query(ctx, chunk.Content, 3, 0)
			require.NoError(t, err)
			require.NotEmpty(t, results)
			assert.Equal(t, chunk.Content, results[0].Content, "exact match should rank first")
			assert.Equal(t, chunk.PageNumbers, results[0].PageNumbers)
		})
	}
}

func TestInsert_EmptyInputWritesNothing(t *testing.T) {
	storage := newMemIndexStorage()
	idx := newTestIndex(&hashEmbedder{dim: 16}, storage)

	require.NoError(t, idx.Insert(context.Background(), nil))
	require.NoError(t, idx.Insert(context.Background(), []models.TextChunk{}))

	assert.Equal(t, 0, storage.saves)
	_, err := storage.LoadIndex(context.Background(), "test")
	assert.ErrorIs(t, err, interfaces.ErrIndexNotFound)
}

func TestInsert_EmbeddingFailureIsAllOrNothing(t *testing.T) {
	storage := newMemIndexStorage()
	embedder := &hashEmbedder{dim: 16, failOn: "Shipping"}
	idx := newTestIndex(embedder, storage)

	err := idx.Insert(context.Background(), sampleChunks())
	require.Error(t, err)
	assert.ErrorIs(t, err, interfaces.ErrEmbedding)

	assert.Equal(t, 0, idx.Stats().Entries)
	assert.Equal(t, 0, storage.saves)
}

func TestInsert_PersistFailureLeavesIndexUntouched(t *testing.T) {
	storage := newMemIndexStorage()
	idx := newTestIndex(&hashEmbedder{dim: 16}, storage)
	ctx := context.Background()

	require.NoError(t, idx.Insert(ctx, sampleChunks()[:1]))

	storage.saveErr = errors.New("disk full")
	require.Error(t, idx.Insert(ctx, sampleChunks()[1:]))

	stats := idx.Stats()
	assert.Equal(t, 1, stats.Entries)
	assert.Equal(t, uint64(1), stats.NextID)
}

func TestInsert_PersistsAcrossInstancesWithMonotonicIDs(t *testing.T) {
	storage := newMemIndexStorage()
	embedder := &hashEmbedder{dim: 32}
	ctx := context.Background()

	first := newTestIndex(embedder, storage)
	require.NoError(t, first.Insert(ctx, sampleChunks()[:2]))

	second := newTestIndex(embedder, storage)
	require.NoError(t, second.Load(ctx))
	require.NoError(t, second.Load(ctx), "second load is a no-op")
	assert.Equal(t, 2, second.Stats().Entries)

	require.NoError(t, second.Insert(ctx, sampleChunks()[2:]))
	stats := second.Stats()
	assert.Equal(t, 4, stats.Entries)
	assert.Equal(t, uint64(4), stats.NextID)

	results, err := second.Query(ctx, "Refunds must be requested within 30 days", 1, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Contains(t, results[0].Content, "30 days")
}

func TestLoad_CorruptBlobIsIndexLoadError(t *testing.T) {
	tests := []struct {
		name string
		blob string
	}{
		{name: "not json", blob: "\x00\x01garbage"},
		{name: "wrong version", blob: `{"version":99,"corpus":"test"}`},
		{name: "wrong corpus", blob: `{"version":1,"corpus":"other"}`},
		{name: "inconsistent dimension", blob: `{"version":1,"corpus":"test","dimension":3,"next_id":1,"entries":[{"id":0,"chunk":{"content":"x"},"vector":[1,2]}]}`},
		{name: "id beyond next id", blob: `{"version":1,"corpus":"test","dimension":1,"next_id":0,"entries":[{"id":0,"chunk":{"content":"x"},"vector":[1]}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage := newMemIndexStorage()
			storage.blobs["test"] = []byte(tt.blob)
			idx := newTestIndex(&hashEmbedder{dim: 3}, storage)

			_, err := idx.Query(context.Background(), "anything", 3, 0)
			assert.ErrorIs(t, err, interfaces.ErrIndexLoad)
			assert.False(t, idx.Stats().Loaded)
		})
	}
}

func TestInsert_DimensionMismatchIsFatal(t *testing.T) {
	storage := newMemIndexStorage()
	ctx := context.Background()

	require.NoError(t, newTestIndex(&hashEmbedder{dim: 8}, storage).Insert(ctx, sampleChunks()[:1]))

	idx := newTestIndex(&hashEmbedder{dim: 16}, storage)
	err := idx.Insert(ctx, sampleChunks()[1:2])
	assert.ErrorIs(t, err, interfaces.ErrDimensionMismatch)
	assert.Equal(t, 1, idx.Stats().Entries)

	_, err = idx.Query(ctx, "refund", 3, 0)
	assert.ErrorIs(t, err, interfaces.ErrDimensionMismatch)
}

func TestQuery_MMRPrefersDiverseResults(t *testing.T) {
	embedder := &hashEmbedder{dim: 3, fixed: map[string][]float32{
		"query":       {1, 0, 0},
		"duplicate a": {0.9, 0.1, 0},
		"duplicate b": {0.9, 0.1, 0},
		"different":   {0.7, 0, 0.7},
	}}
	idx := newTestIndex(embedder, newMemIndexStorage())
	ctx := context.Background()

	require.NoError(t, idx.Insert(ctx, []models.TextChunk{
		{Content: "duplicate a", SourceID: "a.txt"},
		{Content: "duplicate b", SourceID: "b.txt"},
		{Content: "different", SourceID: "c.txt"},
	}))

	results, err := idx.Query(ctx, "query", 2, 0)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "duplicate a", results[0].Content)
	assert.Equal(t, "different", results[1].Content, "redundant near-duplicate should be passed over")
}

func TestQuery_PoolSmallerThanKIsRaised(t *testing.T) {
	idx := newTestIndex(&hashEmbedder{dim: 32}, newMemIndexStorage())
	ctx := context.Background()
	require.NoError(t, idx.Insert(ctx, sampleChunks()))

	results, err := idx.Query(ctx, "refund", 3, 1)
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestInsert_ConcurrentInsertsAreSerialized(t *testing.T) {
	storage := newMemIndexStorage()
	idx := newTestIndex(&hashEmbedder{dim: 32}, storage)
	ctx := context.Background()

	const writers = 8
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			chunks := make([]models.TextChunk, 5)
			for i := range chunks {
				chunks[i] = models.TextChunk{Content: fmt.Sprintf("writer %d chunk %d", w, i), SourceID: fmt.Sprintf("w%d", w), ChunkIndex: i}
			}
			assert.NoError(t, idx.Insert(ctx, chunks))
		}(w)
	}
	wg.Wait()

	stats := idx.Stats()
	assert.Equal(t, writers*5, stats.Entries)
	assert.Equal(t, uint64(writers*5), stats.NextID)

	reloaded := newTestIndex(&hashEmbedder{dim: 32}, storage)
	require.NoError(t, reloaded.Load(ctx))
	assert.Equal(t, writers*5, reloaded.Stats().Entries)
}

func TestDefaultDiversityPool(t *testing.T) {
	tests := []struct {
		k    int
		want int
	}{
		{k: 1, want: 10},
		{k: 3, want: 10},
		{k: 4, want: 12},
		{k: 10, want: 30},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("k=%d", tt.k), func(t *testing.T) {
			assert.Equal(t, tt.want, DefaultDiversityPool(tt.k))
		})
	}
}
