package chat

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
	"sync"

	"github.com/ternarybob/respondeo/internal/interfaces"
	"github.com/ternarybob/respondeo/internal/models"
)

// fakeLLM records calls and answers from scripted functions
type fakeLLM struct {
	mu          sync.Mutex
	chatCalls   [][]interfaces.Message
	answerCalls [][]interfaces.Message

	chatFn   func(messages []interfaces.Message) (string, error)
	answerFn func(call int, messages []interfaces.Message) (*models.StructuredAnswer, error)
}

func (f *fakeLLM) Chat(ctx context.Context, messages []interfaces.Message) (string, error) {
	f.mu.Lock()
	f.chatCalls = append(f.chatCalls, messages)
	f.mu.Unlock()
	if f.chatFn == nil {
		return "", errors.New("unexpected chat call")
	}
	return f.chatFn(messages)
}

func (f *fakeLLM) GenerateAnswer(ctx context.Context, messages []interfaces.Message) (*models.StructuredAnswer, error) {
	f.mu.Lock()
	f.answerCalls = append(f.answerCalls, messages)
	call := len(f.answerCalls)
	f.mu.Unlock()
	if f.answerFn == nil {
		return nil, errors.New("unexpected answer call")
	}
	return f.answerFn(call, messages)
}

func (f *fakeLLM) HealthCheck(ctx context.Context) error { return nil }

func (f *fakeLLM) GetProvider() string { return "fake" }

func (f *fakeLLM) Close() error { return nil }

func (f *fakeLLM) chatCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.chatCalls)
}

func (f *fakeLLM) answerCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.answerCalls)
}

// evidenceReader answers from the Document Context: found when the system
// prompt contains needle, with a fixed answer text.
func evidenceReader(needle, answer string) func(int, []interfaces.Message) (*models.StructuredAnswer, error) {
	return func(_ int, messages []interfaces.Message) (*models.StructuredAnswer, error) {
		if len(messages) > 0 && strings.Contains(messages[0].Content, needle) {
			return &models.StructuredAnswer{Answer: answer, Found: true}, nil
		}
		return &models.StructuredAnswer{Answer: models.NotFoundAnswer, Found: false}, nil
	}
}

// fakeIndex returns fixed chunks and records queries
type fakeIndex struct {
	mu      sync.Mutex
	chunks  []models.TextChunk
	err     error
	queries []string
}

func (f *fakeIndex) Insert(ctx context.Context, chunks []models.TextChunk) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chunks = append(f.chunks, chunks...)
	return nil
}

func (f *fakeIndex) Query(ctx context.Context, text string, k int, diversityPool int) ([]models.TextChunk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, text)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.chunks) > k {
		return append([]models.TextChunk(nil), f.chunks[:k]...), nil
	}
	return append([]models.TextChunk{}, f.chunks...), nil
}

func (f *fakeIndex) Load(ctx context.Context) error { return nil }

func (f *fakeIndex) Stats() models.IndexStats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return models.IndexStats{Entries: len(f.chunks), Exists: len(f.chunks) > 0}
}

// fakeRetriever is the secondary source
type fakeRetriever struct {
	mu      sync.Mutex
	chunks  []models.TextChunk
	err     error
	queries []string
}

func (f *fakeRetriever) Search(ctx context.Context, query string, maxResults int) ([]models.TextChunk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	if f.err != nil {
		return nil, f.err
	}
	return f.chunks, nil
}

func (f *fakeRetriever) Name() string { return "wikipedia" }

func (f *fakeRetriever) searchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries)
}

// fakeMemory is an in-process conversation log
type fakeMemory struct {
	mu        sync.Mutex
	sessions  map[string][]models.ConversationTurn
	appendErr error
}

func newFakeMemory() *fakeMemory {
	return &fakeMemory{sessions: map[string][]models.ConversationTurn{}}
}

func (m *fakeMemory) GetHistory(ctx context.Context, sessionID string) ([]models.ConversationTurn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.ConversationTurn{}, m.sessions[sessionID]...), nil
}

func (m *fakeMemory) Append(ctx context.Context, sessionID string, turns ...models.ConversationTurn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return m.appendErr
	}
	m.sessions[sessionID] = append(m.sessions[sessionID], turns...)
	return nil
}

func (m *fakeMemory) Clear(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
	return nil
}

// wordEmbedder hashes words into a small vector
type wordEmbedder struct{ dim int }

func (e wordEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	v := make([]float32, e.dim)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(strings.Trim(word, ".,?!")))
		v[h.Sum32()%uint32(e.dim)]++
	}
	return v, nil
}

func (e wordEmbedder) Dimension() int { return e.dim }

// blobStorage keeps index blobs in memory
type blobStorage struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func (b *blobStorage) SaveIndex(ctx context.Context, corpus string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.blobs == nil {
		b.blobs = map[string][]byte{}
	}
	b.blobs[corpus] = append([]byte(nil), data...)
	return nil
}

func (b *blobStorage) LoadIndex(ctx context.Context, corpus string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.blobs[corpus]
	if !ok {
		return nil, interfaces.ErrIndexNotFound
	}
	return data, nil
}

func (b *blobStorage) DeleteIndex(ctx context.Context, corpus string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.blobs, corpus)
	return nil
}
