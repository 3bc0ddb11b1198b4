package ingest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/respondeo/internal/common"
	"github.com/ternarybob/respondeo/internal/interfaces"
	"github.com/ternarybob/respondeo/internal/models"
	"github.com/ternarybob/respondeo/internal/services/transform"
)

// recordingIndex keeps inserted chunks in memory
type recordingIndex struct {
	inserted  []models.TextChunk
	insertErr error
}

func (r *recordingIndex) Insert(ctx context.Context, chunks []models.TextChunk) error {
	if r.insertErr != nil {
		return r.insertErr
	}
	r.inserted = append(r.inserted, chunks...)
	return nil
}

func (r *recordingIndex) Query(ctx context.Context, text string, k int, diversityPool int) ([]models.TextChunk, error) {
	return nil, nil
}

func (r *recordingIndex) Load(ctx context.Context) error { return nil }

func (r *recordingIndex) Stats() models.IndexStats {
	return models.IndexStats{Loaded: true, Entries: len(r.inserted)}
}

func newTestService(t *testing.T, index interfaces.SimilarityIndex) *Service {
	t.Helper()
	logger := arbor.NewLogger()
	config := &common.IngestConfig{
		UploadDir:    filepath.Join(t.TempDir(), "uploads"),
		ChunkSize:    120,
		ChunkOverlap: 20,
		Renderer:     "http",
	}
	urls := NewURLLoader(NewHTTPFetcher(5*time.Second, "respondeo-test"), transform.NewService(logger), logger)
	return NewServiceWithFetcher(index, config, urls, logger)
}

func TestIngestPath_Text(t *testing.T) {
	index := &recordingIndex{}
	service := newTestService(t, index)

	path := filepath.Join(t.TempDir(), "policy.txt")
	text := strings.Repeat("Refunds are issued within 30 days of purchase. ", 10)
	require.NoError(t, os.WriteFile(path, []byte(text), 0644))

	result, err := service.IngestPath(context.Background(), path)

	require.NoError(t, err)
	assert.Equal(t, path, result.SourceID)
	assert.Equal(t, 1, result.Pages)
	assert.Greater(t, result.Chunks, 1)
	require.Len(t, index.inserted, result.Chunks)

	for i, chunk := range index.inserted {
		assert.Equal(t, i, chunk.ChunkIndex)
		assert.Equal(t, path, chunk.SourceID)
		assert.Equal(t, []int{1}, chunk.PageNumbers)
		assert.LessOrEqual(t, len([]rune(chunk.Content)), 120)
	}
}

func TestIngestPath_Rejects(t *testing.T) {
	dir := t.TempDir()
	binary := filepath.Join(dir, "binary.txt")
	require.NoError(t, os.WriteFile(binary, []byte{0xff, 0xfe, 0x00}, 0644))
	empty := filepath.Join(dir, "empty.md")
	require.NoError(t, os.WriteFile(empty, []byte("   \n\n "), 0644))
	notPDF := filepath.Join(dir, "fake.pdf")
	require.NoError(t, os.WriteFile(notPDF, []byte("not a pdf"), 0644))

	tests := []struct {
		name string
		path string
	}{
		{name: "unsupported extension", path: filepath.Join(dir, "sheet.xlsx")},
		{name: "invalid utf8", path: binary},
		{name: "no text", path: empty},
		{name: "missing file", path: filepath.Join(dir, "missing.txt")},
		{name: "corrupt pdf", path: notPDF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			index := &recordingIndex{}
			service := newTestService(t, index)

			_, err := service.IngestPath(context.Background(), tt.path)

			assert.ErrorIs(t, err, interfaces.ErrInvalidInput)
			assert.Empty(t, index.inserted)
		})
	}
}

func TestIngestPath_IndexFailure(t *testing.T) {
	index := &recordingIndex{insertErr: interfaces.ErrEmbedding}
	service := newTestService(t, index)

	path := filepath.Join(t.TempDir(), "notes.md")
	require.NoError(t, os.WriteFile(path, []byte("# Notes\n\nShipping takes five days."), 0644))

	_, err := service.IngestPath(context.Background(), path)

	assert.ErrorIs(t, err, interfaces.ErrEmbedding)
}

func TestIngestFile_StoresUpload(t *testing.T) {
	index := &recordingIndex{}
	service := newTestService(t, index)

	result, err := service.IngestFile(context.Background(), "../../etc/handbook.md",
		strings.NewReader("Employees get 20 days of leave."))

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(service.uploadDir, "handbook.md"), result.SourceID)
	assert.FileExists(t, result.SourceID)
	require.Len(t, index.inserted, 1)
	assert.Equal(t, "Employees get 20 days of leave.", index.inserted[0].Content)

	entries, err := os.ReadDir(service.uploadDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestIngestFile_RejectsExtensionBeforeWriting(t *testing.T) {
	service := newTestService(t, &recordingIndex{})

	_, err := service.IngestFile(context.Background(), "payload.exe", strings.NewReader("MZ"))

	assert.ErrorIs(t, err, interfaces.ErrInvalidInput)
	assert.NoDirExists(t, service.uploadDir)
}

func TestIngestURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "respondeo-test", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html lang="en"><head><title>Shipping FAQ</title></head>
<body><nav>Menu</nav><main><p>Orders ship within two business days.</p></main></body></html>`))
	}))
	defer server.Close()

	index := &recordingIndex{}
	service := newTestService(t, index)

	result, err := service.IngestURL(context.Background(), server.URL+"/faq")

	require.NoError(t, err)
	assert.Equal(t, server.URL+"/faq", result.SourceID)
	require.Len(t, index.inserted, 1)

	chunk := index.inserted[0]
	assert.Equal(t, "Shipping FAQ", chunk.Title)
	assert.Equal(t, server.URL+"/faq", chunk.URL)
	assert.Equal(t, "en", chunk.Language)
	assert.Nil(t, chunk.PageNumbers)
	assert.Contains(t, chunk.Content, "two business days")
	assert.NotContains(t, chunk.Content, "Menu")
}

func TestIngestURL_Failures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	service := newTestService(t, &recordingIndex{})

	_, err := service.IngestURL(context.Background(), "ftp://example.com/file")
	assert.ErrorIs(t, err, interfaces.ErrInvalidInput)

	_, err = service.IngestURL(context.Background(), server.URL+"/missing")
	require.Error(t, err)
	assert.False(t, errors.Is(err, interfaces.ErrInvalidInput))
}

func TestChunk_PerPageNumbers(t *testing.T) {
	service := newTestService(t, &recordingIndex{})
	doc := &Document{
		SourceID: "manual.pdf",
		Pages: []Page{
			{Number: 1, Text: "Install the unit."},
			{Number: 2, Text: ""},
			{Number: 3, Text: "Warranty lasts two years."},
		},
	}

	chunks := service.Chunk(doc)

	require.Len(t, chunks, 2)
	assert.Equal(t, []int{1}, chunks[0].PageNumbers)
	assert.Equal(t, 0, chunks[0].ChunkIndex)
	assert.Equal(t, []int{3}, chunks[1].PageNumbers)
	assert.Equal(t, 1, chunks[1].ChunkIndex)
}

func TestValidateURL(t *testing.T) {
	got, err := ValidateURL("  https://example.com/a  ")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/a", got)

	for _, raw := range []string{"", "example.com", "mailto:a@b.c", "http://"} {
		_, err := ValidateURL(raw)
		assert.ErrorIs(t, err, interfaces.ErrInvalidInput, raw)
	}
}
