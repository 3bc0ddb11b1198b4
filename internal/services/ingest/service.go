package ingest

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/respondeo/internal/common"
	"github.com/ternarybob/respondeo/internal/interfaces"
	"github.com/ternarybob/respondeo/internal/models"
	"github.com/ternarybob/respondeo/internal/services/transform"
)

// Page is the text of one page. Number is 1-based, 0 for unpaged sources.
type Page struct {
	Number int
	Text   string
}

// Document is a loaded source ready to be split
type Document struct {
	SourceID    string
	Title       string
	Description string
	Language    string
	URL         string
	Pages       []Page
}

// supportedExtensions lists the file types IngestPath accepts
var supportedExtensions = []string{".pdf", ".txt", ".md", ".markdown"}

// Service loads documents, splits them into chunks and inserts them into the index
type Service struct {
	index     interfaces.SimilarityIndex
	splitter  *RecursiveSplitter
	pdf       *PDFLoader
	urls      *URLLoader
	uploadDir string
	logger    arbor.ILogger
}

// Compile-time interface assertion
var _ interfaces.IngestService = (*Service)(nil)

// NewService creates the ingest service. The URL fetcher is chosen by
// config.Renderer: "chromedp" renders JavaScript, anything else uses plain HTTP.
func NewService(index interfaces.SimilarityIndex, config *common.IngestConfig, transformer *transform.Service, logger arbor.ILogger) *Service {
	timeout := common.ParseDurationOr(config.Timeout, 30*time.Second)

	var fetcher Fetcher
	if config.Renderer == "chromedp" {
		wait := common.ParseDurationOr(config.JavaScriptWaitTime, 2*time.Second)
		fetcher = NewChromeFetcher(wait, timeout, config.UserAgent, logger)
	} else {
		fetcher = NewHTTPFetcher(timeout, config.UserAgent)
	}

	return NewServiceWithFetcher(index, config, NewURLLoader(fetcher, transformer, logger), logger)
}

// NewServiceWithFetcher creates the ingest service with an explicit URL loader
func NewServiceWithFetcher(index interfaces.SimilarityIndex, config *common.IngestConfig, urls *URLLoader, logger arbor.ILogger) *Service {
	return &Service{
		index:     index,
		splitter:  NewRecursiveSplitter(config.ChunkSize, config.ChunkOverlap),
		pdf:       NewPDFLoader(logger),
		urls:      urls,
		uploadDir: config.UploadDir,
		logger:    logger,
	}
}

// IngestFile stores an uploaded file in the upload directory and indexes it
func (s *Service) IngestFile(ctx context.Context, filename string, r io.Reader) (*interfaces.IngestResult, error) {
	name := filepath.Base(filepath.Clean(strings.ReplaceAll(filename, "\\", "/")))
	if name == "" || name == "." || name == "/" || name == ".." {
		return nil, fmt.Errorf("%w: invalid file name %q", interfaces.ErrInvalidInput, filename)
	}
	if err := checkExtension(name); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(s.uploadDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	tmp, err := os.CreateTemp(s.uploadDir, ".upload-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create upload file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("failed to store upload %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("failed to store upload %s: %w", name, err)
	}

	dest := filepath.Join(s.uploadDir, name)
	if err := os.Rename(tmpName, dest); err != nil {
		return nil, fmt.Errorf("failed to store upload %s: %w", name, err)
	}

	s.logger.Info().Str("file", dest).Msg("Upload stored")

	return s.IngestPath(ctx, dest)
}

// IngestPath indexes a PDF, text or markdown file
func (s *Service) IngestPath(ctx context.Context, path string) (*interfaces.IngestResult, error) {
	if err := checkExtension(path); err != nil {
		return nil, err
	}

	var doc *Document
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		doc, err = s.pdf.Load(ctx, path)
	default:
		doc, err = loadText(path)
	}
	if err != nil {
		return nil, err
	}

	return s.ingest(ctx, doc)
}

// IngestURL fetches a web page and indexes it
func (s *Service) IngestURL(ctx context.Context, rawURL string) (*interfaces.IngestResult, error) {
	doc, err := s.urls.Load(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return s.ingest(ctx, doc)
}

func (s *Service) ingest(ctx context.Context, doc *Document) (*interfaces.IngestResult, error) {
	start := time.Now()

	chunks := s.Chunk(doc)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: %s has no extractable text", interfaces.ErrInvalidInput, doc.SourceID)
	}

	if err := s.index.Insert(ctx, chunks); err != nil {
		return nil, fmt.Errorf("failed to index %s: %w", doc.SourceID, err)
	}

	s.logger.Info().
		Str("source", doc.SourceID).
		Int("pages", len(doc.Pages)).
		Int("chunks", len(chunks)).
		Dur("duration", time.Since(start)).
		Msg("Document ingested")

	return &interfaces.IngestResult{
		SourceID: doc.SourceID,
		Pages:    len(doc.Pages),
		Chunks:   len(chunks),
	}, nil
}

// Chunk splits every page of the document. Chunk indexes run across the
// whole source; each chunk carries the number of the page it came from.
func (s *Service) Chunk(doc *Document) []models.TextChunk {
	var chunks []models.TextChunk
	for _, page := range doc.Pages {
		var pages []int
		if page.Number > 0 {
			pages = []int{page.Number}
		}
		for _, text := range s.splitter.Split(page.Text) {
			chunks = append(chunks, models.TextChunk{
				Content:     text,
				SourceID:    doc.SourceID,
				PageNumbers: slices.Clone(pages),
				ChunkIndex:  len(chunks),
				Title:       doc.Title,
				Description: doc.Description,
				Language:    doc.Language,
				URL:         doc.URL,
			})
		}
	}
	return chunks
}

// loadText reads a UTF-8 text or markdown file as a single page
func loadText(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read %s: %w", interfaces.ErrInvalidInput, path, err)
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%w: %s is not valid UTF-8 text", interfaces.ErrInvalidInput, path)
	}
	return &Document{
		SourceID: path,
		Pages:    []Page{{Number: 1, Text: string(data)}},
	}, nil
}

func checkExtension(name string) error {
	ext := strings.ToLower(filepath.Ext(name))
	if !slices.Contains(supportedExtensions, ext) {
		return fmt.Errorf("%w: unsupported file type %q (supported: %s)",
			interfaces.ErrInvalidInput, ext, strings.Join(supportedExtensions, ", "))
	}
	return nil
}
