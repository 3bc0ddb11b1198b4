package wikipedia

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/respondeo/internal/common"
	"github.com/ternarybob/respondeo/internal/interfaces"
	"github.com/ternarybob/respondeo/internal/models"
	"github.com/ternarybob/respondeo/internal/services/transform"
)

// extractNoise is stripped from article extracts before conversion
const extractNoise = "sup.reference, .reference, .mw-editsection, .mw-references-wrap, table, figure, .thumb, .hatnote"

// Retriever is the secondary knowledge source backed by Wikipedia
type Retriever struct {
	client      *Client
	transformer *transform.Service
	topK        int
	maxChars    int
	language    string
	logger      arbor.ILogger
}

// Compile-time interface assertion
var _ interfaces.Retriever = (*Retriever)(nil)

// NewRetriever creates a retriever with the given client
func NewRetriever(client *Client, transformer *transform.Service, config *common.WikipediaConfig, logger arbor.ILogger) *Retriever {
	r := &Retriever{
		client:      client,
		transformer: transformer,
		topK:        config.TopKResults,
		maxChars:    config.DocContentCharsMax,
		language:    config.Language,
		logger:      logger,
	}
	if r.topK <= 0 {
		r.topK = 2
	}
	if r.maxChars <= 0 {
		r.maxChars = 3000
	}
	return r
}

// NewRetrieverFromConfig builds the client from configuration
func NewRetrieverFromConfig(config *common.WikipediaConfig, logger arbor.ILogger) *Retriever {
	endpoint := config.BaseURL
	if endpoint == "" {
		endpoint = EndpointForLanguage(config.Language)
	}

	client := NewClient(
		WithEndpoint(endpoint),
		WithUserAgent(config.UserAgent),
		WithRateLimit(config.RateLimit),
		WithLogger(logger),
		WithHTTPClient(&http.Client{Timeout: common.ParseDurationOr(config.Timeout, DefaultTimeout)}),
	)

	return NewRetriever(client, transform.NewService(logger), config, logger)
}

// Name identifies the source in logs and citations
func (r *Retriever) Name() string {
	return "wikipedia"
}

// Search returns one chunk per matching article. maxResults <= 0 uses the
// configured top-k. Articles that disappear between search and fetch are skipped.
func (r *Retriever) Search(ctx context.Context, query string, maxResults int) ([]models.TextChunk, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: empty query", interfaces.ErrInvalidInput)
	}
	if maxResults <= 0 {
		maxResults = r.topK
	}

	start := time.Now()
	hits, err := r.client.Search(ctx, query, maxResults)
	if err != nil {
		return nil, fmt.Errorf("%w: wikipedia: %w", interfaces.ErrRetrieval, err)
	}

	chunks := make([]models.TextChunk, 0, len(hits))
	for _, hit := range hits {
		page, err := r.client.GetPage(ctx, hit.Title)
		if err != nil {
			return nil, fmt.Errorf("%w: wikipedia: %w", interfaces.ErrRetrieval, err)
		}
		if page == nil {
			r.logger.Debug().Str("title", hit.Title).Msg("Wikipedia page missing, skipping")
			continue
		}

		chunk, err := r.toChunk(page, hit)
		if err != nil {
			return nil, fmt.Errorf("%w: wikipedia: %w", interfaces.ErrRetrieval, err)
		}
		if strings.TrimSpace(chunk.Content) == "" {
			continue
		}
		chunks = append(chunks, chunk)
	}

	r.logger.Info().
		Str("query", query).
		Int("hits", len(hits)).
		Int("chunks", len(chunks)).
		Dur("duration", time.Since(start)).
		Msg("Wikipedia search completed")

	return chunks, nil
}

func (r *Retriever) toChunk(page *Page, hit SearchHit) (models.TextChunk, error) {
	wrapped := "<html><body><div class=\"mw-parser-output\">" + page.Extract + "</div></body></html>"
	processed, err := r.transformer.ProcessHTML(wrapped, page.FullURL, extractNoise)
	if err != nil {
		return models.TextChunk{}, fmt.Errorf("failed to clean extract of %q: %w", page.Title, err)
	}

	content := truncateRunes(strings.TrimSpace(processed.Markdown), r.maxChars)

	summary := firstParagraph(processed.Markdown)
	if summary == "" {
		summary = transform.StripHTML(hit.Snippet)
	}

	return models.TextChunk{
		Content:     content,
		SourceID:    page.Title,
		Title:       page.Title,
		Description: summary,
		Language:    r.language,
		URL:         page.FullURL,
	}, nil
}

func firstParagraph(markdown string) string {
	for _, paragraph := range strings.Split(markdown, "\n\n") {
		paragraph = strings.TrimSpace(paragraph)
		if paragraph != "" && !strings.HasPrefix(paragraph, "#") {
			return paragraph
		}
	}
	return ""
}

// truncateRunes cuts s to at most n characters
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
