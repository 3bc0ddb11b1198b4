package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/respondeo/internal/interfaces"
	"github.com/ternarybob/respondeo/internal/services/transform"
)

// maxPageBytes bounds the HTML read from a single URL
const maxPageBytes = 10 << 20

// Fetcher returns the rendered HTML of a page
type Fetcher interface {
	Fetch(ctx context.Context, pageURL string) (string, error)
}

// HTTPFetcher downloads static HTML with a plain GET
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
}

// NewHTTPFetcher creates a fetcher with the given timeout and user agent
func NewHTTPFetcher(timeout time.Duration, userAgent string) *HTTPFetcher {
	return &HTTPFetcher{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("failed to fetch %s: status %d", pageURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", pageURL, err)
	}

	if strings.HasPrefix(resp.Header.Get("Content-Type"), "text/plain") {
		return "<html><body><pre>" + escapeHTML(string(body)) + "</pre></body></html>", nil
	}
	return string(body), nil
}

// ChromeFetcher renders pages in headless Chrome so JavaScript-built content is captured
type ChromeFetcher struct {
	userAgent string
	wait      time.Duration
	timeout   time.Duration
	logger    arbor.ILogger
}

// NewChromeFetcher creates a fetcher that waits the given time after navigation
func NewChromeFetcher(wait, timeout time.Duration, userAgent string, logger arbor.ILogger) *ChromeFetcher {
	return &ChromeFetcher{
		userAgent: userAgent,
		wait:      wait,
		timeout:   timeout,
		logger:    logger,
	}
}

func (f *ChromeFetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if f.userAgent != "" {
		opts = append(opts, chromedp.UserAgent(f.userAgent))
	}

	allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocatorCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocatorCtx)
	defer browserCancel()

	runCtx, cancel := context.WithTimeout(browserCtx, f.timeout)
	defer cancel()

	f.logger.Debug().Str("url", pageURL).Dur("wait", f.wait).Msg("Rendering page with chromedp")

	var html string
	err := chromedp.Run(runCtx,
		chromedp.Navigate(pageURL),
		chromedp.Sleep(f.wait),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("failed to render %s: %w", pageURL, err)
	}
	return html, nil
}

// URLLoader turns a web page into a document with one unnumbered page.
// Citations use the page title in place of a page number.
type URLLoader struct {
	fetcher     Fetcher
	transformer *transform.Service
	logger      arbor.ILogger
}

// NewURLLoader creates a loader with the given fetcher
func NewURLLoader(fetcher Fetcher, transformer *transform.Service, logger arbor.ILogger) *URLLoader {
	return &URLLoader{fetcher: fetcher, transformer: transformer, logger: logger}
}

// Load fetches and cleans the page
func (l *URLLoader) Load(ctx context.Context, rawURL string) (*Document, error) {
	pageURL, err := ValidateURL(rawURL)
	if err != nil {
		return nil, err
	}

	html, err := l.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	page, err := l.transformer.ProcessHTML(html, pageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to process %s: %w", pageURL, err)
	}

	title := page.Title
	if title == "" {
		title = pageURL
	}

	return &Document{
		SourceID:    pageURL,
		Title:       title,
		Description: page.Description,
		Language:    page.Language,
		URL:         pageURL,
		Pages:       []Page{{Text: page.Markdown}},
	}, nil
}

// ValidateURL accepts absolute http and https URLs only
func ValidateURL(rawURL string) (string, error) {
	rawURL = strings.TrimSpace(rawURL)
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: invalid URL %q: %w", interfaces.ErrInvalidInput, rawURL, err)
	}
	if (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return "", fmt.Errorf("%w: URL must be absolute http or https: %q", interfaces.ErrInvalidInput, rawURL)
	}
	return parsed.String(), nil
}

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func escapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}
