// Package wikipedia provides the MediaWiki API client and the secondary
// retriever built on it.
package wikipedia

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"
)

const (
	// DefaultTimeout is the default HTTP timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultRateLimit is the default rate limit (requests per second).
	DefaultRateLimit = 5.0

	// DefaultUserAgent identifies the client as the MediaWiki API etiquette asks.
	DefaultUserAgent = "Respondeo/1.0 (https://github.com/ternarybob/respondeo)"
)

// EndpointForLanguage returns the api.php endpoint of a language edition
func EndpointForLanguage(language string) string {
	if language == "" {
		language = "en"
	}
	return fmt.Sprintf("https://%s.wikipedia.org/w/api.php", language)
}

// Client is a MediaWiki action API client.
type Client struct {
	endpoint   string
	userAgent  string
	httpClient *http.Client
	logger     arbor.ILogger
	limiter    *rate.Limiter
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithEndpoint sets a custom api.php endpoint.
func WithEndpoint(endpoint string) ClientOption {
	return func(c *Client) {
		c.endpoint = endpoint
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets a logger.
func WithLogger(logger arbor.ILogger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(userAgent string) ClientOption {
	return func(c *Client) {
		if userAgent != "" {
			c.userAgent = userAgent
		}
	}
}

// WithRateLimit sets a custom rate limit. Zero or less disables limiting.
func WithRateLimit(requestsPerSecond float64) ClientOption {
	return func(c *Client) {
		if requestsPerSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		burst := int(requestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
	}
}

// NewClient creates a new client for the English edition unless an endpoint option is given.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		endpoint:  EndpointForLanguage("en"),
		userAgent: DefaultUserAgent,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), int(DefaultRateLimit)),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError represents an error from the MediaWiki API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("wikipedia API error: %s: %s (status %d)", e.Code, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("wikipedia API error: %s (status %d)", e.Message, e.StatusCode)
}

// get performs a GET request against api.php with the common query parameters.
func (c *Client) get(ctx context.Context, params url.Values, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	params.Set("format", "json")
	params.Set("formatversion", "2")
	reqURL := c.endpoint + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	if c.logger != nil {
		c.logger.Debug().
			Str("action", params.Get("action")).
			Str("list", params.Get("list")).
			Str("titles", params.Get("titles")).
			Msg("Wikipedia API request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{StatusCode: resp.StatusCode, Message: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Search runs a full-text search and returns up to limit hits, best first.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]SearchHit, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("list", "search")
	params.Set("srsearch", query)
	params.Set("srlimit", strconv.Itoa(limit))
	params.Set("srprop", "snippet")

	var resp searchResponse
	if err := c.get(ctx, params, &resp); err != nil {
		return nil, fmt.Errorf("failed to search %q: %w", query, err)
	}
	if resp.Error != nil {
		return nil, &APIError{StatusCode: http.StatusOK, Code: resp.Error.Code, Message: resp.Error.Info}
	}
	return resp.Query.Search, nil
}

// GetPage fetches the HTML extract and canonical URL of an article, following redirects.
func (c *Client) GetPage(ctx context.Context, title string) (*Page, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("prop", "extracts|info")
	params.Set("inprop", "url")
	params.Set("redirects", "1")
	params.Set("titles", title)

	var resp pagesResponse
	if err := c.get(ctx, params, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch page %q: %w", title, err)
	}
	if resp.Error != nil {
		return nil, &APIError{StatusCode: http.StatusOK, Code: resp.Error.Code, Message: resp.Error.Info}
	}
	if len(resp.Query.Pages) == 0 || resp.Query.Pages[0].Missing {
		return nil, nil
	}

	page := resp.Query.Pages[0]
	return &page, nil
}
