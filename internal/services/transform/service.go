package transform

import (
	"fmt"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"
)

// boilerplateSelectors are removed from every page before conversion
const boilerplateSelectors = "script, style, noscript, nav, footer, aside, form, iframe"

// contentSelectors are tried in order to find the main content of a page
const contentSelectors = "main, article, .content, .main-content, #content, #main, .mw-parser-output"

// Page is the readable form of an HTML document
type Page struct {
	Title       string
	Description string
	Language    string
	Markdown    string
}

// Service provides HTML cleanup and HTML to markdown conversion
type Service struct {
	logger arbor.ILogger
}

// NewService creates a new transform service
func NewService(logger arbor.ILogger) *Service {
	return &Service{
		logger: logger,
	}
}

// ProcessHTML parses a full HTML document, drops boilerplate and any extra
// selectors, and converts the main content to markdown.
// baseURL is used for resolving relative links.
func (s *Service) ProcessHTML(html string, baseURL string, removeSelectors ...string) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	page := &Page{
		Title:       extractTitle(doc),
		Description: extractDescription(doc),
	}
	if lang, exists := doc.Find("html").Attr("lang"); exists {
		page.Language = strings.TrimSpace(lang)
	}

	doc.Find(boilerplateSelectors).Remove()
	for _, selector := range removeSelectors {
		doc.Find(selector).Remove()
	}

	content := doc.Find(contentSelectors).First()
	if content.Length() == 0 {
		content = doc.Find("body")
	}

	contentHTML, err := content.Html()
	if err != nil {
		return nil, fmt.Errorf("failed to render content: %w", err)
	}

	markdown, err := s.HTMLToMarkdown(contentHTML, baseURL)
	if err != nil {
		return nil, err
	}
	page.Markdown = markdown

	return page, nil
}

// HTMLToMarkdown converts HTML content to markdown
// baseURL is used for resolving relative links
// Returns markdown string or error if conversion fails
func (s *Service) HTMLToMarkdown(html string, baseURL string) (string, error) {
	if html == "" {
		return "", nil
	}

	mdConverter := md.NewConverter(baseURL, true, nil)
	converted, err := mdConverter.ConvertString(html)
	if err != nil {
		s.logger.Warn().Err(err).Msg("HTML to markdown conversion failed, using fallback")
		return stripHTMLTags(html), nil
	}

	trimmedMarkdown := strings.TrimSpace(converted)
	if trimmedMarkdown == "" {
		s.logger.Warn().
			Int("html_length", len(html)).
			Msg("HTML to markdown conversion produced empty output, applying fallback")
		return stripHTMLTags(html), nil
	}

	s.logger.Debug().
		Int("markdown_length", len(trimmedMarkdown)).
		Int("html_length", len(html)).
		Msg("HTML to markdown conversion successful")

	return trimmedMarkdown, nil
}

// StripHTML returns the visible text of an HTML fragment
func StripHTML(html string) string {
	return stripHTMLTags(html)
}

// extractTitle extracts the page title from various sources
func extractTitle(doc *goquery.Document) string {
	if title := doc.Find("title").First().Text(); strings.TrimSpace(title) != "" {
		return strings.TrimSpace(title)
	}
	if ogTitle, exists := doc.Find("meta[property='og:title']").Attr("content"); exists && ogTitle != "" {
		return strings.TrimSpace(ogTitle)
	}
	if h1 := doc.Find("h1").First().Text(); strings.TrimSpace(h1) != "" {
		return strings.TrimSpace(h1)
	}
	return ""
}

func extractDescription(doc *goquery.Document) string {
	if description, exists := doc.Find("meta[name='description']").Attr("content"); exists {
		return strings.TrimSpace(description)
	}
	if description, exists := doc.Find("meta[property='og:description']").Attr("content"); exists {
		return strings.TrimSpace(description)
	}
	return ""
}

var (
	tagRe   = regexp.MustCompile(`<[^>]*>`)
	spaceRe = regexp.MustCompile(`\s+`)
)

// stripHTMLTags removes basic HTML tags for fallback cases
func stripHTMLTags(htmlStr string) string {
	stripped := tagRe.ReplaceAllString(htmlStr, "")
	cleaned := spaceRe.ReplaceAllString(stripped, " ")

	// Decode HTML entities (basic set)
	cleaned = strings.ReplaceAll(cleaned, "&amp;", "&")
	cleaned = strings.ReplaceAll(cleaned, "&lt;", "<")
	cleaned = strings.ReplaceAll(cleaned, "&gt;", ">")
	cleaned = strings.ReplaceAll(cleaned, "&quot;", "\"")
	cleaned = strings.ReplaceAll(cleaned, "&#39;", "'")
	cleaned = strings.ReplaceAll(cleaned, "&nbsp;", " ")

	return strings.TrimSpace(cleaned)
}
