package ingest

import (
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/respondeo/internal/interfaces"
)

// PDFLoader reads the text of a PDF page by page. pdfcpu validates the
// file and reports its page count; ledongthuc/pdf extracts the text.
type PDFLoader struct {
	logger arbor.ILogger
}

// NewPDFLoader creates a new PDF loader
func NewPDFLoader(logger arbor.ILogger) *PDFLoader {
	return &PDFLoader{logger: logger}
}

// Load returns one Page per PDF page that has text, numbered from 1
func (l *PDFLoader) Load(ctx context.Context, path string) (*Document, error) {
	pdfCtx, err := api.ReadContextFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s is not a readable PDF: %w", interfaces.ErrInvalidInput, path, err)
	}
	if pdfCtx.Encrypt != nil {
		return nil, fmt.Errorf("%w: %s is encrypted", interfaces.ErrInvalidInput, path)
	}

	pages, err := l.extractPages(ctx, path)
	if err != nil {
		return nil, err
	}

	l.logger.Debug().
		Str("path", path).
		Int("page_count", pdfCtx.PageCount).
		Int("pages_with_text", len(pages)).
		Msg("PDF loaded")

	return &Document{SourceID: path, Pages: pages}, nil
}

func (l *PDFLoader) extractPages(ctx context.Context, path string) (pages []Page, err error) {
	// ledongthuc/pdf panics on some malformed content streams
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("%w: failed to parse %s: %v", interfaces.ErrInvalidInput, path, r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open %s: %w", interfaces.ErrInvalidInput, path, err)
	}
	defer f.Close()

	total := r.NumPage()
	for pageNum := 1; pageNum <= total; pageNum++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := r.Page(pageNum)
		if page.V.IsNull() {
			l.logger.Warn().Int("page", pageNum).Str("path", path).Msg("Skipping null PDF page")
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			l.logger.Warn().Err(err).Int("page", pageNum).Str("path", path).Msg("Failed to extract text from PDF page")
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}

		pages = append(pages, Page{Number: pageNum, Text: text})
	}

	return pages, nil
}
