package chat

import (
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/ternarybob/respondeo/internal/models"
)

// FormatEvidence renders chunks as numbered, citable blocks in input order.
// Primary chunks cite source file and pages; secondary chunks cite the
// external reference and its URL.
func FormatEvidence(chunks []models.TextChunk, origin models.EvidenceOrigin) string {
	blocks := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		if origin == models.OriginSecondary {
			blocks = append(blocks, formatReference(chunk, i+1))
		} else {
			blocks = append(blocks, formatSnippet(chunk, i+1))
		}
	}
	return strings.Join(blocks, "\n\n")
}

func formatSnippet(chunk models.TextChunk, n int) string {
	var parts []string
	parts = append(parts, fmt.Sprintf("--- Snippet %d ---", n))
	parts = append(parts, strings.TrimSpace(chunk.Content))
	parts = append(parts, fmt.Sprintf("<source='%s', %s>", sourceBasename(chunk.SourceID), pageCitation(chunk)))
	return strings.Join(parts, "\n")
}

func formatReference(chunk models.TextChunk, n int) string {
	reference := strings.TrimSpace(chunk.SourceID)
	if reference == "" {
		reference = "unknown"
	}

	var parts []string
	parts = append(parts, fmt.Sprintf("--- External Reference %d ---", n))
	parts = append(parts, strings.TrimSpace(chunk.Content))
	parts = append(parts, fmt.Sprintf("<reference='%s', url='%s'>", reference, chunk.URL))
	return strings.Join(parts, "\n")
}

// pageCitation picks the page part of a citation: numbered pages when the
// source has them, otherwise the title of a titled source.
func pageCitation(chunk models.TextChunk) string {
	switch len(chunk.PageNumbers) {
	case 0:
		if title := strings.TrimSpace(chunk.Title); title != "" {
			return fmt.Sprintf("page='%s'", title)
		}
		return "page=unknown"
	case 1:
		return "page=" + strconv.Itoa(chunk.PageNumbers[0])
	default:
		pages := make([]string, len(chunk.PageNumbers))
		for i, p := range chunk.PageNumbers {
			pages[i] = strconv.Itoa(p)
		}
		return "pages=" + strings.Join(pages, ",")
	}
}

// sourceBasename strips directories, URL paths, queries and fragments
func sourceBasename(source string) string {
	source = strings.TrimSpace(source)
	if i := strings.IndexAny(source, "?#"); i >= 0 {
		source = source[:i]
	}
	source = strings.ReplaceAll(source, "\\", "/")
	source = strings.TrimRight(source, "/")
	if source == "" {
		return "unknown"
	}
	base := path.Base(source)
	if base == "." || base == "/" || base == "" {
		return "unknown"
	}
	return base
}
