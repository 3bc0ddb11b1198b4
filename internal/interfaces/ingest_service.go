package interfaces

import (
	"context"
	"io"
)

// IngestResult describes one ingested source
type IngestResult struct {
	SourceID string `json:"source_id"`
	Pages    int    `json:"pages"`
	Chunks   int    `json:"chunks"`
}

// IngestService splits documents into chunks and adds them to the similarity index
type IngestService interface {
	// IngestFile stores an uploaded file and indexes it
	IngestFile(ctx context.Context, filename string, r io.Reader) (*IngestResult, error)

	// IngestPath indexes a file already on disk (PDF, text or markdown)
	IngestPath(ctx context.Context, path string) (*IngestResult, error)

	IngestURL(ctx context.Context, rawURL string) (*IngestResult, error)
}
