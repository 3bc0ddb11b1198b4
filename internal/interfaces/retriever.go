package interfaces

import (
	"context"

	"github.com/ternarybob/respondeo/internal/models"
)

// Retriever is an external knowledge source consulted when the primary corpus
// cannot answer. Returned chunks carry the external identifier (e.g. page title)
// as SourceID.
type Retriever interface {
	Search(ctx context.Context, query string, maxResults int) ([]models.TextChunk, error)

	// Name identifies the source in logs and citations
	Name() string
}
