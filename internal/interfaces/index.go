package interfaces

import (
	"context"

	"github.com/ternarybob/respondeo/internal/models"
)

// SimilarityIndex is a persisted collection of embedded chunks for one corpus
type SimilarityIndex interface {
	// Insert embeds and appends chunks, then persists the whole index.
	// It is all-or-nothing per call and a no-op for an empty slice.
	Insert(ctx context.Context, chunks []models.TextChunk) error

	// Query returns up to k chunks re-ranked with maximal marginal relevance
	// from the diversityPool nearest neighbours. diversityPool <= 0 selects
	// the default of max(3k, 10).
	Query(ctx context.Context, text string, k int, diversityPool int) ([]models.TextChunk, error)

	// Load makes the persisted index resident. Loading twice is a no-op.
	Load(ctx context.Context) error

	// Stats reports the resident index state
	Stats() models.IndexStats
}
