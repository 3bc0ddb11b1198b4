package interfaces

import "context"

// EmbeddingService turns text into a fixed-length vector. Implementations must be
// deterministic for identical input over the lifetime of one index.
type EmbeddingService interface {
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimension returns the configured output dimensionality, or 0 when the
	// model decides it.
	Dimension() int
}
