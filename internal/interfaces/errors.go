package interfaces

import "errors"

// Error kinds surfaced by the answering engine. Callers match them with errors.Is;
// the underlying cause is always wrapped alongside the kind.
var (
	// ErrEmbedding is returned when the embedding capability fails
	ErrEmbedding = errors.New("embedding failed")

	// ErrIndexLoad is returned when a persisted index exists but cannot be read
	ErrIndexLoad = errors.New("index load failed")

	// ErrGeneration is returned when the generation capability fails or returns
	// output that cannot be parsed into a structured answer
	ErrGeneration = errors.New("generation failed")

	// ErrRetrieval is returned when the secondary retriever fails
	ErrRetrieval = errors.New("retrieval failed")

	// ErrDimensionMismatch is returned when an embedding does not match the index dimension
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrIndexNotFound is returned by index storage when no index has been persisted for a corpus
	ErrIndexNotFound = errors.New("index not found")

	// ErrInvalidInput is returned for empty questions, session ids and similar caller mistakes
	ErrInvalidInput = errors.New("invalid input")
)
