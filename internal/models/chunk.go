package models

// TextChunk is an immutable span of source text with its provenance.
// Chunks are produced by ingestion or by the secondary retriever and are
// never mutated once handed to the similarity index.
type TextChunk struct {
	Content     string `json:"content"`
	SourceID    string `json:"source_id"`              // File path, URL or external page title
	PageNumbers []int  `json:"page_numbers,omitempty"` // 1-based, ordered; nil when the source has no pages
	ChunkIndex  int    `json:"chunk_index"`            // Position within the source, unique per source

	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Language    string `json:"language,omitempty"`
	URL         string `json:"url,omitempty"`
}

// EvidenceOrigin labels where a block of evidence came from
type EvidenceOrigin string

const (
	// OriginPrimary is the locally indexed corpus
	OriginPrimary EvidenceOrigin = "primary"
	// OriginSecondary is the external fallback knowledge source
	OriginSecondary EvidenceOrigin = "secondary"
)

// ContentLength returns the total number of runes of content across chunks
func ContentLength(chunks []TextChunk) int {
	total := 0
	for _, c := range chunks {
		total += len([]rune(c.Content))
	}
	return total
}
