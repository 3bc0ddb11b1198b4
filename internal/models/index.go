package models

import "time"

// IndexSnapshotVersion is bumped whenever the persisted index layout changes
const IndexSnapshotVersion = 1

// EmbeddedChunk pairs a chunk with its embedding vector and a dense id
type EmbeddedChunk struct {
	ID     uint64    `json:"id"`
	Chunk  TextChunk `json:"chunk"`
	Vector []float32 `json:"vector"`
}

// IndexSnapshot is the whole-unit persisted form of one corpus index
type IndexSnapshot struct {
	Version   int             `json:"version"`
	Corpus    string          `json:"corpus"`
	Dimension int             `json:"dimension"`
	NextID    uint64          `json:"next_id"`
	Entries   []EmbeddedChunk `json:"entries"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// IndexBlob is the storage record holding an encoded snapshot
type IndexBlob struct {
	Corpus    string    `json:"corpus"`
	Data      []byte    `json:"data"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IndexStats summarises a resident index
type IndexStats struct {
	Corpus    string `json:"corpus"`
	Exists    bool   `json:"exists"`
	Loaded    bool   `json:"loaded"`
	Entries   int    `json:"entries"`
	Dimension int    `json:"dimension"`
	NextID    uint64 `json:"next_id"`
}
