package docmirror

import (
	"context"
	"time"
)

// IndexEntry is a chunk's vector together with the metadata needed to
// attribute a search hit without consulting any other store.
type IndexEntry struct {
	ChunkID     string        `json:"chunkId"`
	Vector      []float32     `json:"vector,omitempty"`
	ContentHash string        `json:"contentHash"`
	Metadata    EntryMetadata `json:"metadata"`
}

// EntryMetadata is denormalized chunk, document and source information
// stored alongside each vector.
type EntryMetadata struct {
	SourceID   string    `json:"sourceId"`
	SourceName string    `json:"sourceName"`
	DocumentID string    `json:"documentId"`
	Title      string    `json:"title"`
	URL        string    `json:"url"`
	Heading    string    `json:"heading,omitempty"`
	Version    string    `json:"version"`
	Content    string    `json:"content"`
	IndexedAt  time.Time `json:"indexedAt"`
}

// VectorMatch is an entry returned by a similarity query.
// Score is the cosine similarity between the query and entry vectors.
type VectorMatch struct {
	Entry IndexEntry
	Score float32
}

// VectorFilter restricts a similarity query.
type VectorFilter struct {
	// SourceIDs limits matches to these sources. Empty means all sources.
	SourceIDs []string
}

// VectorStore persists index entries and answers similarity queries.
type VectorStore interface {
	// Upsert inserts or replaces entries by chunk ID.
	Upsert(ctx context.Context, entries []*IndexEntry) error

	// Query returns up to k entries most similar to vector, best first.
	Query(ctx context.Context, vector []float32, k int, filter VectorFilter) ([]VectorMatch, error)

	// EntryHashes returns the stored content hash for each chunk ID that
	// has an entry. Missing IDs are absent from the map.
	EntryHashes(ctx context.Context, chunkIDs []string) (map[string]string, error)

	// Delete removes entries by chunk ID. Unknown IDs are ignored.
	Delete(ctx context.Context, chunkIDs []string) error
}

// Embedder turns text into vectors. The same embedder must be used for
// indexing and querying.
type Embedder interface {
	// Embed returns one vector per text, in order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the length of the vectors Embed produces.
	Dimensions() int
}
