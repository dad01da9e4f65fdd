package docmirror

import "context"

// SearchService provides semantic search over indexed chunks.
type SearchService interface {
	// Search returns results ordered by relevance to the query.
	// An empty result set is not an error.
	Search(ctx context.Context, query string, opts SearchOptions) ([]SearchResult, error)
}

// SearchOptions configures search behavior.
type SearchOptions struct {
	// Sources limits results to these source names.
	Sources []string `json:"sources,omitempty"`

	// Limit is the maximum number of results to return.
	Limit int `json:"limit,omitempty"`

	// MinScore drops results scoring below it.
	MinScore float32 `json:"minScore,omitempty"`
}

// SearchResult is a ranked, attributed search hit.
type SearchResult struct {
	ChunkID    string  `json:"chunkId"`
	DocumentID string  `json:"documentId"`
	SourceName string  `json:"sourceName"`
	Title      string  `json:"title"`
	URL        string  `json:"url"`
	Heading    string  `json:"heading,omitempty"`
	Snippet    string  `json:"snippet"`
	Version    string  `json:"version"`
	Score      float32 `json:"score"`
	Similarity float32 `json:"similarity"`
}
