package docmirror

// Chunk is a bounded slice of a document, the unit of embedding and retrieval.
// IDs are derived from the document ID and ordinal so re-chunking unchanged
// content yields the same IDs.
type Chunk struct {
	ID          string `json:"id"`
	DocumentID  string `json:"documentId"`
	SourceID    string `json:"sourceId"`
	Ordinal     int    `json:"ordinal"`
	Heading     string `json:"heading,omitempty"`
	Content     string `json:"content"`
	ContentHash string `json:"contentHash"`
}

// Validate returns an error if the chunk contains invalid fields.
func (c *Chunk) Validate() error {
	if c.DocumentID == "" {
		return Errorf(EINVALID, "chunk document ID required")
	}
	if c.SourceID == "" {
		return Errorf(EINVALID, "chunk source ID required")
	}
	if c.Content == "" {
		return Errorf(EINVALID, "chunk content required")
	}
	return nil
}

// Passage is a piece of markdown produced by a Chunker, before it is
// assigned an identity.
type Passage struct {
	// Heading is the heading path the passage sits under, e.g. "Install > Linux".
	Heading string

	// Content is the passage text. Its length in runes never exceeds the
	// chunker's configured maximum.
	Content string
}

// Chunker splits a markdown body into passages along structural boundaries.
type Chunker interface {
	Split(markdown string) ([]Passage, error)
}
