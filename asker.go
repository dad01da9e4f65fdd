package docmirror

import "context"

// Asker answers natural language questions from indexed documentation.
type Asker interface {
	// Ask retrieves relevant chunks with opts and answers the question from them.
	// Returns ENOTFOUND if no indexed content matches.
	Ask(ctx context.Context, question string, opts SearchOptions) (string, error)
}
