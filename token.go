package docmirror

import "context"

// TokenCounter counts tokens in text for a specific model. The indexer
// uses it to report how many tokens a run sent for embedding.
type TokenCounter interface {
	CountTokens(ctx context.Context, text string) (int, error)
}
