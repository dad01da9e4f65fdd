package gemini

import (
	"context"
	"fmt"

	"github.com/fwojciec/docmirror"
	"google.golang.org/genai"
	"google.golang.org/genai/tokenizer"
)

var _ docmirror.TokenCounter = (*TokenCounter)(nil)

// TokenCounter counts tokens offline with the Gemini local tokenizer.
// Embedding models have no local vocabulary, so counts use a generation
// model's tokenizer as an estimate.
type TokenCounter struct {
	tok *tokenizer.LocalTokenizer
}

// NewTokenCounter loads the tokenizer for model.
func NewTokenCounter(model string) (*TokenCounter, error) {
	if model == "" {
		model = DefaultTokenizerModel
	}
	tok, err := tokenizer.NewLocalTokenizer(model)
	if err != nil {
		return nil, fmt.Errorf("load tokenizer for %s: %w", model, err)
	}
	return &TokenCounter{tok: tok}, nil
}

// CountTokens implements docmirror.TokenCounter.
func (tc *TokenCounter) CountTokens(_ context.Context, text string) (int, error) {
	if text == "" {
		return 0, nil
	}
	result, err := tc.tok.CountTokens([]*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}, nil)
	if err != nil {
		return 0, fmt.Errorf("count tokens: %w", err)
	}
	return int(result.TotalTokens), nil
}
