// Package gemini implements embedding, token counting and question
// answering on Google Gemini.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/fwojciec/docmirror"
	"google.golang.org/genai"
)

// Default models.
const (
	DefaultEmbeddingModel  = "gemini-embedding-001"
	DefaultGenerationModel = "gemini-2.5-flash"
	DefaultTokenizerModel  = "gemini-2.0-flash"
)

// NewClient creates a Gemini API client. baseURL overrides the API endpoint
// and is empty in production.
func NewClient(ctx context.Context, apiKey, baseURL string) (*genai.Client, error) {
	if apiKey == "" {
		return nil, docmirror.Errorf(docmirror.EINVALID, "gemini API key required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: baseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return client, nil
}

// classify maps API failures onto application error codes. Rate limiting
// and server errors are transient; other 4xx responses are permanent.
func classify(op string, err error) error {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("%s: %w", op, err)
	}
	switch {
	case apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError:
		return docmirror.Errorf(docmirror.EUNAVAILABLE, "%s: gemini returned %d: %s", op, apiErr.Code, apiErr.Message)
	case apiErr.Code >= http.StatusBadRequest:
		return docmirror.Errorf(docmirror.EREJECTED, "%s: gemini returned %d: %s", op, apiErr.Code, apiErr.Message)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
