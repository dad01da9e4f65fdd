package gemini

import (
	"context"

	"github.com/fwojciec/docmirror"
	"google.golang.org/genai"
)

var _ docmirror.Embedder = (*Embedder)(nil)

// Embedder implements docmirror.Embedder with the Gemini embedding API.
type Embedder struct {
	client *genai.Client
	model  string
	dims   int

	// TaskType is passed to the API when set, e.g. "RETRIEVAL_DOCUMENT".
	TaskType string
}

// NewEmbedder creates an Embedder producing vectors of dims length.
func NewEmbedder(client *genai.Client, model string, dims int) *Embedder {
	if model == "" {
		model = DefaultEmbeddingModel
	}
	return &Embedder{client: client, model: model, dims: dims}
}

// Dimensions implements docmirror.Embedder.
func (e *Embedder) Dimensions() int {
	return e.dims
}

// Embed sends texts as one batch request and returns a vector per text.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}
	config := &genai.EmbedContentConfig{TaskType: e.TaskType}
	if e.dims > 0 {
		dims := int32(e.dims)
		config.OutputDimensionality = &dims
	}

	resp, err := e.client.Models.EmbedContent(ctx, e.model, contents, config)
	if err != nil {
		return nil, classify("embed", err)
	}
	if resp == nil || len(resp.Embeddings) != len(texts) {
		return nil, docmirror.Errorf(docmirror.EINTERNAL, "gemini returned %d embeddings for %d texts", embeddingCount(resp), len(texts))
	}

	vectors := make([][]float32, len(texts))
	for i, emb := range resp.Embeddings {
		if emb == nil || len(emb.Values) == 0 {
			return nil, docmirror.Errorf(docmirror.EINTERNAL, "gemini returned empty embedding at %d", i)
		}
		if e.dims > 0 && len(emb.Values) != e.dims {
			return nil, docmirror.Errorf(docmirror.EINTERNAL, "gemini returned %d dimensions, want %d", len(emb.Values), e.dims)
		}
		vectors[i] = emb.Values
	}
	return vectors, nil
}

func embeddingCount(resp *genai.EmbedContentResponse) int {
	if resp == nil {
		return 0
	}
	return len(resp.Embeddings)
}
