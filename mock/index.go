package mock

import (
	"context"

	"github.com/fwojciec/docmirror"
)

var (
	_ docmirror.VectorStore = (*VectorStore)(nil)
	_ docmirror.Embedder    = (*Embedder)(nil)
)

// VectorStore is a mock implementation of docmirror.VectorStore.
type VectorStore struct {
	UpsertFn      func(ctx context.Context, entries []*docmirror.IndexEntry) error
	QueryFn       func(ctx context.Context, vector []float32, k int, filter docmirror.VectorFilter) ([]docmirror.VectorMatch, error)
	EntryHashesFn func(ctx context.Context, chunkIDs []string) (map[string]string, error)
	DeleteFn      func(ctx context.Context, chunkIDs []string) error
}

func (s *VectorStore) Upsert(ctx context.Context, entries []*docmirror.IndexEntry) error {
	return s.UpsertFn(ctx, entries)
}

func (s *VectorStore) Query(ctx context.Context, vector []float32, k int, filter docmirror.VectorFilter) ([]docmirror.VectorMatch, error) {
	return s.QueryFn(ctx, vector, k, filter)
}

func (s *VectorStore) EntryHashes(ctx context.Context, chunkIDs []string) (map[string]string, error) {
	return s.EntryHashesFn(ctx, chunkIDs)
}

func (s *VectorStore) Delete(ctx context.Context, chunkIDs []string) error {
	return s.DeleteFn(ctx, chunkIDs)
}

// Embedder is a mock implementation of docmirror.Embedder.
type Embedder struct {
	EmbedFn      func(ctx context.Context, texts []string) ([][]float32, error)
	DimensionsFn func() int
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return e.EmbedFn(ctx, texts)
}

func (e *Embedder) Dimensions() int {
	return e.DimensionsFn()
}
