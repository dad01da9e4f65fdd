package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/docmirror"
)

var (
	_ docmirror.Embedder    = (*LoggingEmbedder)(nil)
	_ docmirror.VectorStore = (*LoggingVectorStore)(nil)
)

// LoggingEmbedder logs embedding calls.
type LoggingEmbedder struct {
	next   docmirror.Embedder
	logger *slog.Logger
}

// NewLoggingEmbedder wraps next.
func NewLoggingEmbedder(next docmirror.Embedder, logger *slog.Logger) *LoggingEmbedder {
	return &LoggingEmbedder{next: next, logger: logger}
}

// Embed implements docmirror.Embedder.
func (e *LoggingEmbedder) Embed(ctx context.Context, texts []string) (vectors [][]float32, err error) {
	defer func(begin time.Time) {
		e.logger.Info("embed",
			"texts", len(texts),
			"vectors", len(vectors),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return e.next.Embed(ctx, texts)
}

// Dimensions implements docmirror.Embedder.
func (e *LoggingEmbedder) Dimensions() int {
	return e.next.Dimensions()
}

// LoggingVectorStore logs vector store operations.
type LoggingVectorStore struct {
	next   docmirror.VectorStore
	logger *slog.Logger
}

// NewLoggingVectorStore wraps next.
func NewLoggingVectorStore(next docmirror.VectorStore, logger *slog.Logger) *LoggingVectorStore {
	return &LoggingVectorStore{next: next, logger: logger}
}

// Upsert implements docmirror.VectorStore.
func (s *LoggingVectorStore) Upsert(ctx context.Context, entries []*docmirror.IndexEntry) (err error) {
	defer func(begin time.Time) {
		s.logger.Info("upsert entries",
			"count", len(entries),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.Upsert(ctx, entries)
}

// Query implements docmirror.VectorStore.
func (s *LoggingVectorStore) Query(ctx context.Context, vector []float32, k int, filter docmirror.VectorFilter) (matches []docmirror.VectorMatch, err error) {
	defer func(begin time.Time) {
		s.logger.Info("query entries",
			"k", k,
			"sources", len(filter.SourceIDs),
			"matches", len(matches),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.Query(ctx, vector, k, filter)
}

// EntryHashes implements docmirror.VectorStore.
func (s *LoggingVectorStore) EntryHashes(ctx context.Context, chunkIDs []string) (hashes map[string]string, err error) {
	defer func(begin time.Time) {
		s.logger.Info("entry hashes",
			"ids", len(chunkIDs),
			"found", len(hashes),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.EntryHashes(ctx, chunkIDs)
}

// Delete implements docmirror.VectorStore.
func (s *LoggingVectorStore) Delete(ctx context.Context, chunkIDs []string) (err error) {
	defer func(begin time.Time) {
		s.logger.Info("delete entries",
			"count", len(chunkIDs),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.Delete(ctx, chunkIDs)
}
