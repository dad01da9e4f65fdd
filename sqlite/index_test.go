package sqlite_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/fwojciec/docmirror"
	"github.com/fwojciec/docmirror/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEntry(id, sourceID string, vector ...float32) *docmirror.IndexEntry {
	return &docmirror.IndexEntry{
		ChunkID:     id,
		Vector:      vector,
		ContentHash: "hash-" + id,
		Metadata: docmirror.EntryMetadata{
			SourceID:   sourceID,
			SourceName: "name-" + sourceID,
			DocumentID: "doc-" + id,
			Title:      "Title " + id,
			URL:        "https://example.com/" + id,
			Heading:    "Intro",
			Version:    "v1",
			Content:    "content " + id,
			IndexedAt:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		},
	}
}

func TestVectorStore(t *testing.T) {
	t.Parallel()

	t.Run("queries by cosine similarity, best first", func(t *testing.T) {
		t.Parallel()

		store := sqlite.NewVectorStore(setupTestDB(t))
		ctx := context.Background()
		require.NoError(t, store.Upsert(ctx, []*docmirror.IndexEntry{
			newEntry("a", "s1", 1, 0, 0),
			newEntry("b", "s1", 0.7, 0.7, 0),
			newEntry("c", "s2", 0, 0, 1),
		}))

		matches, err := store.Query(ctx, []float32{1, 0, 0}, 2, docmirror.VectorFilter{})

		require.NoError(t, err)
		require.Len(t, matches, 2)
		assert.Equal(t, "a", matches[0].Entry.ChunkID)
		assert.InDelta(t, 1.0, matches[0].Score, 1e-6)
		assert.Equal(t, "b", matches[1].Entry.ChunkID)
		assert.Equal(t, newEntry("a", "s1").Metadata, matches[0].Entry.Metadata)
		assert.Equal(t, "hash-a", matches[0].Entry.ContentHash)
	})

	t.Run("filters by source", func(t *testing.T) {
		t.Parallel()

		store := sqlite.NewVectorStore(setupTestDB(t))
		ctx := context.Background()
		require.NoError(t, store.Upsert(ctx, []*docmirror.IndexEntry{
			newEntry("a", "s1", 1, 0),
			newEntry("c", "s2", 0, 1),
		}))

		matches, err := store.Query(ctx, []float32{1, 0}, 10, docmirror.VectorFilter{SourceIDs: []string{"s2"}})

		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, "c", matches[0].Entry.ChunkID)
	})

	t.Run("replaces entries on upsert", func(t *testing.T) {
		t.Parallel()

		store := sqlite.NewVectorStore(setupTestDB(t))
		ctx := context.Background()
		require.NoError(t, store.Upsert(ctx, []*docmirror.IndexEntry{newEntry("a", "s1", 1, 0)}))
		updated := newEntry("a", "s1", 0, 1)
		updated.ContentHash = "new"
		require.NoError(t, store.Upsert(ctx, []*docmirror.IndexEntry{updated}))

		hashes, err := store.EntryHashes(ctx, []string{"a", "missing"})

		require.NoError(t, err)
		assert.Equal(t, map[string]string{"a": "new"}, hashes)
		n, err := store.Count(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("deletes entries and ignores unknown IDs", func(t *testing.T) {
		t.Parallel()

		store := sqlite.NewVectorStore(setupTestDB(t))
		ctx := context.Background()
		require.NoError(t, store.Upsert(ctx, []*docmirror.IndexEntry{
			newEntry("a", "s1", 1, 0),
			newEntry("b", "s1", 0, 1),
		}))

		require.NoError(t, store.Delete(ctx, []string{"a", "missing"}))

		n, err := store.Count(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("handles more IDs than one statement allows", func(t *testing.T) {
		t.Parallel()

		store := sqlite.NewVectorStore(setupTestDB(t))
		ids := make([]string, 1200)
		for i := range ids {
			ids[i] = fmt.Sprintf("chunk-%d", i)
		}

		hashes, err := store.EntryHashes(context.Background(), ids)

		require.NoError(t, err)
		assert.Empty(t, hashes)
		require.NoError(t, store.Delete(context.Background(), ids))
	})

	t.Run("rejects dimension mismatch", func(t *testing.T) {
		t.Parallel()

		store := sqlite.NewVectorStore(setupTestDB(t))
		ctx := context.Background()
		require.NoError(t, store.Upsert(ctx, []*docmirror.IndexEntry{newEntry("a", "s1", 1, 0)}))

		_, err := store.Query(ctx, []float32{1, 0, 0}, 1, docmirror.VectorFilter{})

		assert.Equal(t, docmirror.EINVALID, docmirror.ErrorCode(err))
	})
}

func TestCosine(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 1.0, sqlite.Cosine([]float32{2, 0}, []float32{5, 0}), 1e-6)
	assert.InDelta(t, 0.0, sqlite.Cosine([]float32{1, 0}, []float32{0, 1}), 1e-6)
	assert.Zero(t, sqlite.Cosine([]float32{0, 0}, []float32{1, 1}))
}
