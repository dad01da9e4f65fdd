// Package index embeds changed chunks into the vector store and records
// each source run as a versioned snapshot.
package index

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/fwojciec/docmirror"
)

// Defaults.
const (
	DefaultBatchSize = 32
	DefaultRetention = 3
)

// DocumentChunker re-derives the chunks of a stored document.
type DocumentChunker interface {
	Chunks(doc *docmirror.Document) ([]*docmirror.Chunk, error)
}

// Indexer writes the output of a source run to the vector store and the
// snapshot store.
type Indexer struct {
	Store     docmirror.VectorStore
	Embedder  docmirror.Embedder
	Snapshots docmirror.SnapshotStore

	// Tokens, if set, counts the tokens sent for embedding.
	Tokens docmirror.TokenCounter

	// Chunker is required by Rebuild.
	Chunker DocumentChunker

	// BatchSize is the number of chunks per embedding call.
	BatchSize int

	// Retention is the number of snapshot versions kept per source.
	Retention int

	Now func() time.Time
}

// Batch is the normalized output of one source run.
type Batch struct {
	Source    *docmirror.Source
	Version   string
	Documents []*docmirror.Document

	// Chunks holds the chunks of every document, in document order.
	Chunks []*docmirror.Chunk
}

// Result counts what Index did.
type Result struct {
	Version        string
	Changed        int
	Skipped        int
	Deferred       int
	Deleted        int
	EmbeddingCalls int
	Retries        int
	Tokens         int
	Failures       []docmirror.PageFailure
	Pruned         []string
}

// Index embeds and upserts the chunks whose hash differs from the stored
// entry, deletes entries of chunks that disappeared since the previous
// snapshot, then commits the batch as a new snapshot version and prunes old
// versions.
//
// Chunks whose embedding fails, even when retried alone, are deferred:
// they are recorded as failures and picked up by the next run because the
// store still lacks their hash. Storage failures return EINTERNAL and leave
// no new snapshot behind.
func (ix *Indexer) Index(ctx context.Context, b *Batch) (_ *Result, err error) {
	src := b.Source
	previous, err := ix.Snapshots.Latest(ctx, src.ID)
	if err != nil && docmirror.ErrorCode(err) != docmirror.ENOTFOUND {
		return nil, storageError("read latest snapshot", err)
	}

	w, err := ix.Snapshots.Begin(ctx, src.ID, b.Version)
	if err != nil {
		return nil, storageError("begin snapshot", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = w.Abort()
		}
	}()

	for _, doc := range b.Documents {
		if err := w.Save(ctx, doc); err != nil {
			return nil, storageError("save document "+doc.URL, err)
		}
	}

	res := &Result{Version: b.Version}
	ids := make([]string, len(b.Chunks))
	for i, c := range b.Chunks {
		ids[i] = c.ID
	}
	stored, err := ix.Store.EntryHashes(ctx, ids)
	if err != nil {
		return nil, storageError("read entry hashes", err)
	}
	var changed []*docmirror.Chunk
	for _, c := range b.Chunks {
		if h, ok := stored[c.ID]; ok && h == c.ContentHash {
			res.Skipped++
			continue
		}
		changed = append(changed, c)
	}

	docs := make(map[string]*docmirror.Document, len(b.Documents))
	for _, d := range b.Documents {
		docs[d.ID] = d
	}
	if err := ix.embed(ctx, src, b.Version, docs, changed, res); err != nil {
		return nil, err
	}

	manifest := buildManifest(src.ID, b.Version, ix.now(), b.Documents, b.Chunks)
	if stale := staleChunks(previous, manifest); len(stale) > 0 {
		if err := ix.Store.Delete(ctx, stale); err != nil {
			return nil, storageError("delete stale entries", err)
		}
		res.Deleted = len(stale)
	}

	if err := w.Commit(ctx, manifest); err != nil {
		return nil, storageError("commit snapshot", err)
	}
	committed = true

	pruned, err := ix.Snapshots.Prune(ctx, src.ID, ix.retention())
	if err != nil {
		return nil, storageError("prune snapshots", err)
	}
	res.Pruned = pruned
	return res, nil
}

// Rebuild re-embeds every chunk of the latest snapshot of source,
// regardless of stored hashes. It restores a lost or emptied vector store.
func (ix *Indexer) Rebuild(ctx context.Context, source *docmirror.Source) (*Result, error) {
	if ix.Chunker == nil {
		return nil, docmirror.Errorf(docmirror.EINVALID, "rebuild requires a chunker")
	}
	manifest, err := ix.Snapshots.Latest(ctx, source.ID)
	if err != nil {
		if docmirror.ErrorCode(err) == docmirror.ENOTFOUND {
			return nil, err
		}
		return nil, storageError("read latest snapshot", err)
	}

	res := &Result{Version: manifest.Version}
	docs := make(map[string]*docmirror.Document, len(manifest.Pages))
	var chunks []*docmirror.Chunk
	for _, p := range manifest.Pages {
		doc, err := ix.Snapshots.ReadDocument(ctx, source.ID, manifest.Version, p.URL)
		if err != nil {
			return nil, storageError("read document "+p.URL, err)
		}
		cs, err := ix.Chunker.Chunks(doc)
		if err != nil {
			res.Failures = append(res.Failures, docmirror.NewPageFailure(p.URL, docmirror.StageNormalize, 0, err))
			continue
		}
		docs[doc.ID] = doc
		chunks = append(chunks, cs...)
	}
	if err := ix.embed(ctx, source, manifest.Version, docs, chunks, res); err != nil {
		return nil, err
	}
	return res, nil
}

// embed embeds chunks in batches and upserts each batch's entries before
// moving on, so a canceled run keeps the entries it already wrote.
func (ix *Indexer) embed(ctx context.Context, src *docmirror.Source, version string, docs map[string]*docmirror.Document, chunks []*docmirror.Chunk, res *Result) error {
	for batch := range slices.Chunk(chunks, ix.batchSize()) {
		if err := ctx.Err(); err != nil {
			return err
		}

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Content
		}
		res.EmbeddingCalls++
		vectors, err := ix.Embedder.Embed(ctx, texts)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			vectors = ix.embedEach(ctx, batch, docs, res)
		}

		entries := make([]*docmirror.IndexEntry, 0, len(batch))
		for i, c := range batch {
			if vectors[i] == nil {
				continue
			}
			entries = append(entries, ix.entry(src, version, docs[c.DocumentID], c, vectors[i]))
			res.Tokens += ix.countTokens(ctx, c.Content)
		}
		if len(entries) == 0 {
			continue
		}
		if err := ix.Store.Upsert(ctx, entries); err != nil {
			return storageError("upsert entries", err)
		}
		res.Changed += len(entries)
	}
	return nil
}

// embedEach retries each chunk of a failed batch on its own. Chunks that
// still fail get a nil vector and are recorded as deferred.
func (ix *Indexer) embedEach(ctx context.Context, batch []*docmirror.Chunk, docs map[string]*docmirror.Document, res *Result) [][]float32 {
	vectors := make([][]float32, len(batch))
	for i, c := range batch {
		if ctx.Err() != nil {
			return vectors
		}
		res.EmbeddingCalls++
		res.Retries++
		v, err := ix.Embedder.Embed(ctx, []string{c.Content})
		if err == nil && len(v) == 1 {
			vectors[i] = v[0]
			continue
		}
		if err == nil {
			err = docmirror.Errorf(docmirror.EINTERNAL, "embedder returned %d vectors for 1 text", len(v))
		}
		res.Deferred++
		url := c.DocumentID
		if d := docs[c.DocumentID]; d != nil {
			url = d.URL
		}
		res.Failures = append(res.Failures, docmirror.NewPageFailure(url, docmirror.StageEmbed, 2, err))
	}
	return vectors
}

func (ix *Indexer) entry(src *docmirror.Source, version string, doc *docmirror.Document, c *docmirror.Chunk, vector []float32) *docmirror.IndexEntry {
	meta := docmirror.EntryMetadata{
		SourceID:   src.ID,
		SourceName: src.Name,
		DocumentID: c.DocumentID,
		Heading:    c.Heading,
		Version:    version,
		Content:    c.Content,
		IndexedAt:  ix.now(),
	}
	if doc != nil {
		meta.Title = doc.Title
		meta.URL = doc.URL
	}
	return &docmirror.IndexEntry{
		ChunkID:     c.ID,
		Vector:      vector,
		ContentHash: c.ContentHash,
		Metadata:    meta,
	}
}

func (ix *Indexer) countTokens(ctx context.Context, text string) int {
	if ix.Tokens == nil {
		return 0
	}
	n, err := ix.Tokens.CountTokens(ctx, text)
	if err != nil {
		return 0
	}
	return n
}

func (ix *Indexer) batchSize() int {
	if ix.BatchSize > 0 {
		return ix.BatchSize
	}
	return DefaultBatchSize
}

func (ix *Indexer) retention() int {
	if ix.Retention > 0 {
		return ix.Retention
	}
	return DefaultRetention
}

func (ix *Indexer) now() time.Time {
	if ix.Now != nil {
		return ix.Now()
	}
	return time.Now()
}

func buildManifest(sourceID, version string, now time.Time, docs []*docmirror.Document, chunks []*docmirror.Chunk) *docmirror.Manifest {
	byDoc := make(map[string][]docmirror.ManifestChunk, len(docs))
	for _, c := range chunks {
		byDoc[c.DocumentID] = append(byDoc[c.DocumentID], docmirror.ManifestChunk{ID: c.ID, Hash: c.ContentHash})
	}
	m := &docmirror.Manifest{
		SourceID:  sourceID,
		Version:   version,
		CreatedAt: now.UTC(),
		Pages:     make([]docmirror.ManifestPage, 0, len(docs)),
	}
	for _, d := range docs {
		m.Pages = append(m.Pages, docmirror.ManifestPage{
			URL:         d.URL,
			DocumentID:  d.ID,
			ContentHash: d.ContentHash,
			Chunks:      byDoc[d.ID],
		})
	}
	return m
}

// staleChunks returns the chunk IDs of previous that next no longer lists.
func staleChunks(previous, next *docmirror.Manifest) []string {
	keep := make(map[string]struct{})
	for _, id := range next.ChunkIDs() {
		keep[id] = struct{}{}
	}
	var stale []string
	for _, id := range previous.ChunkIDs() {
		if _, ok := keep[id]; !ok {
			stale = append(stale, id)
		}
	}
	return stale
}

// storageError reports a failed write or read of persistent state as
// EINTERNAL. Application errors and cancellation pass through unchanged.
func storageError(op string, err error) error {
	var appErr *docmirror.Error
	if errors.As(err, &appErr) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return docmirror.Errorf(docmirror.EINTERNAL, "%s: %v", op, err)
}
