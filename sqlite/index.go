package sqlite

import (
	"cmp"
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/fwojciec/docmirror"
)

var _ docmirror.VectorStore = (*VectorStore)(nil)

// maxBatch bounds the number of IN parameters per statement.
const maxBatch = 500

// VectorStore implements docmirror.VectorStore using SQLite. Similarity is
// computed by scanning the stored vectors, which suits single-user mirrors
// of a few hundred thousand chunks.
type VectorStore struct {
	db *DB
}

// NewVectorStore creates a new VectorStore.
func NewVectorStore(db *DB) *VectorStore {
	return &VectorStore{db: db}
}

// Upsert inserts or replaces entries in a single transaction.
func (s *VectorStore) Upsert(ctx context.Context, entries []*docmirror.IndexEntry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO index_entries (chunk_id, source_id, source_name, document_id, title, url,
			heading, version, content, content_hash, vector, indexed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(chunk_id) DO UPDATE SET
			source_id = excluded.source_id,
			source_name = excluded.source_name,
			document_id = excluded.document_id,
			title = excluded.title,
			url = excluded.url,
			heading = excluded.heading,
			version = excluded.version,
			content = excluded.content,
			content_hash = excluded.content_hash,
			vector = excluded.vector,
			indexed_at = excluded.indexed_at
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range entries {
		if e.ChunkID == "" || len(e.Vector) == 0 {
			return docmirror.Errorf(docmirror.EINVALID, "entry requires chunk ID and vector")
		}
		m := e.Metadata
		if _, err := stmt.ExecContext(ctx, e.ChunkID, m.SourceID, m.SourceName, m.DocumentID, m.Title, m.URL,
			m.Heading, m.Version, m.Content, e.ContentHash, encodeVector(e.Vector), formatTime(m.IndexedAt)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Query returns the k entries with the highest cosine similarity.
func (s *VectorStore) Query(ctx context.Context, vector []float32, k int, filter docmirror.VectorFilter) ([]docmirror.VectorMatch, error) {
	if k <= 0 || len(vector) == 0 {
		return nil, nil
	}

	var query strings.Builder
	var args []any
	query.WriteString(`SELECT chunk_id, source_id, source_name, document_id, title, url, heading,
		version, content, content_hash, vector, indexed_at FROM index_entries`)
	if len(filter.SourceIDs) > 0 {
		query.WriteString(" WHERE source_id IN (" + placeholders(len(filter.SourceIDs)) + ")")
		for _, id := range filter.SourceIDs {
			args = append(args, id)
		}
	}

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []docmirror.VectorMatch
	for rows.Next() {
		var (
			e         docmirror.IndexEntry
			blob      []byte
			indexedAt string
		)
		m := &e.Metadata
		if err := rows.Scan(&e.ChunkID, &m.SourceID, &m.SourceName, &m.DocumentID, &m.Title, &m.URL,
			&m.Heading, &m.Version, &m.Content, &e.ContentHash, &blob, &indexedAt); err != nil {
			return nil, err
		}
		stored, err := decodeVector(blob)
		if err != nil {
			return nil, err
		}
		if len(stored) != len(vector) {
			return nil, docmirror.Errorf(docmirror.EINVALID, "query has %d dimensions, index has %d", len(vector), len(stored))
		}
		if m.IndexedAt, err = parseTime(indexedAt, "indexed_at"); err != nil {
			return nil, err
		}
		matches = append(matches, docmirror.VectorMatch{Entry: e, Score: Cosine(vector, stored)})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	slices.SortStableFunc(matches, func(a, b docmirror.VectorMatch) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return strings.Compare(a.Entry.ChunkID, b.Entry.ChunkID)
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// EntryHashes returns stored content hashes keyed by chunk ID.
func (s *VectorStore) EntryHashes(ctx context.Context, chunkIDs []string) (map[string]string, error) {
	hashes := make(map[string]string, len(chunkIDs))
	for _, batch := range batches(chunkIDs, maxBatch) {
		rows, err := s.db.QueryContext(ctx,
			"SELECT chunk_id, content_hash FROM index_entries WHERE chunk_id IN ("+placeholders(len(batch))+")",
			anySlice(batch)...)
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			var id, hash string
			if err := rows.Scan(&id, &hash); err != nil {
				rows.Close()
				return nil, err
			}
			hashes[id] = hash
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, err
		}
	}
	return hashes, nil
}

// Delete removes entries by chunk ID.
func (s *VectorStore) Delete(ctx context.Context, chunkIDs []string) error {
	for _, batch := range batches(chunkIDs, maxBatch) {
		if _, err := s.db.ExecContext(ctx,
			"DELETE FROM index_entries WHERE chunk_id IN ("+placeholders(len(batch))+")",
			anySlice(batch)...); err != nil {
			return err
		}
	}
	return nil
}

// Count returns the number of stored entries for a source, or for all
// sources when sourceID is empty.
func (s *VectorStore) Count(ctx context.Context, sourceID string) (int, error) {
	var n int
	var err error
	if sourceID == "" {
		err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM index_entries").Scan(&n)
	} else {
		err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM index_entries WHERE source_id = ?", sourceID).Scan(&n)
	}
	return n, err
}

// Cosine returns the cosine similarity of a and b, or 0 if either is a
// zero vector.
func Cosine(a, b []float32) float32 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

// encodeVector stores v as little-endian float32s.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("corrupt vector of %d bytes", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v, nil
}

func anySlice(ids []string) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}
