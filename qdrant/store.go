// Package qdrant implements docmirror.VectorStore on a Qdrant collection.
package qdrant

import (
	"context"
	"fmt"
	"time"

	"github.com/fwojciec/docmirror"
	"github.com/qdrant/go-client/qdrant"
)

var _ docmirror.VectorStore = (*VectorStore)(nil)

// DefaultCollection is the collection used when Config.Collection is empty.
const DefaultCollection = "docmirror"

// maxBatch bounds the number of point IDs per request.
const maxBatch = 500

// Payload fields.
const (
	fieldSourceID    = "source_id"
	fieldSourceName  = "source_name"
	fieldDocumentID  = "document_id"
	fieldTitle       = "title"
	fieldURL         = "url"
	fieldHeading     = "heading"
	fieldVersion     = "version"
	fieldContent     = "content"
	fieldContentHash = "content_hash"
	fieldIndexedAt   = "indexed_at"
)

// Client is the subset of *qdrant.Client used by VectorStore.
type Client interface {
	CollectionExists(ctx context.Context, collectionName string) (bool, error)
	CreateCollection(ctx context.Context, request *qdrant.CreateCollection) error
	GetCollectionInfo(ctx context.Context, collectionName string) (*qdrant.CollectionInfo, error)
	Upsert(ctx context.Context, request *qdrant.UpsertPoints) (*qdrant.UpdateResult, error)
	Query(ctx context.Context, request *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error)
	Get(ctx context.Context, request *qdrant.GetPoints) ([]*qdrant.RetrievedPoint, error)
	Delete(ctx context.Context, request *qdrant.DeletePoints) (*qdrant.UpdateResult, error)
}

// Config holds Qdrant connection settings.
type Config struct {
	Host       string `toml:"host"`
	Port       int    `toml:"port"`
	APIKey     string `toml:"api_key"`
	UseTLS     bool   `toml:"use_tls"`
	Collection string `toml:"collection"`
}

// VectorStore stores index entries as Qdrant points keyed by chunk ID.
type VectorStore struct {
	client     Client
	collection string
}

// Dial connects to Qdrant over gRPC.
func Dial(cfg Config) (*qdrant.Client, error) {
	port := cfg.Port
	if port == 0 {
		port = 6334
	}
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, docmirror.Errorf(docmirror.EUNAVAILABLE, "connect to qdrant at %s:%d: %v", cfg.Host, port, err)
	}
	return client, nil
}

// NewVectorStore creates a VectorStore on collection.
func NewVectorStore(client Client, collection string) *VectorStore {
	if collection == "" {
		collection = DefaultCollection
	}
	return &VectorStore{client: client, collection: collection}
}

// EnsureCollection creates the collection with cosine distance if it is
// missing, and otherwise checks that its vector size matches dims.
func (s *VectorStore) EnsureCollection(ctx context.Context, dims int) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("check collection: %w", err)
	}
	if !exists {
		err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: s.collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(dims),
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return fmt.Errorf("create collection: %w", err)
		}
		return nil
	}

	info, err := s.client.GetCollectionInfo(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("get collection info: %w", err)
	}
	params := info.GetConfig().GetParams().GetVectorsConfig().GetParams()
	if params == nil {
		return docmirror.Errorf(docmirror.EINVALID, "collection %s has no single vector config", s.collection)
	}
	if int(params.GetSize()) != dims {
		return docmirror.Errorf(docmirror.EINVALID, "collection %s has vector size %d, embedder produces %d", s.collection, params.GetSize(), dims)
	}
	return nil
}

// Upsert writes entries and waits for the write to be applied.
func (s *VectorStore) Upsert(ctx context.Context, entries []*docmirror.IndexEntry) error {
	if len(entries) == 0 {
		return nil
	}
	points := make([]*qdrant.PointStruct, 0, len(entries))
	for _, e := range entries {
		m := e.Metadata
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewID(e.ChunkID),
			Vectors: qdrant.NewVectors(e.Vector...),
			Payload: qdrant.NewValueMap(map[string]any{
				fieldSourceID:    m.SourceID,
				fieldSourceName:  m.SourceName,
				fieldDocumentID:  m.DocumentID,
				fieldTitle:       m.Title,
				fieldURL:         m.URL,
				fieldHeading:     m.Heading,
				fieldVersion:     m.Version,
				fieldContent:     m.Content,
				fieldContentHash: e.ContentHash,
				fieldIndexedAt:   m.IndexedAt.UTC().Format(time.RFC3339Nano),
			}),
		})
	}

	wait := true
	if _, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Points:         points,
		Wait:           &wait,
	}); err != nil {
		return fmt.Errorf("upsert %d points: %w", len(points), err)
	}
	return nil
}

// Query returns the k nearest points, optionally restricted to sources.
func (s *VectorStore) Query(ctx context.Context, vector []float32, k int, filter docmirror.VectorFilter) ([]docmirror.VectorMatch, error) {
	if k <= 0 {
		return nil, nil
	}
	limit := uint64(k)
	req := &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	}
	if len(filter.SourceIDs) > 0 {
		req.Filter = &qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatchKeywords(fieldSourceID, filter.SourceIDs...)},
		}
	}

	points, err := s.client.Query(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("query points: %w", err)
	}

	matches := make([]docmirror.VectorMatch, 0, len(points))
	for _, p := range points {
		matches = append(matches, docmirror.VectorMatch{
			Entry: entryFromPayload(p.GetId().GetUuid(), p.GetPayload()),
			Score: p.GetScore(),
		})
	}
	return matches, nil
}

// EntryHashes returns the stored content hash of each existing chunk.
func (s *VectorStore) EntryHashes(ctx context.Context, chunkIDs []string) (map[string]string, error) {
	hashes := make(map[string]string, len(chunkIDs))
	for start := 0; start < len(chunkIDs); start += maxBatch {
		batch := chunkIDs[start:min(start+maxBatch, len(chunkIDs))]
		points, err := s.client.Get(ctx, &qdrant.GetPoints{
			CollectionName: s.collection,
			Ids:            pointIDs(batch),
			WithPayload:    qdrant.NewWithPayloadInclude(fieldContentHash),
		})
		if err != nil {
			return nil, fmt.Errorf("get points: %w", err)
		}
		for _, p := range points {
			hashes[p.GetId().GetUuid()] = p.GetPayload()[fieldContentHash].GetStringValue()
		}
	}
	return hashes, nil
}

// Delete removes points by chunk ID.
func (s *VectorStore) Delete(ctx context.Context, chunkIDs []string) error {
	for start := 0; start < len(chunkIDs); start += maxBatch {
		batch := chunkIDs[start:min(start+maxBatch, len(chunkIDs))]
		wait := true
		if _, err := s.client.Delete(ctx, &qdrant.DeletePoints{
			CollectionName: s.collection,
			Points:         qdrant.NewPointsSelector(pointIDs(batch)...),
			Wait:           &wait,
		}); err != nil {
			return fmt.Errorf("delete points: %w", err)
		}
	}
	return nil
}

func pointIDs(ids []string) []*qdrant.PointId {
	out := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		out[i] = qdrant.NewID(id)
	}
	return out
}

func entryFromPayload(id string, payload map[string]*qdrant.Value) docmirror.IndexEntry {
	str := func(field string) string {
		return payload[field].GetStringValue()
	}
	indexedAt, _ := time.Parse(time.RFC3339Nano, str(fieldIndexedAt))
	return docmirror.IndexEntry{
		ChunkID:     id,
		ContentHash: str(fieldContentHash),
		Metadata: docmirror.EntryMetadata{
			SourceID:   str(fieldSourceID),
			SourceName: str(fieldSourceName),
			DocumentID: str(fieldDocumentID),
			Title:      str(fieldTitle),
			URL:        str(fieldURL),
			Heading:    str(fieldHeading),
			Version:    str(fieldVersion),
			Content:    str(fieldContent),
			IndexedAt:  indexedAt,
		},
	}
}
