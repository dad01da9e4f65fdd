package docmirror

import (
	"context"
	"time"
)

// Manifest lists the documents and chunks that make up one snapshot version
// of a source. The index can be rebuilt from a manifest and its documents.
type Manifest struct {
	SourceID  string         `json:"sourceId"`
	Version   string         `json:"version"`
	CreatedAt time.Time      `json:"createdAt"`
	Pages     []ManifestPage `json:"pages"`
}

// ManifestPage records one document in a snapshot.
type ManifestPage struct {
	URL         string          `json:"url"`
	DocumentID  string          `json:"documentId"`
	ContentHash string          `json:"contentHash"`
	Chunks      []ManifestChunk `json:"chunks"`
}

// ManifestChunk records a chunk's identity and content hash.
type ManifestChunk struct {
	ID   string `json:"id"`
	Hash string `json:"hash"`
}

// Page returns the manifest entry for url, or nil.
func (m *Manifest) Page(url string) *ManifestPage {
	if m == nil {
		return nil
	}
	for i := range m.Pages {
		if m.Pages[i].URL == url {
			return &m.Pages[i]
		}
	}
	return nil
}

// ChunkIDs returns the IDs of every chunk in the manifest.
func (m *Manifest) ChunkIDs() []string {
	if m == nil {
		return nil
	}
	var ids []string
	for _, p := range m.Pages {
		for _, c := range p.Chunks {
			ids = append(ids, c.ID)
		}
	}
	return ids
}

// SnapshotStore persists versioned snapshots of normalized documents.
type SnapshotStore interface {
	// Begin starts writing a new version for a source. Nothing is visible
	// to readers until the returned writer is committed.
	// Returns ECONFLICT if the version already exists.
	Begin(ctx context.Context, sourceID, version string) (SnapshotWriter, error)

	// Latest returns the manifest of the newest committed version.
	// Returns ENOTFOUND if the source has no snapshots.
	Latest(ctx context.Context, sourceID string) (*Manifest, error)

	// ReadDocument loads a document from a committed version.
	// Returns ENOTFOUND if the version or document does not exist.
	ReadDocument(ctx context.Context, sourceID, version, url string) (*Document, error)

	// Versions lists committed versions, oldest first.
	Versions(ctx context.Context, sourceID string) ([]string, error)

	// Prune deletes all but the newest keep versions and returns the
	// versions it removed.
	Prune(ctx context.Context, sourceID string, keep int) ([]string, error)
}

// SnapshotWriter stages one snapshot version. Save writes to a temporary
// location; Commit makes the version visible atomically; Abort discards it.
type SnapshotWriter interface {
	Save(ctx context.Context, doc *Document) error
	Commit(ctx context.Context, manifest *Manifest) error
	Abort() error
}
