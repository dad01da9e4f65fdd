package mock

import (
	"context"

	"github.com/fwojciec/docmirror"
)

var (
	_ docmirror.SnapshotStore  = (*SnapshotStore)(nil)
	_ docmirror.SnapshotWriter = (*SnapshotWriter)(nil)
)

// SnapshotStore is a mock implementation of docmirror.SnapshotStore.
type SnapshotStore struct {
	BeginFn        func(ctx context.Context, sourceID, version string) (docmirror.SnapshotWriter, error)
	LatestFn       func(ctx context.Context, sourceID string) (*docmirror.Manifest, error)
	ReadDocumentFn func(ctx context.Context, sourceID, version, url string) (*docmirror.Document, error)
	VersionsFn     func(ctx context.Context, sourceID string) ([]string, error)
	PruneFn        func(ctx context.Context, sourceID string, keep int) ([]string, error)
}

func (s *SnapshotStore) Begin(ctx context.Context, sourceID, version string) (docmirror.SnapshotWriter, error) {
	return s.BeginFn(ctx, sourceID, version)
}

func (s *SnapshotStore) Latest(ctx context.Context, sourceID string) (*docmirror.Manifest, error) {
	return s.LatestFn(ctx, sourceID)
}

func (s *SnapshotStore) ReadDocument(ctx context.Context, sourceID, version, url string) (*docmirror.Document, error) {
	return s.ReadDocumentFn(ctx, sourceID, version, url)
}

func (s *SnapshotStore) Versions(ctx context.Context, sourceID string) ([]string, error) {
	return s.VersionsFn(ctx, sourceID)
}

func (s *SnapshotStore) Prune(ctx context.Context, sourceID string, keep int) ([]string, error) {
	return s.PruneFn(ctx, sourceID, keep)
}

// SnapshotWriter is a mock implementation of docmirror.SnapshotWriter.
type SnapshotWriter struct {
	SaveFn   func(ctx context.Context, doc *docmirror.Document) error
	CommitFn func(ctx context.Context, manifest *docmirror.Manifest) error
	AbortFn  func() error
}

func (w *SnapshotWriter) Save(ctx context.Context, doc *docmirror.Document) error {
	return w.SaveFn(ctx, doc)
}

func (w *SnapshotWriter) Commit(ctx context.Context, manifest *docmirror.Manifest) error {
	return w.CommitFn(ctx, manifest)
}

func (w *SnapshotWriter) Abort() error {
	return w.AbortFn()
}
