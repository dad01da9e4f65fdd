package mock

import (
	"context"

	"github.com/fwojciec/docmirror"
)

var _ docmirror.SourceService = (*SourceService)(nil)

// SourceService is a mock implementation of docmirror.SourceService.
type SourceService struct {
	CreateSourceFn   func(ctx context.Context, source *docmirror.Source) error
	FindSourceByIDFn func(ctx context.Context, id string) (*docmirror.Source, error)
	FindSourcesFn    func(ctx context.Context, filter docmirror.SourceFilter) ([]*docmirror.Source, error)
	UpdateSourceFn   func(ctx context.Context, id string, upd docmirror.SourceUpdate) (*docmirror.Source, error)
}

func (s *SourceService) CreateSource(ctx context.Context, source *docmirror.Source) error {
	return s.CreateSourceFn(ctx, source)
}

func (s *SourceService) FindSourceByID(ctx context.Context, id string) (*docmirror.Source, error) {
	return s.FindSourceByIDFn(ctx, id)
}

func (s *SourceService) FindSources(ctx context.Context, filter docmirror.SourceFilter) ([]*docmirror.Source, error) {
	return s.FindSourcesFn(ctx, filter)
}

func (s *SourceService) UpdateSource(ctx context.Context, id string, upd docmirror.SourceUpdate) (*docmirror.Source, error) {
	return s.UpdateSourceFn(ctx, id, upd)
}
