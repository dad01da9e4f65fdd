package mock

import (
	"context"

	"github.com/fwojciec/docmirror"
)

var _ docmirror.SearchService = (*SearchService)(nil)

// SearchService is a mock implementation of docmirror.SearchService.
type SearchService struct {
	SearchFn func(ctx context.Context, query string, opts docmirror.SearchOptions) ([]docmirror.SearchResult, error)
}

func (s *SearchService) Search(ctx context.Context, query string, opts docmirror.SearchOptions) ([]docmirror.SearchResult, error) {
	return s.SearchFn(ctx, query, opts)
}
