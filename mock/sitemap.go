package mock

import (
	"context"

	"github.com/fwojciec/docmirror"
)

var _ docmirror.SitemapService = (*SitemapService)(nil)

// SitemapService is a mock implementation of docmirror.SitemapService.
type SitemapService struct {
	DiscoverURLsFn func(ctx context.Context, baseURL string, filter *docmirror.URLFilter) ([]string, error)
}

func (s *SitemapService) DiscoverURLs(ctx context.Context, baseURL string, filter *docmirror.URLFilter) ([]string, error) {
	return s.DiscoverURLsFn(ctx, baseURL, filter)
}
