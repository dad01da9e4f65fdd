// Package slog provides logging decorators for docmirror services. Each
// decorator logs the operation, its size, its duration and any error.
package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/docmirror"
)

var _ docmirror.SitemapService = (*LoggingSitemapService)(nil)

// LoggingSitemapService logs sitemap discovery.
type LoggingSitemapService struct {
	next   docmirror.SitemapService
	logger *slog.Logger
}

// NewLoggingSitemapService wraps next.
func NewLoggingSitemapService(next docmirror.SitemapService, logger *slog.Logger) *LoggingSitemapService {
	return &LoggingSitemapService{next: next, logger: logger}
}

// DiscoverURLs implements docmirror.SitemapService.
func (s *LoggingSitemapService) DiscoverURLs(ctx context.Context, baseURL string, filter *docmirror.URLFilter) (urls []string, err error) {
	defer func(begin time.Time) {
		s.logger.Info("sitemap discovery",
			"url", baseURL,
			"filtered", filter != nil,
			"count", len(urls),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.DiscoverURLs(ctx, baseURL, filter)
}
