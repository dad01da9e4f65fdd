package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/docmirror"
)

var _ docmirror.SearchService = (*LoggingSearchService)(nil)

// LoggingSearchService logs queries with their result count.
type LoggingSearchService struct {
	next   docmirror.SearchService
	logger *slog.Logger
}

// NewLoggingSearchService wraps next.
func NewLoggingSearchService(next docmirror.SearchService, logger *slog.Logger) *LoggingSearchService {
	return &LoggingSearchService{next: next, logger: logger}
}

// Search implements docmirror.SearchService.
func (s *LoggingSearchService) Search(ctx context.Context, query string, opts docmirror.SearchOptions) (results []docmirror.SearchResult, err error) {
	defer func(begin time.Time) {
		attrs := []any{
			"query", query,
			"sources", opts.Sources,
			"limit", opts.Limit,
			"results", len(results),
			"duration", time.Since(begin),
			"err", err,
		}
		if len(results) > 0 {
			attrs = append(attrs, "top", results[0].Score)
		}
		s.logger.Info("search", attrs...)
	}(time.Now())
	return s.next.Search(ctx, query, opts)
}
