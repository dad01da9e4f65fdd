// Package pipeline runs the write path for one source: crawl, normalize,
// then index into the vector store and a new snapshot version.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/fwojciec/docmirror"
	"github.com/fwojciec/docmirror/crawl"
	"github.com/fwojciec/docmirror/index"
	"github.com/fwojciec/docmirror/normalize"
)

// VersionFormat is the layout of snapshot version tags. Tags sort in
// chronological order.
const VersionFormat = "20060102T150405.000Z"

// Crawler fetches the pages of a source.
type Crawler interface {
	Crawl(ctx context.Context, source *docmirror.Source, emit func(*docmirror.Page)) (*crawl.Result, error)
}

// Normalizer turns pages into documents and chunks.
type Normalizer interface {
	Normalize(page *docmirror.Page, previous *docmirror.Document) (*normalize.Result, error)
	Chunks(doc *docmirror.Document) ([]*docmirror.Chunk, error)
}

// Indexer writes a run's documents and chunks.
type Indexer interface {
	Index(ctx context.Context, b *index.Batch) (*index.Result, error)
}

var _ docmirror.Runner = (*Pipeline)(nil)

// Pipeline implements docmirror.Runner.
type Pipeline struct {
	Crawler    Crawler
	Normalizer Normalizer
	Indexer    Indexer

	// Snapshots provides the documents of the previous run.
	Snapshots docmirror.SnapshotStore

	// Sources receives status transitions.
	Sources docmirror.SourceService

	Logger *slog.Logger
	Now    func() time.Time
}

// Run crawls, normalizes and indexes source. Page failures are recorded in
// the summary. Crawl setup errors and storage errors fail the run and mark
// the source Failed.
//
// When any page fails transiently, every page of the previous snapshot
// that was neither fetched nor permanently rejected is carried forward,
// since the failed page may have been the only link to it. A flaky fetch
// never removes indexed content.
func (p *Pipeline) Run(ctx context.Context, source *docmirror.Source) (_ *docmirror.RunSummary, err error) {
	log := p.logger().With("source", source.Name)
	defer func() {
		if err != nil {
			p.setStatus(context.WithoutCancel(ctx), source, docmirror.SourceFailed)
			log.Error("update failed", "err", err)
		}
	}()

	p.setStatus(ctx, source, docmirror.SourceFetching)
	previous, err := p.Snapshots.Latest(ctx, source.ID)
	if err != nil {
		if docmirror.ErrorCode(err) != docmirror.ENOTFOUND {
			return nil, fmt.Errorf("read previous snapshot: %w", err)
		}
		previous = nil
	}

	var pages []*docmirror.Page
	crawled, err := p.Crawler.Crawl(ctx, source, func(page *docmirror.Page) {
		pages = append(pages, page)
	})
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	summary := &docmirror.RunSummary{
		PagesFetched: crawled.Fetched,
		PagesFailed:  len(crawled.Failures),
		Retries:      crawled.Retries,
		Failures:     slices.Clone(crawled.Failures),
	}
	log.Info("crawl finished", "fetched", crawled.Fetched, "failed", len(crawled.Failures), "retries", crawled.Retries)

	p.setStatus(ctx, source, docmirror.SourceNormalizing)
	slices.SortFunc(pages, func(a, b *docmirror.Page) int { return strings.Compare(a.URL, b.URL) })
	batch := &index.Batch{Source: source}
	seen := make(map[string]bool, len(pages))
	for _, page := range pages {
		if page.Attempts > 1 {
			summary.PagesRetried++
		}
		res, err := p.Normalizer.Normalize(page, p.previousDocument(ctx, source, previous, page.URL))
		if err != nil {
			summary.PagesFailed++
			summary.Failures = append(summary.Failures, docmirror.NewPageFailure(page.URL, docmirror.StageNormalize, page.Attempts, err))
			log.Warn("skipping page", "url", page.URL, "err", err)
			continue
		}
		if res.Unchanged {
			summary.PagesUnchanged++
		}
		seen[page.URL] = true
		batch.Documents = append(batch.Documents, res.Document)
		batch.Chunks = append(batch.Chunks, res.Chunks...)
	}

	for _, url := range carryCandidates(previous, pages, crawled.Failures) {
		if seen[url] {
			continue
		}
		doc := p.previousDocument(ctx, source, previous, url)
		if doc == nil {
			continue
		}
		chunks, err := p.Normalizer.Chunks(doc)
		if err != nil {
			continue
		}
		seen[url] = true
		summary.PagesCarried++
		batch.Documents = append(batch.Documents, doc)
		batch.Chunks = append(batch.Chunks, chunks...)
		log.Debug("carried forward previous version", "url", url)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.setStatus(ctx, source, docmirror.SourceIndexing)
	batch.Version = p.now().UTC().Format(VersionFormat)
	indexed, err := p.Indexer.Index(ctx, batch)
	if err != nil {
		return nil, err
	}

	summary.Version = indexed.Version
	summary.ChunksChanged = indexed.Changed
	summary.ChunksSkipped = indexed.Skipped
	summary.ChunksDeferred = indexed.Deferred
	summary.ChunksDeleted = indexed.Deleted
	summary.EmbeddingCalls = indexed.EmbeddingCalls
	summary.Retries += indexed.Retries
	summary.Tokens = indexed.Tokens
	summary.Failures = append(summary.Failures, indexed.Failures...)

	p.setStatus(ctx, source, docmirror.SourceIndexed)
	log.Info("update finished",
		"version", summary.Version,
		"pages", len(batch.Documents),
		"changed", summary.ChunksChanged,
		"skipped", summary.ChunksSkipped,
		"deferred", summary.ChunksDeferred,
		"deleted", summary.ChunksDeleted,
	)
	return summary, nil
}

// previousDocument loads url from the previous snapshot. A document that
// cannot be read is treated as new.
func (p *Pipeline) previousDocument(ctx context.Context, source *docmirror.Source, previous *docmirror.Manifest, url string) *docmirror.Document {
	if previous.Page(url) == nil {
		return nil
	}
	doc, err := p.Snapshots.ReadDocument(ctx, source.ID, previous.Version, url)
	if err != nil {
		p.logger().Debug("previous document unavailable", "source", source.Name, "url", url, "err", err)
		return nil
	}
	return doc
}

func (p *Pipeline) setStatus(ctx context.Context, source *docmirror.Source, status docmirror.SourceStatus) {
	source.Status = status
	if p.Sources == nil {
		return
	}
	if _, err := p.Sources.UpdateSource(ctx, source.ID, docmirror.SourceUpdate{Status: &status}); err != nil {
		p.logger().Warn("update source status", "source", source.Name, "status", status, "err", err)
	}
}

func (p *Pipeline) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

func (p *Pipeline) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

// carryCandidates returns the previous snapshot's URLs to carry into this
// run: none if no fetch failed transiently, otherwise every page that was
// not fetched and not permanently rejected.
func carryCandidates(previous *docmirror.Manifest, pages []*docmirror.Page, failures []docmirror.PageFailure) []string {
	if previous == nil || !slices.ContainsFunc(failures, transient) {
		return nil
	}
	skip := make(map[string]bool, len(pages)+len(failures))
	for _, page := range pages {
		skip[page.URL] = true
	}
	for _, f := range failures {
		if !transient(f) {
			skip[f.URL] = true
		}
	}
	var urls []string
	for _, mp := range previous.Pages {
		if !skip[mp.URL] {
			urls = append(urls, mp.URL)
		}
	}
	return urls
}

// transient reports whether a page failure may clear up on a later run.
func transient(f docmirror.PageFailure) bool {
	if f.Stage != docmirror.StageFetch {
		return false
	}
	switch f.Code {
	case docmirror.EREJECTED, docmirror.EINVALID, docmirror.ENOTFOUND:
		return false
	}
	return true
}
