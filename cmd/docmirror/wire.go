package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fwojciec/docmirror"
	"github.com/fwojciec/docmirror/crawl"
	"github.com/fwojciec/docmirror/fs"
	"github.com/fwojciec/docmirror/gemini"
	"github.com/fwojciec/docmirror/goldmark"
	"github.com/fwojciec/docmirror/goquery"
	"github.com/fwojciec/docmirror/htmltomarkdown"
	dmhttp "github.com/fwojciec/docmirror/http"
	"github.com/fwojciec/docmirror/index"
	"github.com/fwojciec/docmirror/normalize"
	"github.com/fwojciec/docmirror/pipeline"
	"github.com/fwojciec/docmirror/qdrant"
	"github.com/fwojciec/docmirror/readability"
	"github.com/fwojciec/docmirror/rod"
	"github.com/fwojciec/docmirror/schedule"
	"github.com/fwojciec/docmirror/search"
	dmslog "github.com/fwojciec/docmirror/slog"
	"github.com/fwojciec/docmirror/sqlite"
	"github.com/fwojciec/docmirror/toml"
	"github.com/fwojciec/docmirror/trafilatura"
	"github.com/fwojciec/docmirror/xxhash"
	"google.golang.org/genai"
)

// wiring builds services from configuration. Shared services are created
// once. With debug set, services are wrapped in logging decorators.
type wiring struct {
	cfg     *toml.Config
	db      *sqlite.DB
	logger  *slog.Logger
	debug   bool
	onClose func(func() error)

	client   *genai.Client
	embedder docmirror.Embedder
	store    docmirror.VectorStore
}

// gemini returns the shared Gemini client.
func (w *wiring) gemini(ctx context.Context) (*genai.Client, error) {
	if w.client != nil {
		return w.client, nil
	}
	client, err := gemini.NewClient(ctx, w.cfg.APIKey, w.cfg.Embedding.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Gemini API: %w", err)
	}
	w.client = client
	return client, nil
}

func (w *wiring) embedderFor(ctx context.Context) (docmirror.Embedder, error) {
	if w.embedder != nil {
		return w.embedder, nil
	}
	var e docmirror.Embedder
	switch w.cfg.Embedding.Provider {
	case toml.ProviderGemini:
		client, err := w.gemini(ctx)
		if err != nil {
			return nil, err
		}
		e = gemini.NewEmbedder(client, w.cfg.Embedding.Model, w.cfg.Embedding.Dimensions)
	default:
		e = xxhash.NewEmbedder(w.cfg.Embedding.Dimensions)
	}
	if w.debug {
		e = dmslog.NewLoggingEmbedder(e, w.logger)
	}
	w.embedder = e
	return e, nil
}

func (w *wiring) storeFor(ctx context.Context, dims int) (docmirror.VectorStore, error) {
	if w.store != nil {
		return w.store, nil
	}
	var s docmirror.VectorStore
	switch w.cfg.Index.VectorStore {
	case toml.StoreQdrant:
		qc := w.cfg.Index.Qdrant
		client, err := qdrant.Dial(qc)
		if err != nil {
			return nil, err
		}
		w.onClose(client.Close)
		collection := qc.Collection
		if collection == "" {
			collection = qdrant.DefaultCollection
		}
		qs := qdrant.NewVectorStore(client, collection)
		if err := qs.EnsureCollection(ctx, dims); err != nil {
			return nil, fmt.Errorf("failed to prepare qdrant collection %q: %w", collection, err)
		}
		s = qs
	default:
		s = sqlite.NewVectorStore(w.db)
	}
	if w.debug {
		s = dmslog.NewLoggingVectorStore(s, w.logger)
	}
	w.store = s
	return s, nil
}

// readPath sets deps.Search, and deps.Asker when a Gemini API key is
// configured.
func (w *wiring) readPath(ctx context.Context, deps *Dependencies) error {
	embedder, err := w.embedderFor(ctx)
	if err != nil {
		return err
	}
	store, err := w.storeFor(ctx, embedder.Dimensions())
	if err != nil {
		return err
	}

	var svc docmirror.SearchService = &search.Searcher{
		Store:           store,
		Embedder:        embedder,
		Sources:         deps.Sources,
		Score:           search.Blend(w.cfg.Search.Weights, time.Now),
		CandidateFactor: w.cfg.Search.CandidateFactor,
		SnippetLength:   w.cfg.Search.SnippetLength,
	}
	if w.debug {
		svc = dmslog.NewLoggingSearchService(svc, w.logger)
	}
	deps.Search = svc

	if w.cfg.APIKey == "" {
		return nil
	}
	client, err := w.gemini(ctx)
	if err != nil {
		return err
	}
	asker := gemini.NewAsker(client, svc)
	if w.cfg.Ask.Model != "" {
		asker.Model = w.cfg.Ask.Model
	}
	deps.Asker = asker
	return nil
}

// pipeline builds the write path. A browser is launched only when an
// enabled source needs rendering.
func (w *wiring) pipeline(ctx context.Context, sources docmirror.SourceService) (*pipeline.Pipeline, *index.Indexer, error) {
	embedder, err := w.embedderFor(ctx)
	if err != nil {
		return nil, nil, err
	}
	store, err := w.storeFor(ctx, embedder.Dimensions())
	if err != nil {
		return nil, nil, err
	}

	normalizer := &normalize.Normalizer{
		Cleaner:   goquery.NewCleaner(),
		Converter: htmltomarkdown.NewConverter(),
		Chunker:   goldmark.NewChunker(w.cfg.Chunk.MaxSize, w.cfg.Chunk.Overlap),
	}
	snapshots := fs.NewSnapshotStore(w.cfg.SnapshotDir())

	ix := &index.Indexer{
		Store:     store,
		Embedder:  embedder,
		Snapshots: snapshots,
		Chunker:   normalizer,
		BatchSize: w.cfg.Embedding.BatchSize,
		Retention: w.cfg.Index.Retention,
	}
	if w.cfg.Embedding.Provider == toml.ProviderGemini {
		// Token counts are reported only; a missing tokenizer is not fatal.
		tc, err := gemini.NewTokenCounter(gemini.DefaultTokenizerModel)
		if err != nil {
			w.logger.Warn("token counting disabled", "err", err)
		} else {
			ix.Tokens = tc
		}
	}

	var fetcher docmirror.Fetcher = dmhttp.NewFetcher(
		dmhttp.WithTimeout(w.cfg.Crawl.Timeout.Std()),
		dmhttp.WithUserAgent(w.cfg.Crawl.UserAgent),
	)
	var sitemaps docmirror.SitemapService = dmhttp.NewSitemapService(nil)
	var links docmirror.LinkSelectorRegistry = goquery.NewDefaultRegistry()
	if w.debug {
		fetcher = dmslog.NewLoggingFetcher(fetcher, w.logger)
		sitemaps = dmslog.NewLoggingSitemapService(sitemaps, w.logger)
		links = dmslog.NewLoggingRegistry(links, goquery.NewDetector(), w.logger)
	}

	renderer, err := w.renderer(ctx, sources)
	if err != nil {
		return nil, nil, err
	}

	crawler := &crawl.Crawler{
		Fetcher:       fetcher,
		Renderer:      renderer,
		Sitemaps:      sitemaps,
		Extractor:     docmirror.ExtractorChain{trafilatura.NewExtractor(), readability.NewExtractor()},
		Schemas:       goquery.NewSchemaExtractors(w.cfg.Schemas),
		LinkSelectors: links,
		RateLimiter:   crawl.NewDomainLimiter(0),
		RetryDelays:   w.cfg.RetryDelays(),
		Logf: func(format string, args ...any) {
			w.logger.Debug(fmt.Sprintf(format, args...))
		},
	}

	p := &pipeline.Pipeline{
		Crawler:    crawler,
		Normalizer: normalizer,
		Indexer:    ix,
		Snapshots:  snapshots,
		Sources:    sources,
		Logger:     w.logger,
	}
	return p, ix, nil
}

// renderer launches a headless browser if any enabled source renders
// pages. It returns nil otherwise.
func (w *wiring) renderer(ctx context.Context, sources docmirror.SourceService) (docmirror.Fetcher, error) {
	enabled := false
	list, err := sources.FindSources(ctx, docmirror.SourceFilter{Disabled: &enabled})
	if err != nil {
		return nil, err
	}
	needed := false
	for _, s := range list {
		if s.Render {
			needed = true
			break
		}
	}
	if !needed {
		return nil, nil
	}

	r, err := rod.NewFetcher(rod.WithFetchTimeout(w.cfg.Crawl.RenderTimeout.Std()))
	if err != nil {
		w.logger.Error("Chrome or Chromium must be installed to render pages", "err", err)
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}
	w.onClose(r.Close)
	if w.debug {
		return dmslog.NewLoggingFetcher(r, w.logger), nil
	}
	return r, nil
}

func (w *wiring) scheduler(runner docmirror.Runner, sources docmirror.SourceService, jobs docmirror.JobService) *schedule.Scheduler {
	s := schedule.NewScheduler(runner, sources, jobs)
	s.Cadence = w.cfg.Schedule.Cadence.Std()
	s.Interval = w.cfg.Schedule.Interval.Std()
	s.Logger = w.logger
	return s
}
