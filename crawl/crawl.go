// Package crawl fetches the pages of a documentation source within its
// crawl policy. It coordinates the frontier, per-host rate limiting,
// retries, link discovery and content extraction, and hands extracted
// pages to the caller as they complete.
package crawl

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/fwojciec/docmirror"
)

// Frontier sizing. The filter is sized well above MaxPages because every
// page contributes many links that are queued but never fetched.
const (
	frontierMinURLs           = 10000
	frontierURLsPerPage       = 20
	frontierFalsePositiveRate = 0.001
)

// Crawler crawls documentation sources.
type Crawler struct {
	// Fetcher retrieves static pages.
	Fetcher docmirror.Fetcher

	// Renderer retrieves pages of sources that require JavaScript rendering.
	Renderer docmirror.Fetcher

	// Sitemaps seeds the frontier for sources whose policy enables it.
	Sitemaps docmirror.SitemapService

	// Extractor is the fallback main-content extractor.
	Extractor docmirror.Extractor

	// Schemas holds structured extractors by schema name.
	Schemas map[string]docmirror.Extractor

	LinkSelectors docmirror.LinkSelectorRegistry

	// RateLimiter throttles requests per host across every crawl run by
	// this Crawler. When nil, a shared DomainLimiter is created on first
	// use. A *DomainLimiter is restricted to each source's policy rate.
	RateLimiter docmirror.DomainLimiter

	// RetryDelays defaults to DefaultRetryDelays.
	RetryDelays []time.Duration

	// Logf, if set, receives retry messages.
	Logf LogFunc

	Now func() time.Time

	once   sync.Once
	shared *DomainLimiter
}

// Result summarizes a crawl.
type Result struct {
	// Fetched is the number of pages emitted.
	Fetched int

	// Retries counts fetch attempts beyond the first, across all pages.
	Retries int

	// Failures lists pages that could not be fetched or extracted.
	Failures []docmirror.PageFailure
}

// Crawl fetches pages of source breadth-first from its base URL and calls
// emit for every extracted page. emit is called from a single goroutine.
//
// Page failures are recorded in the result. A policy error, an unknown
// schema or an unreachable base URL fails the whole crawl.
func (c *Crawler) Crawl(ctx context.Context, source *docmirror.Source, emit func(*docmirror.Page)) (*Result, error) {
	policy := source.Policy.WithDefaults()
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	filter, err := policy.Filter()
	if err != nil {
		return nil, err
	}
	base, err := url.Parse(source.BaseURL)
	if err != nil || base.Host == "" {
		return nil, docmirror.Errorf(docmirror.EINVALID, "invalid base URL %q", source.BaseURL)
	}

	fetcher := c.Fetcher
	if source.Render {
		if c.Renderer == nil {
			return nil, docmirror.Errorf(docmirror.EINVALID, "source %q requires rendering but no renderer is configured", source.Name)
		}
		fetcher = c.Renderer
	}

	var schema docmirror.Extractor
	if source.Schema != "" {
		var ok bool
		if schema, ok = c.Schemas[source.Schema]; !ok {
			return nil, docmirror.Errorf(docmirror.EINVALID, "unknown extraction schema %q", source.Schema)
		}
	}

	limiter := c.limiter()
	if d, ok := limiter.(*DomainLimiter); ok {
		d.Restrict(base.Host, policy.RateLimit)
	}

	w := &walker{
		crawler: c,
		source:  source,
		fetcher: fetcher,
		schema:  schema,
		limiter: limiter,
		scope:   newScope(base, filter),
		policy:  policy,
		emit:    emit,
	}
	return w.run(ctx)
}

func (c *Crawler) limiter() docmirror.DomainLimiter {
	if c.RateLimiter != nil {
		return c.RateLimiter
	}
	c.once.Do(func() { c.shared = NewDomainLimiter(0) })
	return c.shared
}

func (c *Crawler) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c *Crawler) retryDelays() []time.Duration {
	if c.RetryDelays != nil {
		return c.RetryDelays
	}
	return DefaultRetryDelays()
}

// walker holds the state of one crawl.
type walker struct {
	crawler *Crawler
	source  *docmirror.Source
	fetcher docmirror.Fetcher
	schema  docmirror.Extractor
	limiter docmirror.DomainLimiter
	scope   scope
	policy  docmirror.CrawlPolicy
	emit    func(*docmirror.Page)

	frontier *Frontier
	result   Result
}

func (w *walker) run(ctx context.Context) (*Result, error) {
	expected := max(uint(w.policy.MaxPages*frontierURLsPerPage), frontierMinURLs)
	w.frontier = NewFrontier(expected, frontierFalsePositiveRate)

	root := docmirror.DiscoveredLink{URL: w.source.BaseURL, Priority: docmirror.PriorityNavigation}
	w.frontier.Push(root)
	root, _ = w.frontier.Pop()

	res := w.process(ctx, root)
	if res.err != nil && res.stage == docmirror.StageFetch {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, docmirror.Errorf(docmirror.EUNAVAILABLE, "base URL %s unreachable: %s", root.URL, errorText(res.err))
	}
	w.handle(&res)

	if w.policy.UseSitemap && w.crawler.Sitemaps != nil {
		w.seedFromSitemap(ctx)
	}

	walkFrontier(ctx, w.frontier, w.policy.Concurrency, w.policy.MaxPages-1, w.process, w.handle)

	if err := ctx.Err(); err != nil {
		return &w.result, err
	}
	return &w.result, nil
}

// seedFromSitemap queues sitemap URLs as depth-one links. Sitemap errors
// are not fatal; link discovery still covers the site.
func (w *walker) seedFromSitemap(ctx context.Context) {
	urls, err := w.crawler.Sitemaps.DiscoverURLs(ctx, w.source.BaseURL, w.scope.filter)
	if err != nil {
		if w.crawler.Logf != nil {
			w.crawler.Logf("sitemap discovery for %s: %v", w.source.BaseURL, err)
		}
		return
	}
	for _, u := range urls {
		link := docmirror.DiscoveredLink{
			URL:      u,
			Depth:    1,
			Priority: docmirror.PriorityFallback,
			Source:   "sitemap",
		}
		if w.admit(link) {
			w.frontier.Push(link)
		}
	}
}

func (w *walker) process(ctx context.Context, link docmirror.DiscoveredLink) walkResult {
	res := walkResult{link: link, stage: docmirror.StageFetch}

	u, err := url.Parse(link.URL)
	if err != nil {
		res.err = docmirror.Errorf(docmirror.EINVALID, "malformed URL %q", link.URL)
		return res
	}
	// Every attempt, retries included, waits for the host's rate limit.
	fetch := func(ctx context.Context, target string) (string, error) {
		if err := w.limiter.Wait(ctx, u.Host); err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			return "", err
		}
		return w.fetcher.Fetch(ctx, target)
	}
	html, attempts, err := FetchWithRetryDelays(ctx, link.URL, fetch, w.crawler.Logf, w.crawler.retryDelays())
	res.attempts = attempts
	if err != nil {
		res.err = err
		return res
	}

	if w.crawler.LinkSelectors != nil {
		if links, err := w.crawler.LinkSelectors.GetForHTML(html).ExtractLinks(html, link.URL); err == nil {
			res.links = links
		}
	}

	res.stage = docmirror.StageNormalize
	extracted, method, err := w.extract(html)
	if err != nil {
		res.err = err
		return res
	}

	res.page = &docmirror.Page{
		SourceID:    w.source.ID,
		URL:         link.URL,
		Depth:       link.Depth,
		Title:       extracted.Title,
		ContentHTML: extracted.ContentHTML,
		Extraction:  method,
		Attempts:    attempts,
		FetchedAt:   w.crawler.now(),
	}
	return res
}

// extract runs the schema extractor when one is configured and falls back
// to generic extraction when it fails or finds nothing.
func (w *walker) extract(html string) (*docmirror.ExtractResult, string, error) {
	if w.schema != nil {
		res, err := w.schema.Extract(html)
		if err == nil && res != nil && strings.TrimSpace(res.ContentHTML) != "" {
			return res, docmirror.ExtractionSchema, nil
		}
	}
	if w.crawler.Extractor == nil {
		return nil, "", docmirror.Errorf(docmirror.EINVALID, "no extractor configured")
	}
	res, err := w.crawler.Extractor.Extract(html)
	if err != nil {
		return nil, "", err
	}
	if res == nil || strings.TrimSpace(res.ContentHTML) == "" {
		return nil, "", docmirror.Errorf(docmirror.EINVALID, "no main content found")
	}
	return res, docmirror.ExtractionFallback, nil
}

func (w *walker) handle(res *walkResult) {
	if res.attempts > 1 {
		w.result.Retries += res.attempts - 1
	}

	if res.link.Depth < w.policy.MaxDepth {
		for _, link := range res.links {
			link.Depth = res.link.Depth + 1
			if w.admit(link) {
				w.frontier.Push(link)
			}
		}
	}

	if res.err != nil {
		w.result.Failures = append(w.result.Failures,
			docmirror.NewPageFailure(res.link.URL, res.stage, res.attempts, res.err))
		return
	}
	w.result.Fetched++
	if w.emit != nil {
		w.emit(res.page)
	}
}

func (w *walker) admit(link docmirror.DiscoveredLink) bool {
	return link.Depth <= w.policy.MaxDepth && w.scope.contains(link.URL)
}

// scope limits a crawl to the base URL's host and path prefix and to the
// policy's include and exclude patterns.
type scope struct {
	host   string
	prefix string
	filter *docmirror.URLFilter
}

func newScope(base *url.URL, filter *docmirror.URLFilter) scope {
	prefix := strings.TrimSuffix(base.EscapedPath(), "/")
	return scope{
		host:   strings.ToLower(base.Host),
		prefix: prefix,
		filter: filter,
	}
}

func (s scope) contains(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	if strings.ToLower(u.Host) != s.host {
		return false
	}
	if s.prefix != "" {
		path := u.EscapedPath()
		if path != s.prefix && !strings.HasPrefix(path, s.prefix+"/") {
			return false
		}
	}
	return s.filter.Match(rawURL)
}

func errorText(err error) string {
	if msg := docmirror.ErrorMessage(err); docmirror.ErrorCode(err) != docmirror.EINTERNAL {
		return msg
	}
	return err.Error()
}
