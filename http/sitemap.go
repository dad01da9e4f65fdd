package http

import (
	"bufio"
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/beevik/etree"
	"github.com/fwojciec/docmirror"
)

// maxSitemapDepth bounds recursion through nested sitemap indexes.
const maxSitemapDepth = 3

var _ docmirror.SitemapService = (*SitemapService)(nil)

// SitemapService discovers page URLs from robots.txt sitemap directives,
// falling back to /sitemap.xml.
type SitemapService struct {
	client    *http.Client
	userAgent string
}

// NewSitemapService creates a SitemapService with the given HTTP client.
// If client is nil, http.DefaultClient is used.
func NewSitemapService(client *http.Client) *SitemapService {
	if client == nil {
		client = http.DefaultClient
	}
	return &SitemapService{client: client, userAgent: DefaultUserAgent}
}

// DiscoverURLs returns the canonical URLs listed in the site's sitemaps
// that fall under baseURL's path and pass filter. A site without sitemaps
// yields an empty result, not an error.
func (s *SitemapService) DiscoverURLs(ctx context.Context, baseURL string, filter *docmirror.URLFilter) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	base, err := url.Parse(baseURL)
	if err != nil || base.Host == "" {
		return nil, docmirror.Errorf(docmirror.EINVALID, "invalid base URL %q", baseURL)
	}
	prefix := strings.TrimSuffix(base.Path, "/")

	sitemaps, err := s.locate(ctx, base)
	if err != nil {
		return nil, err
	}

	w := &sitemapWalk{svc: s, visited: make(map[string]bool)}
	for _, sm := range sitemaps {
		if err := w.visit(ctx, sm, 0); err != nil {
			return nil, err
		}
	}

	seen := make(map[string]bool)
	urls := []string{}
	for _, loc := range w.locs {
		canonical, err := docmirror.CanonicalURL(loc)
		if err != nil || seen[canonical] {
			continue
		}
		seen[canonical] = true
		if !underPrefix(canonical, prefix) || !filter.Match(canonical) {
			continue
		}
		urls = append(urls, canonical)
	}
	return urls, nil
}

// locate finds sitemap URLs in robots.txt, or returns /sitemap.xml when it
// exists.
func (s *SitemapService) locate(ctx context.Context, base *url.URL) ([]string, error) {
	robots := url.URL{Scheme: base.Scheme, Host: base.Host, Path: "/robots.txt"}
	if sitemaps, err := s.robotsSitemaps(ctx, robots.String()); err == nil && len(sitemaps) > 0 {
		return sitemaps, nil
	} else if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	fallback := (&url.URL{Scheme: base.Scheme, Host: base.Host, Path: "/sitemap.xml"}).String()
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, fallback, nil)
	if err != nil {
		return nil, nil
	}
	req.Header.Set("User-Agent", s.userAgent)
	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, nil
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, nil
	}
	return []string{fallback}, nil
}

func (s *SitemapService) robotsSitemaps(ctx context.Context, robotsURL string) ([]string, error) {
	resp, err := get(ctx, s.client, s.userAgent, robotsURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var sitemaps []string
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		key, value, ok := strings.Cut(strings.TrimSpace(scanner.Text()), ":")
		if !ok || !strings.EqualFold(strings.TrimSpace(key), "sitemap") {
			continue
		}
		if v := strings.TrimSpace(value); v != "" {
			sitemaps = append(sitemaps, v)
		}
	}
	return sitemaps, scanner.Err()
}

// sitemapWalk collects <loc> entries across a tree of sitemaps.
type sitemapWalk struct {
	svc     *SitemapService
	visited map[string]bool
	locs    []string
}

func (w *sitemapWalk) visit(ctx context.Context, sitemapURL string, depth int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if w.visited[sitemapURL] || depth > maxSitemapDepth {
		return nil
	}
	w.visited[sitemapURL] = true

	resp, err := get(ctx, w.svc.client, w.svc.userAgent, sitemapURL)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(resp.Body); err != nil {
		return docmirror.Errorf(docmirror.EINVALID, "parsing sitemap %s: %v", sitemapURL, err)
	}
	root := doc.Root()
	if root == nil {
		return docmirror.Errorf(docmirror.EINVALID, "empty sitemap %s", sitemapURL)
	}

	switch root.Tag {
	case "sitemapindex":
		for _, child := range locs(root, "sitemap") {
			if err := w.visit(ctx, child, depth+1); err != nil {
				return err
			}
		}
	default:
		w.locs = append(w.locs, locs(root, "url")...)
	}
	return nil
}

// locs returns the trimmed <loc> text of every tag child of root.
func locs(root *etree.Element, tag string) []string {
	var out []string
	for _, el := range root.SelectElements(tag) {
		loc := el.SelectElement("loc")
		if loc == nil {
			continue
		}
		if v := strings.TrimSpace(loc.Text()); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// underPrefix reports whether rawURL's path is prefix or below it, on a
// path segment boundary.
func underPrefix(rawURL, prefix string) bool {
	if prefix == "" {
		return true
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return u.Path == prefix || strings.HasPrefix(u.Path, prefix+"/")
}
