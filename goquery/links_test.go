package goquery_test

import (
	"testing"

	"github.com/fwojciec/docmirror"
	"github.com/fwojciec/docmirror/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pageURL = "https://example.com/docs/intro"

func linkURLs(links []docmirror.DiscoveredLink) []string {
	urls := make([]string, len(links))
	for i, l := range links {
		urls[i] = l.URL
	}
	return urls
}

func findLink(links []docmirror.DiscoveredLink, url string) *docmirror.DiscoveredLink {
	for i := range links {
		if links[i].URL == url {
			return &links[i]
		}
	}
	return nil
}

func TestSelector_ExtractLinks(t *testing.T) {
	t.Parallel()

	t.Run("assigns priority by page region", func(t *testing.T) {
		t.Parallel()

		html := `<html><body>
<nav><a href="/docs/guide">Guide</a></nav>
<main><a href="/docs/api">API</a></main>
<footer><a href="/docs/license">License</a></footer>
</body></html>`

		links, err := goquery.NewGenericSelector().ExtractLinks(html, pageURL)

		require.NoError(t, err)
		assert.Equal(t, docmirror.PriorityNavigation, findLink(links, "https://example.com/docs/guide").Priority)
		assert.Equal(t, docmirror.PriorityContent, findLink(links, "https://example.com/docs/api").Priority)
		assert.Equal(t, docmirror.PriorityFooter, findLink(links, "https://example.com/docs/license").Priority)
	})

	t.Run("keeps highest priority for duplicate links in first-seen order", func(t *testing.T) {
		t.Parallel()

		html := `<html><body>
<main><a href="/docs/a">A</a><a href="/docs/b">B</a></main>
<nav><a href="/docs/b">B</a></nav>
</body></html>`

		links, err := goquery.NewGenericSelector().ExtractLinks(html, pageURL)

		require.NoError(t, err)
		assert.Equal(t, []string{"https://example.com/docs/b", "https://example.com/docs/a"}, linkURLs(links))
		assert.Equal(t, docmirror.PriorityNavigation, links[0].Priority)
	})

	t.Run("filters external, non-HTTP and self links", func(t *testing.T) {
		t.Parallel()

		html := `<html><body><main>
<a href="https://other.com/docs/x">External</a>
<a href="https://sub.example.com/docs/x">Subdomain</a>
<a href="mailto:a@example.com">Mail</a>
<a href="javascript:void(0)">JS</a>
<a href="#section">Anchor</a>
<a href="/docs/next#top">Next</a>
</main></body></html>`

		links, err := goquery.NewGenericSelector().ExtractLinks(html, pageURL)

		require.NoError(t, err)
		assert.Equal(t, []string{"https://example.com/docs/next"}, linkURLs(links))
	})

	t.Run("collects unmarked anchors under the page directory as fallback", func(t *testing.T) {
		t.Parallel()

		html := `<html><body><div class="grid">
<a href="/docs/tailwind">Tailwind</a>
<a href="/pricing">Pricing</a>
</div></body></html>`

		links, err := goquery.NewGenericSelector().ExtractLinks(html, pageURL)

		require.NoError(t, err)
		require.Len(t, links, 1)
		assert.Equal(t, "https://example.com/docs/tailwind", links[0].URL)
		assert.Equal(t, docmirror.PriorityFallback, links[0].Priority)
		assert.Equal(t, "fallback", links[0].Source)
	})

	t.Run("normalizes link text whitespace", func(t *testing.T) {
		t.Parallel()

		html := "<html><body><nav><a href=\"/docs/x\">  Getting\n   Started </a></nav></body></html>"

		links, err := goquery.NewGenericSelector().ExtractLinks(html, pageURL)

		require.NoError(t, err)
		assert.Equal(t, "Getting Started", links[0].Text)
	})

	t.Run("returns EINVALID for invalid base URL", func(t *testing.T) {
		t.Parallel()

		_, err := goquery.NewGenericSelector().ExtractLinks("<html></html>", "://bad")

		assert.Equal(t, docmirror.EINVALID, docmirror.ErrorCode(err))
	})
}

func TestNewFrameworkSelector(t *testing.T) {
	t.Parallel()

	t.Run("uses framework table of contents rules", func(t *testing.T) {
		t.Parallel()

		html := `<html><body>
<div class="theme-doc-sidebar-container"><a href="/docs/sidebar">Sidebar</a></div>
<div class="table-of-contents"><a href="/docs/intro/part">Part</a></div>
</body></html>`

		s := goquery.NewFrameworkSelector(docmirror.FrameworkDocusaurus)
		links, err := s.ExtractLinks(html, pageURL)

		require.NoError(t, err)
		assert.Equal(t, "docusaurus", s.Name())
		assert.Equal(t, docmirror.PriorityTOC, findLink(links, "https://example.com/docs/intro/part").Priority)
		assert.Equal(t, "sidebar", findLink(links, "https://example.com/docs/sidebar").Source)
	})

	t.Run("falls back to generic rules for unknown framework", func(t *testing.T) {
		t.Parallel()

		s := goquery.NewFrameworkSelector(docmirror.Framework("hugo"))

		assert.Equal(t, "generic", s.Name())
	})
}
