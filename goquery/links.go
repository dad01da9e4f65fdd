package goquery

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/docmirror"
)

var _ docmirror.LinkSelector = (*Selector)(nil)

// Rule assigns a priority and source label to links matched by a CSS
// selector.
type Rule struct {
	Selector string
	Priority docmirror.LinkPriority
	Source   string
}

// Selector extracts prioritized links using an ordered list of rules.
// A link matched by several rules keeps the highest priority.
type Selector struct {
	name  string
	rules []Rule

	// Fallback also collects any same-host anchor under the page's
	// directory at PriorityFallback, so sites with non-semantic markup
	// still get crawled.
	Fallback bool
}

// NewSelector creates a Selector with custom rules.
func NewSelector(name string, rules []Rule) *Selector {
	return &Selector{name: name, rules: rules, Fallback: true}
}

// NewGenericSelector creates a Selector that works on arbitrary HTML.
func NewGenericSelector() *Selector {
	return NewSelector("generic", genericRules)
}

// NewFrameworkSelector creates a Selector tuned for framework. Unknown
// frameworks get the generic rules.
func NewFrameworkSelector(framework docmirror.Framework) *Selector {
	rules, ok := frameworkRules[framework]
	if !ok {
		return NewGenericSelector()
	}
	return NewSelector(string(framework), rules)
}

// Name returns the selector's identifier.
func (s *Selector) Name() string {
	return s.name
}

// ExtractLinks parses html and returns same-host links in first-seen
// document order. Fragments are stripped and self links dropped.
func (s *Selector) ExtractLinks(html string, baseURL string) ([]docmirror.DiscoveredLink, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, docmirror.Errorf(docmirror.EINVALID, "invalid base URL: %v", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, docmirror.Errorf(docmirror.EINVALID, "failed to parse HTML: %v", err)
	}

	c := &collector{base: base, seen: make(map[string]int)}
	for _, r := range s.rules {
		doc.Find(r.Selector).Each(func(_ int, sel *goquery.Selection) {
			c.add(sel, r.Priority, r.Source, "")
		})
	}

	if s.Fallback {
		dir := base.Path[:strings.LastIndex(base.Path, "/")+1]
		doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
			c.add(sel, docmirror.PriorityFallback, "fallback", dir)
		})
	}

	return c.links, nil
}

// collector deduplicates links by resolved URL, keeping the index of each
// URL's first occurrence so upgrades preserve document order.
type collector struct {
	base  *url.URL
	seen  map[string]int
	links []docmirror.DiscoveredLink
}

func (c *collector) add(sel *goquery.Selection, priority docmirror.LinkPriority, source, pathPrefix string) {
	href, ok := sel.Attr("href")
	if !ok || href == "" || isNonHTTPLink(href) {
		return
	}

	resolved := resolveURL(c.base, href)
	if resolved == nil || resolved.Host != c.base.Host {
		return
	}
	if pathPrefix != "" && !strings.HasPrefix(resolved.Path, pathPrefix) {
		return
	}

	link := docmirror.DiscoveredLink{
		URL:      resolved.String(),
		Priority: priority,
		Text:     strings.Join(strings.Fields(sel.Text()), " "),
		Source:   source,
	}
	if idx, ok := c.seen[link.URL]; ok {
		if priority > c.links[idx].Priority {
			c.links[idx] = link
		}
		return
	}
	c.seen[link.URL] = len(c.links)
	c.links = append(c.links, link)
}

// resolveURL resolves href against base with the fragment stripped.
// Returns nil for unparsable or self-referential links.
func resolveURL(base *url.URL, href string) *url.URL {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return nil
	}
	resolved := base.ResolveReference(ref)
	resolved.Fragment = ""
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return nil
	}

	self := *base
	self.Fragment = ""
	if resolved.String() == self.String() {
		return nil
	}
	return resolved
}

func isNonHTTPLink(href string) bool {
	href = strings.ToLower(strings.TrimSpace(href))
	for _, prefix := range []string{"javascript:", "mailto:", "tel:", "data:"} {
		if strings.HasPrefix(href, prefix) {
			return true
		}
	}
	return false
}
