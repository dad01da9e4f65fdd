// Package goquery implements the HTML-level pieces of crawling and
// normalization on top of PuerkitoBio/goquery: documentation framework
// detection, prioritized link selection, schema-driven content extraction
// and markup cleaning.
package goquery

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/docmirror"
)

var _ docmirror.FrameworkDetector = (*Detector)(nil)

// marker lists CSS selectors that identify a framework. Any one match is
// enough.
type marker struct {
	framework docmirror.Framework
	selectors []string
}

// markers are checked in order. VitePress precedes VuePress because it
// reuses some VuePress class names.
var markers = []marker{
	{docmirror.FrameworkDocusaurus, []string{"#__docusaurus_skipToContent_fallback", ".theme-doc-sidebar-container", "html[data-theme][data-rh]"}},
	{docmirror.FrameworkMkDocs, []string{"[data-md-color-scheme]", "[data-md-component]", ".md-nav--primary"}},
	{docmirror.FrameworkSphinx, []string{".toctree-wrapper", ".wy-nav-side", ".wy-menu-vertical", ".sphinxsidebar"}},
	{docmirror.FrameworkVitePress, []string{"#VPContent", ".VPDoc", ".VPDocAsideOutline"}},
	{docmirror.FrameworkVuePress, []string{".theme-default-content", ".sidebar-links", ".vuepress-navbar"}},
	{docmirror.FrameworkGitBook, []string{"[data-testid='space.sidebar']", "[data-testid='page.desktopTableOfContents']"}},
	{docmirror.FrameworkNextra, []string{".nextra-navbar", ".nextra-sidebar", ".nextra-toc"}},
}

// generators maps substrings of <meta name="generator"> to frameworks.
var generators = []struct {
	substr    string
	framework docmirror.Framework
}{
	{"sphinx", docmirror.FrameworkSphinx},
	{"gitbook", docmirror.FrameworkGitBook},
	{"docusaurus", docmirror.FrameworkDocusaurus},
	{"mkdocs", docmirror.FrameworkMkDocs},
	{"vitepress", docmirror.FrameworkVitePress},
	{"vuepress", docmirror.FrameworkVuePress},
	{"nextra", docmirror.FrameworkNextra},
}

// Detector identifies documentation frameworks from generator meta tags
// and framework-specific markup.
type Detector struct{}

// NewDetector creates a new Detector.
func NewDetector() *Detector {
	return &Detector{}
}

// Detect returns the framework that generated html, or FrameworkUnknown.
func (d *Detector) Detect(html string) docmirror.Framework {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return docmirror.FrameworkUnknown
	}
	return detect(doc)
}

func detect(doc *goquery.Document) docmirror.Framework {
	if generator, ok := doc.Find("meta[name='generator']").Last().Attr("content"); ok {
		generator = strings.ToLower(generator)
		for _, g := range generators {
			if strings.Contains(generator, g.substr) {
				return g.framework
			}
		}
	}

	for _, m := range markers {
		for _, sel := range m.selectors {
			if doc.Find(sel).Length() > 0 {
				return m.framework
			}
		}
	}

	if hasGitBookClasses(doc) {
		return docmirror.FrameworkGitBook
	}
	return docmirror.FrameworkUnknown
}

// hasGitBookClasses reports whether the html element carries at least two
// of GitBook's theme classes.
func hasGitBookClasses(doc *goquery.Document) bool {
	class, _ := doc.Find("html").Attr("class")
	count := 0
	for _, c := range []string{"circular-corners", "theme-clean", "tint"} {
		if strings.Contains(class, c) {
			count++
		}
	}
	return count >= 2
}
