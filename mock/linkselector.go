package mock

import "github.com/fwojciec/docmirror"

var _ docmirror.LinkSelector = (*LinkSelector)(nil)

// LinkSelector is a mock implementation of docmirror.LinkSelector.
type LinkSelector struct {
	ExtractLinksFn func(html string, baseURL string) ([]docmirror.DiscoveredLink, error)
	NameFn         func() string
}

func (s *LinkSelector) ExtractLinks(html string, baseURL string) ([]docmirror.DiscoveredLink, error) {
	return s.ExtractLinksFn(html, baseURL)
}

func (s *LinkSelector) Name() string {
	return s.NameFn()
}

var _ docmirror.FrameworkDetector = (*FrameworkDetector)(nil)

// FrameworkDetector is a mock implementation of docmirror.FrameworkDetector.
type FrameworkDetector struct {
	DetectFn func(html string) docmirror.Framework
}

func (d *FrameworkDetector) Detect(html string) docmirror.Framework {
	return d.DetectFn(html)
}

var _ docmirror.LinkSelectorRegistry = (*LinkSelectorRegistry)(nil)

// LinkSelectorRegistry is a mock implementation of docmirror.LinkSelectorRegistry.
type LinkSelectorRegistry struct {
	GetFn        func(framework docmirror.Framework) docmirror.LinkSelector
	GetForHTMLFn func(html string) docmirror.LinkSelector
	RegisterFn   func(framework docmirror.Framework, selector docmirror.LinkSelector)
	ListFn       func() []docmirror.Framework
}

func (r *LinkSelectorRegistry) Get(framework docmirror.Framework) docmirror.LinkSelector {
	return r.GetFn(framework)
}

func (r *LinkSelectorRegistry) GetForHTML(html string) docmirror.LinkSelector {
	return r.GetForHTMLFn(html)
}

func (r *LinkSelectorRegistry) Register(framework docmirror.Framework, selector docmirror.LinkSelector) {
	r.RegisterFn(framework, selector)
}

func (r *LinkSelectorRegistry) List() []docmirror.Framework {
	return r.ListFn()
}
