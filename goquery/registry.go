package goquery

import (
	"slices"

	"github.com/fwojciec/docmirror"
)

var _ docmirror.LinkSelectorRegistry = (*Registry)(nil)

// Registry maps detected frameworks to link selectors, falling back to a
// generic selector for unknown or unregistered frameworks.
type Registry struct {
	detector  docmirror.FrameworkDetector
	fallback  docmirror.LinkSelector
	selectors map[docmirror.Framework]docmirror.LinkSelector
}

// NewRegistry creates an empty Registry.
func NewRegistry(detector docmirror.FrameworkDetector, fallback docmirror.LinkSelector) *Registry {
	return &Registry{
		detector:  detector,
		fallback:  fallback,
		selectors: make(map[docmirror.Framework]docmirror.LinkSelector),
	}
}

// NewDefaultRegistry creates a Registry with the built-in Detector, a
// selector for every known framework and the generic fallback.
func NewDefaultRegistry() *Registry {
	r := NewRegistry(NewDetector(), NewGenericSelector())
	for fw := range frameworkRules {
		r.Register(fw, NewFrameworkSelector(fw))
	}
	return r
}

// Get returns the selector registered for framework, or nil.
func (r *Registry) Get(framework docmirror.Framework) docmirror.LinkSelector {
	return r.selectors[framework]
}

// GetForHTML detects the framework of html and returns its selector or the
// fallback.
func (r *Registry) GetForHTML(html string) docmirror.LinkSelector {
	if selector, ok := r.selectors[r.detector.Detect(html)]; ok {
		return selector
	}
	return r.fallback
}

// Register adds or replaces the selector for framework.
func (r *Registry) Register(framework docmirror.Framework, selector docmirror.LinkSelector) {
	r.selectors[framework] = selector
}

// List returns the registered frameworks in sorted order.
func (r *Registry) List() []docmirror.Framework {
	frameworks := make([]docmirror.Framework, 0, len(r.selectors))
	for f := range r.selectors {
		frameworks = append(frameworks, f)
	}
	slices.Sort(frameworks)
	return frameworks
}
