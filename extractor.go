package docmirror

import (
	"errors"
	"strings"
)

// ExtractResult holds the extracted content from an HTML page.
type ExtractResult struct {
	// Title is the page title extracted from metadata.
	Title string

	// ContentHTML is the main content as clean HTML, with boilerplate
	// (nav, footer, sidebar, ads) removed.
	ContentHTML string
}

// Extractor extracts main content from HTML pages, removing boilerplate.
type Extractor interface {
	Extract(html string) (*ExtractResult, error)
}

// ExtractorChain tries extractors in order and returns the first result
// with non-empty content.
type ExtractorChain []Extractor

// Extract implements Extractor.
func (c ExtractorChain) Extract(html string) (*ExtractResult, error) {
	var errs []error
	for _, e := range c {
		res, err := e.Extract(html)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if res != nil && strings.TrimSpace(res.ContentHTML) != "" {
			return res, nil
		}
	}
	if len(errs) > 0 {
		return nil, Errorf(EINVALID, "no extractor produced content: %v", errors.Join(errs...))
	}
	return nil, Errorf(EINVALID, "no extractor produced content")
}
