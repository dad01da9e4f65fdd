// Package readability extracts main content with go-readability. It backs
// up trafilatura in the extractor chain.
package readability

import (
	"strings"

	"github.com/fwojciec/docmirror"
	"github.com/go-shiori/go-readability"
)

var _ docmirror.Extractor = (*Extractor)(nil)

// Extractor applies Mozilla's Readability heuristics.
type Extractor struct{}

// NewExtractor returns an Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract returns the article of rawHTML. Pages Readability considers
// unreadable are EINVALID.
func (e *Extractor) Extract(rawHTML string) (*docmirror.ExtractResult, error) {
	if strings.TrimSpace(rawHTML) == "" {
		return nil, docmirror.Errorf(docmirror.EINVALID, "empty HTML input")
	}
	if !readability.Check(strings.NewReader(rawHTML)) {
		return nil, docmirror.Errorf(docmirror.EINVALID, "page is not readable")
	}

	article, err := readability.FromReader(strings.NewReader(rawHTML), nil)
	if err != nil {
		return nil, docmirror.Errorf(docmirror.EINVALID, "readability: %v", err)
	}
	return &docmirror.ExtractResult{
		Title:       strings.TrimSpace(article.Title),
		ContentHTML: article.Content,
	}, nil
}
