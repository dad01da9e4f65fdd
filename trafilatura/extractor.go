// Package trafilatura extracts main content with go-trafilatura. It is the
// fallback for pages whose source has no extraction schema.
package trafilatura

import (
	"bytes"
	"strings"

	"github.com/fwojciec/docmirror"
	"github.com/markusmobius/go-trafilatura"
	"golang.org/x/net/html"
)

var _ docmirror.Extractor = (*Extractor)(nil)

// Extractor finds the main content of a page and drops navigation,
// comments and other boilerplate.
type Extractor struct {
	// Precision trades recall for less boilerplate in the output.
	Precision bool
}

// NewExtractor returns an Extractor tuned for recall, since documentation
// pages rarely carry boilerplate inside the article.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract returns the title and main content of rawHTML. Pages with no
// recognizable content are EINVALID.
func (e *Extractor) Extract(rawHTML string) (*docmirror.ExtractResult, error) {
	if strings.TrimSpace(rawHTML) == "" {
		return nil, docmirror.Errorf(docmirror.EINVALID, "empty HTML input")
	}

	opts := trafilatura.Options{
		EnableFallback:  true,
		ExcludeComments: true,
		IncludeLinks:    true,
		Focus:           trafilatura.FavorRecall,
	}
	if e.Precision {
		opts.Focus = trafilatura.FavorPrecision
	}
	result, err := trafilatura.Extract(strings.NewReader(rawHTML), opts)
	if err != nil {
		return nil, docmirror.Errorf(docmirror.EINVALID, "trafilatura: %v", err)
	}
	if result.ContentNode == nil {
		return nil, docmirror.Errorf(docmirror.EINVALID, "trafilatura found no content")
	}

	var buf bytes.Buffer
	if err := html.Render(&buf, result.ContentNode); err != nil {
		return nil, err
	}
	return &docmirror.ExtractResult{
		Title:       strings.TrimSpace(result.Metadata.Title),
		ContentHTML: buf.String(),
	}, nil
}
