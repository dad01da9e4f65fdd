package goquery

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/docmirror"
)

var _ docmirror.Extractor = (*SchemaExtractor)(nil)

// Schema describes where a site keeps its title and main content.
type Schema struct {
	Title   string   `toml:"title"`
	Content string   `toml:"content"`
	Remove  []string `toml:"remove"`
}

// SchemaExtractor extracts content using a site-specific Schema instead of
// heuristics.
type SchemaExtractor struct {
	Schema Schema
}

// NewSchemaExtractor creates a SchemaExtractor. The title selector defaults
// to "h1".
func NewSchemaExtractor(schema Schema) *SchemaExtractor {
	if schema.Title == "" {
		schema.Title = "h1"
	}
	return &SchemaExtractor{Schema: schema}
}

// Extract returns the HTML of every element matched by the content
// selector, in document order. Returns EINVALID when the content selector
// matches nothing.
func (e *SchemaExtractor) Extract(html string) (*docmirror.ExtractResult, error) {
	if e.Schema.Content == "" {
		return nil, docmirror.Errorf(docmirror.EINVALID, "schema has no content selector")
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, docmirror.Errorf(docmirror.EINVALID, "failed to parse HTML: %v", err)
	}

	content := doc.Find(e.Schema.Content)
	if content.Length() == 0 {
		return nil, docmirror.Errorf(docmirror.EINVALID, "content selector %q matched nothing", e.Schema.Content)
	}
	if len(e.Schema.Remove) > 0 {
		content.Find(strings.Join(e.Schema.Remove, ", ")).Remove()
	}

	var sb strings.Builder
	var renderErr error
	content.Each(func(_ int, sel *goquery.Selection) {
		h, err := goquery.OuterHtml(sel)
		if err != nil {
			renderErr = err
			return
		}
		sb.WriteString(h)
	})
	if renderErr != nil {
		return nil, docmirror.Errorf(docmirror.EINVALID, "failed to render content: %v", renderErr)
	}

	title := strings.TrimSpace(doc.Find(e.Schema.Title).First().Text())
	if title == "" {
		title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	return &docmirror.ExtractResult{
		Title:       strings.Join(strings.Fields(title), " "),
		ContentHTML: sb.String(),
	}, nil
}

// NewSchemaExtractors builds one extractor per named schema.
func NewSchemaExtractors(schemas map[string]Schema) map[string]docmirror.Extractor {
	m := make(map[string]docmirror.Extractor, len(schemas))
	for name, s := range schemas {
		m[name] = NewSchemaExtractor(s)
	}
	return m
}
