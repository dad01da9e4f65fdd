// Package htmltomarkdown converts extracted page HTML into markdown.
package htmltomarkdown

import (
	"net/url"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/fwojciec/docmirror"
)

var _ docmirror.Converter = (*Converter)(nil)

// Converter wraps html-to-markdown with the CommonMark and table plugins.
type Converter struct {
	conv *converter.Converter
}

// NewConverter creates a new Converter.
func NewConverter() *Converter {
	conv := converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(
				commonmark.WithHeadingStyle(commonmark.HeadingStyleATX),
				commonmark.WithCodeBlockFence("```"),
			),
			table.NewTablePlugin(),
		),
	)
	return &Converter{conv: conv}
}

// Convert transforms HTML into markdown. Links and images are made
// absolute using the scheme and host of pageURL.
func (c *Converter) Convert(html string, pageURL string) (string, error) {
	if strings.TrimSpace(html) == "" {
		return "", docmirror.Errorf(docmirror.EINVALID, "empty HTML input")
	}

	var opts []converter.ConvertOptionFunc
	if u, err := url.Parse(pageURL); err == nil && u.Host != "" {
		opts = append(opts, converter.WithDomain(u.Scheme+"://"+u.Host))
	}

	md, err := c.conv.ConvertString(html, opts...)
	if err != nil {
		return "", docmirror.Errorf(docmirror.EINVALID, "convert HTML: %v", err)
	}
	if strings.TrimSpace(md) == "" {
		return "", docmirror.Errorf(docmirror.EINVALID, "HTML has no convertible content")
	}
	return md, nil
}
