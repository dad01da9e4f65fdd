package goquery

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/docmirror"
)

var _ docmirror.Cleaner = (*Cleaner)(nil)

// DefaultRemoveSelectors lists markup that never carries documentation
// content.
var DefaultRemoveSelectors = []string{
	"script", "style", "noscript", "template",
	"nav", "header", "footer", "aside",
	"form", "svg", "iframe",
	"[role=navigation]", "[aria-hidden=true]",
}

// Cleaner strips non-content markup from extracted HTML.
type Cleaner struct {
	Remove []string
}

// NewCleaner creates a Cleaner that removes DefaultRemoveSelectors.
func NewCleaner() *Cleaner {
	return &Cleaner{Remove: DefaultRemoveSelectors}
}

// Clean returns html without the elements matched by Remove and without
// comments. Returns EINVALID if nothing but whitespace remains.
func (c *Cleaner) Clean(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", docmirror.Errorf(docmirror.EINVALID, "failed to parse HTML: %v", err)
	}

	if len(c.Remove) > 0 {
		doc.Find(strings.Join(c.Remove, ", ")).Remove()
	}
	removeComments(doc.Selection)

	body := doc.Find("body")
	if strings.TrimSpace(body.Text()) == "" && body.Find("img, pre, table").Length() == 0 {
		return "", docmirror.Errorf(docmirror.EINVALID, "no content left after cleaning")
	}
	out, err := body.Html()
	if err != nil {
		return "", docmirror.Errorf(docmirror.EINVALID, "failed to render HTML: %v", err)
	}
	return strings.TrimSpace(out), nil
}

func removeComments(s *goquery.Selection) {
	s.Contents().Each(func(_ int, child *goquery.Selection) {
		if goquery.NodeName(child) == "#comment" {
			child.Remove()
			return
		}
		removeComments(child)
	})
}
