package mock

import "github.com/fwojciec/docmirror"

var _ docmirror.Converter = (*Converter)(nil)

// Converter is a mock implementation of docmirror.Converter.
type Converter struct {
	ConvertFn func(html string, pageURL string) (string, error)
}

func (c *Converter) Convert(html string, pageURL string) (string, error) {
	return c.ConvertFn(html, pageURL)
}

var _ docmirror.Cleaner = (*Cleaner)(nil)

// Cleaner is a mock implementation of docmirror.Cleaner.
type Cleaner struct {
	CleanFn func(html string) (string, error)
}

func (c *Cleaner) Clean(html string) (string, error) {
	return c.CleanFn(html)
}
