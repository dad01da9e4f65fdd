package mock

import "github.com/fwojciec/docmirror"

var _ docmirror.Chunker = (*Chunker)(nil)

// Chunker is a mock implementation of docmirror.Chunker.
type Chunker struct {
	SplitFn func(markdown string) ([]docmirror.Passage, error)
}

func (c *Chunker) Split(markdown string) ([]docmirror.Passage, error) {
	return c.SplitFn(markdown)
}
