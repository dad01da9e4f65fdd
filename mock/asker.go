package mock

import (
	"context"

	"github.com/fwojciec/docmirror"
)

var _ docmirror.Asker = (*Asker)(nil)

// Asker is a mock implementation of docmirror.Asker.
type Asker struct {
	AskFn func(ctx context.Context, question string, opts docmirror.SearchOptions) (string, error)
}

func (a *Asker) Ask(ctx context.Context, question string, opts docmirror.SearchOptions) (string, error) {
	return a.AskFn(ctx, question, opts)
}
