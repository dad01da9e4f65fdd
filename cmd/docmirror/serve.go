package main

import (
	"fmt"

	"github.com/fwojciec/docmirror"
	"github.com/fwojciec/docmirror/chi"
	"golang.org/x/sync/errgroup"
)

// Run executes the serve command. It serves until the context is done.
func (c *ServeCmd) Run(deps *Dependencies) error {
	srv := chi.NewServer()
	if deps.Config.Listen != "" {
		srv.Addr = deps.Config.Listen
	}
	if c.Addr != "" {
		srv.Addr = c.Addr
	}
	srv.Search = deps.Search
	srv.Sources = deps.Sources
	srv.Updates = deps.Updates
	srv.Asker = deps.Asker
	srv.Logger = deps.Logger

	if n, err := deps.Scheduler.Recover(deps.Ctx); err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", docmirror.ErrorMessage(err))
		return err
	} else if n > 0 {
		fmt.Fprintf(deps.Stderr, "Marked %d interrupted jobs as failed\n", n)
	}

	g, ctx := errgroup.WithContext(deps.Ctx)
	g.Go(func() error {
		return srv.ListenAndServe(ctx)
	})
	if !c.NoSchedule {
		g.Go(func() error {
			return deps.Scheduler.Start(ctx)
		})
	}
	return g.Wait()
}
