package main

import (
	"fmt"

	"github.com/fwojciec/docmirror"
)

// Run executes the search command.
func (c *SearchCmd) Run(deps *Dependencies) error {
	results, err := deps.Search.Search(deps.Ctx, c.Query, docmirror.SearchOptions{
		Sources:  c.Source,
		Limit:    c.Limit,
		MinScore: c.MinScore,
	})
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", docmirror.ErrorMessage(err))
		return err
	}
	if len(results) == 0 {
		fmt.Fprintln(deps.Stdout, "No results.")
		return nil
	}

	fmt.Fprintln(deps.Stdout, docmirror.FormatResults(results))
	return nil
}

// Run executes the ask command.
func (c *AskCmd) Run(deps *Dependencies) error {
	answer, err := deps.Asker.Ask(deps.Ctx, c.Question, docmirror.SearchOptions{Sources: c.Source})
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", docmirror.ErrorMessage(err))
		return err
	}
	fmt.Fprintln(deps.Stdout, answer)
	return nil
}
