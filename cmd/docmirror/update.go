package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/fwojciec/docmirror"
)

// pollInterval is how often update checks on the jobs it waits for.
var pollInterval = 250 * time.Millisecond

// Run executes the update command. It waits for the started jobs unless
// Detach is set, and fails if any job failed or could not start.
func (c *UpdateCmd) Run(deps *Dependencies) error {
	jobs, triggerErr := deps.Updates.Trigger(deps.Ctx, c.Name)
	if triggerErr != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", docmirror.ErrorMessage(triggerErr))
		if len(jobs) == 0 {
			return triggerErr
		}
	}
	if len(jobs) == 0 {
		fmt.Fprintln(deps.Stdout, "No enabled sources to update.")
		return nil
	}
	if c.Detach {
		for _, job := range jobs {
			fmt.Fprintf(deps.Stdout, "started %s  %s\n", job.SourceName, job.ID)
		}
		return triggerErr
	}

	failed := 0
	for _, job := range jobs {
		done, err := waitJob(deps, job.ID)
		if err != nil {
			fmt.Fprintf(deps.Stderr, "error: %s\n", docmirror.ErrorMessage(err))
			return err
		}
		printJob(deps, done)
		if done.State == docmirror.JobFailed {
			failed++
		}
	}
	if failed > 0 {
		return docmirror.Errorf(docmirror.EINTERNAL, "%d of %d updates failed", failed, len(jobs))
	}
	return triggerErr
}

func waitJob(deps *Dependencies, id string) (*docmirror.Job, error) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		job, err := deps.Updates.Job(deps.Ctx, id)
		if err != nil {
			return nil, err
		}
		if job.Done() {
			return job, nil
		}
		select {
		case <-deps.Ctx.Done():
			return nil, deps.Ctx.Err()
		case <-ticker.C:
		}
	}
}

func printJob(deps *Dependencies, job *docmirror.Job) {
	if job.State == docmirror.JobFailed {
		fmt.Fprintf(deps.Stdout, "%s: failed: %s\n", job.SourceName, job.Error)
		return
	}
	s := job.Summary
	if s == nil {
		fmt.Fprintf(deps.Stdout, "%s: %s\n", job.SourceName, job.State)
		return
	}
	fmt.Fprintf(deps.Stdout, "%s: version %s, %d pages (%d unchanged, %d failed), %d chunks embedded, %d skipped, %d deleted\n",
		job.SourceName, s.Version, s.PagesFetched, s.PagesUnchanged, s.PagesFailed,
		s.ChunksChanged, s.ChunksSkipped, s.ChunksDeleted)
	if s.ChunksDeferred > 0 {
		fmt.Fprintf(deps.Stdout, "  %d chunks deferred to the next run\n", s.ChunksDeferred)
	}
	for _, f := range s.Failures {
		fmt.Fprintf(deps.Stdout, "  %s %s: %s\n", f.Stage, f.URL, strings.TrimSpace(f.Message))
	}
}

// Run executes the rebuild command.
func (c *RebuildCmd) Run(deps *Dependencies) error {
	source, err := docmirror.FindSourceByName(deps.Ctx, deps.Sources, c.Name)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", docmirror.ErrorMessage(err))
		return err
	}
	res, err := deps.Rebuilder.Rebuild(deps.Ctx, source)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", docmirror.ErrorMessage(err))
		return err
	}
	fmt.Fprintf(deps.Stdout, "Rebuilt %q from version %s: %d chunks embedded, %d deferred\n",
		source.Name, res.Version, res.Changed, res.Deferred)
	return nil
}
