package main

import (
	"fmt"
	"time"

	"github.com/fwojciec/docmirror"
	"github.com/fwojciec/docmirror/discover"
)

// Run executes the discover command.
func (c *DiscoverCmd) Run(deps *Dependencies) error {
	d := &discover.Discoverer{Priorities: deps.Config.Priorities}
	sources, rejected := d.Resolve(deps.Config.Sources)

	for _, r := range rejected {
		fmt.Fprintf(deps.Stderr, "skipping %q (%s): %s\n", r.Candidate.Name, r.Reason, docmirror.ErrorMessage(r.Err))
	}
	if len(sources) == 0 {
		fmt.Fprintln(deps.Stdout, "No sources configured. Add [[sources]] entries to the config file.")
		return nil
	}

	if c.DryRun {
		for _, s := range sources {
			fmt.Fprintf(deps.Stdout, "%-20s  %3d  %s\n", s.Name, s.Priority, s.BaseURL)
		}
		return nil
	}

	res, err := discover.Sync(deps.Ctx, deps.Sources, sources)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", docmirror.ErrorMessage(err))
		return err
	}
	for _, name := range res.Created {
		fmt.Fprintf(deps.Stdout, "added     %s\n", name)
	}
	for _, name := range res.Updated {
		fmt.Fprintf(deps.Stdout, "updated   %s\n", name)
	}
	for _, name := range res.Disabled {
		fmt.Fprintf(deps.Stdout, "disabled  %s\n", name)
	}
	for _, r := range res.Skipped {
		fmt.Fprintf(deps.Stderr, "skipping %q (%s): %s\n", r.Candidate.Name, r.Reason, docmirror.ErrorMessage(r.Err))
	}
	return nil
}

// Run executes the status command.
func (c *StatusCmd) Run(deps *Dependencies) error {
	states, err := deps.Updates.Status(deps.Ctx)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", docmirror.ErrorMessage(err))
		return err
	}
	if len(states) == 0 {
		fmt.Fprintln(deps.Stdout, "No sources found. Use 'docmirror discover' to register them.")
		return nil
	}

	for _, st := range states {
		state := string(st.State)
		if st.Source.Disabled {
			state = "disabled"
		}
		last := "never"
		if !st.LastRun().IsZero() {
			last = st.LastRun().Local().Format(time.DateTime)
		}
		result := ""
		if st.Last != nil {
			result = string(st.Last.State)
			if st.Last.Summary != nil && st.Last.Summary.Version != "" {
				result += " " + st.Last.Summary.Version
			}
		}
		fmt.Fprintf(deps.Stdout, "%-20s  %-8s  %-19s  %s\n", st.Source.Name, state, last, result)
	}
	return nil
}

// Run executes the jobs command.
func (c *JobsCmd) Run(deps *Dependencies) error {
	filter := docmirror.JobFilter{Limit: c.Limit}
	if c.Source != "" {
		source, err := docmirror.FindSourceByName(deps.Ctx, deps.Sources, c.Source)
		if err != nil {
			fmt.Fprintf(deps.Stderr, "error: %s\n", docmirror.ErrorMessage(err))
			return err
		}
		filter.SourceID = &source.ID
	}

	jobs, err := deps.Jobs.FindJobs(deps.Ctx, filter)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", docmirror.ErrorMessage(err))
		return err
	}
	if len(jobs) == 0 {
		fmt.Fprintln(deps.Stdout, "No jobs found.")
		return nil
	}
	for _, job := range jobs {
		fmt.Fprintf(deps.Stdout, "%s  %-20s  %-9s  %s\n",
			job.ID, job.SourceName, job.State, job.StartedAt.Local().Format(time.DateTime))
	}
	return nil
}

// Run executes the disable command.
func (c *DisableCmd) Run(deps *Dependencies) error {
	source, err := deps.Updates.Disable(deps.Ctx, c.Name)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", docmirror.ErrorMessage(err))
		return err
	}
	fmt.Fprintf(deps.Stdout, "Disabled source %q\n", source.Name)
	return nil
}
