package main

import (
	"context"
	"io"
	"log/slog"

	"github.com/fwojciec/docmirror"
	"github.com/fwojciec/docmirror/index"
	"github.com/fwojciec/docmirror/toml"
)

// Rebuilder re-embeds the latest snapshot of a source.
type Rebuilder interface {
	Rebuild(ctx context.Context, source *docmirror.Source) (*index.Result, error)
}

// Scheduler runs update jobs in the background.
type Scheduler interface {
	Recover(ctx context.Context) (int, error)
	Start(ctx context.Context) error
}

// Dependencies holds all services and configuration for command execution.
type Dependencies struct {
	Ctx    context.Context
	Stdout io.Writer
	Stderr io.Writer
	Config *toml.Config
	Logger *slog.Logger

	Sources   docmirror.SourceService
	Jobs      docmirror.JobService
	Updates   docmirror.UpdateService
	Scheduler Scheduler
	Search    docmirror.SearchService
	Asker     docmirror.Asker
	Rebuilder Rebuilder
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	Config string `short:"c" type:"path" help:"Config file (default $DOCMIRROR_CONFIG or ~/.docmirror/config.toml)"`
	Debug  bool   `help:"Log every fetch, embedding call and store operation"`

	Discover DiscoverCmd `cmd:"" help:"Register the sources listed in the config file"`
	Update   UpdateCmd   `cmd:"" help:"Fetch and index a source now"`
	Status   StatusCmd   `cmd:"" help:"Show the update state of every source"`
	Jobs     JobsCmd     `cmd:"" help:"List recent update jobs"`
	Disable  DisableCmd  `cmd:"" help:"Disable a source and cancel its running update"`
	Rebuild  RebuildCmd  `cmd:"" help:"Re-embed the latest snapshot of a source"`
	Search   SearchCmd   `cmd:"" help:"Search indexed documentation"`
	Ask      AskCmd      `cmd:"" help:"Ask a question about indexed documentation"`
	Serve    ServeCmd    `cmd:"" help:"Serve the HTTP API and run scheduled updates"`
}

// DiscoverCmd is the "discover" subcommand.
type DiscoverCmd struct {
	DryRun bool `short:"n" help:"Show the resolved sources without storing them"`
}

// UpdateCmd is the "update" subcommand.
type UpdateCmd struct {
	Name   string `arg:"" default:"all" help:"Source name, or \"all\""`
	Detach bool   `short:"d" help:"Start the update and return without waiting"`
}

// StatusCmd is the "status" subcommand.
type StatusCmd struct{}

// JobsCmd is the "jobs" subcommand.
type JobsCmd struct {
	Source string `short:"s" help:"Only jobs of this source"`
	Limit  int    `short:"n" default:"20" help:"Maximum number of jobs"`
}

// DisableCmd is the "disable" subcommand.
type DisableCmd struct {
	Name string `arg:"" help:"Source name"`
}

// RebuildCmd is the "rebuild" subcommand.
type RebuildCmd struct {
	Name string `arg:"" help:"Source name"`
}

// SearchCmd is the "search" subcommand.
type SearchCmd struct {
	Query    string   `arg:"" help:"Search query"`
	Source   []string `short:"s" help:"Limit results to these sources (repeatable)"`
	Limit    int      `short:"n" default:"10" help:"Maximum number of results"`
	MinScore float32  `help:"Drop results scoring below this"`
}

// AskCmd is the "ask" subcommand.
type AskCmd struct {
	Question string   `arg:"" help:"Question to ask about the documentation"`
	Source   []string `short:"s" help:"Limit context to these sources (repeatable)"`
}

// ServeCmd is the "serve" subcommand.
type ServeCmd struct {
	Addr       string `help:"Listen address (default from config)"`
	NoSchedule bool   `help:"Serve the API without scheduled updates"`
}
