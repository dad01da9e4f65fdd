package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/fwojciec/docmirror"
	"github.com/fwojciec/docmirror/schedule"
	"github.com/fwojciec/docmirror/sqlite"
	"github.com/fwojciec/docmirror/toml"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := NewMain()

	err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	if cerr := m.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Main represents the program.
type Main struct {
	// Config is loaded by Run unless set beforehand.
	Config *toml.Config

	// SQLite database used by SQLite service implementations.
	DB *sqlite.DB

	// Scheduler runs update jobs for serve and update.
	Scheduler *schedule.Scheduler

	closers []func() error
}

// NewMain returns a new instance of Main.
func NewMain() *Main {
	return &Main{}
}

// Close stops running jobs and releases resources in reverse order of
// acquisition.
func (m *Main) Close() error {
	if m.Scheduler != nil {
		m.Scheduler.Stop()
		m.Scheduler = nil
	}
	var errs []error
	for i := len(m.closers) - 1; i >= 0; i-- {
		errs = append(errs, m.closers[i]())
	}
	m.closers = nil
	if m.DB != nil {
		errs = append(errs, m.DB.Close())
		m.DB = nil
	}
	return errors.Join(errs...)
}

func (m *Main) onClose(fn func() error) {
	m.closers = append(m.closers, fn)
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	deps := &Dependencies{
		Ctx:    ctx,
		Stdout: stdout,
		Stderr: stderr,
	}

	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("docmirror"),
		kong.Description("Mirror, index and search documentation sites."),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}),
		kong.Bind(deps),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		return fmt.Errorf("no command specified. Run 'docmirror --help' to see available commands")
	}
	if args[0] == "help" || args[0] == "--help" || args[0] == "-h" {
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}
	cmd := strings.Fields(kongCtx.Command())[0]

	if err := toml.LoadEnv(); err != nil {
		return err
	}
	if m.Config == nil {
		cfg, err := toml.Load(cli.Config)
		if err != nil {
			fmt.Fprintf(stderr, "Hint: Set %s or pass --config to use a different config file\n", toml.EnvConfig)
			return fmt.Errorf("failed to load config: %w", err)
		}
		m.Config = cfg
	}
	if err := os.MkdirAll(m.Config.DataDir, 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	m.DB = sqlite.NewDB(m.Config.DBPath())
	if err := m.DB.Open(); err != nil {
		fmt.Fprintf(stderr, "Hint: Set %s to use a different database path\n", toml.EnvDB)
		return fmt.Errorf("failed to open database at %q: %w", m.Config.DBPath(), err)
	}

	deps.Config = m.Config
	deps.Logger = newLogger(stderr, cli.Debug)
	deps.Sources = sqlite.NewSourceService(m.DB)
	deps.Jobs = sqlite.NewJobService(m.DB)

	w := &wiring{cfg: m.Config, db: m.DB, logger: deps.Logger, debug: cli.Debug, onClose: m.onClose}

	switch cmd {
	case "serve", "update":
		p, _, err := w.pipeline(ctx, deps.Sources)
		if err != nil {
			return err
		}
		m.Scheduler = w.scheduler(p, deps.Sources, deps.Jobs)
		deps.Scheduler = m.Scheduler
		deps.Updates = m.Scheduler
		if cmd == "serve" {
			if err := w.readPath(ctx, deps); err != nil {
				return err
			}
		}
	case "status", "disable":
		// Neither command runs jobs.
		m.Scheduler = w.scheduler(nil, deps.Sources, deps.Jobs)
		deps.Updates = m.Scheduler
	case "rebuild":
		_, ix, err := w.pipeline(ctx, deps.Sources)
		if err != nil {
			return err
		}
		deps.Rebuilder = ix
	case "search":
		if err := w.readPath(ctx, deps); err != nil {
			return err
		}
	case "ask":
		if m.Config.APIKey == "" {
			fmt.Fprintf(stderr, "%s environment variable not set. Get an API key at https://aistudio.google.com/apikey\n", toml.EnvAPIKey)
			return docmirror.Errorf(docmirror.EINVALID, "%s not set", toml.EnvAPIKey)
		}
		if err := w.readPath(ctx, deps); err != nil {
			return err
		}
	}

	return kongCtx.Run(deps)
}

// newLogger logs at Info level, or Debug with debug set, to w.
func newLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
