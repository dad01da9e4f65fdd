// Package schedule runs update jobs for sources, on demand or on a cadence,
// with at most one job per source at a time.
package schedule

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/fwojciec/docmirror"
	"golang.org/x/sync/errgroup"
)

// All names every enabled source in Trigger.
const All = "all"

// Default timing values.
const (
	DefaultCadence  = 24 * time.Hour
	DefaultInterval = time.Minute
)

// errInterrupted is recorded on jobs left running by a previous process.
const errInterrupted = "interrupted before completion"

var _ docmirror.UpdateService = (*Scheduler)(nil)

// Scheduler starts update jobs and tracks the running ones. The zero value
// with Runner, Sources and Jobs set is usable; NewScheduler also sets the
// default timing.
type Scheduler struct {
	Runner  docmirror.Runner
	Sources docmirror.SourceService
	Jobs    docmirror.JobService

	// Cadence is the age after which a source's last run is stale.
	Cadence time.Duration

	// Interval is how often Start looks for stale sources.
	Interval time.Duration

	Logger *slog.Logger
	Now    func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	entries map[string]*entry
}

// entry holds the running job of one source.
type entry struct {
	mu     sync.Mutex
	job    *docmirror.Job
	cancel context.CancelFunc
}

// NewScheduler returns a Scheduler with default timing.
func NewScheduler(runner docmirror.Runner, sources docmirror.SourceService, jobs docmirror.JobService) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		Runner:   runner,
		Sources:  sources,
		Jobs:     jobs,
		Cadence:  DefaultCadence,
		Interval: DefaultInterval,
		ctx:      ctx,
		cancel:   cancel,
		entries:  make(map[string]*entry),
	}
}

// Trigger starts an update of the named source, or of every enabled source
// when name is All. A source that already has a running job returns that
// job instead of starting another. Triggering a disabled source by name
// returns EINVALID. With All, the jobs that started are returned alongside
// the joined errors of the sources that could not start.
func (s *Scheduler) Trigger(ctx context.Context, name string) ([]*docmirror.Job, error) {
	if name != All {
		source, err := docmirror.FindSourceByName(ctx, s.Sources, name)
		if err != nil {
			return nil, err
		}
		job, err := s.trigger(ctx, source)
		if err != nil {
			return nil, err
		}
		return []*docmirror.Job{job}, nil
	}

	enabled := false
	sources, err := s.Sources.FindSources(ctx, docmirror.SourceFilter{Disabled: &enabled})
	if err != nil {
		return nil, err
	}
	jobs := make([]*docmirror.Job, len(sources))
	errs := make([]error, len(sources))
	var g errgroup.Group
	for i, source := range sources {
		g.Go(func() error {
			jobs[i], errs[i] = s.trigger(ctx, source)
			return nil
		})
	}
	_ = g.Wait()
	started := slices.DeleteFunc(jobs, func(j *docmirror.Job) bool { return j == nil })
	if err := errors.Join(errs...); err != nil {
		s.logger().Error("trigger all", "started", len(started), "sources", len(sources), "err", err)
		return started, err
	}
	return started, nil
}

func (s *Scheduler) trigger(ctx context.Context, source *docmirror.Source) (*docmirror.Job, error) {
	e := s.entry(source.ID)
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.job != nil {
		job := *e.job
		return &job, nil
	}
	if source.Disabled {
		return nil, docmirror.Errorf(docmirror.EINVALID, "source %q is disabled", source.Name)
	}
	base := s.baseContext()
	if err := base.Err(); err != nil {
		return nil, docmirror.Errorf(docmirror.EUNAVAILABLE, "scheduler stopped")
	}

	job := &docmirror.Job{
		SourceID:   source.ID,
		SourceName: source.Name,
		StartedAt:  s.now().UTC(),
	}
	if err := s.Jobs.CreateJob(ctx, job); err != nil {
		return nil, err
	}

	jobCtx, cancel := context.WithCancel(base)
	e.job = job
	e.cancel = cancel
	s.wg.Add(1)
	go s.run(jobCtx, e, source)

	s.logger().Info("job started", "source", source.Name, "job", job.ID)
	started := *job
	return &started, nil
}

// run executes the job held by e and records its outcome.
func (s *Scheduler) run(ctx context.Context, e *entry, source *docmirror.Source) {
	defer s.wg.Done()

	summary, err := s.Runner.Run(ctx, source)

	e.mu.Lock()
	defer e.mu.Unlock()
	job := e.job
	job.EndedAt = s.now().UTC()
	job.Summary = summary
	job.State = docmirror.JobSucceeded
	if err != nil {
		job.State = docmirror.JobFailed
		job.Error = err.Error()
	}
	if ferr := s.Jobs.FinishJob(context.WithoutCancel(ctx), job); ferr != nil {
		s.logger().Error("record job", "source", source.Name, "job", job.ID, "err", ferr)
	}
	e.cancel()
	e.job = nil
	e.cancel = nil

	s.logger().Info("job finished",
		"source", source.Name,
		"job", job.ID,
		"state", job.State,
		"duration", job.EndedAt.Sub(job.StartedAt),
		"err", err,
	)
}

// Job returns the job with the given ID. Running jobs are served from the
// registry, finished ones from the job store.
func (s *Scheduler) Job(ctx context.Context, id string) (*docmirror.Job, error) {
	if job := s.running(func(j *docmirror.Job) bool { return j.ID == id }); job != nil {
		return job, nil
	}
	return s.Jobs.FindJobByID(ctx, id)
}

// Status returns the update state of every source, disabled ones included.
func (s *Scheduler) Status(ctx context.Context) ([]*docmirror.SourceState, error) {
	sources, err := s.Sources.FindSources(ctx, docmirror.SourceFilter{})
	if err != nil {
		return nil, err
	}
	states := make([]*docmirror.SourceState, 0, len(sources))
	for _, source := range sources {
		st := &docmirror.SourceState{Source: source, State: docmirror.JobIdle}
		if job := s.current(source.ID); job != nil {
			st.State = docmirror.JobRunning
			st.Current = job
		}
		last, err := s.lastFinished(ctx, source.ID)
		if err != nil {
			return nil, err
		}
		st.Last = last
		states = append(states, st)
	}
	return states, nil
}

func (s *Scheduler) lastFinished(ctx context.Context, sourceID string) (*docmirror.Job, error) {
	jobs, err := s.Jobs.FindJobs(ctx, docmirror.JobFilter{SourceID: &sourceID, Limit: 2})
	if err != nil {
		return nil, err
	}
	for _, job := range jobs {
		if job.Done() {
			return job, nil
		}
	}
	return nil, nil
}

// Disable marks the named source disabled and cancels its running job. The
// job observes cancellation at its next checkpoint.
func (s *Scheduler) Disable(ctx context.Context, name string) (*docmirror.Source, error) {
	source, err := docmirror.FindSourceByName(ctx, s.Sources, name)
	if err != nil {
		return nil, err
	}
	disabled := true
	source, err = s.Sources.UpdateSource(ctx, source.ID, docmirror.SourceUpdate{Disabled: &disabled})
	if err != nil {
		return nil, err
	}

	e := s.entry(source.ID)
	e.mu.Lock()
	if e.cancel != nil {
		e.cancel()
		s.logger().Info("job canceled", "source", source.Name, "job", e.job.ID)
	}
	e.mu.Unlock()
	return source, nil
}

// Recover marks jobs left running by a previous process as failed and
// returns how many it found. Call it before Start.
func (s *Scheduler) Recover(ctx context.Context) (int, error) {
	state := docmirror.JobRunning
	jobs, err := s.Jobs.FindJobs(ctx, docmirror.JobFilter{State: &state})
	if err != nil {
		return 0, err
	}
	n := 0
	for _, job := range jobs {
		if s.current(job.SourceID) != nil {
			continue
		}
		job.State = docmirror.JobFailed
		job.EndedAt = s.now().UTC()
		job.Error = errInterrupted
		if err := s.Jobs.FinishJob(ctx, job); err != nil {
			return n, err
		}
		n++
	}
	if n > 0 {
		s.logger().Warn("recovered interrupted jobs", "count", n)
	}
	return n, nil
}

// Start triggers every enabled source whose last run is older than Cadence,
// then checks again every Interval. It blocks until ctx is done or Stop is
// called.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.Cadence <= 0 {
		return docmirror.Errorf(docmirror.EINVALID, "cadence must be positive")
	}
	interval := s.Interval
	if interval <= 0 {
		interval = s.Cadence
	}

	base := s.baseContext()
	s.triggerDue(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-base.Done():
			return nil
		case <-ticker.C:
			s.triggerDue(ctx)
		}
	}
}

func (s *Scheduler) triggerDue(ctx context.Context) {
	due, err := s.Due(ctx)
	if err != nil {
		s.logger().Error("find due sources", "err", err)
		return
	}
	for _, source := range due {
		if _, err := s.trigger(ctx, source); err != nil {
			s.logger().Error("trigger", "source", source.Name, "err", err)
		}
	}
}

// Due returns the enabled sources whose last run started more than Cadence
// ago, or that never ran.
func (s *Scheduler) Due(ctx context.Context) ([]*docmirror.Source, error) {
	enabled := false
	sources, err := s.Sources.FindSources(ctx, docmirror.SourceFilter{Disabled: &enabled})
	if err != nil {
		return nil, err
	}
	now := s.now()
	var due []*docmirror.Source
	for _, source := range sources {
		if s.current(source.ID) != nil {
			continue
		}
		jobs, err := s.Jobs.FindJobs(ctx, docmirror.JobFilter{SourceID: &source.ID, Limit: 1})
		if err != nil {
			return nil, err
		}
		if len(jobs) == 0 || now.Sub(jobs[0].StartedAt) >= s.Cadence {
			due = append(due, source)
		}
	}
	return due, nil
}

// Wait blocks until no job is running.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// Stop cancels running jobs, refuses new ones and waits for the running
// ones to record their outcome.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.lazyInit()
	cancel := s.cancel
	s.mu.Unlock()

	cancel()
	s.wg.Wait()
}

// baseContext returns the context jobs run under. Stop cancels it.
func (s *Scheduler) baseContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lazyInit()
	return s.ctx
}

// lazyInit creates the base context and job registry of a Scheduler built
// without NewScheduler. s.mu must be held.
func (s *Scheduler) lazyInit() {
	if s.ctx == nil {
		s.ctx, s.cancel = context.WithCancel(context.Background())
	}
	if s.entries == nil {
		s.entries = make(map[string]*entry)
	}
}

func (s *Scheduler) entry(sourceID string) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lazyInit()
	e, ok := s.entries[sourceID]
	if !ok {
		e = &entry{}
		s.entries[sourceID] = e
	}
	return e
}

// current returns a copy of the running job of a source, or nil.
func (s *Scheduler) current(sourceID string) *docmirror.Job {
	s.mu.Lock()
	e, ok := s.entries[sourceID]
	s.mu.Unlock()
	if !ok {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.job == nil {
		return nil
	}
	job := *e.job
	return &job
}

// running returns a copy of the first running job matching fn, or nil.
func (s *Scheduler) running(fn func(*docmirror.Job) bool) *docmirror.Job {
	s.mu.Lock()
	entries := make([]*entry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, e)
	}
	s.mu.Unlock()

	for _, e := range entries {
		e.mu.Lock()
		if e.job != nil && fn(e.job) {
			job := *e.job
			e.mu.Unlock()
			return &job
		}
		e.mu.Unlock()
	}
	return nil
}

func (s *Scheduler) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func (s *Scheduler) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
