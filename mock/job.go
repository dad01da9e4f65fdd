package mock

import (
	"context"

	"github.com/fwojciec/docmirror"
)

var (
	_ docmirror.JobService = (*JobService)(nil)
	_ docmirror.Runner     = (*Runner)(nil)
)

// JobService is a mock implementation of docmirror.JobService.
type JobService struct {
	CreateJobFn   func(ctx context.Context, job *docmirror.Job) error
	FinishJobFn   func(ctx context.Context, job *docmirror.Job) error
	FindJobByIDFn func(ctx context.Context, id string) (*docmirror.Job, error)
	FindJobsFn    func(ctx context.Context, filter docmirror.JobFilter) ([]*docmirror.Job, error)
}

func (s *JobService) CreateJob(ctx context.Context, job *docmirror.Job) error {
	return s.CreateJobFn(ctx, job)
}

func (s *JobService) FinishJob(ctx context.Context, job *docmirror.Job) error {
	return s.FinishJobFn(ctx, job)
}

func (s *JobService) FindJobByID(ctx context.Context, id string) (*docmirror.Job, error) {
	return s.FindJobByIDFn(ctx, id)
}

func (s *JobService) FindJobs(ctx context.Context, filter docmirror.JobFilter) ([]*docmirror.Job, error) {
	return s.FindJobsFn(ctx, filter)
}

// Runner is a mock implementation of docmirror.Runner.
type Runner struct {
	RunFn func(ctx context.Context, source *docmirror.Source) (*docmirror.RunSummary, error)
}

func (r *Runner) Run(ctx context.Context, source *docmirror.Source) (*docmirror.RunSummary, error) {
	return r.RunFn(ctx, source)
}

var _ docmirror.UpdateService = (*UpdateService)(nil)

// UpdateService is a mock implementation of docmirror.UpdateService.
type UpdateService struct {
	TriggerFn func(ctx context.Context, name string) ([]*docmirror.Job, error)
	JobFn     func(ctx context.Context, id string) (*docmirror.Job, error)
	StatusFn  func(ctx context.Context) ([]*docmirror.SourceState, error)
	DisableFn func(ctx context.Context, name string) (*docmirror.Source, error)
}

func (s *UpdateService) Trigger(ctx context.Context, name string) ([]*docmirror.Job, error) {
	return s.TriggerFn(ctx, name)
}

func (s *UpdateService) Job(ctx context.Context, id string) (*docmirror.Job, error) {
	return s.JobFn(ctx, id)
}

func (s *UpdateService) Status(ctx context.Context) ([]*docmirror.SourceState, error) {
	return s.StatusFn(ctx)
}

func (s *UpdateService) Disable(ctx context.Context, name string) (*docmirror.Source, error) {
	return s.DisableFn(ctx, name)
}
