package docmirror

import (
	"context"
	"time"
)

// JobState is the lifecycle state of an update job.
type JobState string

// Job states. A job starts Running and ends Succeeded or Failed. JobIdle
// describes a source with no running job and is never stored on a job.
const (
	JobIdle      JobState = "idle"
	JobRunning   JobState = "running"
	JobSucceeded JobState = "succeeded"
	JobFailed    JobState = "failed"
)

// Job is one update run of one source.
type Job struct {
	ID         string      `json:"id"`
	SourceID   string      `json:"sourceId"`
	SourceName string      `json:"sourceName"`
	State      JobState    `json:"state"`
	StartedAt  time.Time   `json:"startedAt"`
	EndedAt    time.Time   `json:"endedAt,omitzero"`
	Summary    *RunSummary `json:"summary,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// Done reports whether the job has finished.
func (j *Job) Done() bool {
	return j.State == JobSucceeded || j.State == JobFailed
}

// RunSummary counts what a run did. Page and chunk failures land here
// rather than failing the job.
type RunSummary struct {
	Version        string        `json:"version,omitempty"`
	PagesFetched   int           `json:"pagesFetched"`
	PagesFailed    int           `json:"pagesFailed"`
	PagesUnchanged int           `json:"pagesUnchanged"`
	PagesRetried   int           `json:"pagesRetried"`
	PagesCarried   int           `json:"pagesCarried"`
	ChunksChanged  int           `json:"chunksChanged"`
	ChunksSkipped  int           `json:"chunksSkipped"`
	ChunksDeferred int           `json:"chunksDeferred"`
	ChunksDeleted  int           `json:"chunksDeleted"`
	EmbeddingCalls int           `json:"embeddingCalls"`
	Retries        int           `json:"retries"`
	Tokens         int           `json:"tokens,omitempty"`
	Failures       []PageFailure `json:"failures,omitempty"`
}

// JobService persists update jobs.
type JobService interface {
	// CreateJob records a new running job. The ID is generated.
	CreateJob(ctx context.Context, job *Job) error

	// FinishJob records the final state, summary and error of a job.
	// Returns ENOTFOUND if job does not exist.
	FinishJob(ctx context.Context, job *Job) error

	// FindJobByID retrieves a job by ID.
	// Returns ENOTFOUND if job does not exist.
	FindJobByID(ctx context.Context, id string) (*Job, error)

	// FindJobs retrieves jobs matching the filter, newest first.
	FindJobs(ctx context.Context, filter JobFilter) ([]*Job, error)
}

// JobFilter represents a filter for FindJobs.
type JobFilter struct {
	SourceID *string   `json:"sourceId"`
	State    *JobState `json:"state"`

	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// Runner executes the write path (fetch, normalize, index) for one source.
type Runner interface {
	Run(ctx context.Context, source *Source) (*RunSummary, error)
}

// SourceState reports where a source stands with respect to updates.
type SourceState struct {
	Source *Source  `json:"source"`
	State  JobState `json:"state"`

	// Current is the running job, if any.
	Current *Job `json:"current,omitempty"`

	// Last is the most recent finished job, if any.
	Last *Job `json:"last,omitempty"`
}

// LastRun returns when the last finished job started, or the zero time.
func (st *SourceState) LastRun() time.Time {
	if st.Last == nil {
		return time.Time{}
	}
	return st.Last.StartedAt
}

// UpdateService starts and tracks update jobs.
type UpdateService interface {
	// Trigger starts an update of the named source, or of every enabled
	// source when name is "all". A source with a running job returns that
	// job instead of starting another. With "all", the jobs that started
	// are returned even when other sources fail to start.
	Trigger(ctx context.Context, name string) ([]*Job, error)

	// Job returns a running or finished job.
	// Returns ENOTFOUND if job does not exist.
	Job(ctx context.Context, id string) (*Job, error)

	// Status reports the update state of every source.
	Status(ctx context.Context) ([]*SourceState, error)

	// Disable disables the named source and cancels its running job.
	Disable(ctx context.Context, name string) (*Source, error)
}
