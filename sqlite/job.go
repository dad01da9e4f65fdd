package sqlite

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/fwojciec/docmirror"
	"github.com/google/uuid"
)

var _ docmirror.JobService = (*JobService)(nil)

// JobService implements docmirror.JobService using SQLite.
type JobService struct {
	db *DB
}

// NewJobService creates a new JobService.
func NewJobService(db *DB) *JobService {
	return &JobService{db: db}
}

const jobColumns = `id, source_id, source_name, state, started_at, ended_at, summary, error`

// CreateJob records a new running job with a generated ID.
func (s *JobService) CreateJob(ctx context.Context, job *docmirror.Job) error {
	if job.SourceID == "" {
		return docmirror.Errorf(docmirror.EINVALID, "job source ID required")
	}
	job.ID = uuid.New().String()
	job.State = docmirror.JobRunning
	if job.StartedAt.IsZero() {
		job.StartedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO jobs (id, source_id, source_name, state, started_at)
		VALUES (?, ?, ?, ?, ?)
	`, job.ID, job.SourceID, job.SourceName, string(job.State), formatTime(job.StartedAt))
	return err
}

// FinishJob records the final state of a job.
func (s *JobService) FinishJob(ctx context.Context, job *docmirror.Job) error {
	if !job.Done() {
		return docmirror.Errorf(docmirror.EINVALID, "job %s is not finished", job.ID)
	}
	if job.EndedAt.IsZero() {
		job.EndedAt = time.Now().UTC()
	}

	var summary string
	if job.Summary != nil {
		data, err := json.Marshal(job.Summary)
		if err != nil {
			return err
		}
		summary = string(data)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE jobs SET state = ?, ended_at = ?, summary = ?, error = ?
		WHERE id = ?
	`, string(job.State), formatTime(job.EndedAt), summary, job.Error, job.ID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return docmirror.Errorf(docmirror.ENOTFOUND, "job not found")
	}
	return nil
}

// FindJobByID retrieves a job by ID.
func (s *JobService) FindJobByID(ctx context.Context, id string) (*docmirror.Job, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+jobColumns+" FROM jobs WHERE id = ?", id)
	job, err := scanJob(row)
	if docmirror.ErrorCode(err) == docmirror.ENOTFOUND {
		return nil, docmirror.Errorf(docmirror.ENOTFOUND, "job not found")
	}
	return job, err
}

// FindJobs retrieves jobs matching the filter, newest first.
func (s *JobService) FindJobs(ctx context.Context, filter docmirror.JobFilter) ([]*docmirror.Job, error) {
	var query strings.Builder
	var args []any

	query.WriteString("SELECT " + jobColumns + " FROM jobs WHERE 1=1")
	if filter.SourceID != nil {
		query.WriteString(" AND source_id = ?")
		args = append(args, *filter.SourceID)
	}
	if filter.State != nil {
		query.WriteString(" AND state = ?")
		args = append(args, string(*filter.State))
	}
	query.WriteString(" ORDER BY started_at DESC, rowid DESC")
	appendPagination(&query, &args, filter.Limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*docmirror.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func scanJob(row scanner) (*docmirror.Job, error) {
	var (
		job                docmirror.Job
		state, summary     string
		startedAt, endedAt string
	)
	if err := row.Scan(&job.ID, &job.SourceID, &job.SourceName, &state,
		&startedAt, &endedAt, &summary, &job.Error); err != nil {
		if isNoRows(err) {
			return nil, docmirror.Errorf(docmirror.ENOTFOUND, "job not found")
		}
		return nil, err
	}
	job.State = docmirror.JobState(state)
	if summary != "" {
		job.Summary = &docmirror.RunSummary{}
		if err := json.Unmarshal([]byte(summary), job.Summary); err != nil {
			return nil, err
		}
	}

	var err error
	if job.StartedAt, err = parseTime(startedAt, "started_at"); err != nil {
		return nil, err
	}
	if job.EndedAt, err = parseTime(endedAt, "ended_at"); err != nil {
		return nil, err
	}
	return &job, nil
}
