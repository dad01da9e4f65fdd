package schedule_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fwojciec/docmirror"
	"github.com/fwojciec/docmirror/mock"
	"github.com/fwojciec/docmirror/schedule"
	"github.com/fwojciec/docmirror/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	scheduler *schedule.Scheduler
	sources   *sqlite.SourceService
	jobs      *sqlite.JobService
	runner    *mock.Runner
}

func newHarness(t *testing.T, run func(ctx context.Context, source *docmirror.Source) (*docmirror.RunSummary, error)) *harness {
	t.Helper()

	db := sqlite.NewDB(":memory:")
	require.NoError(t, db.Open())
	t.Cleanup(func() { db.Close() })

	h := &harness{
		sources: sqlite.NewSourceService(db),
		jobs:    sqlite.NewJobService(db),
		runner:  &mock.Runner{RunFn: run},
	}
	h.scheduler = schedule.NewScheduler(h.runner, h.sources, h.jobs)
	t.Cleanup(h.scheduler.Stop)
	return h
}

func (h *harness) addSource(t *testing.T, name string, disabled bool) *docmirror.Source {
	t.Helper()

	s := &docmirror.Source{Name: name, BaseURL: "https://" + name + ".dev/docs", Disabled: disabled}
	require.NoError(t, h.sources.CreateSource(context.Background(), s))
	return s
}

func succeed(context.Context, *docmirror.Source) (*docmirror.RunSummary, error) {
	return &docmirror.RunSummary{PagesFetched: 3, Version: "v1"}, nil
}

func TestScheduler_Trigger(t *testing.T) {
	t.Parallel()

	t.Run("runs the source and records the summary", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t, succeed)
		h.addSource(t, "alpha", false)
		ctx := context.Background()

		jobs, err := h.scheduler.Trigger(ctx, "alpha")
		require.NoError(t, err)
		require.Len(t, jobs, 1)
		assert.Equal(t, docmirror.JobRunning, jobs[0].State)
		assert.Equal(t, "alpha", jobs[0].SourceName)

		h.scheduler.Wait()

		job, err := h.scheduler.Job(ctx, jobs[0].ID)
		require.NoError(t, err)
		assert.Equal(t, docmirror.JobSucceeded, job.State)
		require.NotNil(t, job.Summary)
		assert.Equal(t, 3, job.Summary.PagesFetched)
		assert.False(t, job.EndedAt.IsZero())
	})

	t.Run("returns the running job instead of starting another", func(t *testing.T) {
		t.Parallel()

		release := make(chan struct{})
		var calls atomic.Int32
		h := newHarness(t, func(ctx context.Context, s *docmirror.Source) (*docmirror.RunSummary, error) {
			calls.Add(1)
			<-release
			return succeed(ctx, s)
		})
		h.addSource(t, "alpha", false)
		ctx := context.Background()

		first, err := h.scheduler.Trigger(ctx, "alpha")
		require.NoError(t, err)
		second, err := h.scheduler.Trigger(ctx, "alpha")
		require.NoError(t, err)

		assert.Equal(t, first[0].ID, second[0].ID)

		running, err := h.scheduler.Job(ctx, first[0].ID)
		require.NoError(t, err)
		assert.Equal(t, docmirror.JobRunning, running.State)

		close(release)
		h.scheduler.Wait()
		assert.Equal(t, int32(1), calls.Load())

		third, err := h.scheduler.Trigger(ctx, "alpha")
		require.NoError(t, err)
		assert.NotEqual(t, first[0].ID, third[0].ID)
		h.scheduler.Wait()
	})

	t.Run("all expands to enabled sources", func(t *testing.T) {
		t.Parallel()

		var mu sync.Mutex
		var ran []string
		h := newHarness(t, func(ctx context.Context, s *docmirror.Source) (*docmirror.RunSummary, error) {
			mu.Lock()
			ran = append(ran, s.Name)
			mu.Unlock()
			return succeed(ctx, s)
		})
		h.addSource(t, "alpha", false)
		h.addSource(t, "beta", false)
		h.addSource(t, "gamma", true)

		jobs, err := h.scheduler.Trigger(context.Background(), schedule.All)
		require.NoError(t, err)
		h.scheduler.Wait()

		require.Len(t, jobs, 2)
		assert.ElementsMatch(t, []string{"alpha", "beta"}, ran)
	})

	t.Run("all returns the jobs that started when another source cannot start", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t, succeed)
		h.addSource(t, "alpha", false)
		h.addSource(t, "beta", false)
		h.scheduler.Jobs = &mock.JobService{
			CreateJobFn: func(ctx context.Context, job *docmirror.Job) error {
				if job.SourceName == "beta" {
					return docmirror.Errorf(docmirror.EINTERNAL, "database is locked")
				}
				return h.jobs.CreateJob(ctx, job)
			},
			FinishJobFn:   h.jobs.FinishJob,
			FindJobByIDFn: h.jobs.FindJobByID,
			FindJobsFn:    h.jobs.FindJobs,
		}

		jobs, err := h.scheduler.Trigger(context.Background(), schedule.All)
		h.scheduler.Wait()

		assert.Equal(t, docmirror.EINTERNAL, docmirror.ErrorCode(err))
		require.Len(t, jobs, 1)
		assert.Equal(t, "alpha", jobs[0].SourceName)
		assert.NotEmpty(t, jobs[0].ID)
	})

	t.Run("records failed runs", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t, func(context.Context, *docmirror.Source) (*docmirror.RunSummary, error) {
			return nil, errors.New("crawl: connection refused")
		})
		h.addSource(t, "alpha", false)
		ctx := context.Background()

		jobs, err := h.scheduler.Trigger(ctx, "alpha")
		require.NoError(t, err)
		h.scheduler.Wait()

		job, err := h.scheduler.Job(ctx, jobs[0].ID)
		require.NoError(t, err)
		assert.Equal(t, docmirror.JobFailed, job.State)
		assert.Equal(t, "crawl: connection refused", job.Error)
	})

	t.Run("rejects disabled source", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t, succeed)
		h.addSource(t, "alpha", true)

		_, err := h.scheduler.Trigger(context.Background(), "alpha")

		assert.Equal(t, docmirror.EINVALID, docmirror.ErrorCode(err))
	})

	t.Run("returns ENOTFOUND for unknown source", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t, succeed)

		_, err := h.scheduler.Trigger(context.Background(), "missing")

		assert.Equal(t, docmirror.ENOTFOUND, docmirror.ErrorCode(err))
	})

	t.Run("refuses new jobs after stop", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t, succeed)
		h.addSource(t, "alpha", false)
		h.scheduler.Stop()

		_, err := h.scheduler.Trigger(context.Background(), "alpha")

		assert.Equal(t, docmirror.EUNAVAILABLE, docmirror.ErrorCode(err))
	})
}

func TestScheduler_ZeroValue(t *testing.T) {
	t.Parallel()

	t.Run("runs jobs without NewScheduler", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t, succeed)
		h.addSource(t, "alpha", false)
		s := &schedule.Scheduler{Runner: h.runner, Sources: h.sources, Jobs: h.jobs}
		t.Cleanup(s.Stop)
		ctx := context.Background()

		jobs, err := s.Trigger(ctx, "alpha")
		require.NoError(t, err)
		s.Wait()

		job, err := s.Job(ctx, jobs[0].ID)
		require.NoError(t, err)
		assert.Equal(t, docmirror.JobSucceeded, job.State)
	})

	t.Run("refuses jobs after stop", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t, succeed)
		h.addSource(t, "alpha", false)
		s := &schedule.Scheduler{Runner: h.runner, Sources: h.sources, Jobs: h.jobs}
		s.Stop()

		_, err := s.Trigger(context.Background(), "alpha")

		assert.Equal(t, docmirror.EUNAVAILABLE, docmirror.ErrorCode(err))
	})
}

func TestScheduler_Disable(t *testing.T) {
	t.Parallel()

	t.Run("cancels the running job", func(t *testing.T) {
		t.Parallel()

		started := make(chan struct{})
		h := newHarness(t, func(ctx context.Context, _ *docmirror.Source) (*docmirror.RunSummary, error) {
			close(started)
			<-ctx.Done()
			return nil, ctx.Err()
		})
		h.addSource(t, "alpha", false)
		ctx := context.Background()

		jobs, err := h.scheduler.Trigger(ctx, "alpha")
		require.NoError(t, err)
		<-started

		source, err := h.scheduler.Disable(ctx, "alpha")
		require.NoError(t, err)
		assert.True(t, source.Disabled)

		h.scheduler.Wait()

		job, err := h.scheduler.Job(ctx, jobs[0].ID)
		require.NoError(t, err)
		assert.Equal(t, docmirror.JobFailed, job.State)
		assert.Contains(t, job.Error, "context canceled")
	})

	t.Run("disables an idle source", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t, succeed)
		h.addSource(t, "alpha", false)

		_, err := h.scheduler.Disable(context.Background(), "alpha")
		require.NoError(t, err)

		_, err = h.scheduler.Trigger(context.Background(), "alpha")
		assert.Equal(t, docmirror.EINVALID, docmirror.ErrorCode(err))
	})
}

func TestScheduler_Status(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	h := newHarness(t, func(ctx context.Context, s *docmirror.Source) (*docmirror.RunSummary, error) {
		if s.Name == "beta" {
			<-release
		}
		return succeed(ctx, s)
	})
	h.addSource(t, "alpha", false)
	h.addSource(t, "beta", false)
	h.addSource(t, "gamma", true)
	ctx := context.Background()

	_, err := h.scheduler.Trigger(ctx, "alpha")
	require.NoError(t, err)
	h.scheduler.Wait()
	_, err = h.scheduler.Trigger(ctx, "beta")
	require.NoError(t, err)

	states, err := h.scheduler.Status(ctx)
	require.NoError(t, err)
	require.Len(t, states, 3)

	byName := make(map[string]*docmirror.SourceState)
	for _, st := range states {
		byName[st.Source.Name] = st
	}

	alpha := byName["alpha"]
	assert.Equal(t, docmirror.JobIdle, alpha.State)
	require.NotNil(t, alpha.Last)
	assert.Equal(t, docmirror.JobSucceeded, alpha.Last.State)
	assert.Equal(t, "v1", alpha.Last.Summary.Version)
	assert.False(t, alpha.LastRun().IsZero())

	beta := byName["beta"]
	assert.Equal(t, docmirror.JobRunning, beta.State)
	require.NotNil(t, beta.Current)
	assert.Nil(t, beta.Last)

	gamma := byName["gamma"]
	assert.Equal(t, docmirror.JobIdle, gamma.State)
	assert.True(t, gamma.Source.Disabled)
	assert.True(t, gamma.LastRun().IsZero())

	close(release)
	h.scheduler.Wait()
}

func TestScheduler_Due(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	h := newHarness(t, succeed)
	h.scheduler.Cadence = time.Hour
	h.scheduler.Now = func() time.Time { return now }
	ctx := context.Background()

	stale := h.addSource(t, "stale", false)
	fresh := h.addSource(t, "fresh", false)
	h.addSource(t, "never", false)
	h.addSource(t, "off", true)

	for source, age := range map[*docmirror.Source]time.Duration{stale: 2 * time.Hour, fresh: 10 * time.Minute} {
		job := &docmirror.Job{SourceID: source.ID, SourceName: source.Name, StartedAt: now.Add(-age)}
		require.NoError(t, h.jobs.CreateJob(ctx, job))
		job.State = docmirror.JobSucceeded
		require.NoError(t, h.jobs.FinishJob(ctx, job))
	}

	due, err := h.scheduler.Due(ctx)
	require.NoError(t, err)

	var names []string
	for _, s := range due {
		names = append(names, s.Name)
	}
	assert.ElementsMatch(t, []string{"stale", "never"}, names)
}

func TestScheduler_Start(t *testing.T) {
	t.Parallel()

	t.Run("triggers due sources until the context ends", func(t *testing.T) {
		t.Parallel()

		ran := make(chan string, 4)
		h := newHarness(t, func(ctx context.Context, s *docmirror.Source) (*docmirror.RunSummary, error) {
			ran <- s.Name
			return succeed(ctx, s)
		})
		h.scheduler.Cadence = time.Hour
		h.scheduler.Interval = 10 * time.Millisecond
		h.addSource(t, "alpha", false)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- h.scheduler.Start(ctx) }()

		select {
		case name := <-ran:
			assert.Equal(t, "alpha", name)
		case <-time.After(5 * time.Second):
			t.Fatal("source was not triggered")
		}

		// The fresh run keeps the source from being triggered again.
		time.Sleep(50 * time.Millisecond)
		assert.Empty(t, ran)

		cancel()
		require.NoError(t, <-done)
		h.scheduler.Wait()
	})

	t.Run("rejects non-positive cadence", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t, succeed)
		h.scheduler.Cadence = 0

		err := h.scheduler.Start(context.Background())

		assert.Equal(t, docmirror.EINVALID, docmirror.ErrorCode(err))
	})
}

func TestScheduler_Recover(t *testing.T) {
	t.Parallel()

	h := newHarness(t, succeed)
	source := h.addSource(t, "alpha", false)
	ctx := context.Background()

	orphan := &docmirror.Job{SourceID: source.ID, SourceName: source.Name}
	require.NoError(t, h.jobs.CreateJob(ctx, orphan))

	n, err := h.scheduler.Recover(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	job, err := h.jobs.FindJobByID(ctx, orphan.ID)
	require.NoError(t, err)
	assert.Equal(t, docmirror.JobFailed, job.State)
	assert.NotEmpty(t, job.Error)

	n, err = h.scheduler.Recover(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
