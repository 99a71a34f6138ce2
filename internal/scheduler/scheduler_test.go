package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	apperrors "loan-pipeline/internal/common/errors"
	"loan-pipeline/internal/common/logger"
	"loan-pipeline/internal/common/retry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScheduler(t *testing.T) *Scheduler {
	s := New(logger.NewTestLogger(t))
	t.Cleanup(s.Stop)
	return s
}

func TestScheduler_Register(t *testing.T) {
	s := newTestScheduler(t)
	run := func(ctx context.Context) (interface{}, error) { return nil, nil }

	require.NoError(t, s.Register(&Job{Name: "etl", Cron: "0 2 * * *", Run: run}))

	err := s.Register(&Job{Name: "etl", Cron: "0 3 * * *", Run: run})
	assert.ErrorContains(t, err, "already registered")

	err = s.Register(&Job{Name: "quality", Cron: "every now and then", Run: run})
	assert.Error(t, err)

	err = s.Register(&Job{Name: "", Cron: "0 2 * * *", Run: run})
	assert.Error(t, err)
}

func TestScheduler_NextRun(t *testing.T) {
	s := newTestScheduler(t)
	run := func(ctx context.Context) (interface{}, error) { return nil, nil }

	require.NoError(t, s.Register(&Job{Name: "etl", Cron: "0 2 * * *", Run: run}))
	require.NoError(t, s.Register(&Job{Name: "quality", Cron: "0 */6 * * *", Run: run}))
	s.Start(context.Background())

	next, err := s.NextRun("etl")
	require.NoError(t, err)
	assert.True(t, next.After(time.Now()))
	assert.Equal(t, 2, next.UTC().Hour())
	assert.Equal(t, 0, next.Minute())

	next, err = s.NextRun("quality")
	require.NoError(t, err)
	assert.Equal(t, 0, next.UTC().Hour()%6)

	_, err = s.NextRun("missing")
	assert.ErrorIs(t, err, ErrUnknownJob)
}

func TestScheduler_RunNow_ReturnsResult(t *testing.T) {
	s := newTestScheduler(t)
	require.NoError(t, s.Register(&Job{
		Name: "etl",
		Cron: "0 2 * * *",
		Run: func(ctx context.Context) (interface{}, error) {
			_, hasDeadline := ctx.Deadline()
			return hasDeadline, nil
		},
		Timeout: time.Minute,
	}))

	result, err := s.RunNow(context.Background(), "etl")
	require.NoError(t, err)
	assert.Equal(t, true, result)

	_, err = s.RunNow(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrUnknownJob)
}

func TestScheduler_RunNow_DoesNotRetry(t *testing.T) {
	s := newTestScheduler(t)
	var calls int32
	require.NoError(t, s.Register(&Job{
		Name:   "etl",
		Cron:   "0 2 * * *",
		Policy: retry.Policy{MaxRetries: 2, Delay: time.Millisecond},
		Run: func(ctx context.Context) (interface{}, error) {
			atomic.AddInt32(&calls, 1)
			return nil, apperrors.NewStagingQueryFailedError(errors.New("timeout"))
		},
	}))

	_, err := s.RunNow(context.Background(), "etl")
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestScheduler_RunNow_RejectsOverlap(t *testing.T) {
	s := newTestScheduler(t)
	started := make(chan struct{})
	release := make(chan struct{})
	require.NoError(t, s.Register(&Job{
		Name: "quality",
		Cron: "0 */6 * * *",
		Run: func(ctx context.Context) (interface{}, error) {
			close(started)
			<-release
			return nil, nil
		},
	}))

	done := make(chan error, 1)
	go func() {
		_, err := s.RunNow(context.Background(), "quality")
		done <- err
	}()
	<-started

	_, err := s.RunNow(context.Background(), "quality")
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	close(release)
	assert.NoError(t, <-done)
}

func TestScheduler_ScheduledRunRetriesRetryableErrors(t *testing.T) {
	s := newTestScheduler(t)
	var calls int32
	job := &Job{
		Name:   "etl",
		Cron:   "0 2 * * *",
		Policy: retry.Policy{MaxRetries: 2, Delay: time.Millisecond},
		Run: func(ctx context.Context) (interface{}, error) {
			if atomic.AddInt32(&calls, 1) < 3 {
				return nil, apperrors.NewDatabaseConnectionFailedError(errors.New("connection refused"))
			}
			return "ok", nil
		},
	}
	require.NoError(t, s.Register(job))

	s.scheduled(job)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestScheduler_ScheduledRunStopsOnFatalError(t *testing.T) {
	s := newTestScheduler(t)
	var calls int32
	job := &Job{
		Name:   "etl",
		Cron:   "0 2 * * *",
		Policy: retry.Policy{MaxRetries: 2, Delay: time.Millisecond},
		Run: func(ctx context.Context) (interface{}, error) {
			atomic.AddInt32(&calls, 1)
			return nil, apperrors.NewArtifactWidthMismatchError("artifact expects 12 features")
		},
	}
	require.NoError(t, s.Register(job))

	s.scheduled(job)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
