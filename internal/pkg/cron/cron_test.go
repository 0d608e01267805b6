package cron

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testJob struct {
	BaseJob
	runs atomic.Int32
	run  func(ctx context.Context) error
}

func (j *testJob) Run(ctx context.Context) error {
	j.runs.Add(1)
	if j.run != nil {
		return j.run(ctx)
	}
	return nil
}

func newTestJob(spec string, run func(ctx context.Context) error) *testJob {
	return &testJob{BaseJob: BaseJob{JobName: "test", JobSpec: spec, JobDesc: "test job"}, run: run}
}

func TestDailyAt(t *testing.T) {
	assert.Equal(t, "0 0 2 * * *", DailyAt(2, 0, 0))
}

func TestAddJob(t *testing.T) {
	s := NewServer(log.DefaultLogger)
	require.NoError(t, s.AddJob(newTestJob(DailyAt(2, 0, 0), nil)))
	require.NoError(t, s.AddJob(newTestJob(EveryFiveMinutesSpec, nil)))
	assert.Equal(t, 2, s.Len())

	require.Error(t, s.AddJob(newTestJob("not a spec", nil)))
	require.Error(t, s.AddJob(newTestJob("*/5 * * * *", nil)), "five-field specs are rejected with seconds enabled")
	assert.Equal(t, 2, s.Len())
}

func TestRunNow_RecoversPanicAndError(t *testing.T) {
	s := NewServer(log.DefaultLogger)

	panicking := newTestJob(EveryMinuteSpec, func(context.Context) error { panic("boom") })
	assert.NotPanics(t, func() { s.RunNow(panicking) })

	failing := newTestJob(EveryMinuteSpec, func(context.Context) error { return errors.New("store down") })
	assert.NotPanics(t, func() { s.RunNow(failing) })
	assert.Equal(t, int32(1), failing.runs.Load())
}

func TestScheduledRun(t *testing.T) {
	s := NewServer(log.DefaultLogger)
	fired := make(chan struct{}, 1)
	job := newTestJob("* * * * * *", func(context.Context) error {
		select {
		case fired <- struct{}{}:
		default:
		}
		return nil
	})
	require.NoError(t, s.AddJob(job))
	require.NoError(t, s.Start(context.Background()))

	select {
	case <-fired:
	case <-time.After(3 * time.Second):
		t.Fatal("job did not run")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
}

func TestStop_CancelsRunningJob(t *testing.T) {
	s := NewServer(log.DefaultLogger)
	started := make(chan struct{}, 1)
	job := newTestJob("* * * * * *", func(ctx context.Context) error {
		select {
		case started <- struct{}{}:
		default:
		}
		<-ctx.Done()
		return ctx.Err()
	})
	require.NoError(t, s.AddJob(job))
	require.NoError(t, s.Start(context.Background()))

	select {
	case <-started:
	case <-time.After(3 * time.Second):
		t.Fatal("job did not start")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
}
