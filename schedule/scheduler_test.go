package schedule

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(ctx context.Context) error { return nil }

func TestAdd_Validation(t *testing.T) {
	s, err := New()
	require.NoError(t, err)

	assert.ErrorIs(t, s.Add("ingest", 0, noop), ErrInvalidInterval)
	assert.ErrorIs(t, s.Add("ingest", time.Hour, nil), ErrJobRequired)
	require.NoError(t, s.Add("ingest", time.Hour, noop))
	assert.ErrorIs(t, s.Add("ingest", time.Minute, noop), ErrDuplicateJob)
}

func TestNextRuns(t *testing.T) {
	s, err := New()
	require.NoError(t, err)
	require.NoError(t, s.Add("ingest", DefaultIngestInterval, noop))
	require.NoError(t, s.Add("normalize", DefaultNormalizeInterval, noop))

	now := time.Now()
	next := s.NextRuns()
	require.Len(t, next, 2)
	assert.WithinDuration(t, now.Add(168*time.Hour), next["ingest"], 2*time.Second)
	assert.WithinDuration(t, now.Add(24*time.Hour), next["normalize"], 2*time.Second)

	require.NoError(t, s.Start())
	defer s.Stop(context.Background())
	next = s.NextRuns()
	assert.WithinDuration(t, now.Add(24*time.Hour), next["normalize"], 2*time.Second)
}

func TestStart_Twice(t *testing.T) {
	s, err := New()
	require.NoError(t, err)
	require.NoError(t, s.Start())
	defer s.Stop(context.Background())
	assert.ErrorIs(t, s.Start(), ErrAlreadyStarted)
}

func TestRunOnStart(t *testing.T) {
	s, err := New(WithRunOnStart(true))
	require.NoError(t, err)

	ran := make(chan struct{}, 1)
	require.NoError(t, s.Add("ingest", time.Hour, func(ctx context.Context) error {
		ran <- struct{}{}
		return nil
	}))
	require.NoError(t, s.Start())
	defer s.Stop(context.Background())

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("job did not run on start")
	}
}

func TestTick_FailingJobKeepsRunning(t *testing.T) {
	s, err := New(WithRunOnStart(true))
	require.NoError(t, err)

	var runs atomic.Int32
	require.NoError(t, s.Add("ingest", time.Second, func(ctx context.Context) error {
		runs.Add(1)
		return errors.New("source unavailable")
	}))
	require.NoError(t, s.Start())
	defer s.Stop(context.Background())

	assert.Eventually(t, func() bool { return runs.Load() >= 2 }, 4*time.Second, 20*time.Millisecond)
}

func TestStop_WaitsForRunningJob(t *testing.T) {
	s, err := New(WithRunOnStart(true))
	require.NoError(t, err)

	started := make(chan struct{})
	release := make(chan struct{})
	var finished atomic.Bool
	require.NoError(t, s.Add("ingest", time.Hour, func(ctx context.Context) error {
		close(started)
		<-release
		finished.Store(true)
		return nil
	}))
	require.NoError(t, s.Start())
	<-started

	stopped := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		stopped <- s.Stop(ctx)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while a job was running")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case err := <-stopped:
		require.NoError(t, err)
		assert.True(t, finished.Load())
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return after job finished")
	}
}

func TestStop_TimeoutCancelsJob(t *testing.T) {
	s, err := New(WithRunOnStart(true))
	require.NoError(t, err)

	started := make(chan struct{})
	cancelled := make(chan struct{})
	require.NoError(t, s.Add("normalize", time.Hour, func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		close(cancelled)
		return ctx.Err()
	}))
	require.NoError(t, s.Start())
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Stop(ctx), context.DeadlineExceeded)

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("job context was not cancelled")
	}
}

func TestStop_HookLetsRunningJobFinish(t *testing.T) {
	winddown := make(chan struct{})
	s, err := New(WithRunOnStart(true), WithStopHook(func() { close(winddown) }))
	require.NoError(t, err)

	started := make(chan struct{})
	require.NoError(t, s.Add("ingest", time.Hour, func(ctx context.Context) error {
		close(started)
		select {
		case <-winddown:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}))
	require.NoError(t, s.Start())
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	assert.NoError(t, s.Stop(ctx))
}

func TestNew_NilLogger(t *testing.T) {
	s, err := New(WithLogger(nil))
	require.NoError(t, err)
	require.NoError(t, s.Add("ingest", time.Hour, func(ctx context.Context) error { return nil }))
	assert.NoError(t, s.Stop(context.Background()))
}
