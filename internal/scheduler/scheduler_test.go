package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------- Mocks ----------

type countingSweeper struct {
	calls atomic.Int32
	err   error
}

func (c *countingSweeper) CancelStalePending(context.Context) (int, error) {
	c.calls.Add(1)
	return 1, c.err
}

type countingCleaner struct{ calls atomic.Int32 }

func (c *countingCleaner) CleanupExpired(context.Context) (int64, error) {
	c.calls.Add(1)
	return 0, nil
}

// ---------- Tests ----------

func TestScheduler_RunsJobsUntilCancelled(t *testing.T) {
	sweeper := &countingSweeper{}
	cleaner := &countingCleaner{}
	s, err := New(sweeper, cleaner, Config{SweepInterval: 20 * time.Millisecond, CleanupInterval: 20 * time.Millisecond})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	assert.Eventually(t, func() bool { return sweeper.calls.Load() >= 2 }, 2*time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool { return cleaner.calls.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestScheduler_SweepErrorsDoNotStopJob(t *testing.T) {
	sweeper := &countingSweeper{err: errors.New("db down")}
	s, err := New(sweeper, nil, Config{SweepInterval: 20 * time.Millisecond})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Run(ctx) }()

	assert.Eventually(t, func() bool { return sweeper.calls.Load() >= 3 }, 2*time.Second, 10*time.Millisecond)
}

func TestNew_AppliesDefaults(t *testing.T) {
	s, err := New(nil, nil, Config{})
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, s.cfg.SweepInterval)
	assert.Equal(t, time.Hour, s.cfg.CleanupInterval)
}
