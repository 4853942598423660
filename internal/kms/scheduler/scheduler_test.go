package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	apperrors "github.com/doktor-sys/mietrecht-kms/internal/errors"
	"github.com/doktor-sys/mietrecht-kms/internal/kms/usecase"
)

type recordingSweeper struct {
	mu     sync.Mutex
	calls  int
	grace  time.Duration
	limit  uint
	err    error
	result usecase.SweepResult
}

func (r *recordingSweeper) Sweep(
	_ context.Context,
	gracePeriod time.Duration,
	limit uint,
) (usecase.SweepResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	r.grace = gracePeriod
	r.limit = limit
	return r.result, r.err
}

func (r *recordingSweeper) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestScheduler_RunOnce(t *testing.T) {
	sweeper := &recordingSweeper{
		result: usecase.SweepResult{Rotated: 2, Expired: 1},
	}
	s := NewScheduler(Config{
		Interval:    time.Minute,
		GracePeriod: 720 * time.Hour,
		BatchSize:   50,
		SweepRate:   100,
	}, sweeper, testLogger())

	require.NoError(t, s.RunOnce(context.Background()))
	assert.Equal(t, 1, sweeper.callCount())
	assert.Equal(t, 720*time.Hour, sweeper.grace)
	assert.Equal(t, uint(50), sweeper.limit)
}

func TestScheduler_RunOnce_PropagatesSweepError(t *testing.T) {
	sweeper := &recordingSweeper{
		err: apperrors.Wrap(apperrors.ErrRotationFailed, "backend down"),
	}
	s := NewScheduler(Config{
		Interval:  time.Minute,
		BatchSize: 10,
		SweepRate: 100,
	}, sweeper, testLogger())

	err := s.RunOnce(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrRotationFailed)
}

func TestScheduler_Start_SweepsOnInterval(t *testing.T) {
	defer goleak.VerifyNone(t)

	sweeper := &recordingSweeper{}
	s := NewScheduler(Config{
		Interval:  10 * time.Millisecond,
		BatchSize: 10,
		SweepRate: 10000,
	}, sweeper, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.Start(ctx)
	}()

	// the initial sweep plus at least one tick
	assert.Eventually(t, func() bool {
		return sweeper.callCount() >= 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	err := <-done
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScheduler_Start_StopsWhileRateLimited(t *testing.T) {
	defer goleak.VerifyNone(t)

	sweeper := &recordingSweeper{}
	// one sweep per minute: the initial sweep consumes the budget and the
	// loop then blocks in the limiter
	s := NewScheduler(Config{
		Interval:  time.Millisecond,
		BatchSize: 10,
		SweepRate: 1.0 / 60.0,
	}, sweeper, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.Start(ctx)
	}()

	assert.Eventually(t, func() bool {
		return sweeper.callCount() >= 1
	}, time.Second, time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop while waiting on the rate limiter")
	}
}
