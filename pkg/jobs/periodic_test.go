package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeriodicRunsImmediatelyAndOnTick(t *testing.T) {
	var runs int32
	p := NewPeriodic("test", func(ctx context.Context) error {
		atomic.AddInt32(&runs, 1)
		return nil
	}, PeriodicConfig{Interval: 10 * time.Millisecond})

	p.Start(context.Background())
	require.Eventually(t, func() bool { return atomic.LoadInt32(&runs) >= 3 }, time.Second, 5*time.Millisecond)
	p.Stop()

	after := atomic.LoadInt32(&runs)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, atomic.LoadInt32(&runs), "no runs after Stop")
}

func TestPeriodicRetriesFailedRun(t *testing.T) {
	var calls int32
	p := NewPeriodic("retry", func(ctx context.Context) error {
		if atomic.AddInt32(&calls, 1) < 3 {
			return errors.New("store unavailable")
		}
		return nil
	}, PeriodicConfig{Interval: time.Hour, MaxRetries: 2, RetryDelay: time.Millisecond})

	err := p.runOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestPeriodicGivesUpAfterRetries(t *testing.T) {
	var calls int32
	boom := errors.New("boom")
	p := NewPeriodic("give-up", func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		return boom
	}, PeriodicConfig{Interval: time.Hour, MaxRetries: 1, RetryDelay: time.Millisecond})

	err := p.runOnce(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestPeriodicAttemptTimeout(t *testing.T) {
	p := NewPeriodic("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}, PeriodicConfig{Interval: time.Hour, Timeout: 5 * time.Millisecond})

	err := p.attempt(context.Background())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPeriodicStopWithoutStart(t *testing.T) {
	p := NewPeriodic("idle", func(context.Context) error { return nil }, PeriodicConfig{})
	p.Stop()
}
