package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	errTransient = errors.New("principal not replicated yet")
	errFatal     = errors.New("authorization failed")
)

type recordingSleeper struct {
	delays []time.Duration
}

func (r *recordingSleeper) sleep(_ context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return nil
}

func transientOnly(err error) bool {
	return errors.Is(err, errTransient)
}

func TestDo_ExhaustsAfterMaxAttempts(t *testing.T) {
	sleeper := &recordingSleeper{}
	calls := 0

	_, err := Do(context.Background(), Policy{
		MaxAttempts: 30,
		Delay:       Linear(time.Second),
		Retryable:   transientOnly,
		Sleep:       sleeper.sleep,
	}, func(ctx context.Context) (string, error) {
		calls++
		return "", errTransient
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAttemptsExhausted)
	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, 30, calls)

	require.Len(t, sleeper.delays, 29)
	for i := 1; i < len(sleeper.delays); i++ {
		assert.Greater(t, sleeper.delays[i], sleeper.delays[i-1], "delay %d must exceed delay %d", i, i-1)
	}
	assert.Equal(t, time.Second, sleeper.delays[0])
	assert.Equal(t, 29*time.Second, sleeper.delays[28])
}

func TestDo_NonRetryableStopsOnFirstAttempt(t *testing.T) {
	sleeper := &recordingSleeper{}
	calls := 0

	_, err := Do(context.Background(), Policy{
		MaxAttempts: 30,
		Delay:       Linear(time.Second),
		Retryable:   transientOnly,
		Sleep:       sleeper.sleep,
	}, func(ctx context.Context) (int, error) {
		calls++
		return 0, errFatal
	})

	assert.Same(t, errFatal, err)
	assert.Equal(t, 1, calls)
	assert.Empty(t, sleeper.delays)
}

func TestDo_SucceedsAfterTransientFailures(t *testing.T) {
	for failures := 1; failures <= 5; failures++ {
		sleeper := &recordingSleeper{}
		calls := 0

		got, err := Do(context.Background(), Policy{
			MaxAttempts: 30,
			Delay:       Linear(time.Second),
			Retryable:   transientOnly,
			Sleep:       sleeper.sleep,
		}, func(ctx context.Context) (string, error) {
			calls++
			if calls <= failures {
				return "", errTransient
			}
			return "assigned", nil
		})

		require.NoError(t, err, "failures=%d", failures)
		assert.Equal(t, "assigned", got)
		assert.Equal(t, failures+1, calls)
		assert.Len(t, sleeper.delays, failures)
	}
}

func TestDo_OnRetryReportsAttempts(t *testing.T) {
	var attempts []int

	_, _ = Do(context.Background(), Policy{
		MaxAttempts: 3,
		Delay:       Linear(time.Millisecond),
		Retryable:   transientOnly,
		Sleep:       (&recordingSleeper{}).sleep,
		OnRetry: func(attempt int, delay time.Duration, err error) {
			attempts = append(attempts, attempt)
		},
	}, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, errTransient
	})

	assert.Equal(t, []int{1, 2}, attempts)
}

func TestDo_ContextCancelledWhileWaiting(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	_, err := Do(ctx, Policy{
		MaxAttempts: 30,
		Delay:       Linear(time.Hour),
		Retryable:   transientOnly,
	}, func(ctx context.Context) (string, error) {
		calls++
		cancel()
		return "", errTransient
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestDo_ZeroPolicyRunsOnce(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), Policy{}, func(ctx context.Context) (string, error) {
		calls++
		return "", errTransient
	})

	assert.Same(t, errTransient, err)
	assert.Equal(t, 1, calls)
}

func TestSleep(t *testing.T) {
	require.NoError(t, Sleep(context.Background(), 0))
	require.NoError(t, Sleep(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Sleep(ctx, time.Minute), context.Canceled)
}
