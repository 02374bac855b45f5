package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"walletcheckin/pkg/config"
	errs "walletcheckin/pkg/errors"
	"walletcheckin/pkg/logger"
)

func testConfig(maxAttempts int) *Config {
	return &Config{
		MaxAttempts: maxAttempts,
		Backoff:     &ConstantBackoff{Delay: time.Millisecond},
		RetryIf:     DefaultRetryIf,
		Context:     context.Background(),
		Logger:      logger.NewNopLogger(),
	}
}

func TestExponentialBackoff(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   1 * time.Second,
		Multiplier: 2.0,
	}

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 0},
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 800 * time.Millisecond},
		{5, 1 * time.Second},
		{6, 1 * time.Second},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, backoff.NextDelay(tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestExponentialBackoffJitterBounds(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:    100 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.25,
	}

	for i := 0; i < 50; i++ {
		d := backoff.NextDelay(2)
		assert.GreaterOrEqual(t, d, 150*time.Millisecond)
		assert.LessOrEqual(t, d, 250*time.Millisecond)
	}
}

func TestConstantBackoff(t *testing.T) {
	b := &ConstantBackoff{Delay: 2 * time.Second}
	assert.Equal(t, time.Duration(0), b.NextDelay(0))
	assert.Equal(t, 2*time.Second, b.NextDelay(1))
	assert.Equal(t, 2*time.Second, b.NextDelay(7))
}

func TestFromConfig(t *testing.T) {
	cfg := config.DefaultConfig().Retry

	constant, ok := FromConfig(cfg).(*ConstantBackoff)
	require.True(t, ok)
	assert.Equal(t, cfg.Delay, constant.Delay)

	cfg.Strategy = "Exponential"
	exp, ok := FromConfig(cfg).(*ExponentialBackoff)
	require.True(t, ok)
	assert.Equal(t, cfg.Delay, exp.BaseDelay)
	assert.Equal(t, cfg.MaxDelay, exp.MaxDelay)
}

func TestDoSucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	err := Do(func() error {
		attempts++
		if attempts < 3 {
			return errors.New("temporary error")
		}
		return nil
	}, testConfig(5))

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestDoCallsAlwaysFailingOperationExactlyMaxAttempts(t *testing.T) {
	for _, max := range []int{1, 2, 3, 5} {
		calls := 0
		retries := 0
		cfg := testConfig(max)
		cfg.OnRetry = func(attempt int, err error, delay time.Duration) { retries++ }

		last := errs.New(errs.ErrorTypeRemote, "wallet not registered")
		err := Do(func() error {
			calls++
			return last
		}, cfg)

		require.Error(t, err)
		assert.Equal(t, max, calls)
		// no wait after the final attempt
		assert.Equal(t, max-1, retries)

		var exhausted *ExhaustedError
		require.ErrorAs(t, err, &exhausted)
		assert.Equal(t, max, exhausted.Attempts)
		assert.ErrorIs(t, err, last)
	}
}

func TestDoStopsOnNonRetryableError(t *testing.T) {
	calls := 0
	err := Do(func() error {
		calls++
		return errs.Configuration("bad setup", nil)
	}, testConfig(5))

	assert.Equal(t, 1, calls)
	assert.True(t, errs.Is(err, errs.ErrorTypeConfiguration))
}

func TestDoRespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := testConfig(10)
	cfg.Backoff = &ConstantBackoff{Delay: time.Hour}
	cfg.Context = ctx

	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- Do(func() error {
			calls++
			return errors.New("flaky")
		}, cfg)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	case <-time.After(2 * time.Second):
		t.Fatal("Do did not return after cancellation")
	}
}

func TestDoWithCancelledContextNeverCalls(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := testConfig(3)
	cfg.Context = ctx

	called := false
	err := Do(func() error {
		called = true
		return nil
	}, cfg)

	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestDoWithResult(t *testing.T) {
	attempts := 0
	result, err := DoWithResult(func() (string, error) {
		attempts++
		if attempts == 1 {
			return "", errors.New("first call fails")
		}
		return "checked in", nil
	}, testConfig(3))

	require.NoError(t, err)
	assert.Equal(t, "checked in", result)
	assert.Equal(t, 2, attempts)
}

func TestDefaultRetryIf(t *testing.T) {
	assert.False(t, DefaultRetryIf(nil))
	assert.False(t, DefaultRetryIf(context.Canceled))
	assert.True(t, DefaultRetryIf(errors.New("network down")))
	assert.True(t, DefaultRetryIf(errs.New(errs.ErrorTypeAuth, "unauthorized")))
	assert.False(t, DefaultRetryIf(errs.Persistence("disk full", nil)))
}

func TestWait(t *testing.T) {
	assert.NoError(t, Wait(context.Background(), 0))
	assert.NoError(t, Wait(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Wait(ctx, time.Hour), context.Canceled)
}
