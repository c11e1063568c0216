package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"postscope/pkg/config"
	errs "postscope/pkg/errors"
	"postscope/pkg/logger"
)

func fastConfig(attempts int) *Config {
	return &Config{
		MaxAttempts: attempts,
		Backoff:     &ConstantBackoff{Delay: time.Millisecond},
		RetryIf:     DefaultRetryIf,
		Logger:      logger.NewNopLogger(),
	}
}

func TestExponentialBackoff(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   time.Second,
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
		{5, time.Second},
		{9, time.Second},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, backoff.NextDelay(tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestExponentialBackoffJitterStaysInBounds(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:    100 * time.Millisecond,
		MaxDelay:     250 * time.Millisecond,
		Multiplier:   2.0,
		JitterFactor: 0.3,
	}

	for i := 0; i < 50; i++ {
		d := backoff.NextDelay(2)
		assert.GreaterOrEqual(t, d, 140*time.Millisecond)
		assert.LessOrEqual(t, d, 250*time.Millisecond)
	}
}

func TestDefaultRetryIf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"network", errs.New(errs.ErrorTypeNetwork, "reset"), true},
		{"rate limit", errs.New(errs.ErrorTypeRateLimit, "429"), true},
		{"wrapped network", errors.Join(errors.New("page 3"), errs.New(errs.ErrorTypeNetwork, "eof")), true},
		{"auth", errs.New(errs.ErrorTypeAuth, "bad key"), false},
		{"not found", errs.New(errs.ErrorTypeNotFound, "gone"), false},
		{"forbidden", errs.New(errs.ErrorTypeForbidden, "protected"), false},
		{"parsing", errs.New(errs.ErrorTypeParsing, "bad json"), false},
		{"context cancelled", context.Canceled, false},
		{"plain error", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DefaultRetryIf(tt.err))
		})
	}
}

func TestDoSucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	var retried []int

	cfg := fastConfig(3)
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		retried = append(retried, attempt)
	}

	err := Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errs.New(errs.ErrorTypeNetwork, "connection reset")
		}
		return nil
	}, cfg)

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, retried)
}

func TestDoNeverRetriesTerminalErrors(t *testing.T) {
	for _, typ := range []errs.ErrorType{errs.ErrorTypeAuth, errs.ErrorTypeNotFound, errs.ErrorTypeForbidden} {
		t.Run(string(typ), func(t *testing.T) {
			calls := 0
			err := Do(context.Background(), func() error {
				calls++
				return errs.New(typ, "terminal")
			}, fastConfig(5))

			assert.Equal(t, 1, calls)
			assert.True(t, errs.IsType(err, typ))
		})
	}
}

func TestDoSurfacesLastErrorWhenExhausted(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func() error {
		calls++
		return &errs.Error{Type: errs.ErrorTypeRateLimit, Message: "slow down", Code: 429}
	}, fastConfig(3))

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.ErrorIs(t, err, errs.ErrRateLimited)
	assert.Contains(t, err.Error(), "max retry attempts (3) exceeded")
}

func TestDoHonoursRetryAfter(t *testing.T) {
	var delays []time.Duration
	cfg := fastConfig(2)
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		delays = append(delays, delay)
	}

	calls := 0
	_ = Do(context.Background(), func() error {
		calls++
		return &errs.Error{Type: errs.ErrorTypeRateLimit, RetryAfter: 20 * time.Millisecond}
	}, cfg)

	require.Len(t, delays, 1)
	assert.Equal(t, 20*time.Millisecond, delays[0])
}

func TestDoCapsRetryAfterAtMaxDelay(t *testing.T) {
	var delays []time.Duration
	cfg := fastConfig(2)
	cfg.MaxDelay = 5 * time.Millisecond
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		delays = append(delays, delay)
	}

	start := time.Now()
	err := Do(context.Background(), func() error {
		return &errs.Error{Type: errs.ErrorTypeRateLimit, RetryAfter: 24 * time.Hour}
	}, cfg)

	require.Error(t, err)
	require.Len(t, delays, 1)
	assert.Equal(t, 5*time.Millisecond, delays[0])
	assert.Less(t, time.Since(start), time.Second)
}

func TestDoFallsBackToExponentialCap(t *testing.T) {
	var delays []time.Duration
	cfg := fastConfig(2)
	cfg.Backoff = &ExponentialBackoff{BaseDelay: time.Millisecond, MaxDelay: 3 * time.Millisecond, Multiplier: 2}
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		delays = append(delays, delay)
	}

	_ = Do(context.Background(), func() error {
		return &errs.Error{Type: errs.ErrorTypeRateLimit, RetryAfter: time.Hour}
	}, cfg)

	require.Len(t, delays, 1)
	assert.Equal(t, 3*time.Millisecond, delays[0])
}

func TestDoStopsWhenContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := &Config{
		MaxAttempts: 5,
		Backoff:     &ConstantBackoff{Delay: time.Hour},
		Logger:      logger.NewNopLogger(),
		OnRetry: func(int, error, time.Duration) {
			cancel()
		},
	}

	calls := 0
	err := Do(ctx, func() error {
		calls++
		return errs.New(errs.ErrorTypeNetwork, "timeout")
	}, cfg)

	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDoWithResult(t *testing.T) {
	calls := 0
	got, err := DoWithResult(context.Background(), func() (string, error) {
		calls++
		if calls == 1 {
			return "", errs.New(errs.ErrorTypeNetwork, "eof")
		}
		return "alice", nil
	}, fastConfig(3))

	require.NoError(t, err)
	assert.Equal(t, "alice", got)
}

func TestFromConfig(t *testing.T) {
	rc := config.DefaultConfig().Retry
	cfg := FromConfig(rc, logger.NewNopLogger())

	assert.Equal(t, rc.MaxAttempts, cfg.MaxAttempts)
	eb, ok := cfg.Backoff.(*ExponentialBackoff)
	require.True(t, ok)
	assert.Equal(t, rc.BaseDelay, eb.BaseDelay)
	assert.Equal(t, rc.MaxDelay, eb.MaxDelay)
	assert.Equal(t, rc.MaxDelay, cfg.MaxDelay)
}

func TestWait(t *testing.T) {
	require.NoError(t, Wait(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Wait(ctx, time.Hour), context.Canceled)
}
