package common

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry(attempts int) RetryOptions {
	return RetryOptions{
		MaxAttempts:  attempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2,
	}
}

func TestWithRetry(t *testing.T) {
	transient := errors.New("503 backend error")

	tests := []struct {
		wantErr   error
		failWith  error
		name      string
		failures  int
		attempts  int
		wantCalls int
		permanent bool
	}{
		{name: "first try", failures: 0, attempts: 3, wantCalls: 1},
		{name: "recovers", failures: 2, attempts: 3, wantCalls: 3},
		{name: "exhausted", failures: 5, attempts: 3, wantCalls: 3, wantErr: ErrMaxRetries},
		{name: "not retryable", failures: 5, attempts: 3, wantCalls: 1, permanent: true, wantErr: transient},
		{name: "canceled is not retried", failures: 5, attempts: 3, wantCalls: 1, failWith: context.Canceled, wantErr: context.Canceled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := WithRetry(context.Background(), func() error {
				calls++
				if calls <= tt.failures {
					if tt.permanent {
						return &RetryableError{Err: transient, Retryable: false}
					}
					if tt.failWith != nil {
						return tt.failWith
					}
					return transient
				}
				return nil
			}, fastRetry(tt.attempts))

			assert.Equal(t, tt.wantCalls, calls)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestWithRetry_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	opts := fastRetry(5)
	opts.InitialDelay = time.Hour
	opts.MaxDelay = time.Hour

	calls := 0
	err := WithRetry(ctx, func() error {
		calls++
		cancel()
		return errors.New("fail")
	}, opts)

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(ErrRateLimit))
	assert.True(t, IsRetryable(context.DeadlineExceeded))
	assert.True(t, IsRetryable(&RetryableError{Err: errors.New("x"), Retryable: true}))
	assert.False(t, IsRetryable(&RetryableError{Err: errors.New("x")}))
	assert.False(t, IsRetryable(context.Canceled))
	assert.False(t, IsRetryable(nil))
	assert.True(t, IsRetryable(errors.New("plain")))
}

func TestUserError(t *testing.T) {
	err := NewUserError("no run with id x", ErrNotFound)
	assert.Equal(t, "no run with id x: not found", err.Error())
	assert.ErrorIs(t, err, ErrNotFound)

	var userErr *UserError
	require.ErrorAs(t, err, &userErr)
	assert.Equal(t, "no run with id x", userErr.UserMessage)
}
