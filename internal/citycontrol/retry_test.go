package citycontrol

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 5, Backoff: time.Millisecond}

	attempts := 0
	err := policy.Execute(context.Background(), zap.NewNop(), func(context.Context) error {
		attempts++
		if attempts < 3 {
			return &TransportError{Err: errors.New("connection reset")}
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryStopsOnNonRetryableError(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 5, Backoff: time.Millisecond}
	fatal := errors.New("signal was deleted")

	attempts := 0
	err := policy.Execute(context.Background(), zap.NewNop(), func(context.Context) error {
		attempts++
		return fatal
	})

	assert.ErrorIs(t, err, fatal)
	assert.Equal(t, 1, attempts)
}

func TestRetryExhaustsAttemptBudget(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 3, Backoff: time.Millisecond}

	attempts := 0
	err := policy.Execute(context.Background(), zap.NewNop(), func(context.Context) error {
		attempts++
		return &ProtocolError{Reason: "Fo03 fault"}
	})

	var protocolErr *ProtocolError
	require.ErrorAs(t, err, &protocolErr)
	assert.Equal(t, 3, attempts)
}

func TestRetryHonorsCancelledContext(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 5, Backoff: time.Minute}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	attempts := 0
	err := policy.Execute(ctx, zap.NewNop(), func(context.Context) error {
		attempts++
		return &TransportError{Err: errors.New("timeout")}
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

func TestRetryTreatsZeroAttemptsAsOne(t *testing.T) {
	policy := RetryPolicy{}

	attempts := 0
	err := policy.Execute(context.Background(), zap.NewNop(), func(context.Context) error {
		attempts++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, attempts)
}
