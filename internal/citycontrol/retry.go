package citycontrol

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// RetryPolicy retries an operation for errors that IsRetryable reports
// as transient. Backoff grows linearly with the attempt number.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
}

// Execute runs op until it succeeds, returns a non-retryable error, the
// attempt budget runs out, or the context is cancelled.
func (p RetryPolicy) Execute(ctx context.Context, logger *zap.Logger, op func(context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = op(ctx)
		if err == nil {
			return nil
		}
		if !IsRetryable(err) || attempt == attempts {
			return err
		}

		wait := p.Backoff * time.Duration(attempt)
		logger.Warn("retrying after transient error",
			zap.Int("attempt", attempt),
			zap.Duration("backoff", wait),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return err
}
