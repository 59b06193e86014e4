package indexer

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

const maxRetryBackoff = 30 * time.Second

// retrier re-runs a failing step with doubling backoff. Cancellation is
// never retried.
type retrier struct {
	maxRetries int
	backoff    time.Duration
	logger     *zap.Logger
}

func newRetrier(maxRetries int, backoff time.Duration, logger *zap.Logger) retrier {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if backoff <= 0 {
		backoff = 100 * time.Millisecond
	}
	return retrier{maxRetries: maxRetries, backoff: backoff, logger: logger}
}

func (r retrier) do(ctx context.Context, step string, fn func(context.Context) error, fields ...zap.Field) error {
	delay := r.backoff
	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if attempt > r.maxRetries || ctx.Err() != nil ||
			errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		r.logger.Warn(step+" failed",
			append(fields, zap.Int("attempt", attempt), zap.Duration("backoff", delay), zap.Error(err))...)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay = min(delay*2, maxRetryBackoff)
	}
}
