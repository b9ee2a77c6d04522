package quirks

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff"
)

// RetryPolicy bounds how often an operation is attempted and how long to
// wait between attempts.
type RetryPolicy struct {
	Attempts int
	Delay    time.Duration
}

// Do runs op until it succeeds, the attempts are used up, or ctx is done.
// It returns the last error.
func (p RetryPolicy) Do(ctx context.Context, logger *slog.Logger, name string, op func(ctx context.Context) error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	// WithMaxRetries treats zero retries as unlimited.
	var policy backoff.BackOff = &backoff.StopBackOff{}
	if attempts > 1 {
		policy = backoff.WithMaxRetries(backoff.NewConstantBackOff(p.Delay), uint64(attempts-1))
	}
	b := backoff.WithContext(policy, ctx)

	attempt := 0
	err := backoff.RetryNotify(func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		attempt++
		return op(ctx)
	}, b, func(err error, next time.Duration) {
		logger.Debug("retrying", "op", name, "attempt", attempt, "of", attempts, "next", next, "err", err)
	})
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}
