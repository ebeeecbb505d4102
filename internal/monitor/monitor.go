// Package monitor runs the event producers: the clock-gated price monitor and
// the always-on news monitor. Both publish onto the event bus and keep
// running through transient upstream failures.
package monitor

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// retryPolicy bounds one fetch cycle: exponential backoff, at most maxRetries
// retries, aborted by context cancellation.
func retryPolicy(ctx context.Context, maxRetries int) backoff.BackOffContext {
	return backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(maxRetries)), ctx)
}

// sleep waits for d or until the context ends, reporting whether the full
// wait elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
