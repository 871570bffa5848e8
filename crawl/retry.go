package crawl

import (
	"context"
	"time"

	"github.com/fwojciec/docdex"
)

// DefaultConflictDelays returns the backoff delays used when retrying
// transient storage conflicts: 100ms, 200ms, 400ms, 800ms.
func DefaultConflictDelays() []time.Duration {
	return []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
		800 * time.Millisecond,
	}
}

// RetryConflict runs fn, retrying with the given delays while fn keeps
// failing with ECONFLICT. Any other error, or exhaustion of the delays,
// propagates the last error. The attempt count is fixed: one initial
// call plus one retry per delay.
func RetryConflict(ctx context.Context, fn func(context.Context) error, delays []time.Duration) error {
	if delays == nil {
		delays = DefaultConflictDelays()
	}

	var lastErr error
	for attempt := 0; attempt <= len(delays); attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if docdex.ErrorCode(lastErr) != docdex.ECONFLICT {
			return lastErr
		}
		if attempt == len(delays) {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delays[attempt]):
		}
	}
	return lastErr
}
