package crawl_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fwojciec/docdex"
	"github.com/fwojciec/docdex/crawl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryConflict(t *testing.T) {
	t.Parallel()

	t.Run("returns nil on first success", func(t *testing.T) {
		t.Parallel()

		calls := 0
		err := crawl.RetryConflict(context.Background(), func(context.Context) error {
			calls++
			return nil
		}, []time.Duration{time.Millisecond})

		require.NoError(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("retries conflicts until success", func(t *testing.T) {
		t.Parallel()

		calls := 0
		err := crawl.RetryConflict(context.Background(), func(context.Context) error {
			calls++
			if calls < 3 {
				return docdex.Errorf(docdex.ECONFLICT, "database is busy")
			}
			return nil
		}, []time.Duration{time.Millisecond, time.Millisecond, time.Millisecond})

		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("does not retry non-conflict errors", func(t *testing.T) {
		t.Parallel()

		calls := 0
		err := crawl.RetryConflict(context.Background(), func(context.Context) error {
			calls++
			return errors.New("disk full")
		}, []time.Duration{time.Millisecond, time.Millisecond})

		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("exhausts delays and returns last conflict", func(t *testing.T) {
		t.Parallel()

		calls := 0
		err := crawl.RetryConflict(context.Background(), func(context.Context) error {
			calls++
			return docdex.Errorf(docdex.ECONFLICT, "database is busy")
		}, []time.Duration{time.Millisecond, time.Millisecond})

		require.Error(t, err)
		assert.Equal(t, docdex.ECONFLICT, docdex.ErrorCode(err))
		assert.Equal(t, 3, calls) // initial call plus one per delay
	})

	t.Run("stops when context is cancelled between attempts", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		calls := 0
		err := crawl.RetryConflict(ctx, func(context.Context) error {
			calls++
			cancel()
			return docdex.Errorf(docdex.ECONFLICT, "database is busy")
		}, []time.Duration{time.Hour})

		require.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	})
}
