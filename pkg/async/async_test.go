package async_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluentive/entitlements/pkg/async"
)

func TestAsync(t *testing.T) {
	t.Parallel()

	t.Run("returns the computed result", func(t *testing.T) {
		t.Parallel()

		f := async.Async(context.Background(), 21, func(ctx context.Context, n int) (int, error) {
			return n * 2, nil
		})
		got, err := f.Await()
		require.NoError(t, err)
		assert.Equal(t, 42, got)
	})

	t.Run("propagates the computation error", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("boom")
		f := async.Async(context.Background(), "x", func(ctx context.Context, _ string) (string, error) {
			return "", boom
		})
		_, err := f.Await()
		require.ErrorIs(t, err, boom)
	})

	t.Run("cancelled context short-circuits", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		f := async.Async(ctx, 0, func(ctx context.Context, _ int) (int, error) {
			t.Error("function must not run after cancellation")
			return 0, nil
		})
		_, err := f.Await()
		require.ErrorIs(t, err, context.Canceled)
	})

	t.Run("await with timeout", func(t *testing.T) {
		t.Parallel()

		f := async.Async(context.Background(), 0, func(ctx context.Context, _ int) (int, error) {
			time.Sleep(time.Second)
			return 1, nil
		})
		_, err := f.AwaitWithTimeout(10 * time.Millisecond)
		require.ErrorIs(t, err, async.ErrTimeout)
	})
}
