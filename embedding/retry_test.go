package embedding

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetryWithBackoff(t *testing.T) {
	logger := slog.Default()
	ctx := context.Background()
	boom := errors.New("boom")

	t.Run("success on first attempt", func(t *testing.T) {
		calls := 0
		err := retryWithBackoff(ctx, logger, func() error {
			calls++
			return nil
		}, 3, time.Millisecond)
		assert.NoError(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("returns last error", func(t *testing.T) {
		calls := 0
		err := retryWithBackoff(ctx, logger, func() error {
			calls++
			return boom
		}, 3, time.Millisecond)
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 3, calls)
	})

	t.Run("invalid attempts", func(t *testing.T) {
		err := retryWithBackoff(ctx, logger, func() error { return nil }, 0, time.Millisecond)
		assert.ErrorIs(t, err, ErrInvalidMaxAttempts)
	})

	t.Run("context canceled during backoff", func(t *testing.T) {
		ctx, cancel := context.WithCancel(ctx)
		calls := 0
		err := retryWithBackoff(ctx, logger, func() error {
			calls++
			cancel()
			return boom
		}, 5, time.Hour)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	})
}
