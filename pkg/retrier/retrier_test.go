package retrier

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoSucceedsFirstAttempt(t *testing.T) {
	r := New(WithInitialInterval(time.Millisecond))

	calls := 0
	err := r.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	r := New(WithInitialInterval(time.Millisecond), WithMaxInterval(2*time.Millisecond))

	calls := 0
	err := r.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoExhaustsRetries(t *testing.T) {
	r := New(WithInitialInterval(time.Millisecond), WithMaxRetries(2))

	calls := 0
	failure := errors.New("permanent")
	err := r.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return failure
	})

	require.ErrorIs(t, err, failure)
	assert.Equal(t, 3, calls, "one attempt plus two retries")
}

func TestDoStopsOnContextCancel(t *testing.T) {
	r := New(WithInitialInterval(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := r.Do(ctx, func(ctx context.Context) error {
		return errors.New("transient")
	})

	require.ErrorIs(t, err, context.Canceled)
}
