package task

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetrySucceedsFirstTry(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), 3, time.Millisecond, func(context.Context) error {
		calls++
		return nil
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryRecoversAfterFailure(t *testing.T) {
	calls := 0
	var reported []int
	err := Retry(context.Background(), 3, time.Millisecond, func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	}, func(attempt int, _ error) {
		reported = append(reported, attempt)
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, reported)
}

func TestRetryGivesUpAfterAttempts(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	err := Retry(context.Background(), 3, time.Millisecond, func(context.Context) error {
		calls++
		return boom
	}, nil)

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, calls)
}

func TestRetryStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := Retry(ctx, 5, time.Minute, func(context.Context) error {
		calls++
		return errors.New("transient")
	}, nil)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
