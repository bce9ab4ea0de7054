package task

import (
	"context"
	"time"
)

// Retry runs fn up to attempts times with a fixed delay between tries.
// onError is invoked after each failed attempt before the delay. The last
// error is returned when every attempt fails; a cancelled context cuts the
// loop short.
func Retry(ctx context.Context, attempts int, delay time.Duration, fn func(context.Context) error, onError func(attempt int, err error)) error {
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if onError != nil {
			onError(attempt, err)
		}
		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return err
}
