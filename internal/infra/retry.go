package infra

import (
	"context"
	"time"
)

const (
	connectAttempts = 5
	connectDelay    = 500 * time.Millisecond
)

// retry calls fn until it succeeds, attempts run out, or ctx ends. The delay
// doubles after each failure.
func retry(ctx context.Context, attempts int, delay time.Duration, fn func(context.Context) error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return err
}
