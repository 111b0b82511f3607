package upload

import (
	"context"
	"math"
	"time"
)

// Backoff returns the wait before retry number attempt (starting at 1):
// jitter * 2^attempt seconds, with jitter drawn from [0, 1).
func Backoff(attempt int, jitter float64) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	seconds := jitter * math.Pow(2, float64(attempt))
	return time.Duration(seconds * float64(time.Second))
}

// SleepContext waits for d or until ctx is done.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
