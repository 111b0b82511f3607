package upload

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestBackoff(t *testing.T) {
	tests := []struct {
		attempt int
		jitter  float64
		want    time.Duration
	}{
		{1, 0.5, 1 * time.Second},
		{2, 0.5, 2 * time.Second},
		{3, 1, 8 * time.Second},
		{10, 0.5, 512 * time.Second},
		{4, 0, 0},
		{0, 1, 2 * time.Second},
	}

	for _, tt := range tests {
		if got := Backoff(tt.attempt, tt.jitter); got != tt.want {
			t.Errorf("Backoff(%d, %v) = %v, want %v", tt.attempt, tt.jitter, got, tt.want)
		}
	}
}

func TestBackoff_BoundedByAttempt(t *testing.T) {
	for attempt := 1; attempt <= 10; attempt++ {
		upper := time.Duration(1<<attempt) * time.Second
		if got := Backoff(attempt, 0.999999); got >= upper {
			t.Errorf("attempt %d: backoff %v not below %v", attempt, got, upper)
		}
	}
}

func TestSleepContext_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := SleepContext(ctx, time.Hour)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Error("sleep was not interrupted")
	}
}

func TestSleepContext_Elapses(t *testing.T) {
	if err := SleepContext(context.Background(), time.Millisecond); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
