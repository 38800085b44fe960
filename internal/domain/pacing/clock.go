package pacing

import (
	"context"
	"time"
)

// SystemClock is the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Sleep blocks for d or until ctx ends.
func (SystemClock) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Inline runs render on the calling goroutine.
type Inline struct{}

func (Inline) Invoke(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}
