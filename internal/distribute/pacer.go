package distribute

import (
	"context"
	"time"
)

const DefaultDelay = 2 * time.Second

// Pacer is called between two consecutive attempts.
type Pacer interface {
	Pause(ctx context.Context) error
}

type PacerFunc func(ctx context.Context) error

func (f PacerFunc) Pause(ctx context.Context) error { return f(ctx) }

// NoDelay never waits.
var NoDelay Pacer = PacerFunc(func(ctx context.Context) error { return ctx.Err() })

// FixedDelay waits d, or returns early with ctx's error.
func FixedDelay(d time.Duration) Pacer {
	return PacerFunc(func(ctx context.Context) error {
		if d <= 0 {
			return ctx.Err()
		}
		t := time.NewTimer(d)
		defer t.Stop()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			return nil
		}
	})
}
