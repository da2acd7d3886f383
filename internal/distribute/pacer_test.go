package distribute

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestFixedDelay_Waits(t *testing.T) {
	start := time.Now()
	if err := FixedDelay(20 * time.Millisecond).Pause(context.Background()); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if time.Since(start) < 20*time.Millisecond {
		t.Fatalf("expected to wait at least 20ms, waited %v", time.Since(start))
	}
}

func TestFixedDelay_Cancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := FixedDelay(time.Hour).Pause(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got=%v", err)
	}
	if time.Since(start) > time.Second {
		t.Fatal("pause did not return promptly")
	}
}

func TestNoDelay(t *testing.T) {
	if err := NoDelay.Pause(context.Background()); err != nil {
		t.Fatalf("pause: %v", err)
	}
}
