package crawler

import (
	"context"
	"testing"
	"time"
)

func TestAdaptiveDelay(t *testing.T) {
	t.Parallel()

	t.Run("starts at the minimum", func(t *testing.T) {
		t.Parallel()

		d := NewAdaptiveDelay(500*time.Millisecond, 5*time.Second)
		if got := d.Current(); got != 500*time.Millisecond {
			t.Errorf("expected 500ms, got %v", got)
		}
		if got := d.Observe(100 * time.Millisecond); got != 500*time.Millisecond {
			t.Errorf("expected first sample to keep the delay, got %v", got)
		}
	})

	t.Run("grows three times faster than the slowdown", func(t *testing.T) {
		t.Parallel()

		d := NewAdaptiveDelay(500*time.Millisecond, 5*time.Second)
		d.Observe(100 * time.Millisecond)
		// Average goes from 100ms to 150ms: +50%, weighted to +150%.
		if got := d.Observe(200 * time.Millisecond); got != 1250*time.Millisecond {
			t.Errorf("expected 1250ms, got %v", got)
		}
	})

	t.Run("shrinks when the server speeds up", func(t *testing.T) {
		t.Parallel()

		d := NewAdaptiveDelay(500*time.Millisecond, 5*time.Second)
		d.Observe(100 * time.Millisecond)
		before := d.Observe(200 * time.Millisecond)
		after := d.Observe(10 * time.Millisecond)
		if after >= before {
			t.Errorf("expected delay to shrink from %v, got %v", before, after)
		}
	})

	t.Run("stays within bounds", func(t *testing.T) {
		t.Parallel()

		d := NewAdaptiveDelay(500*time.Millisecond, 5*time.Second)
		d.Observe(time.Millisecond)
		d.Observe(time.Second)
		if got := d.Current(); got != 5*time.Second {
			t.Errorf("expected delay capped at 5s, got %v", got)
		}
		for range 10 {
			d.Observe(time.Millisecond)
		}
		if got := d.Current(); got < 500*time.Millisecond {
			t.Errorf("expected delay above 500ms, got %v", got)
		}
	})

	t.Run("doubles on backoff", func(t *testing.T) {
		t.Parallel()

		d := NewAdaptiveDelay(500*time.Millisecond, 5*time.Second)
		if got := d.Backoff(); got != time.Second {
			t.Errorf("expected 1s, got %v", got)
		}
		for range 5 {
			d.Backoff()
		}
		if got := d.Current(); got != 5*time.Second {
			t.Errorf("expected backoff capped at 5s, got %v", got)
		}
	})

	t.Run("keeps five samples", func(t *testing.T) {
		t.Parallel()

		d := NewAdaptiveDelay(0, 0)
		for range 8 {
			d.Observe(time.Millisecond)
		}
		d.mu.Lock()
		n := len(d.history)
		d.mu.Unlock()
		if n != historySize {
			t.Errorf("expected %d samples, got %d", historySize, n)
		}
	})

	t.Run("zero delay does not block", func(t *testing.T) {
		t.Parallel()

		d := NewAdaptiveDelay(0, 0)
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		for range 100 {
			if err := d.Wait(ctx); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}
	})

	t.Run("wait honors context", func(t *testing.T) {
		t.Parallel()

		d := NewAdaptiveDelay(time.Hour, time.Hour)
		ctx, cancel := context.WithCancel(context.Background())
		if err := d.Wait(ctx); err != nil {
			t.Fatalf("expected first wait to pass, got %v", err)
		}
		cancel()
		if err := d.Wait(ctx); err == nil {
			t.Error("expected error after cancel")
		}
	})
}
