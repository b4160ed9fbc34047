package worker

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fakeClock advances only when the limiter sleeps.
type fakeClock struct {
	now   time.Time
	slept []time.Duration
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.slept = append(c.slept, d)
	c.now = c.now.Add(d)
	return nil
}

func newFakeLimiter(rps float64, burst int) (*Limiter, *fakeClock) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	return NewLimiter(rps, burst, WithClock(clock.Now, clock.Sleep)), clock
}

func TestLimiter_New(t *testing.T) {
	limiter := NewLimiter(10, 5)
	if limiter.burst != 5 {
		t.Errorf("expected burst 5, got %d", limiter.burst)
	}

	l2 := NewLimiter(10, -1)
	if l2.burst != 5 {
		t.Errorf("expected default burst 5 for negative input, got %d", l2.burst)
	}
}

func TestLimiter_Unlimited(t *testing.T) {
	limiter, clock := newFakeLimiter(0, 1)
	ctx := context.Background()
	for i := 0; i < 100; i++ {
		if err := limiter.Wait(ctx, "http://service.local/api"); err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
	}
	if len(clock.slept) != 0 {
		t.Errorf("unlimited limiter slept %v", clock.slept)
	}
}

func TestLimiter_PerHostBuckets(t *testing.T) {
	limiter := NewLimiter(1, 1)
	ctx := context.Background()

	if err := limiter.Wait(ctx, "http://comps.local/api/simulations/1"); err != nil {
		t.Fatalf("first wait failed: %v", err)
	}
	if limiter.pace("comps.local").bucket.Allow() {
		t.Error("expected second request to the same host to be limited")
	}
	if !limiter.pace("other.local").bucket.Allow() {
		t.Error("expected other host to be allowed")
	}
}

func TestLimiter_HoldOff(t *testing.T) {
	limiter, clock := newFakeLimiter(0, 1)
	ctx := context.Background()

	if err := limiter.HoldOff("http://comps.local/api/x", 4*time.Second); err != nil {
		t.Fatal(err)
	}
	if err := limiter.HoldOff("http://comps.local/api/y", time.Second); err != nil {
		t.Fatal(err)
	}
	if err := limiter.Wait(ctx, "http://other.local/api"); err != nil {
		t.Fatal(err)
	}
	if len(clock.slept) != 0 {
		t.Fatalf("other host held back: %v", clock.slept)
	}

	if err := limiter.Wait(ctx, "http://comps.local/api/z"); err != nil {
		t.Fatal(err)
	}
	if len(clock.slept) != 1 || clock.slept[0] != 4*time.Second {
		t.Fatalf("expected one 4s hold-off, got %v", clock.slept)
	}

	// the hold-off has passed
	if err := limiter.Wait(ctx, "http://comps.local/api/z"); err != nil {
		t.Fatal(err)
	}
	if len(clock.slept) != 1 {
		t.Errorf("expected no further sleep, got %v", clock.slept)
	}
}

func TestLimiter_HoldOffCanceled(t *testing.T) {
	limiter := NewLimiter(0, 1)
	if err := limiter.HoldOff("http://comps.local", time.Hour); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := limiter.Wait(ctx, "http://comps.local/api")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Error("canceled wait did not return promptly")
	}
}

func TestHostOf(t *testing.T) {
	host, err := hostOf("https://comps.local:8443/api")
	if err != nil {
		t.Fatalf("hostOf failed: %v", err)
	}
	if host != "comps.local:8443" {
		t.Errorf("expected comps.local:8443, got %s", host)
	}

	if _, err := hostOf("::invalid"); err == nil {
		t.Error("expected error for invalid URL")
	}
	limiter := NewLimiter(1, 1)
	if err := limiter.HoldOff("::invalid", time.Second); err == nil {
		t.Error("expected error for invalid URL")
	}
}
