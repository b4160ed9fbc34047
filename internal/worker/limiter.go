package worker

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter paces calls to the execution service. Each host has a token bucket
// and an optional hold-off: after a host answers with a transient failure,
// every caller sharing the limiter waits until the hold-off has passed.
type Limiter struct {
	mu    sync.Mutex
	hosts map[string]*hostPace
	limit rate.Limit
	burst int

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

type hostPace struct {
	bucket *rate.Limiter
	resume time.Time
}

// LimiterOption configures a Limiter.
type LimiterOption func(*Limiter)

// WithClock replaces the time source and the sleep used for hold-offs.
func WithClock(now func() time.Time, sleep func(ctx context.Context, d time.Duration) error) LimiterOption {
	return func(l *Limiter) {
		l.now = now
		l.sleep = sleep
	}
}

// NewLimiter allows requestsPerSecond per host with the given burst. A
// non-positive rate disables pacing; hold-offs still apply.
func NewLimiter(requestsPerSecond float64, burst int, opts ...LimiterOption) *Limiter {
	if burst <= 0 {
		burst = 5
	}
	limit := rate.Limit(requestsPerSecond)
	if requestsPerSecond <= 0 {
		limit = rate.Inf
	}

	l := &Limiter{
		hosts: make(map[string]*hostPace),
		limit: limit,
		burst: burst,
		now:   time.Now,
		sleep: sleepContext,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Wait blocks until a request to rawURL's host may be sent.
func (l *Limiter) Wait(ctx context.Context, rawURL string) error {
	host, err := hostOf(rawURL)
	if err != nil {
		return err
	}

	l.mu.Lock()
	p := l.pace(host)
	delay := p.resume.Sub(l.now())
	l.mu.Unlock()

	if delay > 0 {
		if err := l.sleep(ctx, delay); err != nil {
			return err
		}
	}
	return p.bucket.Wait(ctx)
}

// HoldOff keeps requests to rawURL's host back for d. A hold-off ending
// earlier than the current one is ignored.
func (l *Limiter) HoldOff(rawURL string, d time.Duration) error {
	host, err := hostOf(rawURL)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	p := l.pace(host)
	if resume := l.now().Add(d); resume.After(p.resume) {
		p.resume = resume
	}
	return nil
}

// pace returns the state of host. l.mu must be held.
func (l *Limiter) pace(host string) *hostPace {
	p, ok := l.hosts[host]
	if !ok {
		p = &hostPace{bucket: rate.NewLimiter(l.limit, l.burst)}
		l.hosts[host] = p
	}
	return p
}

func hostOf(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("rate limit: %w", err)
	}
	return parsed.Host, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
