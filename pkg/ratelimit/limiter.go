package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// SlidingWindow permits at most maxRequests acquisitions in any rolling
// window of windowSize, optionally spaced at least minInterval apart.
// A single instance may be shared by every job in the process.
type SlidingWindow struct {
	windowSize  time.Duration
	maxRequests int
	minInterval time.Duration
	requests    []time.Time
	spacing     *rate.Limiter
	now         func() time.Time
	onWait      func(time.Duration)
	mu          sync.Mutex
}

// Option configures a SlidingWindow
type Option func(*SlidingWindow)

// WithMinInterval enforces a minimum gap between consecutive requests
func WithMinInterval(d time.Duration) Option {
	return func(sw *SlidingWindow) {
		sw.minInterval = d
	}
}

// WithClock replaces time.Now, for tests
func WithClock(now func() time.Time) Option {
	return func(sw *SlidingWindow) {
		sw.now = now
	}
}

// WithWaitHook is called every time Acquire has to sleep
func WithWaitHook(fn func(time.Duration)) Option {
	return func(sw *SlidingWindow) {
		sw.onWait = fn
	}
}

// NewSlidingWindow creates a new sliding window rate limiter
func NewSlidingWindow(maxRequests int, windowSize time.Duration, opts ...Option) *SlidingWindow {
	if maxRequests < 1 {
		maxRequests = 1
	}
	sw := &SlidingWindow{
		windowSize:  windowSize,
		maxRequests: maxRequests,
		requests:    make([]time.Time, 0, maxRequests),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(sw)
	}
	sw.spacing = sw.newSpacing()
	return sw
}

func (sw *SlidingWindow) newSpacing() *rate.Limiter {
	if sw.minInterval <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(sw.minInterval), 1)
}

// Reserve charges a slot and returns zero when one is free. Otherwise it
// returns how long the caller must wait before trying again and charges
// nothing.
func (sw *SlidingWindow) Reserve() time.Duration {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	now := sw.now()
	sw.cleanOldRequests(now)

	if len(sw.requests) >= sw.maxRequests {
		return sw.requests[0].Add(sw.windowSize).Sub(now)
	}

	if sw.spacing != nil && !sw.spacing.AllowN(now, 1) {
		missing := 1 - sw.spacing.TokensAt(now)
		wait := time.Duration(missing * float64(sw.minInterval))
		if wait <= 0 {
			wait = time.Millisecond
		}
		return wait
	}

	sw.requests = append(sw.requests, now)
	return 0
}

// Acquire blocks until a slot is charged or ctx is done
func (sw *SlidingWindow) Acquire(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		wait := sw.Reserve()
		if wait <= 0 {
			return nil
		}
		if sw.onWait != nil {
			sw.onWait(wait)
		}

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}

// Used returns how many slots are charged in the current window
func (sw *SlidingWindow) Used() int {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	sw.cleanOldRequests(sw.now())
	return len(sw.requests)
}

// Capacity returns the configured window budget
func (sw *SlidingWindow) Capacity() int {
	return sw.maxRequests
}

// cleanOldRequests drops timestamps that have left the window. A timestamp
// exactly windowSize old is outside it.
func (sw *SlidingWindow) cleanOldRequests(now time.Time) {
	cutoff := now.Add(-sw.windowSize)

	i := 0
	for i < len(sw.requests) && !sw.requests[i].After(cutoff) {
		i++
	}

	if i > 0 {
		copy(sw.requests, sw.requests[i:])
		sw.requests = sw.requests[:len(sw.requests)-i]
	}
}
