// Package ratelimit bounds outbound API usage.
//
// SlidingWindow keeps the timestamps of recent requests and refuses a new
// one while the trailing window already holds its budget. An optional
// minimum interval, enforced with golang.org/x/time/rate, spaces requests
// out inside the window.
//
//	limiter := ratelimit.NewSlidingWindow(30, time.Minute,
//	    ratelimit.WithMinInterval(500*time.Millisecond))
//	if err := limiter.Acquire(ctx); err != nil {
//	    return err
//	}
//
// All bookkeeping happens under one mutex, so a limiter can be shared by
// every job in the process without two callers claiming the same slot.
package ratelimit
