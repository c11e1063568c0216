// Package retry provides bounded exponential backoff for calls to the data
// API.
//
// Only rate-limit and network errors from pkg/errors are retried by default.
// Authentication, not-found and forbidden failures are terminal and come
// back from the first attempt. A RetryAfter hint on the error raises the
// next delay.
//
//	cfg := retry.FromConfig(appConfig.Retry, log)
//	user, err := retry.DoWithResult(ctx, func() (*User, error) {
//		return client.lookup(ctx, name)
//	}, cfg)
//
// When every attempt fails, the last error is returned wrapped, so
// errors.Is and errors.As still see the original typed error.
package retry
