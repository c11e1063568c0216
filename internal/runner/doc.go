// Package runner provides the bounded worker pool that executes jobs.
package runner
