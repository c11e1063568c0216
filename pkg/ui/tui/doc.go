// Package tui is a bubbletea monitor for a single collection job. It polls
// the job manager, draws the state, a progress bar towards the max count,
// the shared rate limiter usage and the tail of the job log. Pressing c
// cancels the job; q closes the monitor and leaves the job running.
package tui
