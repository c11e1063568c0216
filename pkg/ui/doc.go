// Package ui holds the plain terminal output of the CLI: coloured helpers,
// a log follower for running jobs, the end-of-job report, history listing
// and desktop notifications. The full-screen monitor lives in ui/tui.
package ui
