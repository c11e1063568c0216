package ui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"postscope/pkg/jobs"
)

// StatusSource is the part of the job manager Follow polls
type StatusSource interface {
	Status(id string) (jobs.Snapshot, error)
}

// LogFollower prints job log lines as they appear. Lines already printed
// are skipped on the next call.
type LogFollower struct {
	w       io.Writer
	printed int
}

// NewLogFollower writes to w
func NewLogFollower(w io.Writer) *LogFollower {
	return &LogFollower{w: w}
}

// Print writes the lines of snap not yet printed
func (f *LogFollower) Print(snap jobs.Snapshot) {
	if f.printed > len(snap.Log) {
		f.printed = 0
	}
	for _, line := range snap.Log[f.printed:] {
		fmt.Fprintln(f.w, colorLine(line))
	}
	f.printed = len(snap.Log)
}

// Printed returns how many lines have been written
func (f *LogFollower) Printed() int {
	return f.printed
}

// Follow polls job id every interval, printing new log lines, until it is
// terminal or ctx ends
func (f *LogFollower) Follow(ctx context.Context, src StatusSource, id string, interval time.Duration) (jobs.Snapshot, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		snap, err := src.Status(id)
		if err != nil {
			return jobs.Snapshot{}, err
		}
		f.Print(snap)
		if snap.State.Terminal() {
			return snap, nil
		}

		select {
		case <-ctx.Done():
			return snap, ctx.Err()
		case <-ticker.C:
		}
	}
}

// colorLine highlights a "[15:04:05] message" log line
func colorLine(line string) string {
	stamp, msg := "", line
	if strings.HasPrefix(line, "[") {
		if i := strings.Index(line, "] "); i > 0 {
			stamp, msg = line[:i+1]+" ", line[i+2:]
		}
	}

	switch {
	case strings.HasPrefix(msg, "Error:"), strings.HasPrefix(msg, "Output failed"):
		msg = Red(msg)
	case strings.HasPrefix(msg, "Completed:"), strings.HasPrefix(msg, "Wrote "):
		msg = Green(msg)
	case strings.HasPrefix(msg, "Found "), strings.HasPrefix(msg, "Account:"):
		msg = Magenta(msg)
	case strings.Contains(msg, "Rate limited"), strings.Contains(msg, "Cancellation"):
		msg = Yellow(msg)
	}
	return Dim(stamp) + msg
}
