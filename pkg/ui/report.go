package ui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"postscope/pkg/history"
	"postscope/pkg/jobs"
	"postscope/pkg/summary"
)

const barWidth = 20

// Bar renders pct (0..100) as a fixed-width bar
func Bar(pct float64) string {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	filled := int(pct / 100 * barWidth)
	return strings.Repeat("━", filled) + strings.Repeat("─", barWidth-filled)
}

// PrintReport writes a short human summary of a finished job
func PrintReport(w io.Writer, snap jobs.Snapshot, sum summary.Summary) {
	fmt.Fprintf(w, "\n%s Collected %s posts from @%s", Green("✓"), humanize.Comma(int64(sum.PostCount)), snap.Username)
	if snap.StartedAt != nil && snap.FinishedAt != nil {
		fmt.Fprintf(w, " in %s", snap.FinishedAt.Sub(*snap.StartedAt).Round(time.Second))
	}
	fmt.Fprintln(w)

	if sum.PostCount == 0 {
		return
	}

	fmt.Fprintln(w, Bold("\nSentiment"))
	printPct(w, "positive", sum.PositivePct, Green)
	printPct(w, "neutral", sum.NeutralPct, Dim)
	printPct(w, "negative", sum.NegativePct, Red)

	fmt.Fprintln(w, Bold("\nPost types"))
	printPct(w, "regular", sum.RegularPct, Cyan)
	printPct(w, "replies", sum.RepliesPct, Cyan)
	if sum.ResharePct > 0 {
		printPct(w, "reshares", sum.ResharePct, Cyan)
	}

	fmt.Fprintln(w, Bold("\nEngagement"))
	fmt.Fprintf(w, "  %-10s %s avg, %s total\n", "likes", Yellow(fmt.Sprintf("%.2f", sum.AvgLikes)), humanize.Comma(int64(sum.TotalLikes)))
	fmt.Fprintf(w, "  %-10s %s avg, %s total\n", "retweets", Yellow(fmt.Sprintf("%.2f", sum.AvgRetweets)), humanize.Comma(int64(sum.TotalRetweets)))
	fmt.Fprintf(w, "  %-10s %s avg, %s total\n", "replies", Yellow(fmt.Sprintf("%.2f", sum.AvgReplies)), humanize.Comma(int64(sum.TotalReplies)))

	if len(sum.Topics) > 0 {
		names := make([]string, 0, len(sum.Topics))
		for _, t := range sum.Topics {
			names = append(names, fmt.Sprintf("%s (%d)", t.Name, t.Count))
		}
		fmt.Fprintln(w, Bold("\nTopics"))
		fmt.Fprintf(w, "  %s\n", Magenta(strings.Join(names, ", ")))
	}

	if len(snap.Files) > 0 {
		fmt.Fprintln(w, Bold("\nFiles"))
		for _, f := range snap.Files {
			fmt.Fprintf(w, "  %s\n", Dim(f))
		}
	}
}

func printPct(w io.Writer, label string, pct float64, paint func(a ...interface{}) string) {
	fmt.Fprintf(w, "  %-10s %s %6.2f%%\n", label, paint(Bar(pct)), pct)
}

// PrintHistory lists finished jobs, newest first
func PrintHistory(w io.Writer, records []history.Record, now time.Time) {
	if len(records) == 0 {
		fmt.Fprintln(w, Dim("No jobs recorded yet"))
		return
	}

	for _, r := range records {
		when := humanize.RelTime(r.FinishedAt, now, "ago", "from now")
		fmt.Fprintf(w, "%s  @%-15s %-8s %-9s %6s posts  %s\n",
			Dim(shortID(r.JobID)),
			r.Username,
			r.PostType,
			StateLabel(r.State),
			humanize.Comma(int64(r.PostCount)),
			Dim(when),
		)
		if r.Error != "" {
			fmt.Fprintf(w, "          %s\n", Red(r.Error))
		}
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
