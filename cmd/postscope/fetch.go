package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"postscope/pkg/jobs"
	"postscope/pkg/models"
	"postscope/pkg/ui"
	"postscope/pkg/ui/tui"
)

var (
	fetchType      string
	fetchMax       int
	fetchStart     string
	fetchEnd       string
	fetchOutput    string
	fetchFormats   []string
	fetchRateLimit int
	fetchAPIKey    string
	fetchTUI       bool
	fetchNotify    bool
)

// fetchCmd runs one job in the foreground
var fetchCmd = &cobra.Command{
	Use:   "fetch <username>",
	Short: "Fetch and tag an account's posts",
	Long: `Fetch an account's posts, tag them, and write the configured exports.

Posts are collected newest first until --max is reached or the account runs
out. --start and --end (YYYY-MM-DD, inclusive) narrow the range. Press
Ctrl-C to cancel the job; partial results are discarded.`,
	Example: `  # Latest 100 original posts
  postscope fetch nasa

  # Replies from January, as CSV only, with the dashboard
  postscope fetch nasa --type replies --start 2024-01-01 --end 2024-01-31 --formats csv --tui`,
	Args: cobra.ExactArgs(1),
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)

	f := fetchCmd.Flags()
	f.StringVarP(&fetchType, "type", "t", "", "post type: posts, replies or both")
	f.IntVarP(&fetchMax, "max", "m", 0, fmt.Sprintf("maximum posts to collect (1-%d)", jobs.MaxPostsLimit))
	f.StringVar(&fetchStart, "start", "", "earliest post date, YYYY-MM-DD")
	f.StringVar(&fetchEnd, "end", "", "latest post date, YYYY-MM-DD")
	f.StringVarP(&fetchOutput, "output", "o", "", "output base directory")
	f.StringSliceVarP(&fetchFormats, "formats", "f", nil, "output formats (json, csv, xml, summary, sqlite)")
	f.IntVar(&fetchRateLimit, "rate-limit", 0, "requests allowed per rate window")
	f.StringVar(&fetchAPIKey, "api-key", "", "API key (prefer 'postscope auth login')")
	f.BoolVar(&fetchTUI, "tui", false, "show the interactive dashboard")
	f.BoolVar(&fetchNotify, "notify", false, "send a desktop notification when the job ends")
}

func fetchFlags(cmd *cobra.Command) map[string]interface{} {
	flags := make(map[string]interface{})
	changed := cmd.Flags().Changed
	if changed("type") {
		flags["type"] = fetchType
	}
	if changed("max") {
		flags["max"] = fetchMax
	}
	if changed("output") {
		flags["output"] = fetchOutput
	}
	if changed("formats") {
		flags["formats"] = fetchFormats
	}
	if changed("rate-limit") {
		flags["rate-limit"] = fetchRateLimit
	}
	if changed("api-key") {
		flags["api-key"] = fetchAPIKey
	}
	return flags
}

func runFetch(cmd *cobra.Command, args []string) error {
	flags := fetchFlags(cmd)
	if fetchTUI && logLevel == "" {
		// log lines would tear the dashboard
		flags["log-level"] = "error"
	}
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}
	if err := resolveAPIKey(cfg); err != nil {
		return err
	}

	start, err := jobs.ParseDate(fetchStart, false)
	if err != nil {
		return err
	}
	end, err := jobs.ParseDate(fetchEnd, true)
	if err != nil {
		return err
	}

	postType, err := models.ParsePostType(cfg.Fetch.PostType)
	if err != nil {
		return err
	}

	a := newApp(cfg)
	defer a.close(5 * time.Second)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	id, err := a.jobs.Start(ctx, jobs.Params{
		Username: args[0],
		Type:     postType,
		MaxCount: cfg.Fetch.MaxPosts,
		Start:    start,
		End:      end,
	})
	if err != nil {
		return err
	}

	if !quiet {
		ui.PrintInfo("Job", id)
		ui.PrintInfo("Account", "@"+args[0])
		ui.PrintInfo("Type", string(postType))
	}

	snap, err := watch(ctx, a, id)
	if err != nil {
		return err
	}

	if snap.State == jobs.StateCompleted {
		if _, sum, err := a.jobs.Result(id); err == nil {
			ui.PrintReport(os.Stdout, snap, sum)
		}
	}

	notifier := ui.NewNotifierWithSender(nil)
	if fetchNotify {
		notifier = ui.NewNotifier()
	}
	notifier.JobFinished(snap)

	if snap.State != jobs.StateCompleted {
		return errors.New(snap.Error)
	}
	return nil
}

// watch follows the job until it is terminal. An interrupt or a cancel
// request from the dashboard cancels the job and waits for it to settle.
func watch(ctx context.Context, a *app, id string) (jobs.Snapshot, error) {
	var (
		snap jobs.Snapshot
		err  error
	)

	if fetchTUI {
		var cancelled bool
		snap, cancelled, err = tui.Run(ctx, a.jobs, id, tui.WithRate(a.rateUsage))
		if err != nil && ctx.Err() == nil {
			return snap, err
		}
		if !snap.State.Terminal() && !cancelled && ctx.Err() == nil {
			// dashboard closed, job still running
			ui.PrintWarning("Dashboard closed, following the job log")
			snap, err = ui.NewLogFollower(os.Stdout).Follow(ctx, a.jobs, id, 500*time.Millisecond)
		}
	} else {
		snap, err = ui.NewLogFollower(os.Stdout).Follow(ctx, a.jobs, id, 500*time.Millisecond)
	}

	if snap.State.Terminal() {
		return snap, nil
	}
	if err != nil && ctx.Err() == nil {
		return snap, err
	}

	if ctx.Err() != nil {
		ui.PrintWarning("Interrupted, cancelling job")
	}
	if cerr := a.jobs.Cancel(id); cerr != nil {
		return snap, cerr
	}

	waitCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return a.jobs.Wait(waitCtx, id)
}
