package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"postscope/pkg/socialdata"
	"postscope/pkg/ui"
)

// countCmd looks up an account without collecting posts
var countCmd = &cobra.Command{
	Use:   "count <username>",
	Short: "Show an account's post and follower counts",
	Long: `Look up an account and print its profile counts. This costs one API
request and does not start a job.`,
	Example: `  postscope count nasa`,
	Args:    cobra.ExactArgs(1),
	RunE:    runCount,
}

func init() {
	rootCmd.AddCommand(countCmd)
}

func runCount(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}
	if err := resolveAPIKey(cfg); err != nil {
		return err
	}

	username := socialdata.SanitizeUsername(args[0])
	if !socialdata.IsValidUsername(username) {
		return fmt.Errorf("invalid username %q", args[0])
	}

	a := newApp(cfg)
	defer a.close(time.Second)

	ctx, cancel := context.WithTimeout(cmd.Context(), 2*cfg.API.RequestTimeout)
	defer cancel()

	account, err := a.client.FetchAccount(ctx, username)
	if err != nil {
		return err
	}

	ui.PrintInfo("Account", fmt.Sprintf("%s (@%s)", account.Name, account.ScreenName))
	ui.PrintInfo("Posts", strconv.Itoa(account.PostsCount))
	ui.PrintInfo("Followers", strconv.Itoa(account.FollowersCount))
	ui.PrintInfo("Following", strconv.Itoa(account.FollowingCount))
	if account.Verified {
		ui.PrintInfo("Verified", "yes")
	}
	if account.Protected {
		ui.PrintWarning("Posts are protected and cannot be fetched")
	}
	return nil
}
