package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"postscope/pkg/history"
	"postscope/pkg/ui"
)

var (
	historyUser  string
	historyClear bool
)

// historyCmd lists finished jobs
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List finished jobs",
	Example: `  postscope history
  postscope history --user nasa
  postscope history --clear`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().StringVarP(&historyUser, "user", "u", "", "only jobs for this account")
	historyCmd.Flags().BoolVar(&historyClear, "clear", false, "delete the history")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}

	store := history.NewStore(cfg.HistoryPath(), nil)

	if historyClear {
		if err := store.Clear(); err != nil {
			return err
		}
		ui.PrintSuccess("History cleared")
		return nil
	}

	var records []history.Record
	if historyUser != "" {
		records, err = store.ForUser(historyUser)
	} else {
		records, err = store.List()
	}
	if err != nil {
		return err
	}

	ui.PrintHistory(os.Stdout, records, time.Now())
	return nil
}
