package main

import (
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"postscope/pkg/server"
	"postscope/pkg/ui"
)

var (
	serveAddr    string
	serveWorkers int
	serveAPIKey  string
)

// serveCmd exposes the job manager over HTTP
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serve the job API until interrupted:

  POST   /api/jobs               start a job
  GET    /api/jobs               list jobs
  GET    /api/jobs/{id}          job status (?tail=N for the last N log lines)
  DELETE /api/jobs/{id}          cancel a job
  GET    /api/jobs/{id}/result   tagged posts and summary
  GET    /api/history            finished jobs (?username=)
  GET    /metrics                Prometheus metrics
  GET    /health                 liveness`,
	Example: `  postscope serve --addr :8080 --workers 4`,
	Args:    cobra.NoArgs,
	RunE:    runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
	serveCmd.Flags().IntVarP(&serveWorkers, "workers", "w", 0, "concurrent jobs")
	serveCmd.Flags().StringVar(&serveAPIKey, "api-key", "", "API key (prefer 'postscope auth login')")
}

func runServe(cmd *cobra.Command, args []string) error {
	flags := make(map[string]interface{})
	if cmd.Flags().Changed("addr") {
		flags["addr"] = serveAddr
	}
	if cmd.Flags().Changed("workers") {
		flags["workers"] = serveWorkers
	}
	if cmd.Flags().Changed("api-key") {
		flags["api-key"] = serveAPIKey
	}

	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}
	if err := resolveAPIKey(cfg); err != nil {
		return err
	}

	a := newApp(cfg)
	defer a.close(10 * time.Second)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(a.jobs, server.WithHistory(a.history), server.WithLogger(a.log))

	if !quiet {
		ui.PrintInfo("Listening", cfg.Server.Addr)
		ui.PrintInfo("Workers", strconv.Itoa(cfg.Jobs.Workers))
	}
	return srv.ListenAndServe(ctx, cfg.Server.Addr, 10*time.Second)
}
