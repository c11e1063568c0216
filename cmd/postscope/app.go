package main

import (
	"context"
	"time"

	"postscope/pkg/config"
	"postscope/pkg/history"
	"postscope/pkg/jobs"
	"postscope/pkg/logger"
	"postscope/pkg/metrics"
	"postscope/pkg/models"
	"postscope/pkg/output"
	"postscope/pkg/ratelimit"
	"postscope/pkg/socialdata"
	"postscope/pkg/summary"
	"postscope/pkg/tagger"
)

// app holds the components shared by the fetch and serve commands
type app struct {
	cfg     *config.Config
	log     logger.Logger
	limiter *ratelimit.SlidingWindow
	client  *socialdata.Client
	history *history.Store
	output  *output.Generator
	jobs    *jobs.Manager
}

// newApp wires the limiter, client, tagger, output and job manager from cfg.
// cfg.API.APIKey must already be resolved.
func newApp(cfg *config.Config) *app {
	log := logger.GetLogger()

	limiter := ratelimit.NewSlidingWindow(cfg.RateLimit.MaxRequests, cfg.RateLimit.Window,
		ratelimit.WithMinInterval(cfg.RateLimit.MinInterval),
		ratelimit.WithWaitHook(func(d time.Duration) {
			metrics.ObserveRateLimitWait(d)
			logger.LogRateLimit(log, "socialdata", d)
		}),
	)

	a := &app{
		cfg:     cfg,
		log:     log,
		limiter: limiter,
		client:  socialdata.NewClientFromConfig(cfg, limiter, log),
		history: history.NewStore(cfg.HistoryPath(), log),
		output:  output.NewFromConfig(cfg.Output, output.WithLogger(log)),
	}

	a.jobs = jobs.NewManager(a.client,
		jobs.WithTagger(tagger.New(tagger.OptionsFromConfig(cfg.Tagger))),
		jobs.WithHistory(a.history),
		jobs.WithLogger(log),
		jobs.WithWorkers(cfg.Jobs.Workers, cfg.Jobs.QueueSize),
		jobs.WithDefaultMaxCount(cfg.Fetch.MaxPosts),
		jobs.WithCompletionHook(a.writeOutputs),
	)
	return a
}

// writeOutputs is the completion hook that renders every configured format
func (a *app) writeOutputs(ctx context.Context, snap jobs.Snapshot, res *models.Result, sum summary.Summary) ([]string, error) {
	written, err := a.output.Write(ctx, res, sum)
	if written == nil {
		return nil, err
	}
	return written.Files, err
}

// rateUsage reports the limiter's current window usage
func (a *app) rateUsage() (int, int) {
	return a.limiter.Used(), a.limiter.Capacity()
}

// close stops the job manager, cancelling whatever is still running
func (a *app) close(grace time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := a.jobs.Shutdown(ctx); err != nil {
		a.log.WithError(err).Warn("Job manager did not stop cleanly")
	}
}
