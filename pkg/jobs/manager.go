package jobs

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	errs "postscope/pkg/errors"
	"postscope/internal/runner"
	"postscope/pkg/fetcher"
	"postscope/pkg/history"
	"postscope/pkg/logger"
	"postscope/pkg/metrics"
	"postscope/pkg/models"
	"postscope/pkg/summary"
	"postscope/pkg/tagger"
)

// CancelMessage is the error text of a job stopped on request
const CancelMessage = "Job cancelled by request"

// CompletionHook runs after a job's result is ready and before the job is
// marked completed. It returns the files it wrote. A hook error is recorded
// in the job log and does not fail the job. ctx is the job's context; a
// cancel that lands while hooks run ends the job in error.
type CompletionHook func(ctx context.Context, snap Snapshot, res *models.Result, sum summary.Summary) ([]string, error)

// Manager owns every job of the process
type Manager struct {
	api        fetcher.API
	tagger     *tagger.Tagger
	pool       *runner.Pool
	history    *history.Store
	hooks      []CompletionHook
	logger     logger.Logger
	now        func() time.Time
	newID      func() string
	workers    int
	queueSize  int
	defaultMax int

	ctx    context.Context
	cancel context.CancelFunc

	mu   sync.RWMutex
	jobs map[string]*Job
}

// Option configures a Manager
type Option func(*Manager)

// WithTagger replaces the default tagger
func WithTagger(t *tagger.Tagger) Option {
	return func(m *Manager) { m.tagger = t }
}

// WithHistory records every finished job in store
func WithHistory(store *history.Store) Option {
	return func(m *Manager) { m.history = store }
}

// WithLogger sets the manager logger
func WithLogger(l logger.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithWorkers sets the worker count and queue capacity
func WithWorkers(workers, queueSize int) Option {
	return func(m *Manager) {
		m.workers = workers
		m.queueSize = queueSize
	}
}

// WithCompletionHook adds a hook run on every successful job
func WithCompletionHook(h CompletionHook) Option {
	return func(m *Manager) { m.hooks = append(m.hooks, h) }
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithIDGenerator replaces the uuid job ids
func WithIDGenerator(gen func() string) Option {
	return func(m *Manager) { m.newID = gen }
}

// WithDefaultMaxCount is used when a request leaves max count empty
func WithDefaultMaxCount(n int) Option {
	return func(m *Manager) { m.defaultMax = n }
}

// NewManager creates a manager and starts its workers
func NewManager(api fetcher.API, opts ...Option) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		api:        api,
		tagger:     tagger.New(tagger.DefaultOptions()),
		logger:     logger.GetLogger(),
		now:        time.Now,
		newID:      func() string { return uuid.NewString() },
		workers:    2,
		queueSize:  32,
		defaultMax: 100,
		ctx:        ctx,
		cancel:     cancel,
		jobs:       make(map[string]*Job),
	}
	for _, opt := range opts {
		opt(m)
	}

	m.pool = runner.NewPool(m.workers, m.queueSize, m.logger)
	m.pool.Start()
	logger.LogComponentStart(m.logger, "jobs", map[string]interface{}{
		"workers":    m.workers,
		"queue_size": m.queueSize,
	})
	return m
}

// Start validates p and queues a job. ctx only bounds the submission; the
// job itself outlives it and stops only through Cancel or Shutdown.
func (m *Manager) Start(ctx context.Context, p Params) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", errs.Wrap(errs.ErrorTypeCancelled, err, "request cancelled")
	}
	if err := p.Normalize(m.defaultMax); err != nil {
		return "", err
	}

	job := newJob(m.ctx, m.newID(), p, m.now)

	m.mu.Lock()
	if _, exists := m.jobs[job.id]; exists {
		m.mu.Unlock()
		return "", errs.Newf(errs.ErrorTypeInvalidInput, "duplicate job id %s", job.id)
	}
	m.jobs[job.id] = job
	m.mu.Unlock()

	job.appendLog("Queued: %s for @%s (max %d)", p.Type, p.Username, p.MaxCount)

	err := m.pool.Submit(runner.Task{ID: job.id, Run: func(context.Context) { m.run(job) }})
	if err != nil {
		m.mu.Lock()
		delete(m.jobs, job.id)
		m.mu.Unlock()
		job.cancel()
		return "", fmt.Errorf("queueing job: %w", err)
	}

	logger.LogJobProgress(m.logger, job.id, p.Username, string(StateQueued), 0)
	return job.id, nil
}

func (m *Manager) get(id string) (*Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, errs.Newf(errs.ErrorTypeNotFound, "no job with id %s", id)
	}
	return job, nil
}

// Status returns a snapshot of the job. It never blocks on the job's work.
func (m *Manager) Status(id string) (Snapshot, error) {
	job, err := m.get(id)
	if err != nil {
		return Snapshot{}, err
	}
	return job.Snapshot(), nil
}

// Cancel stops a job. A queued job fails at once; a running job stops at
// its next checkpoint; a finished job is left alone.
func (m *Manager) Cancel(id string) error {
	job, err := m.get(id)
	if err != nil {
		return err
	}

	switch job.State() {
	case StateQueued:
		if job.fail(CancelMessage) {
			m.finished(job)
		}
	case StateRunning:
		job.appendLog("Cancellation requested")
		job.cancel()
	}
	return nil
}

// Result returns the tagged result and its summary. It fails with a
// not_ready error unless the job completed.
func (m *Manager) Result(id string) (*models.Result, summary.Summary, error) {
	job, err := m.get(id)
	if err != nil {
		return nil, summary.Summary{}, err
	}

	job.mu.RLock()
	defer job.mu.RUnlock()
	if job.state != StateCompleted {
		return nil, summary.Summary{}, errs.Newf(errs.ErrorTypeNotReady, "job %s is %s", id, job.state)
	}
	return job.result, job.summary, nil
}

// List returns snapshots of every job, oldest first
func (m *Manager) List() []Snapshot {
	m.mu.RLock()
	jobs := make([]*Job, 0, len(m.jobs))
	for _, j := range m.jobs {
		jobs = append(jobs, j)
	}
	m.mu.RUnlock()

	out := make([]Snapshot, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, j.Snapshot())
	}
	sort.SliceStable(out, func(i, k int) bool {
		if !out[i].CreatedAt.Equal(out[k].CreatedAt) {
			return out[i].CreatedAt.Before(out[k].CreatedAt)
		}
		return out[i].ID < out[k].ID
	})
	return out
}

// Wait blocks until the job is terminal or ctx ends
func (m *Manager) Wait(ctx context.Context, id string) (Snapshot, error) {
	job, err := m.get(id)
	if err != nil {
		return Snapshot{}, err
	}
	select {
	case <-job.Done():
		return job.Snapshot(), nil
	case <-ctx.Done():
		return job.Snapshot(), ctx.Err()
	}
}

// Shutdown cancels every job and waits for the workers to drain
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.RLock()
	var queued []*Job
	for _, j := range m.jobs {
		if j.State() == StateQueued {
			queued = append(queued, j)
		}
	}
	m.mu.RUnlock()

	for _, j := range queued {
		if j.fail(CancelMessage) {
			m.finished(j)
		}
	}

	m.cancel()
	err := m.pool.Shutdown(ctx)
	logger.LogComponentStop(m.logger, "jobs", "shutdown")
	return err
}

func (m *Manager) run(job *Job) {
	if !job.start() {
		// cancelled while queued
		return
	}

	metrics.JobsActive.Inc()
	defer metrics.JobsActive.Dec()
	logger.LogJobProgress(m.logger, job.id, job.params.Username, string(StateRunning), 0)

	defer func() {
		if r := recover(); r != nil {
			m.logger.ErrorWithFields("Job panicked", map[string]interface{}{
				"job_id": job.id,
				"panic":  fmt.Sprint(r),
			})
			m.fail(job, errs.Newf(errs.ErrorTypeUnknown, "internal error: %v", r))
		}
	}()

	res, sum, err := m.execute(job)
	if err != nil {
		m.fail(job, err)
		return
	}

	files := m.runHooks(job, res, sum)
	if err := job.ctx.Err(); err != nil {
		m.fail(job, errs.Wrap(errs.ErrorTypeCancelled, err, "stopped while writing outputs"))
		return
	}
	if job.complete(res, sum, files) {
		metrics.PostsFetched.Add(float64(len(res.Posts)))
		m.finished(job)
	}
}

// execute fetches then tags. Tagging starts only once every page is in.
func (m *Manager) execute(job *Job) (*models.Result, summary.Summary, error) {
	p := job.params
	f := fetcher.New(m.api,
		fetcher.WithReporter(job.reporter),
		fetcher.WithLogger(m.logger.WithField("job_id", job.id)),
	)

	out, err := f.Run(job.ctx, fetcher.Params{
		Username: p.Username,
		Type:     p.Type,
		MaxCount: p.MaxCount,
		Start:    p.Start,
		End:      p.End,
	})
	if err != nil {
		return nil, summary.Summary{}, err
	}

	if err := job.ctx.Err(); err != nil {
		return nil, summary.Summary{}, errs.Wrap(errs.ErrorTypeCancelled, err, "stopped before tagging")
	}

	job.appendLog("Tagging %d posts", len(out.Posts))
	report := m.tagger.TagAll(out.Posts)
	if n := len(report.Unclassified); n > 0 {
		job.appendLog("Note: %d posts had no classifiable text and got default tags", n)
	}
	job.appendLog("Found %d topics: %s", len(report.Vocabulary), topicNames(report.Vocabulary, 5))

	tagged := make([]models.TaggedPost, len(out.Posts))
	for i, post := range out.Posts {
		tagged[i] = models.TaggedPost{Post: post, Tag: report.Tags[i]}
	}

	res := &models.Result{
		Account:    out.Account,
		Posts:      tagged,
		Vocabulary: report.Vocabulary,
		PostType:   p.Type,
		FetchedAt:  m.now().UTC(),
	}
	return res, summary.Compute(res), nil
}

func (m *Manager) runHooks(job *Job, res *models.Result, sum summary.Summary) []string {
	var files []string
	for _, hook := range m.hooks {
		written, err := hook(job.ctx, job.Snapshot(), res, sum)
		if err != nil {
			job.appendLog("Output failed: %s", errs.UserMessage(err))
			m.logger.WithError(err).WarnWithFields("completion hook failed", map[string]interface{}{
				"job_id": job.id,
			})
		}
		files = append(files, written...)
	}
	if len(files) > 0 {
		job.appendLog("Wrote %d files", len(files))
	}
	return files
}

func (m *Manager) fail(job *Job, err error) {
	msg := errs.UserMessage(err)
	if errs.IsType(err, errs.ErrorTypeCancelled) || job.ctx.Err() != nil {
		msg = CancelMessage
	}
	if job.fail(msg) {
		m.logger.WithError(err).WarnWithFields("Job failed", map[string]interface{}{
			"job_id":   job.id,
			"username": job.params.Username,
		})
		m.finished(job)
	}
}

// finished runs once per job after it turns terminal
func (m *Manager) finished(job *Job) {
	defer job.markDone()

	snap := job.Snapshot()
	logger.LogJobProgress(m.logger, snap.ID, snap.Username, string(snap.State), snap.PostCount)
	metrics.ObserveJobFinished(string(snap.State), snap.CreatedAt)

	if m.history == nil {
		return
	}
	rec := history.Record{
		JobID:     snap.ID,
		Username:  snap.Username,
		PostType:  snap.PostType,
		State:     string(snap.State),
		Error:     snap.Error,
		PostCount: snap.PostCount,
		CreatedAt: snap.CreatedAt,
		Files:     snap.Files,
	}
	if snap.FinishedAt != nil {
		rec.FinishedAt = *snap.FinishedAt
	}
	if err := m.history.Append(rec); err != nil {
		m.logger.WithError(err).Warn("Failed to record job history")
	}
}

func topicNames(vocab []models.TopicCount, n int) string {
	if len(vocab) == 0 {
		return "none"
	}
	names := make([]string, 0, n)
	for i, v := range vocab {
		if i == n {
			break
		}
		names = append(names, v.Name)
	}
	return strings.Join(names, ", ")
}
