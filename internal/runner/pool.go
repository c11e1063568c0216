package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"postscope/pkg/logger"
)

var (
	// ErrQueueFull is returned by Submit when every queue slot is taken
	ErrQueueFull = errors.New("job queue is full")
	// ErrStopped is returned by Submit after Stop or Shutdown
	ErrStopped = errors.New("worker pool is shutting down")
)

// Task is a unit of work. Run receives the pool context, which is cancelled
// only when a shutdown deadline passes.
type Task struct {
	ID  string
	Run func(ctx context.Context)
}

// Result describes a finished task
type Result struct {
	TaskID   string
	WorkerID int
	Duration time.Duration
	Panic    interface{}
}

// Pool runs queued tasks on a fixed number of workers. Each worker runs one
// task at a time.
type Pool struct {
	numWorkers int
	queue      chan Task
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	logger     logger.Logger
	onDone     func(Result)

	mu      sync.RWMutex
	stopped bool
	started bool

	active int32
}

// Option configures a Pool
type Option func(*Pool)

// WithOnDone is called after every task, on the worker goroutine
func WithOnDone(fn func(Result)) Option {
	return func(p *Pool) {
		p.onDone = fn
	}
}

// NewPool creates a pool. It does nothing until Start.
func NewPool(numWorkers, queueSize int, log logger.Logger, opts ...Option) *Pool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	if log == nil {
		log = logger.GetLogger()
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		numWorkers: numWorkers,
		queue:      make(chan Task, queueSize),
		ctx:        ctx,
		cancel:     cancel,
		logger:     log,
		onDone:     func(Result) {},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start launches the workers. Calling it twice is a no-op.
func (p *Pool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.stopped {
		return
	}
	p.started = true

	p.logger.InfoWithFields("Starting worker pool", map[string]interface{}{
		"num_workers": p.numWorkers,
		"queue_size":  cap(p.queue),
	})

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Submit queues a task without blocking
func (p *Pool) Submit(task Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return ErrStopped
	}

	select {
	case p.queue <- task:
		p.logger.DebugWithFields("Task queued", map[string]interface{}{
			"task_id": task.ID,
			"queued":  len(p.queue),
		})
		return nil
	default:
		return fmt.Errorf("%w (%d pending)", ErrQueueFull, cap(p.queue))
	}
}

// Stop refuses new tasks and waits for queued and running ones to finish
func (p *Pool) Stop() {
	if p.close() {
		p.logger.Info("Stopping worker pool...")
	}
	p.wg.Wait()
	p.cancel()
	p.logger.Info("Worker pool stopped")
}

// Shutdown is Stop with a deadline. When ctx ends first, the pool context is
// cancelled so running tasks can wind down, and ctx.Err() is returned.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.close()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		return nil
	case <-ctx.Done():
		p.cancel()
		p.logger.Warn("Worker pool shutdown deadline reached, cancelling running tasks")
		return ctx.Err()
	}
}

func (p *Pool) close() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return false
	}
	p.stopped = true
	close(p.queue)
	return true
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for task := range p.queue {
		p.runTask(id, task)
	}

	p.logger.DebugWithFields("Worker stopping - queue closed", map[string]interface{}{
		"worker_id": id,
	})
}

func (p *Pool) runTask(id int, task Task) {
	atomic.AddInt32(&p.active, 1)
	start := time.Now()
	res := Result{TaskID: task.ID, WorkerID: id}

	defer func() {
		atomic.AddInt32(&p.active, -1)
		if r := recover(); r != nil {
			res.Panic = r
			p.logger.ErrorWithFields("Task panicked", map[string]interface{}{
				"worker_id": id,
				"task_id":   task.ID,
				"panic":     fmt.Sprint(r),
			})
		}
		res.Duration = time.Since(start)
		p.onDone(res)
	}()

	p.logger.DebugWithFields("Worker running task", map[string]interface{}{
		"worker_id": id,
		"task_id":   task.ID,
	})
	task.Run(p.ctx)
}

// QueueSize returns the number of tasks waiting for a worker
func (p *Pool) QueueSize() int {
	return len(p.queue)
}

// ActiveWorkers returns the number of workers currently running a task
func (p *Pool) ActiveWorkers() int {
	return int(atomic.LoadInt32(&p.active))
}

// Workers returns the configured worker count
func (p *Pool) Workers() int {
	return p.numWorkers
}
