package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"postscope/pkg/models"
	"postscope/pkg/summary"
)

// State is the lifecycle position of a job
type State string

const (
	StateQueued    State = "queued"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateError     State = "error"
)

var stateRank = map[State]int{
	StateQueued:    0,
	StateRunning:   1,
	StateCompleted: 2,
	StateError:     2,
}

// Terminal reports whether no transition leaves s
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateError
}

// Snapshot is a copy of a job's status, detached from the live job
type Snapshot struct {
	ID         string     `json:"id"`
	Username   string     `json:"username"`
	PostType   string     `json:"post_type"`
	MaxCount   int        `json:"max_count"`
	State      State      `json:"state"`
	Log        []string   `json:"log"`
	Error      string     `json:"error,omitempty"`
	PostCount  int        `json:"post_count"`
	Files      []string   `json:"files,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Tail returns the last n log lines, or all of them when n <= 0
func (s Snapshot) Tail(n int) []string {
	if n <= 0 || n >= len(s.Log) {
		return s.Log
	}
	return s.Log[len(s.Log)-n:]
}

// Job is one fetch and tag run. Only the manager's worker writes to it; any
// goroutine may read it through Snapshot.
type Job struct {
	id     string
	params Params
	now    func() time.Time

	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	doneOnce sync.Once

	mu         sync.RWMutex
	state      State
	log        []string
	errMsg     string
	postCount  int
	files      []string
	createdAt  time.Time
	startedAt  time.Time
	finishedAt time.Time
	result     *models.Result
	summary    summary.Summary
}

func newJob(parent context.Context, id string, p Params, now func() time.Time) *Job {
	ctx, cancel := context.WithCancel(parent)
	return &Job{
		id:        id,
		params:    p,
		now:       now,
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
		state:     StateQueued,
		log:       []string{},
		createdAt: now(),
	}
}

// ID returns the job identifier
func (j *Job) ID() string { return j.id }

// Done is closed once the job is terminal and its bookkeeping is written
func (j *Job) Done() <-chan struct{} { return j.done }

func (j *Job) markDone() {
	j.doneOnce.Do(func() { close(j.done) })
}

// advance moves the job forward. Regressions and moves out of a terminal
// state are refused. Callers hold j.mu.
func (j *Job) advance(to State) bool {
	if j.state.Terminal() || stateRank[to] <= stateRank[j.state] {
		return false
	}
	j.state = to
	switch {
	case to == StateRunning:
		j.startedAt = j.now()
	case to.Terminal():
		j.finishedAt = j.now()
		j.cancel()
	}
	return true
}

func (j *Job) appendLocked(line string) {
	j.log = append(j.log, fmt.Sprintf("[%s] %s", j.now().Format("15:04:05"), line))
}

// appendLog adds a timestamped line. Lines keep insertion order.
func (j *Job) appendLog(format string, args ...interface{}) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.appendLocked(fmt.Sprintf(format, args...))
}

// reporter adapts appendLog for collaborators that emit ready-made lines
func (j *Job) reporter(line string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.appendLocked(line)
}

func (j *Job) start() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if !j.advance(StateRunning) {
		return false
	}
	j.appendLocked(fmt.Sprintf("Started collection for @%s", j.params.Username))
	return true
}

// fail moves the job to error with a non-empty message
func (j *Job) fail(msg string) bool {
	if msg == "" {
		msg = "unknown error"
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state.Terminal() {
		return false
	}
	j.errMsg = msg
	j.appendLocked("Error: " + msg)
	return j.advance(StateError)
}

func (j *Job) complete(res *models.Result, sum summary.Summary, files []string) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state != StateRunning {
		return false
	}
	j.result = res
	j.summary = sum
	j.postCount = len(res.Posts)
	j.files = append([]string(nil), files...)
	j.appendLocked(fmt.Sprintf("Completed: %d posts", j.postCount))
	return j.advance(StateCompleted)
}

// State returns the current state
func (j *Job) State() State {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.state
}

// Snapshot returns a deep copy of the status
func (j *Job) Snapshot() Snapshot {
	j.mu.RLock()
	defer j.mu.RUnlock()

	s := Snapshot{
		ID:        j.id,
		Username:  j.params.Username,
		PostType:  string(j.params.Type),
		MaxCount:  j.params.MaxCount,
		State:     j.state,
		Log:       append([]string(nil), j.log...),
		Error:     j.errMsg,
		PostCount: j.postCount,
		Files:     append([]string(nil), j.files...),
		CreatedAt: j.createdAt,
	}
	if !j.startedAt.IsZero() {
		t := j.startedAt
		s.StartedAt = &t
	}
	if !j.finishedAt.IsZero() {
		t := j.finishedAt
		s.FinishedAt = &t
	}
	return s
}
