package tui

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"postscope/pkg/jobs"
)

// Source is the part of the job manager the monitor polls
type Source interface {
	Status(id string) (jobs.Snapshot, error)
	Cancel(id string) error
}

// RateFunc reports the shared limiter usage
type RateFunc func() (used, capacity int)

var totalPattern = regexp.MustCompile(`\(total (\d+)\)`)

type keyMap struct {
	Quit   key.Binding
	Cancel key.Binding
	Help   key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("q", "Q", "esc"),
			key.WithHelp("q", "close monitor"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("c", "ctrl+c"),
			key.WithHelp("c", "cancel job"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
	}
}

// Model is a bubbletea model that follows one job until it finishes
type Model struct {
	source   Source
	jobID    string
	rate     RateFunc
	interval time.Duration
	keys     keyMap

	spinner  spinner.Model
	progress progress.Model

	snap       jobs.Snapshot
	err        error
	cancelSent bool
	started    time.Time
	now        func() time.Time

	width    int
	height   int
	showHelp bool
	quitting bool
}

// Option configures a Model
type Option func(*Model)

// WithRate shows the limiter usage panel
func WithRate(fn RateFunc) Option {
	return func(m *Model) {
		m.rate = fn
	}
}

// WithInterval sets how often the job is polled
func WithInterval(d time.Duration) Option {
	return func(m *Model) {
		if d > 0 {
			m.interval = d
		}
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(m *Model) {
		m.now = now
	}
}

// NewModel creates a monitor for job id
func NewModel(src Source, id string, opts ...Option) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(neonCyan)

	m := &Model{
		source:   src,
		jobID:    id,
		interval: 200 * time.Millisecond,
		keys:     defaultKeys(),
		spinner:  s,
		progress: progress.New(progress.WithDefaultGradient()),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.started = m.now()
	m.snap = jobs.Snapshot{ID: id, State: jobs.StateQueued}
	return m
}

// Init polls once and starts the spinner
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.poll())
}

// Snapshot is the last status the monitor saw
func (m *Model) Snapshot() jobs.Snapshot {
	return m.snap
}

// Err is the last polling error, if any
func (m *Model) Err() error {
	return m.err
}

// CancelRequested reports whether the user asked to cancel the job
func (m *Model) CancelRequested() bool {
	return m.cancelSent
}

// fetched returns the running post total from the job log
func (m *Model) fetched() int {
	if m.snap.State == jobs.StateCompleted {
		return m.snap.PostCount
	}
	for i := len(m.snap.Log) - 1; i >= 0; i-- {
		if sm := totalPattern.FindStringSubmatch(m.snap.Log[i]); sm != nil {
			n, _ := strconv.Atoi(sm[1])
			return n
		}
	}
	return 0
}

// ratio is the progress towards the job's max count, in [0, 1]
func (m *Model) ratio() float64 {
	if m.snap.State == jobs.StateCompleted {
		return 1
	}
	if m.snap.MaxCount <= 0 {
		return 0
	}
	r := float64(m.fetched()) / float64(m.snap.MaxCount)
	if r > 1 {
		r = 1
	}
	return r
}

func (m *Model) elapsed() time.Duration {
	end := m.now()
	if m.snap.FinishedAt != nil {
		end = *m.snap.FinishedAt
	}
	start := m.started
	if m.snap.StartedAt != nil {
		start = *m.snap.StartedAt
	}
	if end.Before(start) {
		return 0
	}
	return end.Sub(start)
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
