package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"postscope/pkg/jobs"
)

// snapshotMsg carries a polled job status
type snapshotMsg struct {
	snap jobs.Snapshot
	err  error
}

// tickMsg schedules the next poll
type tickMsg time.Time

// finishedMsg closes the monitor after the final frame is drawn
type finishedMsg struct{}

// Update handles all messages and updates the model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = clamp(msg.Width-12, 10, 80)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tickMsg:
		return m, m.poll()

	case snapshotMsg:
		if msg.err != nil {
			m.err = msg.err
			m.quitting = true
			return m, tea.Quit
		}
		m.snap = msg.snap
		if m.snap.State.Terminal() {
			return m, finish()
		}
		return m, m.schedule()

	case finishedMsg:
		m.quitting = true
		return m, tea.Quit
	}

	return m, nil
}

func (m *Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Cancel):
		if m.cancelSent || m.snap.State.Terminal() {
			return m, nil
		}
		m.cancelSent = true
		id := m.jobID
		return m, func() tea.Msg {
			if err := m.source.Cancel(id); err != nil {
				return snapshotMsg{err: err}
			}
			snap, err := m.source.Status(id)
			return snapshotMsg{snap: snap, err: err}
		}

	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		return m, nil
	}

	return m, nil
}

// poll reads the job status off the UI goroutine
func (m *Model) poll() tea.Cmd {
	id := m.jobID
	src := m.source
	return func() tea.Msg {
		snap, err := src.Status(id)
		return snapshotMsg{snap: snap, err: err}
	}
}

func (m *Model) schedule() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func finish() tea.Cmd {
	return tea.Tick(300*time.Millisecond, func(time.Time) tea.Msg {
		return finishedMsg{}
	})
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
