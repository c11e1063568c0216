package tui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"postscope/pkg/jobs"
)

// Run shows the monitor for job id until it finishes, the user closes it,
// or ctx ends. It returns the last snapshot seen and whether the user
// asked to cancel.
func Run(ctx context.Context, src Source, id string, opts ...Option) (jobs.Snapshot, bool, error) {
	model := NewModel(src, id, opts...)
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	final, err := program.Run()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return model.Snapshot(), model.CancelRequested(), err
	}

	m, ok := final.(*Model)
	if !ok {
		m = model
	}
	if m.Err() != nil {
		return m.Snapshot(), m.CancelRequested(), m.Err()
	}
	return m.Snapshot(), m.CancelRequested(), nil
}
