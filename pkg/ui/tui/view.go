package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"postscope/pkg/jobs"
)

const defaultWidth = 80

// View renders the monitor
func (m *Model) View() string {
	width := m.width
	if width == 0 {
		width = defaultWidth
	}
	inner := width - 4

	sections := []string{
		m.renderHeader(),
		m.renderJobPanel(inner),
	}
	if m.rate != nil {
		sections = append(sections, m.renderRatePanel(inner))
	}
	sections = append(sections, m.renderLogPanel(inner))

	if m.showHelp {
		sections = append(sections, m.renderHelp())
	} else {
		sections = append(sections, helpStyle.Render("c cancel • q close • ? help"))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *Model) renderHeader() string {
	title := "postscope"
	if m.snap.Username != "" {
		title += " • @" + m.snap.Username
	}
	return headerStyle.Render(title)
}

func (m *Model) renderJobPanel(width int) string {
	s := m.snap

	indicator := m.spinner.View()
	if s.State.Terminal() {
		indicator = " "
	}

	lines := []string{
		titleStyle.Render(" JOB "),
		fmt.Sprintf("%s %s %s", indicator, StateStyle(s.State).Render(strings.ToUpper(string(s.State))), dimStyle.Render(s.ID)),
		field("Type", orDash(s.PostType)),
		field("Posts", fmt.Sprintf("%d / %d", m.fetched(), s.MaxCount)),
		field("Elapsed", formatDuration(m.elapsed())),
		m.progress.ViewAs(m.ratio()),
	}

	switch {
	case s.State == jobs.StateError:
		lines = append(lines, errorStyle.Render(s.Error))
	case s.State == jobs.StateCompleted && len(s.Files) > 0:
		lines = append(lines, successStyle.Render(fmt.Sprintf("%d files written", len(s.Files))))
	case m.cancelSent:
		lines = append(lines, errorStyle.Render("cancelling..."))
	}

	return panelStyle.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (m *Model) renderRatePanel(width int) string {
	used, capacity := m.rate()
	usage := 0.0
	if capacity > 0 {
		usage = float64(used) / float64(capacity) * 100
	}

	barWidth := clamp(width-6, 10, 60)
	filled := int(usage * float64(barWidth) / 100)
	if filled > barWidth {
		filled = barWidth
	}
	style := RateStyle(usage)
	bar := style.Render(strings.Repeat("█", filled)) + emptyBarStyle.Render(strings.Repeat("░", barWidth-filled))

	return panelStyle.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render(" RATE LIMIT "),
		field("Window", style.Render(fmt.Sprintf("%d/%d (%.0f%%)", used, capacity, usage))),
		bar,
	))
}

func (m *Model) renderLogPanel(width int) string {
	rows := 10
	if m.height > 0 {
		rows = clamp(m.height-20, 3, 30)
	}

	var lines []string
	for _, line := range m.snap.Tail(rows) {
		lines = append(lines, renderLogLine(line, width-4))
	}
	content := strings.Join(lines, "\n")
	if content == "" {
		content = dimStyle.Render("Waiting for the first log line...")
	}

	return panelStyle.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render(" LOG "), content))
}

// renderLogLine splits the "[15:04:05] " prefix from the message
func renderLogLine(line string, max int) string {
	stamp, msg := "", line
	if strings.HasPrefix(line, "[") {
		if i := strings.Index(line, "] "); i > 0 {
			stamp, msg = line[:i+1], line[i+2:]
		}
	}
	if max > 15 && len([]rune(msg)) > max-11 {
		msg = string([]rune(msg)[:max-14]) + "..."
	}
	if stamp == "" {
		return logLineStyle(msg).Render(msg)
	}
	return timestampStyle.Render(stamp) + " " + logLineStyle(msg).Render(msg)
}

func (m *Model) renderHelp() string {
	var rows []string
	for _, b := range []struct{ keys, desc string }{
		{m.keys.Cancel.Help().Key, m.keys.Cancel.Help().Desc},
		{m.keys.Quit.Help().Key, m.keys.Quit.Help().Desc + " (the job keeps running)"},
		{m.keys.Help.Help().Key, m.keys.Help.Help().Desc},
	} {
		rows = append(rows, fmt.Sprintf("  %-4s %s", b.keys, b.desc))
	}
	return panelStyle.Render(strings.Join(rows, "\n"))
}

func field(label, value string) string {
	return fmt.Sprintf("%s %s", labelStyle.Render(label+":"), valueStyle.Render(value))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// formatDuration renders mm:ss, or hh:mm:ss past an hour
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
