package tui

import (
	"github.com/charmbracelet/lipgloss"

	"postscope/pkg/jobs"
)

var (
	neonCyan    = lipgloss.Color("#00FFFF")
	neonMagenta = lipgloss.Color("#FF00FF")
	neonGreen   = lipgloss.Color("#39FF14")
	neonYellow  = lipgloss.Color("#FFFF00")
	neonOrange  = lipgloss.Color("#FF6700")
	alertRed    = lipgloss.Color("#FF3B3B")
	darkBg      = lipgloss.Color("#0A0E27")
	darkBg2     = lipgloss.Color("#1A1E37")
	dimWhite    = lipgloss.Color("#B0B0B0")

	headerStyle = lipgloss.NewStyle().
			Foreground(neonCyan).
			Bold(true).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(neonMagenta).
			Background(darkBg2).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Background(neonMagenta).
			Foreground(darkBg).
			Bold(true).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(neonCyan).
			Bold(true)

	valueStyle = lipgloss.NewStyle().
			Foreground(neonYellow)

	dimStyle = lipgloss.NewStyle().
			Foreground(dimWhite)

	timestampStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))

	errorStyle = lipgloss.NewStyle().
			Foreground(alertRed).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(neonGreen).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262")).
			Padding(0, 1)

	emptyBarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#333333"))
)

// StateStyle colours a job state badge
func StateStyle(s jobs.State) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	switch s {
	case jobs.StateQueued:
		return base.Foreground(darkBg).Background(neonYellow)
	case jobs.StateRunning:
		return base.Foreground(darkBg).Background(neonCyan)
	case jobs.StateCompleted:
		return base.Foreground(darkBg).Background(neonGreen)
	case jobs.StateError:
		return base.Foreground(darkBg).Background(alertRed)
	default:
		return base.Foreground(dimWhite)
	}
}

// RateStyle colours rate limiter usage given as a percentage
func RateStyle(usage float64) lipgloss.Style {
	switch {
	case usage >= 90:
		return lipgloss.NewStyle().Foreground(alertRed)
	case usage >= 70:
		return lipgloss.NewStyle().Foreground(neonOrange)
	default:
		return lipgloss.NewStyle().Foreground(neonGreen)
	}
}

// logLineStyle picks a colour from the job log wording
func logLineStyle(line string) lipgloss.Style {
	switch {
	case containsAny(line, "Error:", "Output failed", "cancelled"):
		return errorStyle
	case containsAny(line, "Completed:", "Wrote "):
		return successStyle
	case containsAny(line, "Rate limited", "Retrying"):
		return lipgloss.NewStyle().Foreground(neonOrange)
	default:
		return dimStyle
	}
}
