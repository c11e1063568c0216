package ui

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// Logo is printed by the CLI on interactive runs
const Logo = `
 ┌─┐┌─┐┌─┐┌┬┐┌─┐┌─┐┌─┐┌─┐┌─┐
 ├─┘│ │└─┐ │ └─┐│  │ │├─┘├┤
 ┴  └─┘└─┘ ┴ └─┘└─┘└─┘┴  └─┘
  fetch • tag • summarise
`

// Color functions for terminal output
var (
	Cyan    = color.New(color.FgCyan).SprintFunc()
	Yellow  = color.New(color.FgYellow).SprintFunc()
	Red     = color.New(color.FgRed).SprintFunc()
	Green   = color.New(color.FgGreen).SprintFunc()
	Magenta = color.New(color.FgMagenta).SprintFunc()
	Dim     = color.New(color.Faint).SprintFunc()
	Bold    = color.New(color.Bold).SprintFunc()
)

// Output is where the Print helpers write. color.Output handles Windows
// consoles.
var Output io.Writer = color.Output

// PrintLogo prints the logo
func PrintLogo() {
	fmt.Fprint(Output, Cyan(Logo))
}

// PrintError prints an error message in red
func PrintError(msg string, args ...interface{}) {
	if len(args) > 0 {
		fmt.Fprintln(Output, Red(msg+": "+fmt.Sprintf("%v", args[0])))
	} else {
		fmt.Fprintln(Output, Red(msg))
	}
}

// PrintSuccess prints a success message in green
func PrintSuccess(msg string) {
	fmt.Fprintln(Output, Green("✓ "+msg))
}

// PrintInfo prints a label and value
func PrintInfo(label string, value string) {
	fmt.Fprintf(Output, "%s: %s\n", Cyan(label), Yellow(value))
}

// PrintWarning prints a warning message in yellow
func PrintWarning(msg string, args ...interface{}) {
	if len(args) > 0 {
		fmt.Fprintln(Output, Yellow(msg+": "+fmt.Sprintf("%v", args[0])))
	} else {
		fmt.Fprintln(Output, Yellow(msg))
	}
}

// PrintHighlight prints a highlighted message in magenta
func PrintHighlight(msg string) {
	fmt.Fprintln(Output, Magenta(msg))
}

// StateLabel colours a job state name
func StateLabel(state string) string {
	switch state {
	case "completed":
		return Green(state)
	case "error":
		return Red(state)
	case "running":
		return Cyan(state)
	default:
		return Yellow(state)
	}
}
