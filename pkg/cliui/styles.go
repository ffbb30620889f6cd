// Package cliui holds the terminal presentation shared by the chatrelay
// client commands: colors, the step spinner and markdown rendering.
package cliui

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Palette, in 256-color codes.
const (
	green  = lipgloss.Color("82")
	red    = lipgloss.Color("196")
	orange = lipgloss.Color("214")
	grey   = lipgloss.Color("242")
)

var (
	SuccessMark = lipgloss.NewStyle().Foreground(green).Render("✓")
	FailMark    = lipgloss.NewStyle().Foreground(red).Render("✗")

	StepStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	KeyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	ValueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	NameStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("213"))
	DimStyle    = lipgloss.NewStyle().Foreground(grey)
	HeaderStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	WarnStyle   = lipgloss.NewStyle().Foreground(orange).Bold(true)
)

// Transcript statuses, keyed by their stored string form.
var statusColors = map[string]lipgloss.Color{
	"completed":      green,
	"client_gone":    orange,
	"upstream_error": red,
	"rejected":       grey,
}

// ApplyColorProfile picks the lipgloss color profile for w, honoring NO_COLOR
// and dropping colors when w is not a terminal.
func ApplyColorProfile(w io.Writer) {
	lipgloss.SetColorProfile(termenv.NewOutput(w).EnvColorProfile())
}

// StatusStyle colors a transcript status. Unknown statuses are returned as is.
func StatusStyle(status string) string {
	c, ok := statusColors[status]
	if !ok {
		return status
	}
	return lipgloss.NewStyle().Foreground(c).Render(status)
}

// Mark is SuccessMark for a nil err and FailMark otherwise.
func Mark(err error) string {
	if err == nil {
		return SuccessMark
	}
	return FailMark
}

// FormatDuration renders d the way transcript listings show it: "12ms",
// "3.2s" or "2m05s".
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		d = d.Round(time.Second)
		return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
	}
}
