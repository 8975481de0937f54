package cmd

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Color palette for CLI output, tuned for dark terminals.
const (
	ColorPrimary = lipgloss.Color("#7C3AED")
	ColorMuted   = lipgloss.Color("#6B7280")
	ColorSuccess = lipgloss.Color("#10B981")
	ColorError   = lipgloss.Color("#EF4444")
	ColorWarning = lipgloss.Color("#F59E0B")
)

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(ColorSuccess)

	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorError)

	WarningStyle = lipgloss.NewStyle().
			Foreground(ColorWarning)

	// actionStyles colors plan actions in build and check output.
	actionStyles = map[string]lipgloss.Style{
		"new":    SuccessStyle,
		"stale":  WarningStyle,
		"orphan": ErrorStyle,
		"keep":   SubtitleStyle,
	}
)

// renderAction pads and colors a plan action label.
func renderAction(action string) string {
	label := fmt.Sprintf("%-7s", action)
	if s, ok := actionStyles[action]; ok {
		return s.Render(label)
	}
	return label
}
