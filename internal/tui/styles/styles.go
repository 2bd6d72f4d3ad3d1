package styles

import "github.com/charmbracelet/lipgloss"

// --- Typography ---

var (
	// Title is the main header text style.
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(White)

	// Label is used for field names in detail views.
	Label = lipgloss.NewStyle().
		Foreground(Gray).
		Bold(true)

	// MutedText is for hints and less important info.
	MutedText = lipgloss.NewStyle().
			Foreground(Muted)

	// ErrorText is for error messages.
	ErrorText = lipgloss.NewStyle().
			Foreground(Red).
			Bold(true)

	// WarningText is for warning messages.
	WarningText = lipgloss.NewStyle().
			Foreground(Yellow).
			Bold(true)
)

// OutcomeStyle returns the style for a run outcome or resource state.
func OutcomeStyle(status string) lipgloss.Style {
	switch status {
	case "success", "running":
		return lipgloss.NewStyle().Foreground(Green).Bold(true)
	case "partial", "pending", "stopping":
		return lipgloss.NewStyle().Foreground(Yellow).Bold(true)
	case "noop":
		return lipgloss.NewStyle().Foreground(Gray)
	case "error", "stopped", "terminated":
		return lipgloss.NewStyle().Foreground(Red)
	default:
		return lipgloss.NewStyle().Foreground(Gray)
	}
}

// StatusIndicator returns a small dot followed by the colored status text.
func StatusIndicator(status string) string {
	style := OutcomeStyle(status)
	return style.Render("●") + " " + style.Render(status)
}
