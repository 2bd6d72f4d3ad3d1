// Package styles holds the color palette and lipgloss styles shared by the
// fleetmetrics terminal output.
package styles

import "github.com/charmbracelet/lipgloss"

// --- Color palette ---

var (
	White = lipgloss.Color("#E2E2E2")
	Gray  = lipgloss.Color("#888888")
	Muted = lipgloss.Color("#555555")

	Green  = lipgloss.Color("#5FD787")
	Yellow = lipgloss.Color("#FFD787")
	Red    = lipgloss.Color("#FF8787")
)
