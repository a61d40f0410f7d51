package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/agentinsights/internal/tui/theme"
)

// StatusInfo is what the bottom bar reports about data freshness.
type StatusInfo struct {
	DataAge    string // load time or age of the last refresh
	Refreshing bool
	Watching   bool
	LastChange string // path of the most recent change notification
}

// RenderStatusBar renders the bottom status bar. The change path is dropped
// first when the terminal is too narrow.
func RenderStatusBar(width int, info StatusInfo) string {
	t := theme.Active
	base := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)

	left := base.Render(" [?]help  [r]efresh  [q]uit")
	right := statusRight(info)
	if lipgloss.Width(left)+lipgloss.Width(right) > width {
		info.LastChange = ""
		right = statusRight(info)
	}
	if lipgloss.Width(left)+lipgloss.Width(right) > width {
		right = ""
	}

	gap := max(width-lipgloss.Width(left)-lipgloss.Width(right), 0)
	return left + base.Render(strings.Repeat(" ", gap)) + right
}

func statusRight(info StatusInfo) string {
	t := theme.Active
	base := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	accent := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface)
	dim := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	var parts []string
	switch {
	case info.Refreshing:
		parts = append(parts, accent.Render("refreshing…"))
	case info.Watching:
		parts = append(parts, accent.Render("● live"))
	}
	if info.LastChange != "" {
		parts = append(parts, dim.Render(info.LastChange))
	}
	if info.DataAge != "" {
		parts = append(parts, base.Render("Data: "+info.DataAge))
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, base.Render("  ")) + base.Render(" ")
}
