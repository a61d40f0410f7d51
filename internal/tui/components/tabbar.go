package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/agentinsights/internal/model"
	"github.com/theirongolddev/agentinsights/internal/tui/theme"
)

// Tab represents a single tab in the tab bar.
type Tab struct {
	Name   string
	Key    rune
	KeyPos int             // position of the shortcut letter in the name (-1 if not in name)
	Agent  model.AgentKind // AgentUnknown for the overview
}

// Tabs defines all available tabs.
var Tabs = []Tab{
	{Name: "Overview", Key: 'o', KeyPos: 0},
	{Name: "Claude", Key: 'c', KeyPos: 0, Agent: model.AgentClaude},
	{Name: "Codex", Key: 'x', KeyPos: 4, Agent: model.AgentCodex},
	{Name: "Gemini", Key: 'g', KeyPos: 0, Agent: model.AgentGemini},
}

func renderTab(tab Tab, active bool) string {
	t := theme.Active
	color := t.Accent
	if tab.Agent != model.AgentUnknown {
		color = t.AgentColor(tab.Agent)
	}

	if active {
		return lipgloss.NewStyle().
			Foreground(color).
			Background(t.SurfaceHover).
			Bold(true).
			Padding(0, 1).
			Render(tab.Name)
	}

	inactive := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	key := lipgloss.NewStyle().Foreground(color).Background(t.Surface).Bold(true).Underline(true)
	pad := inactive.Render(" ")

	if tab.KeyPos < 0 || tab.KeyPos >= len(tab.Name) {
		return pad + inactive.Render(tab.Name) + inactive.Render("[") + key.Render(string(tab.Key)) + inactive.Render("]") + pad
	}
	return pad +
		inactive.Render(tab.Name[:tab.KeyPos]) +
		key.Render(tab.Name[tab.KeyPos:tab.KeyPos+1]) +
		inactive.Render(tab.Name[tab.KeyPos+1:]) +
		pad
}

// TabVisualWidth returns the rendered width of a tab, for mouse hit testing.
func TabVisualWidth(tab Tab, active bool) int {
	return lipgloss.Width(renderTab(tab, active))
}

// RenderTabBar renders the tab bar with the given active index.
func RenderTabBar(activeIdx, width int) string {
	t := theme.Active
	sep := lipgloss.NewStyle().Foreground(t.Border).Background(t.Surface).Render("│")

	parts := make([]string, len(Tabs))
	for i, tab := range Tabs {
		parts[i] = renderTab(tab, i == activeIdx)
	}
	row := strings.Join(parts, sep)
	return lipgloss.NewStyle().Background(t.Surface).Width(width).Render(row)
}

// TabIdxByKey returns the tab index for a given key press, or -1.
func TabIdxByKey(key rune) int {
	for i, tab := range Tabs {
		if tab.Key == key {
			return i
		}
	}
	return -1
}
