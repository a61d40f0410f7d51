package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/agentinsights/internal/cli"
	"github.com/theirongolddev/agentinsights/internal/model"
	"github.com/theirongolddev/agentinsights/internal/tui/components"
	"github.com/theirongolddev/agentinsights/internal/tui/theme"
)

const maxToolRows = 10

func (a App) renderAgentTab(kind model.AgentKind, cw int) string {
	t := theme.Active
	h := a.agentResult(kind)
	color := t.AgentColor(kind)
	var b strings.Builder

	peak := components.Metric{Label: "Busiest day", Value: "-"}
	for _, d := range h.Days {
		if d.Count == h.MaxCount && d.Count > 0 {
			peak.Value = d.Date
			peak.Note = fmt.Sprintf("%d files", d.Count)
			break
		}
	}
	topTool := components.Metric{Label: "Top tool", Value: "-"}
	if tc, ok := h.TopTool(); ok {
		topTool.Value = tc.ToolName
		topTool.Color = color
		topTool.Note = cli.FormatNumber(int64(tc.Count)) + " calls"
	}

	b.WriteString(components.MetricCardRow([]components.Metric{
		{Label: "Files", Value: cli.FormatNumber(int64(h.TotalFiles)), Note: cli.FormatBytes(h.TotalSize), Color: color},
		{Label: "Active days", Value: cli.FormatNumber(int64(h.ActiveDays()))},
		peak,
		topTool,
	}, cw))
	b.WriteString("\n")

	b.WriteString(a.heatmapCard(fmt.Sprintf("Activity · %s · %s", kind.DisplayName(), a.windowLabel()), h, cw))
	b.WriteString("\n")

	thirds := components.LayoutRow(cw, 3)
	toolsW := thirds[0] + thirds[1]
	toolsCard := components.ContentCard("Tool calls", toolBody(h, color, components.CardInnerWidth(toolsW)), toolsW)
	tokenCard := components.ContentCard("Tokens", a.tokenBody(kind, h.TokenStats), thirds[2])
	if a.isCompactLayout() {
		b.WriteString(components.ContentCard("Tool calls", toolBody(h, color, components.CardInnerWidth(cw)), cw))
		b.WriteString("\n")
		b.WriteString(components.ContentCard("Tokens", a.tokenBody(kind, h.TokenStats), cw))
	} else {
		b.WriteString(components.CardRow([]string{toolsCard, tokenCard}))
	}
	return b.String()
}

func toolBody(h model.HeatmapResult, color lipgloss.Color, width int) string {
	tools := h.ToolCalls
	if len(tools) > maxToolRows {
		tools = tools[:maxToolRows]
	}
	bars := make([]components.Bar, len(tools))
	for i, tc := range tools {
		bars[i] = components.Bar{Label: tc.ToolName, Value: float64(tc.Count)}
	}
	body := components.HorizontalBars(bars, color, width)
	if hidden := len(h.ToolCalls) - len(tools); hidden > 0 {
		body += "\n" + lipgloss.NewStyle().Foreground(theme.Active.TextDim).Background(theme.Active.Surface).
			Render(fmt.Sprintf("… %d more", hidden))
	}
	return body
}

func (a App) tokenBody(kind model.AgentKind, st model.TokenStats) string {
	t := theme.Active
	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	totalStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	rows := []struct{ label, value string }{
		{"Input", cli.FormatTokens(st.InputTokens)},
		{"Output", cli.FormatTokens(st.OutputTokens)},
		{"Cache read", cli.FormatTokens(st.CacheReadTokens)},
		{"Cache write", cli.FormatTokens(st.CacheCreationTokens)},
		{"Reasoning", cli.FormatOptionalTokens(st.ReasoningTokens)},
	}
	var b strings.Builder
	for _, r := range rows {
		b.WriteString(labelStyle.Render(fmt.Sprintf("%-12s", r.label)))
		b.WriteString(valueStyle.Render(fmt.Sprintf("%8s", r.value)))
		b.WriteString("\n")
	}
	b.WriteString(labelStyle.Render(fmt.Sprintf("%-12s", "Total")))
	b.WriteString(totalStyle.Render(fmt.Sprintf("%8s", cli.FormatTokens(st.TotalTokens))))

	if r, ok := a.scanOf(kind); ok {
		b.WriteString("\n\n")
		b.WriteString(dimStyle.Render(fmt.Sprintf("%d cached · %d parsed", r.CacheHits, r.Reparsed)))
		if r.FileErrors > 0 {
			b.WriteString("\n")
			b.WriteString(dimStyle.Render(fmt.Sprintf("%d unreadable files", r.FileErrors)))
		}
	}
	return b.String()
}
