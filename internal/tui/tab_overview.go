package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/agentinsights/internal/cli"
	"github.com/theirongolddev/agentinsights/internal/model"
	"github.com/theirongolddev/agentinsights/internal/pipeline"
	"github.com/theirongolddev/agentinsights/internal/tui/components"
	"github.com/theirongolddev/agentinsights/internal/tui/theme"
)

func (a App) renderOverviewTab(cw int) string {
	t := theme.Active
	h := a.overall
	var b strings.Builder

	// Row 1: metric cards
	topAgent, topFiles := model.AgentUnknown, 0
	for _, kind := range model.Agents {
		if n := a.agentResult(kind).TotalFiles; n > topFiles {
			topAgent, topFiles = kind, n
		}
	}
	top := components.Metric{Label: "Most active", Value: "-"}
	if topAgent != model.AgentUnknown {
		top.Value = topAgent.DisplayName()
		top.Color = t.AgentColor(topAgent)
		top.Note = cli.FormatPercent(float64(topFiles)/float64(max(h.TotalFiles, 1))) + " of files"
	}

	b.WriteString(components.MetricCardRow([]components.Metric{
		{Label: "Files", Value: cli.FormatNumber(int64(h.TotalFiles)), Note: cli.FormatBytes(h.TotalSize)},
		{Label: "Active days", Value: cli.FormatNumber(int64(h.ActiveDays())), Note: fmt.Sprintf("peak %d/day", h.MaxCount)},
		{Label: "Tokens", Value: cli.FormatTokens(h.TokenStats.TotalTokens), Note: "output " + cli.FormatTokens(h.TokenStats.OutputTokens)},
		top,
	}, cw))
	b.WriteString("\n")

	// Row 2: combined heatmap
	b.WriteString(a.heatmapCard("Activity · all agents", h, cw))
	b.WriteString("\n")

	// Row 3: agent share + weekday pattern
	halves := components.LayoutRow(cw, 2)
	shareCard := components.ContentCard("Files by agent", a.agentShareBody(components.CardInnerWidth(halves[0])), halves[0])
	weekdayCard := components.ContentCard("By weekday", weekdayBody(h, components.CardInnerWidth(halves[1])), halves[1])
	if a.isCompactLayout() {
		b.WriteString(components.ContentCard("Files by agent", a.agentShareBody(components.CardInnerWidth(cw)), cw))
		b.WriteString("\n")
		b.WriteString(components.ContentCard("By weekday", weekdayBody(h, components.CardInnerWidth(cw)), cw))
	} else {
		b.WriteString(components.CardRow([]string{shareCard, weekdayCard}))
	}
	return b.String()
}

// heatmapCard renders a themed activity grid sized to the card width.
func (a App) heatmapCard(title string, h model.HeatmapResult, outerWidth int) string {
	inner := components.CardInnerWidth(outerWidth)
	if h.TotalFiles == 0 {
		return components.ContentCard(title, "no activity in this window", outerWidth)
	}

	now := time.Now()
	since := a.since(now)
	if since.IsZero() {
		since = h.Days[0].Day(time.Local)
	}
	days := pipeline.FillDays(h, since, now, time.Local)
	return components.ContentCard(title, components.HeatGrid(days, components.HeatGridWeeks(inner)), outerWidth)
}

func (a App) agentShareBody(width int) string {
	t := theme.Active
	total := max(a.overall.TotalFiles, 1)
	mutedStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	lines := make([]string, 0, len(model.Agents)+1)
	for _, kind := range model.Agents {
		files := a.agentResult(kind).TotalFiles
		lines = append(lines, components.ShareBar(
			kind.DisplayName(), float64(files)/float64(total), t.AgentColor(kind), 11, max(width-18, 4)))
	}
	for _, kind := range model.Agents {
		if r, ok := a.scanOf(kind); ok && r.Err != nil {
			lines = append(lines, mutedStyle.Render(fmt.Sprintf("%s: %v", kind, r.Err)))
		}
	}
	return strings.Join(lines, "\n")
}

func weekdayBody(h model.HeatmapResult, width int) string {
	var counts [7]int
	for _, d := range h.Days {
		counts[d.Day(time.Local).Weekday()] += d.Count
	}
	bars := make([]components.Bar, 7)
	for i := range bars {
		// Monday first
		wd := (i + 1) % 7
		bars[i] = components.Bar{Label: cli.FormatDayOfWeek(wd), Value: float64(counts[wd])}
	}
	return components.HorizontalBars(bars, theme.Active.Accent, width)
}
