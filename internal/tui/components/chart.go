package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/agentinsights/internal/cli"
	"github.com/theirongolddev/agentinsights/internal/model"
	"github.com/theirongolddev/agentinsights/internal/tui/theme"
)

const (
	heatCell      = "■ "
	heatCellWidth = 2
	heatLabelW    = 4
)

// HeatGridWeeks returns how many week columns fit into width.
func HeatGridWeeks(width int) int {
	return max((width-heatLabelW)/heatCellWidth, 1)
}

// HeatGrid renders a weekday by week activity grid. days must be contiguous
// and in date order. Only the most recent maxWeeks columns are drawn.
func HeatGrid(days []model.DayBucket, maxWeeks int) string {
	t := theme.Active
	bg := lipgloss.NewStyle().Background(t.Surface)
	dim := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	if len(days) == 0 {
		return dim.Render("no activity")
	}

	first := days[0].Day(time.UTC)
	offset := int(first.Weekday())
	weeks := (offset + len(days) + 6) / 7
	if maxWeeks > 0 && weeks > maxWeeks {
		drop := (weeks - maxWeeks) * 7
		days = days[drop-offset:]
		first = days[0].Day(time.UTC)
		offset = 0
		weeks = maxWeeks
	}

	peak := 0
	for _, d := range days {
		peak = max(peak, d.Count)
	}
	scale := t.HeatScale()

	var grid [7][]string
	blank := bg.Render(strings.Repeat(" ", heatCellWidth))
	for row := range grid {
		grid[row] = make([]string, weeks)
		for col := range grid[row] {
			grid[row][col] = blank
		}
	}
	for i, d := range days {
		pos := offset + i
		lvl := min(cli.HeatLevel(d.Count, peak), len(scale)-1)
		grid[pos%7][pos/7] = lipgloss.NewStyle().
			Foreground(scale[lvl]).
			Background(t.Surface).
			Render(heatCell)
	}

	var b strings.Builder
	b.WriteString(bg.Render(strings.Repeat(" ", heatLabelW)))
	b.WriteString(dim.Render(monthLabels(first, weeks)))
	for row := 0; row < 7; row++ {
		b.WriteString("\n")
		label := ""
		if row%2 == 1 {
			label = cli.FormatDayOfWeek(row)
		}
		b.WriteString(dim.Render(fmt.Sprintf("%-*s", heatLabelW, label)))
		b.WriteString(strings.Join(grid[row], ""))
	}

	b.WriteString("\n")
	b.WriteString(bg.Render(strings.Repeat(" ", heatLabelW)))
	b.WriteString(dim.Render("less "))
	for _, c := range scale {
		b.WriteString(lipgloss.NewStyle().Foreground(c).Background(t.Surface).Render(heatCell))
	}
	b.WriteString(dim.Render("more"))
	return b.String()
}

// monthLabels places a month name above the first column of each month.
func monthLabels(first time.Time, weeks int) string {
	start := first.AddDate(0, 0, -int(first.Weekday()))
	cols := []rune(strings.Repeat(" ", weeks*heatCellWidth))
	last := time.Month(0)
	for w := 0; w < weeks; w++ {
		day := start.AddDate(0, 0, w*7)
		if day.Month() == last {
			continue
		}
		last = day.Month()
		name := day.Format("Jan")
		if pos := w * heatCellWidth; pos+len(name) <= len(cols) {
			copy(cols[pos:], []rune(name))
		}
	}
	return string(cols)
}

// Bar is one row of a horizontal bar list.
type Bar struct {
	Label string
	Value float64
	Text  string // shown after the bar; formatted Value when empty
}

// HorizontalBars renders labelled bars scaled to the largest value.
func HorizontalBars(bars []Bar, color lipgloss.Color, width int) string {
	t := theme.Active
	if len(bars) == 0 {
		return lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface).Render("none")
	}

	labelW, textW := 0, 0
	peak := 0.0
	for i, b := range bars {
		if b.Text == "" {
			bars[i].Text = cli.FormatNumber(int64(b.Value))
		}
		labelW = max(labelW, lipgloss.Width(b.Label))
		textW = max(textW, lipgloss.Width(bars[i].Text))
		peak = max(peak, b.Value)
	}
	labelW = min(labelW, width/3)
	barMax := max(width-labelW-textW-2, 4)

	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	barStyle := lipgloss.NewStyle().Foreground(color).Background(t.Surface)
	textStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	space := lipgloss.NewStyle().Background(t.Surface)

	lines := make([]string, len(bars))
	for i, b := range bars {
		n := 0
		if peak > 0 {
			n = int(b.Value / peak * float64(barMax))
		}
		if b.Value > 0 && n == 0 {
			n = 1
		}
		label := b.Label
		if lipgloss.Width(label) > labelW {
			label = string([]rune(label)[:max(labelW-1, 0)]) + "…"
		}
		lines[i] = labelStyle.Render(fmt.Sprintf("%-*s", labelW, label)) +
			space.Render(" ") +
			barStyle.Render(strings.Repeat("█", n)) +
			space.Render(strings.Repeat(" ", barMax-n+1)) +
			textStyle.Render(fmt.Sprintf("%*s", textW, b.Text))
	}
	return strings.Join(lines, "\n")
}

// Sparkline renders a unicode sparkline from values.
func Sparkline(values []float64, color lipgloss.Color) string {
	if len(values) == 0 {
		return ""
	}
	t := theme.Active
	blocks := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	peak := 0.0
	for _, v := range values {
		peak = max(peak, v)
	}
	if peak == 0 {
		peak = 1
	}

	var buf strings.Builder
	buf.Grow(len(values) * 3)
	for _, v := range values {
		idx := int(v / peak * float64(len(blocks)-1))
		buf.WriteRune(blocks[min(max(idx, 0), len(blocks)-1)])
	}
	return lipgloss.NewStyle().Foreground(color).Background(t.Surface).Render(buf.String())
}
