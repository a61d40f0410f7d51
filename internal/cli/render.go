package cli

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/agentinsights/internal/model"
)

// Theme colors (Flexoki Dark)
var (
	ColorBorder    = lipgloss.Color("#282726")
	ColorTextDim   = lipgloss.Color("#575653")
	ColorTextMuted = lipgloss.Color("#6F6E69")
	ColorText      = lipgloss.Color("#FFFCF0")
	ColorAccent    = lipgloss.Color("#3AA99F")
	ColorGreen     = lipgloss.Color("#879A39")
	ColorOrange    = lipgloss.Color("#DA702C")
	ColorBlue      = lipgloss.Color("#4385BE")
)

// HeatLevels are the cell colors from no activity to the busiest day.
var HeatLevels = []lipgloss.Color{
	lipgloss.Color("#282726"),
	lipgloss.Color("#1E3A1E"),
	lipgloss.Color("#3B6B2A"),
	lipgloss.Color("#66800B"),
	lipgloss.Color("#879A39"),
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorText).
			Align(lipgloss.Center)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorAccent)

	valueStyle = lipgloss.NewStyle().
			Foreground(ColorText)

	mutedStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted)

	barStyle = lipgloss.NewStyle().
			Foreground(ColorBlue)

	dimStyle = lipgloss.NewStyle().
			Foreground(ColorTextDim)
)

// Table represents a bordered text table for CLI output.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
	Widths  []int // optional column widths, auto-calculated if nil
}

// RenderTitle renders a centered title bar in a bordered box.
func RenderTitle(title string) string {
	border := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder).
		Width(55).
		Align(lipgloss.Center).
		Padding(0, 1)

	return border.Render(titleStyle.Render(title))
}

// RenderTable renders a bordered table with headers and rows. The first
// column is left-aligned, the rest right-aligned. A row holding the single
// cell "---" renders as a separator.
func RenderTable(t Table) string {
	if len(t.Rows) == 0 && len(t.Headers) == 0 {
		return ""
	}

	numCols := len(t.Headers)
	if numCols == 0 {
		numCols = len(t.Rows[0])
	}
	widths := columnWidths(t, numCols)

	var b strings.Builder
	if t.Title != "" {
		b.WriteString("  ")
		b.WriteString(headerStyle.Render(t.Title))
		b.WriteString("\n")
	}

	b.WriteString(rule(widths, "╭", "┬", "╮"))
	if len(t.Headers) > 0 {
		b.WriteString(dimStyle.Render("│"))
		for i, h := range t.Headers {
			b.WriteString(headerStyle.Render(fmt.Sprintf(" %-*s ", widths[i], h)))
			b.WriteString(dimStyle.Render("│"))
		}
		b.WriteString("\n")
		b.WriteString(rule(widths, "├", "┼", "┤"))
	}

	for _, row := range t.Rows {
		if len(row) == 1 && row[0] == "---" {
			b.WriteString(rule(widths, "├", "┼", "┤"))
			continue
		}

		b.WriteString(dimStyle.Render("│"))
		for i := 0; i < numCols; i++ {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			format := " %*s "
			if i == 0 {
				format = " %-*s "
			}
			b.WriteString(valueStyle.Render(fmt.Sprintf(format, widths[i], cell)))
			b.WriteString(dimStyle.Render("│"))
		}
		b.WriteString("\n")
	}

	b.WriteString(rule(widths, "╰", "┴", "╯"))
	return b.String()
}

func columnWidths(t Table, numCols int) []int {
	widths := make([]int, numCols)
	if t.Widths != nil {
		copy(widths, t.Widths)
		return widths
	}
	for i, h := range t.Headers {
		widths[i] = max(widths[i], lipgloss.Width(h))
	}
	for _, row := range t.Rows {
		if len(row) == 1 && row[0] == "---" {
			continue
		}
		for i, cell := range row {
			if i < numCols {
				widths[i] = max(widths[i], lipgloss.Width(cell))
			}
		}
	}
	return widths
}

func rule(widths []int, left, mid, right string) string {
	var b strings.Builder
	b.WriteString(left)
	for i, w := range widths {
		b.WriteString(strings.Repeat("─", w+2))
		if i < len(widths)-1 {
			b.WriteString(mid)
		}
	}
	b.WriteString(right)
	return dimStyle.Render(b.String()) + "\n"
}

// RenderSparkline generates a unicode block sparkline from a series of values.
func RenderSparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}

	blocks := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	peak := values[0]
	for _, v := range values[1:] {
		peak = math.Max(peak, v)
	}
	if peak == 0 {
		peak = 1
	}

	var b strings.Builder
	for _, v := range values {
		idx := int(v / peak * float64(len(blocks)-1))
		idx = min(max(idx, 0), len(blocks)-1)
		b.WriteRune(blocks[idx])
	}
	return b.String()
}

// RenderHorizontalBar renders a labelled bar scaled against maxValue.
func RenderHorizontalBar(label string, labelWidth int, value, maxValue float64, maxWidth int) string {
	barLen := 0
	if maxValue > 0 {
		barLen = int(value / maxValue * float64(maxWidth))
	}
	barLen = min(max(barLen, 0), maxWidth)
	if barLen == 0 && value > 0 {
		barLen = 1
	}
	return fmt.Sprintf("  %-*s %s %s",
		labelWidth, label,
		barStyle.Render(strings.Repeat("█", barLen)),
		mutedStyle.Render(FormatNumber(int64(value))),
	)
}

// HeatLevel maps a day's count onto 0..len(HeatLevels)-1 relative to peak.
func HeatLevel(count, peak int) int {
	if count <= 0 || peak <= 0 {
		return 0
	}
	top := len(HeatLevels) - 1
	lvl := int(math.Ceil(float64(count) / float64(peak) * float64(top)))
	return min(max(lvl, 1), top)
}

// RenderHeatmap draws a calendar grid with one column per week and one row
// per weekday. days must be contiguous and in date order, as produced by
// pipeline.FillDays.
func RenderHeatmap(days []model.DayBucket) string {
	if len(days) == 0 {
		return mutedStyle.Render("  no activity") + "\n"
	}

	peak := 0
	for _, d := range days {
		peak = max(peak, d.Count)
	}

	first := days[0].Day(time.UTC)
	offset := int(first.Weekday())
	weeks := (offset + len(days) + 6) / 7

	var grid [7][]string
	for row := range grid {
		grid[row] = make([]string, weeks)
		for col := range grid[row] {
			grid[row][col] = "  "
		}
	}
	for i, d := range days {
		pos := offset + i
		cell := lipgloss.NewStyle().
			Foreground(HeatLevels[HeatLevel(d.Count, peak)]).
			Render("■ ")
		grid[pos%7][pos/7] = cell
	}

	var b strings.Builder
	b.WriteString("      ")
	b.WriteString(monthRuler(first, weeks))
	b.WriteString("\n")
	for row := 0; row < 7; row++ {
		label := "    "
		if row%2 == 1 {
			label = FormatDayOfWeek(row) + " "
		}
		b.WriteString("  ")
		b.WriteString(mutedStyle.Render(label))
		b.WriteString(strings.Join(grid[row], ""))
		b.WriteString("\n")
	}

	b.WriteString("\n      ")
	b.WriteString(mutedStyle.Render("less "))
	for _, c := range HeatLevels {
		b.WriteString(lipgloss.NewStyle().Foreground(c).Render("■ "))
	}
	b.WriteString(mutedStyle.Render("more"))
	b.WriteString("\n")
	return b.String()
}

// monthRuler labels the first week column of each month.
func monthRuler(first time.Time, weeks int) string {
	start := first.AddDate(0, 0, -int(first.Weekday()))
	cols := make([]byte, weeks*2)
	for i := range cols {
		cols[i] = ' '
	}
	lastMonth := time.Month(0)
	for w := 0; w < weeks; w++ {
		day := start.AddDate(0, 0, w*7)
		if day.Month() == lastMonth {
			continue
		}
		lastMonth = day.Month()
		name := day.Format("Jan")
		if w*2+len(name) <= len(cols) {
			copy(cols[w*2:], name)
		}
	}
	return mutedStyle.Render(strings.TrimRight(string(cols), " "))
}
