// Package tui provides the interactive Bubble Tea dashboard.
package tui

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/agentinsights/internal/cli"
	"github.com/theirongolddev/agentinsights/internal/config"
	"github.com/theirongolddev/agentinsights/internal/model"
	"github.com/theirongolddev/agentinsights/internal/pipeline"
	"github.com/theirongolddev/agentinsights/internal/tui/components"
	"github.com/theirongolddev/agentinsights/internal/tui/theme"
	"github.com/theirongolddev/agentinsights/internal/watch"
)

// LoadFunc runs one collection pass. progress may be nil.
type LoadFunc func(progress pipeline.ProgressFunc) []pipeline.CollectResult

// Options configures the dashboard.
type Options struct {
	Days    int // 0 = all history
	Home    string
	Load    LoadFunc
	Changes <-chan watch.Event // nil disables live refresh

	// NeedSetup shows the first-run form once data has loaded.
	NeedSetup bool
	// SaveConfig persists setup answers; config.Save when nil.
	SaveConfig func(config.Config) error
}

// DataLoadedMsg is sent when the initial collection finishes.
type DataLoadedMsg struct {
	Results  []pipeline.CollectResult
	LoadTime time.Duration
}

// ProgressMsg reports file parsing progress.
type ProgressMsg struct {
	Agent   model.AgentKind
	Current int
	Total   int
}

// RefreshDataMsg is sent when a background refresh completes.
type RefreshDataMsg struct {
	Results  []pipeline.CollectResult
	LoadTime time.Duration
}

// FileChangedMsg carries one change notification.
type FileChangedMsg struct {
	Event watch.Event
}

type changesClosedMsg struct{}

type refreshDueMsg struct{}

// App is the root Bubble Tea model.
type App struct {
	opts Options

	// Data
	results  []pipeline.CollectResult
	overall  model.HeatmapResult
	byAgent  map[model.AgentKind]model.HeatmapResult
	loaded   bool
	loadTime time.Duration

	// Refresh state
	lastRefresh    time.Time
	refreshing     bool
	refreshQueued  bool
	refreshDue     bool
	watching       bool
	lastChange     string
	changesSeen    int
	changeDebounce time.Duration

	// UI state
	width     int
	height    int
	activeTab int
	showHelp  bool
	days      int

	// First-run setup (huh form)
	setupForm *huh.Form
	setupVals SetupValues
	needSetup bool

	// Loading
	spinner  spinner.Model
	progress map[model.AgentKind][2]int
	loadSub  chan tea.Msg
}

const (
	minTerminalWidth = 80
	compactWidth     = 120
	maxContentWidth  = 180
	minContentHeight = 5

	defaultChangeDebounce = 750 * time.Millisecond
)

// NewApp creates a new dashboard model.
func NewApp(opts Options) App {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Active.Accent).Background(theme.Active.Surface)

	if opts.SaveConfig == nil {
		opts.SaveConfig = config.Save
	}

	return App{
		opts:           opts,
		days:           opts.Days,
		needSetup:      opts.NeedSetup,
		watching:       opts.Changes != nil,
		changeDebounce: defaultChangeDebounce,
		spinner:        sp,
		progress:       make(map[model.AgentKind][2]int),
		loadSub:        make(chan tea.Msg, 1),
		byAgent:        map[model.AgentKind]model.HeatmapResult{},
	}
}

// Init implements tea.Model.
func (a App) Init() tea.Cmd {
	cmds := []tea.Cmd{
		tea.EnableMouseCellMotion,
		loadDataCmd(a.opts.Load, a.loadSub),
		a.spinner.Tick,
	}
	if a.opts.Changes != nil {
		cmds = append(cmds, waitForChangeCmd(a.opts.Changes))
	}
	return tea.Batch(cmds...)
}

func (a *App) since(now time.Time) time.Time {
	if a.days <= 0 {
		return time.Time{}
	}
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location()).AddDate(0, 0, -(a.days - 1))
}

func (a *App) recompute() {
	records := pipeline.FilterSince(pipeline.Records(a.results), a.since(time.Now()))
	a.byAgent = pipeline.AggregateByAgent(records, time.Local)
	a.overall = pipeline.AggregateAgent(records, time.Local)
	a.overall.AgentLabel = "all"
}

// agentResult returns the aggregate for kind, or an empty one.
func (a App) agentResult(kind model.AgentKind) model.HeatmapResult {
	if h, ok := a.byAgent[kind]; ok {
		return h
	}
	return model.NewHeatmapResult(kind.String(), nil, nil, model.TokenStats{})
}

// scanOf returns the collection result for kind.
func (a App) scanOf(kind model.AgentKind) (pipeline.CollectResult, bool) {
	for _, r := range a.results {
		if r.Agent == kind {
			return r, true
		}
	}
	return pipeline.CollectResult{}, false
}

// Update implements tea.Model.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		if a.setupForm != nil {
			a.setupForm = a.setupForm.WithWidth(msg.Width).WithHeight(msg.Height)
		}
		return a, nil

	case tea.MouseMsg:
		if !a.loaded || a.showHelp || a.setupForm != nil {
			return a, nil
		}
		if msg.Button == tea.MouseButtonLeft && msg.Action == tea.MouseActionPress && msg.Y == 0 {
			if tab := a.tabAtX(msg.X); tab >= 0 {
				a.activeTab = tab
			}
		}
		return a, nil

	case tea.KeyMsg:
		return a.updateKey(msg)

	case ProgressMsg:
		a.progress[msg.Agent] = [2]int{msg.Current, msg.Total}
		return a, waitForLoadMsg(a.loadSub)

	case DataLoadedMsg:
		a.results = msg.Results
		a.loaded = true
		a.loadTime = msg.LoadTime
		a.lastRefresh = time.Now()
		a.recompute()

		if a.needSetup {
			a.setupVals = NewSetupValues(loadConfigOrDefault(), a.opts.Home)
			a.setupForm = NewSetupForm(a.fileCounts(), &a.setupVals)
			if a.width > 0 {
				a.setupForm = a.setupForm.WithWidth(a.width).WithHeight(a.height)
			}
			return a, a.setupForm.Init()
		}
		return a, nil

	case RefreshDataMsg:
		a.refreshing = false
		a.lastRefresh = time.Now()
		if msg.Results != nil {
			a.results = msg.Results
			a.loadTime = msg.LoadTime
			a.recompute()
		}
		if a.refreshQueued {
			a.refreshQueued = false
			return a.startRefresh()
		}
		return a, nil

	case FileChangedMsg:
		a.changesSeen++
		a.lastChange = filepath.Base(msg.Event.Path)
		next := waitForChangeCmd(a.opts.Changes)
		if a.refreshDue {
			return a, next
		}
		a.refreshDue = true
		return a, tea.Batch(next, tea.Tick(a.changeDebounce, func(time.Time) tea.Msg { return refreshDueMsg{} }))

	case refreshDueMsg:
		a.refreshDue = false
		if !a.loaded {
			return a, nil
		}
		return a.startRefresh()

	case changesClosedMsg:
		a.watching = false
		return a, nil

	case spinner.TickMsg:
		if !a.loaded {
			var cmd tea.Cmd
			a.spinner, cmd = a.spinner.Update(msg)
			return a, cmd
		}
		return a, nil
	}

	// Forward unhandled messages to the setup form (cursor blinks, etc.)
	if a.setupForm != nil {
		return a.updateSetupForm(msg)
	}
	return a, nil
}

func (a App) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		return a, tea.Quit
	}
	if !a.loaded {
		return a, nil
	}

	// First-run setup intercepts all keys
	if a.setupForm != nil {
		return a.updateSetupForm(msg)
	}

	if key == "?" {
		a.showHelp = !a.showHelp
		return a, nil
	}
	if a.showHelp {
		a.showHelp = false
		return a, nil
	}

	switch key {
	case "q":
		return a, tea.Quit
	case "r":
		return a.startRefresh()
	case "left", "h", "shift+tab":
		a.activeTab = (a.activeTab - 1 + len(components.Tabs)) % len(components.Tabs)
	case "right", "l", "tab":
		a.activeTab = (a.activeTab + 1) % len(components.Tabs)
	case "+", "=":
		a.days = nextWindow(a.days, 1)
		a.recompute()
	case "-":
		a.days = nextWindow(a.days, -1)
		a.recompute()
	default:
		if len(msg.Runes) == 1 {
			if idx := components.TabIdxByKey(msg.Runes[0]); idx >= 0 {
				a.activeTab = idx
			}
		}
	}
	return a, nil
}

// windows are the selectable --days values, 0 meaning all history.
var windows = []int{7, 30, 90, 180, 365, 0}

func nextWindow(days, dir int) int {
	idx := len(windows) - 1
	for i, w := range windows {
		if w == days {
			idx = i
			break
		}
	}
	idx = min(max(idx+dir, 0), len(windows)-1)
	return windows[idx]
}

func (a App) startRefresh() (tea.Model, tea.Cmd) {
	if a.refreshing {
		a.refreshQueued = true
		return a, nil
	}
	a.refreshing = true
	return a, refreshDataCmd(a.opts.Load)
}

func (a App) updateSetupForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	form, cmd := a.setupForm.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		a.setupForm = f
	}

	switch a.setupForm.State {
	case huh.StateCompleted:
		cfg := loadConfigOrDefault()
		a.setupVals.Apply(&cfg)
		_ = a.opts.SaveConfig(cfg)
		theme.SetActive(cfg.Appearance.Theme)
		a.days = cfg.General.DefaultDays
		a.recompute()
		a.needSetup = false
		a.setupForm = nil
		return a, nil
	case huh.StateAborted:
		a.needSetup = false
		a.setupForm = nil
		return a, nil
	}
	return a, cmd
}

// loadConfigOrDefault loads config, returning defaults on error so the
// dashboard can always start.
func loadConfigOrDefault() config.Config {
	cfg, err := config.Load()
	if err != nil {
		return config.DefaultConfig()
	}
	return cfg
}

func (a App) fileCounts() map[model.AgentKind]int {
	counts := make(map[model.AgentKind]int, len(a.results))
	for _, r := range a.results {
		counts[r.Agent] = r.TotalFiles
	}
	return counts
}

func (a App) contentWidth() int {
	return min(a.width, maxContentWidth)
}

func (a App) isCompactLayout() bool {
	return a.contentWidth() < compactWidth
}

// View implements tea.Model.
func (a App) View() string {
	switch {
	case a.width == 0:
		return ""
	case a.width < minTerminalWidth:
		return a.viewTooNarrow()
	case !a.loaded:
		return a.viewLoading()
	case a.setupForm != nil:
		return a.setupForm.View()
	case a.showHelp:
		return a.viewHelp()
	}
	return a.viewMain()
}

func (a App) viewTooNarrow() string {
	h := max(a.height, 5)
	msg := fmt.Sprintf(
		"\n  Terminal too narrow (%d cols)\n\n  agentinsights needs at least %d columns.\n",
		a.width, minTerminalWidth,
	)
	return padHeight(truncateHeight(msg, h), h)
}

func (a App) viewLoading() string {
	t := theme.Active

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Background(t.Surface).
		Padding(2, 4)
	logoStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	mutedStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	spinnerStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface)

	var b strings.Builder
	b.WriteString(logoStyle.Render("◈ agentinsights"))
	b.WriteString(mutedStyle.Render(" · coding agent activity"))
	b.WriteString("\n\n")

	if len(a.progress) == 0 {
		b.WriteString(spinnerStyle.Render(a.spinner.View()))
		b.WriteString(mutedStyle.Render(" Discovering log files..."))
	} else {
		barW := min(max(a.width-50, 20), 40)
		for _, kind := range model.Agents {
			p, ok := a.progress[kind]
			if !ok || p[1] == 0 {
				continue
			}
			b.WriteString(mutedStyle.Render(fmt.Sprintf("%-11s ", kind.DisplayName())))
			b.WriteString(components.ProgressBar(float64(p[0])/float64(p[1]), barW))
			b.WriteString(mutedStyle.Render(fmt.Sprintf("  %s/%s",
				cli.FormatNumber(int64(p[0])), cli.FormatNumber(int64(p[1])))))
			b.WriteString("\n")
		}
	}

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, cardStyle.Render(b.String()),
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewHelp() string {
	t := theme.Active

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Background(t.Surface).
		Padding(1, 3)
	titleStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	keyStyle := lipgloss.NewStyle().Foreground(t.Highlight).Background(t.Surface).Bold(true)
	descStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	var b strings.Builder
	b.WriteString(titleStyle.Render("◈ Keyboard Shortcuts"))
	b.WriteString("\n\n")
	bindings := []struct{ key, desc string }{
		{"o c x g", "Jump to tab"},
		{"← → tab", "Previous / Next tab"},
		{"+ -", "Widen / narrow time window"},
		{"r", "Refresh now"},
		{"?", "Toggle help"},
		{"q", "Quit"},
	}
	for _, bind := range bindings {
		fmt.Fprintf(&b, "  %s  %s\n",
			keyStyle.Render(fmt.Sprintf("%-10s", bind.key)),
			descStyle.Render(bind.desc))
	}
	b.WriteString("\n")
	if a.watching {
		b.WriteString(dimStyle.Render("Data refreshes when new log files appear."))
		b.WriteString("\n")
	}
	b.WriteString(dimStyle.Render("Press any key to close"))

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, cardStyle.Render(b.String()),
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) windowLabel() string {
	if a.days <= 0 {
		return "all time"
	}
	return fmt.Sprintf("%dd", a.days)
}

func (a App) viewMain() string {
	t := theme.Active
	w := a.width
	cw := a.contentWidth()

	pillStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	accentStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	filter := pillStyle.Render(" window ") + accentStyle.Render(a.windowLabel())
	if a.changesSeen > 0 {
		filter += pillStyle.Render(fmt.Sprintf(" │ %d new files seen", a.changesSeen))
	}
	header := components.RenderTabBar(a.activeTab, w) + "\n" +
		lipgloss.NewStyle().Background(t.Surface).Width(w).Render(filter)

	dataAge := fmt.Sprintf("%.1fs", a.loadTime.Seconds())
	if !a.lastRefresh.IsZero() && time.Since(a.lastRefresh) > time.Minute {
		dataAge = cli.FormatAgo(a.lastRefresh)
	}
	statusBar := components.RenderStatusBar(w, components.StatusInfo{
		DataAge:    dataAge,
		Refreshing: a.refreshing,
		Watching:   a.watching,
		LastChange: a.lastChange,
	})

	contentH := max(a.height-lipgloss.Height(header)-lipgloss.Height(statusBar), minContentHeight)

	var content string
	tab := components.Tabs[a.activeTab]
	if tab.Agent == model.AgentUnknown {
		content = a.renderOverviewTab(cw)
	} else {
		content = a.renderAgentTab(tab.Agent, cw)
	}

	content = padHeight(truncateHeight(content, contentH), contentH)
	content = fillLinesWithBackground(content, cw, t.Background)
	content = lipgloss.Place(w, contentH, lipgloss.Center, lipgloss.Top, content,
		lipgloss.WithWhitespaceBackground(t.Background))

	output := lipgloss.JoinVertical(lipgloss.Left, header, content, statusBar)
	return lipgloss.Place(w, a.height, lipgloss.Left, lipgloss.Top, output,
		lipgloss.WithWhitespaceBackground(t.Background))
}

// ─── Commands ───────────────────────────────────────────────────

// loadDataCmd runs the loader in a background goroutine, streaming
// ProgressMsg updates and a final DataLoadedMsg through sub.
func loadDataCmd(load LoadFunc, sub chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		go func() {
			start := time.Now()
			// Non-blocking send so workers aren't stalled; the next update catches up.
			progressFn := func(agent model.AgentKind, current, total int) {
				select {
				case sub <- ProgressMsg{Agent: agent, Current: current, Total: total}:
				default:
				}
			}
			var results []pipeline.CollectResult
			if load != nil {
				results = load(progressFn)
			}
			sub <- DataLoadedMsg{Results: results, LoadTime: time.Since(start)}
		}()
		return <-sub
	}
}

// waitForLoadMsg blocks until the next message arrives from the loader goroutine.
func waitForLoadMsg(sub chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-sub
	}
}

// refreshDataCmd reruns the loader without progress reporting.
func refreshDataCmd(load LoadFunc) tea.Cmd {
	return func() tea.Msg {
		if load == nil {
			return RefreshDataMsg{}
		}
		start := time.Now()
		results := load(nil)
		return RefreshDataMsg{Results: results, LoadTime: time.Since(start)}
	}
}

func waitForChangeCmd(ch <-chan watch.Event) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		ev, err := watch.Wait(context.Background(), ch)
		if err != nil {
			// ErrClosed: the notifier stopped.
			return changesClosedMsg{}
		}
		return FileChangedMsg{Event: ev}
	}
}

// ─── Helpers ────────────────────────────────────────────────────

func truncateHeight(s string, limit int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= limit {
		return s
	}
	return strings.Join(lines[:limit], "\n")
}

func padHeight(s string, h int) string {
	lines := strings.Split(s, "\n")
	if len(lines) >= h {
		return s
	}
	return s + strings.Repeat("\n", h-len(lines))
}

// fillLinesWithBackground pads each line to width w with background color.
func fillLinesWithBackground(s string, w int, bg lipgloss.Color) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = lipgloss.PlaceHorizontal(w, lipgloss.Left, line,
			lipgloss.WithWhitespaceBackground(bg))
	}
	return strings.Join(lines, "\n")
}

// tabAtX returns the tab index at the given X coordinate, or -1 if none.
// Hitboxes follow the widths used by RenderTabBar, with one separator column.
func (a App) tabAtX(x int) int {
	pos := 0
	for i, tab := range components.Tabs {
		tabW := components.TabVisualWidth(tab, i == a.activeTab)
		if x >= pos && x < pos+tabW {
			return i
		}
		pos += tabW + 1
	}
	return -1
}
