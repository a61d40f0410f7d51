package tui

import (
	"reflect"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/agentinsights/internal/config"
	"github.com/theirongolddev/agentinsights/internal/model"
	"github.com/theirongolddev/agentinsights/internal/pipeline"
	"github.com/theirongolddev/agentinsights/internal/tui/components"
	"github.com/theirongolddev/agentinsights/internal/watch"
)

func init() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

func sampleResults() []pipeline.CollectResult {
	now := time.Now()
	tokens := &model.TokenUsage{Input: 100, Output: 50, Total: 150}
	return []pipeline.CollectResult{
		{
			Agent:      model.AgentClaude,
			TotalFiles: 2,
			Reparsed:   2,
			Records: []model.NormalizedRecord{
				{Agent: model.AgentClaude, FilePath: "/a.jsonl", CreatedAt: now, FileSize: 10, ToolCalls: []string{"Bash", "Read"}},
				{Agent: model.AgentClaude, FilePath: "/b.jsonl", CreatedAt: now.AddDate(0, 0, -3), FileSize: 20, ToolCalls: []string{"Bash"}},
			},
		},
		{
			Agent:      model.AgentCodex,
			TotalFiles: 1,
			CacheHits:  1,
			Records: []model.NormalizedRecord{
				{Agent: model.AgentCodex, FilePath: "/c.jsonl", CreatedAt: now, FileSize: 5, Tokens: tokens, ToolCalls: []string{}},
			},
		},
		{Agent: model.AgentGemini},
	}
}

func loadedApp(t *testing.T) App {
	t.Helper()
	a := NewApp(Options{
		Days: 30,
		Load: func(pipeline.ProgressFunc) []pipeline.CollectResult { return sampleResults() },
	})
	m, _ := a.Update(tea.WindowSizeMsg{Width: 140, Height: 50})
	m, _ = m.Update(DataLoadedMsg{Results: sampleResults(), LoadTime: time.Millisecond})
	return m.(App)
}

func key(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func TestDataLoadedAggregatesPerAgent(t *testing.T) {
	a := loadedApp(t)
	require.True(t, a.loaded)
	assert.Equal(t, 3, a.overall.TotalFiles)
	assert.Equal(t, 2, a.agentResult(model.AgentClaude).TotalFiles)
	assert.Equal(t, "Bash", a.agentResult(model.AgentClaude).ToolCalls[0].ToolName)
	assert.Equal(t, uint64(150), a.agentResult(model.AgentCodex).TokenStats.TotalTokens)
	assert.Zero(t, a.agentResult(model.AgentGemini).TotalFiles)
}

func TestWindowExcludesOldRecords(t *testing.T) {
	a := loadedApp(t)
	a.days = 1
	a.recompute()
	assert.Equal(t, 1, a.agentResult(model.AgentClaude).TotalFiles)
}

func TestTabKeys(t *testing.T) {
	a := loadedApp(t)
	m, _ := a.Update(key('x'))
	assert.Equal(t, 2, m.(App).activeTab)

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRight})
	assert.Equal(t, 3, m.(App).activeTab)
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRight})
	assert.Equal(t, 0, m.(App).activeTab)
}

func TestWindowKeys(t *testing.T) {
	a := loadedApp(t)
	m, _ := a.Update(key('+'))
	assert.Equal(t, 90, m.(App).days)
	m, _ = m.Update(key('-'))
	m, _ = m.Update(key('-'))
	assert.Equal(t, 7, m.(App).days)
	m, _ = m.Update(key('-'))
	assert.Equal(t, 7, m.(App).days)
}

func TestNextWindow(t *testing.T) {
	assert.Equal(t, 0, nextWindow(365, 1))
	assert.Equal(t, 0, nextWindow(0, 1))
	assert.Equal(t, 365, nextWindow(0, -1))
	assert.Equal(t, 0, nextWindow(42, 0)) // unknown values snap to all history
}

func TestFileChangeSchedulesOneRefresh(t *testing.T) {
	ch := make(chan watch.Event, 1)
	a := loadedApp(t)
	a.opts.Changes = ch

	ev := watch.Event{Agent: model.AgentCodex, Path: "/h/.codex/sessions/new.jsonl", At: time.Now()}
	m, cmd := a.Update(FileChangedMsg{Event: ev})
	require.NotNil(t, cmd)
	app := m.(App)
	assert.True(t, app.refreshDue)
	assert.Equal(t, "new.jsonl", app.lastChange)
	assert.Equal(t, 1, app.changesSeen)

	// A burst while the debounce is pending only re-arms the listener.
	m, _ = app.Update(FileChangedMsg{Event: ev})
	assert.Equal(t, 2, m.(App).changesSeen)

	m, cmd = m.Update(refreshDueMsg{})
	require.NotNil(t, cmd)
	assert.True(t, m.(App).refreshing)
	assert.False(t, m.(App).refreshDue)
}

func TestRefreshWhileRefreshingIsQueued(t *testing.T) {
	a := loadedApp(t)
	m, cmd := a.Update(key('r'))
	require.NotNil(t, cmd)
	require.True(t, m.(App).refreshing)

	m, cmd = m.Update(key('r'))
	assert.Nil(t, cmd)
	assert.True(t, m.(App).refreshQueued)

	m, cmd = m.Update(RefreshDataMsg{Results: sampleResults()})
	assert.NotNil(t, cmd)
	assert.True(t, m.(App).refreshing)
	assert.False(t, m.(App).refreshQueued)
}

func TestRefreshCmdRunsLoader(t *testing.T) {
	calls := 0
	cmd := refreshDataCmd(func(p pipeline.ProgressFunc) []pipeline.CollectResult {
		calls++
		assert.Nil(t, p)
		return sampleResults()
	})
	msg, ok := cmd().(RefreshDataMsg)
	require.True(t, ok)
	assert.Equal(t, 1, calls)
	assert.Len(t, msg.Results, 3)
}

func TestWaitForChangeCmd(t *testing.T) {
	assert.Nil(t, waitForChangeCmd(nil))

	ch := make(chan watch.Event, 1)
	ch <- watch.Event{Path: "/x.json"}
	msg := waitForChangeCmd(ch)()
	assert.Equal(t, "/x.json", msg.(FileChangedMsg).Event.Path)

	close(ch)
	assert.IsType(t, changesClosedMsg{}, waitForChangeCmd(ch)())
}

func TestChangesClosedStopsLiveIndicator(t *testing.T) {
	a := NewApp(Options{Changes: make(chan watch.Event)})
	require.True(t, a.watching)
	m, _ := a.Update(changesClosedMsg{})
	assert.False(t, m.(App).watching)
}

func TestViewRendersEveryTab(t *testing.T) {
	a := loadedApp(t)
	for i := range components.Tabs {
		a.activeTab = i
		out := a.View()
		lines := strings.Split(out, "\n")
		assert.Len(t, lines, 50, "tab %d", i)
		assert.Contains(t, out, "Overview")
	}
	a.activeTab = 1
	assert.Contains(t, a.View(), "Bash")
}

func TestViewTooNarrow(t *testing.T) {
	a := loadedApp(t)
	m, _ := a.Update(tea.WindowSizeMsg{Width: 60, Height: 20})
	assert.Contains(t, m.(App).View(), "too narrow")
}

func TestTabAtXMatchesTabWidths(t *testing.T) {
	for active := range components.Tabs {
		a := App{activeTab: active}
		pos := 0
		for i, tab := range components.Tabs {
			w := components.TabVisualWidth(tab, i == active)
			assert.Equal(t, i, a.tabAtX(pos+w/2), "active=%d", active)
			pos += w + 1
		}
		assert.Equal(t, -1, a.tabAtX(pos+50))
	}
}

func TestSetupValuesApply(t *testing.T) {
	cfg := config.DefaultConfig()
	v := NewSetupValues(cfg, "/home/me")
	assert.Equal(t, "/home/me", v.Home)
	assert.Equal(t, 365, v.Days)

	v.Home = " /srv/logs "
	v.Days = 0
	v.Theme = "not-a-theme"
	v.Cache = false
	v.Apply(&cfg)

	assert.Equal(t, "/srv/logs", cfg.General.HomeDir)
	assert.Equal(t, 0, cfg.General.DefaultDays)
	assert.Equal(t, "flexoki-dark", cfg.Appearance.Theme)
	assert.False(t, cfg.Cache.Enabled)
}

func TestNeedSetupShowsForm(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	a := NewApp(Options{NeedSetup: true, Home: "/home/me"})
	m, _ := a.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m, cmd := m.Update(DataLoadedMsg{Results: sampleResults()})
	require.NotNil(t, cmd)
	m = runCmds(m, cmd)
	m, _ = m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	app := m.(App)
	require.NotNil(t, app.setupForm)
	assert.Contains(t, app.View(), "Welcome to agentinsights")
}

// runCmds executes cmd and feeds the resulting messages back into m,
// expanding batches and sequences. Commands that do not return promptly
// (cursor blink ticks) are dropped.
func runCmds(m tea.Model, cmd tea.Cmd) tea.Model {
	cmdType := reflect.TypeOf(tea.Cmd(nil))
	queue := []tea.Cmd{cmd}
	for steps := 0; len(queue) > 0 && steps < 100; steps++ {
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		done := make(chan tea.Msg, 1)
		go func() { done <- c() }()
		var msg tea.Msg
		select {
		case msg = <-done:
		case <-time.After(50 * time.Millisecond):
			continue
		}
		if msg == nil {
			continue
		}
		if v := reflect.ValueOf(msg); v.Kind() == reflect.Slice && v.Type().Elem() == cmdType {
			for i := range v.Len() {
				queue = append(queue, v.Index(i).Interface().(tea.Cmd))
			}
			continue
		}
		var next tea.Cmd
		m, next = m.Update(msg)
		queue = append(queue, next)
	}
	return m
}
