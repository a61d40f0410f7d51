package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/theirongolddev/agentinsights/internal/config"
	"github.com/theirongolddev/agentinsights/internal/model"
	"github.com/theirongolddev/agentinsights/internal/tui/theme"
)

// SetupValues holds the answers collected by the setup form.
type SetupValues struct {
	Home  string
	Days  int
	Theme string
	Cache bool
}

// NewSetupValues seeds the form from cfg. home is shown when the config does
// not pin a home directory.
func NewSetupValues(cfg config.Config, home string) SetupValues {
	v := SetupValues{
		Home:  cfg.General.HomeDir,
		Days:  cfg.General.DefaultDays,
		Theme: cfg.Appearance.Theme,
		Cache: cfg.Cache.Enabled,
	}
	if v.Home == "" {
		v.Home = home
	}
	return v
}

// Apply writes the answers into cfg.
func (v SetupValues) Apply(cfg *config.Config) {
	cfg.General.HomeDir = strings.TrimSpace(v.Home)
	cfg.General.DefaultDays = v.Days
	cfg.Appearance.Theme = theme.ByName(v.Theme).Name
	cfg.Cache.Enabled = v.Cache
}

var daysOptions = []huh.Option[int]{
	huh.NewOption("Last 30 days", 30),
	huh.NewOption("Last 90 days", 90),
	huh.NewOption("Last 180 days", 180),
	huh.NewOption("Last year", 365),
	huh.NewOption("All history", 0),
}

// NewSetupForm builds the first-run form. found maps each agent to the number
// of log files discovered, shown in the intro note.
func NewSetupForm(found map[model.AgentKind]int, vals *SetupValues) *huh.Form {
	var intro strings.Builder
	for _, kind := range model.Agents {
		fmt.Fprintf(&intro, "%-11s %d files\n", kind.DisplayName(), found[kind])
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Welcome to agentinsights").
				Description(strings.TrimRight(intro.String(), "\n")),
			huh.NewInput().
				Title("Home directory").
				Description("Agent logs are read from .claude, .codex and .gemini below it.").
				Value(&vals.Home),
			huh.NewSelect[int]().
				Title("Default time window").
				Options(daysOptions...).
				Value(&vals.Days),
			huh.NewSelect[string]().
				Title("Color theme").
				Options(huh.NewOptions(theme.Names()...)...).
				Value(&vals.Theme),
			huh.NewConfirm().
				Title("Cache parsed files?").
				Description("Unchanged files are read from a local SQLite cache.").
				Affirmative("Yes").
				Negative("No").
				Value(&vals.Cache),
		),
	).WithTheme(huh.ThemeBase())
}
