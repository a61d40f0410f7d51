// Package theme defines color themes for the agentinsights dashboard.
//
// Each theme carries a five-step heat ramp for the activity grid, from an
// idle day to the busiest day, and one identifying color per agent.
package theme

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/agentinsights/internal/model"
)

// Theme defines the color roles used throughout the TUI.
type Theme struct {
	Name          string
	Background    lipgloss.Color // Main app background
	Surface       lipgloss.Color // Card/panel backgrounds
	SurfaceHover  lipgloss.Color // Active tab
	SurfaceBright lipgloss.Color // Extra bright surface for emphasis
	Border        lipgloss.Color
	BorderAccent  lipgloss.Color // Overlay and form borders
	TextDim       lipgloss.Color // Hints, empty states
	TextMuted     lipgloss.Color // Labels, metadata
	TextPrimary   lipgloss.Color
	Accent        lipgloss.Color
	AccentBright  lipgloss.Color
	AccentDim     lipgloss.Color
	Highlight     lipgloss.Color // Key hints and progress fill

	Heat [5]lipgloss.Color // idle .. busiest

	Claude lipgloss.Color
	Codex  lipgloss.Color
	Gemini lipgloss.Color
}

// Active is the currently selected theme.
var Active = FlexokiDark

// FlexokiDark is the default: warm paper tones with a green activity ramp.
var FlexokiDark = Theme{
	Name:          "flexoki-dark",
	Background:    lipgloss.Color("#100F0F"),
	Surface:       lipgloss.Color("#1C1B1A"),
	SurfaceHover:  lipgloss.Color("#282726"),
	SurfaceBright: lipgloss.Color("#343331"),
	Border:        lipgloss.Color("#403E3C"),
	BorderAccent:  lipgloss.Color("#3AA99F"),
	TextDim:       lipgloss.Color("#575653"),
	TextMuted:     lipgloss.Color("#878580"),
	TextPrimary:   lipgloss.Color("#FFFCF0"),
	Accent:        lipgloss.Color("#3AA99F"),
	AccentBright:  lipgloss.Color("#5BC8BE"),
	AccentDim:     lipgloss.Color("#1A3533"),
	Highlight:     lipgloss.Color("#24837B"),
	Heat: [5]lipgloss.Color{
		"#282726", "#3D4C07", "#66800B", "#879A39", "#A3B859",
	},
	Claude: lipgloss.Color("#DA702C"),
	Codex:  lipgloss.Color("#4385BE"),
	Gemini: lipgloss.Color("#CE5D97"),
}

// GitHubDark mirrors the contribution graph colors developers already read
// at a glance.
var GitHubDark = Theme{
	Name:          "github-dark",
	Background:    lipgloss.Color("#0D1117"),
	Surface:       lipgloss.Color("#161B22"),
	SurfaceHover:  lipgloss.Color("#21262D"),
	SurfaceBright: lipgloss.Color("#30363D"),
	Border:        lipgloss.Color("#30363D"),
	BorderAccent:  lipgloss.Color("#2F81F7"),
	TextDim:       lipgloss.Color("#484F58"),
	TextMuted:     lipgloss.Color("#8B949E"),
	TextPrimary:   lipgloss.Color("#E6EDF3"),
	Accent:        lipgloss.Color("#2F81F7"),
	AccentBright:  lipgloss.Color("#79C0FF"),
	AccentDim:     lipgloss.Color("#0C2D6B"),
	Highlight:     lipgloss.Color("#39D353"),
	Heat: [5]lipgloss.Color{
		"#161B22", "#0E4429", "#006D32", "#26A641", "#39D353",
	},
	Claude: lipgloss.Color("#F0883E"),
	Codex:  lipgloss.Color("#58A6FF"),
	Gemini: lipgloss.Color("#BC8CFF"),
}

// TokyoNight is a cool blue/purple theme with a violet ramp.
var TokyoNight = Theme{
	Name:          "tokyo-night",
	Background:    lipgloss.Color("#1A1B26"),
	Surface:       lipgloss.Color("#24283B"),
	SurfaceHover:  lipgloss.Color("#343A52"),
	SurfaceBright: lipgloss.Color("#414868"),
	Border:        lipgloss.Color("#565F89"),
	BorderAccent:  lipgloss.Color("#7AA2F7"),
	TextDim:       lipgloss.Color("#565F89"),
	TextMuted:     lipgloss.Color("#A9B1D6"),
	TextPrimary:   lipgloss.Color("#C0CAF5"),
	Accent:        lipgloss.Color("#7AA2F7"),
	AccentBright:  lipgloss.Color("#A9C1FF"),
	AccentDim:     lipgloss.Color("#252B3F"),
	Highlight:     lipgloss.Color("#7DCFFF"),
	Heat: [5]lipgloss.Color{
		"#292E42", "#3D59A1", "#7AA2F7", "#BB9AF7", "#C0CAF5",
	},
	Claude: lipgloss.Color("#FF9E64"),
	Codex:  lipgloss.Color("#7DCFFF"),
	Gemini: lipgloss.Color("#BB9AF7"),
}

// Terminal uses ANSI 16 colors only.
var Terminal = Theme{
	Name:          "terminal",
	Background:    lipgloss.Color("0"),
	Surface:       lipgloss.Color("0"),
	SurfaceHover:  lipgloss.Color("8"),
	SurfaceBright: lipgloss.Color("8"),
	Border:        lipgloss.Color("8"),
	BorderAccent:  lipgloss.Color("6"),
	TextDim:       lipgloss.Color("8"),
	TextMuted:     lipgloss.Color("7"),
	TextPrimary:   lipgloss.Color("15"),
	Accent:        lipgloss.Color("6"),
	AccentBright:  lipgloss.Color("14"),
	AccentDim:     lipgloss.Color("0"),
	Highlight:     lipgloss.Color("6"),
	Heat:          [5]lipgloss.Color{"8", "2", "10", "3", "11"},
	Claude:        lipgloss.Color("3"),
	Codex:         lipgloss.Color("4"),
	Gemini:        lipgloss.Color("5"),
}

// All available themes, in the order the setup form offers them.
var All = []Theme{FlexokiDark, GitHubDark, TokyoNight, Terminal}

// ByName returns a theme by its name, defaulting to FlexokiDark.
func ByName(name string) Theme {
	for _, t := range All {
		if t.Name == name {
			return t
		}
	}
	return FlexokiDark
}

// SetActive sets the active theme by name.
func SetActive(name string) {
	Active = ByName(name)
}

// Names lists the theme names in display order.
func Names() []string {
	names := make([]string, len(All))
	for i, t := range All {
		names[i] = t.Name
	}
	return names
}

// HeatScale returns heatmap cell colors from idle to busiest.
func (t Theme) HeatScale() []lipgloss.Color {
	return t.Heat[:]
}

// AgentColor is the accent used for an agent's tab, bars and legend.
func (t Theme) AgentColor(kind model.AgentKind) lipgloss.Color {
	switch kind {
	case model.AgentClaude:
		return t.Claude
	case model.AgentCodex:
		return t.Codex
	case model.AgentGemini:
		return t.Gemini
	default:
		return t.TextMuted
	}
}
