package cmd

import (
	"context"
	"fmt"
	"slices"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/agentinsights/internal/config"
	"github.com/theirongolddev/agentinsights/internal/pipeline"
	"github.com/theirongolddev/agentinsights/internal/tui"
	"github.com/theirongolddev/agentinsights/internal/tui/theme"
	"github.com/theirongolddev/agentinsights/internal/watch"
)

var flagTUINoWatch bool

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive dashboard",
	RunE:  runTUI,
}

func init() {
	tuiCmd.Flags().BoolVar(&flagTUINoWatch, "no-watch", false, "Do not refresh when new log files appear")
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(_ *cobra.Command, _ []string) error {
	theme.SetActive(appCfg.Appearance.Theme)

	// Force TrueColor so background styling always produces ANSI codes.
	lipgloss.SetColorProfile(termenv.TrueColor)

	// The dashboard owns the terminal.
	quietLogs()

	base, cleanup := collectorOptions(nil)
	defer cleanup()
	srcs := agentSources()

	load := func(progress pipeline.ProgressFunc) []pipeline.CollectResult {
		opts := slices.Clone(base)
		if progress != nil {
			opts = append(opts, pipeline.WithProgress(progress))
		}
		return pipeline.NewCollector(opts...).CollectAll(srcs)
	}

	opts := tui.Options{
		Days:      flagDays,
		Home:      homeDir(),
		Load:      load,
		NeedSetup: !config.Exists(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if !flagTUINoWatch {
		n := watch.New(srcs, watch.WithLogger(logger))
		events, unsubscribe := n.Subscribe()
		defer unsubscribe()
		go func() { _ = n.Run(ctx) }()
		opts.Changes = events
	}

	p := tea.NewProgram(tui.NewApp(opts), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
