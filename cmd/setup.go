package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/agentinsights/internal/config"
	"github.com/theirongolddev/agentinsights/internal/model"
	"github.com/theirongolddev/agentinsights/internal/tui"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "First-time setup wizard",
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(_ *cobra.Command, _ []string) error {
	cfg := appCfg

	found := make(map[model.AgentKind]int)
	for _, src := range agentSources() {
		files, err := src.Scan()
		if err != nil {
			logger.Debug("scan failed", "agent", src.Kind.String(), "error", err)
			continue
		}
		found[src.Kind] = len(files)
	}

	vals := tui.NewSetupValues(cfg, homeDir())
	if err := tui.NewSetupForm(found, &vals).Run(); err != nil {
		return fmt.Errorf("setup: %w", err)
	}
	vals.Apply(&cfg)

	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Println()
	fmt.Printf("  Saved to %s\n", config.ConfigPath())
	fmt.Println("  Run `agentinsights setup` anytime to reconfigure.")
	fmt.Println()
	return nil
}
