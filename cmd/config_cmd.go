package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/agentinsights/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func orDefault(v string) string {
	if v == "" {
		return "(default)"
	}
	return v
}

func runConfig(_ *cobra.Command, _ []string) error {
	cfg := appCfg

	fmt.Printf("  Config file: %s\n", config.ConfigPath())
	if config.Exists() {
		fmt.Println("  Status: loaded")
	} else {
		fmt.Println("  Status: using defaults (no config file)")
	}
	fmt.Printf("  Env file:    %s\n", config.EnvPath())
	fmt.Println()

	fmt.Println("  [General]")
	fmt.Printf("    Default days: %d\n", cfg.General.DefaultDays)
	fmt.Printf("    Home dir:     %s\n", orDefault(cfg.General.HomeDir))
	fmt.Printf("    Effective:    %s\n", homeDir())
	fmt.Println()

	fmt.Println("  [Agents]")
	for _, src := range agentSources() {
		fmt.Printf("    %-11s %s\n", src.Kind.DisplayName()+":", src.Root)
	}
	fmt.Println()

	fmt.Println("  [Cache]")
	fmt.Printf("    Enabled: %v\n", cfg.Cache.Enabled)
	fmt.Printf("    Path:    %s\n", cachePath())
	if flagNoCache {
		fmt.Println("    (disabled for this run by --no-cache)")
	}
	fmt.Println()

	fmt.Println("  [Daemon]")
	fmt.Printf("    Addr:          %s\n", cfg.Daemon.Addr)
	fmt.Printf("    Events buffer: %d\n", cfg.Daemon.EventsBuffer)
	fmt.Println()

	fmt.Println("  [Appearance]")
	fmt.Printf("    Theme: %s\n", cfg.Appearance.Theme)
	fmt.Println()

	fmt.Println("  Run `agentinsights setup` to reconfigure.")
	return nil
}
