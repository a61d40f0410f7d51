// Package cmd implements the agentinsights CLI commands.
package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/agentinsights/internal/cli"
	"github.com/theirongolddev/agentinsights/internal/config"
	"github.com/theirongolddev/agentinsights/internal/model"
	"github.com/theirongolddev/agentinsights/internal/pipeline"
	"github.com/theirongolddev/agentinsights/internal/source"
	"github.com/theirongolddev/agentinsights/internal/store"
)

var (
	flagDays      int
	flagHome      string
	flagNoCache   bool
	flagCachePath string
	flagQuiet     bool
	flagVerbose   bool

	appCfg = config.DefaultConfig()
	logger = slog.Default()
)

var rootCmd = &cobra.Command{
	Use:   "agentinsights",
	Short: "Activity heatmaps for AI coding assistants",
	Long: "Scan Claude Code, Codex CLI and Gemini CLI logs and summarize daily activity,\n" +
		"tool usage and token consumption. Parsed files are cached so repeat runs are fast.",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	RunE:              runSummary,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.IntVarP(&flagDays, "days", "n", 365, "Time window in days (0 = all history)")
	pf.StringVar(&flagHome, "home", "", "Home directory containing the agent log folders")
	pf.BoolVar(&flagNoCache, "no-cache", false, "Skip SQLite cache, reparse everything")
	pf.StringVar(&flagCachePath, "cache-path", "", "Cache database path")
	pf.BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress progress output")
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "Log debug diagnostics")
}

// setup loads .env and config, then applies them beneath explicit flags.
func setup(cmd *cobra.Command, _ []string) error {
	level := slog.LevelWarn
	switch {
	case flagVerbose:
		level = slog.LevelDebug
	case flagQuiet:
		level = slog.LevelError
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := config.LoadEnv(); err != nil {
		logger.Warn("ignoring env file", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	appCfg = cfg

	if !cmd.Flags().Changed("days") && cfg.General.DefaultDays > 0 {
		flagDays = cfg.General.DefaultDays
	}
	if flagDays < 0 {
		return errors.New("--days must not be negative")
	}
	return nil
}

func homeDir() string {
	if flagHome != "" {
		return flagHome
	}
	return config.HomeDir(appCfg)
}

func agentSources() []source.Source {
	return source.Sources(homeDir(), config.AgentRoots(appCfg))
}

func cachePath() string {
	switch {
	case flagCachePath != "":
		return flagCachePath
	case appCfg.Cache.Path != "":
		return appCfg.Cache.Path
	default:
		return pipeline.CachePath()
	}
}

func cacheEnabled() bool {
	return appCfg.Cache.Enabled && !flagNoCache
}

// collectorOptions returns collector options with the cache attached when
// enabled. The returned func releases the cache.
func collectorOptions(progress pipeline.ProgressFunc) ([]pipeline.Option, func()) {
	opts := []pipeline.Option{pipeline.WithLogger(logger)}
	if progress != nil {
		opts = append(opts, pipeline.WithProgress(progress))
	}

	cache, cleanup := openCache()
	if cache != nil {
		opts = append(opts, pipeline.WithCache(cache))
	}
	return opts, cleanup
}

// openCache opens the record cache when enabled. A nil cache means every
// file is parsed fresh.
func openCache() (*store.Cache, func()) {
	if !cacheEnabled() {
		return nil, func() {}
	}
	cache, err := store.Open(cachePath(), store.WithLogger(logger))
	if err != nil {
		logger.Warn("cache unavailable, doing full parse", "path", cachePath(), "error", err)
		return nil, func() {}
	}
	return cache, func() { _ = cache.Close() }
}

func newCollector(progress pipeline.ProgressFunc) (*pipeline.Collector, func()) {
	opts, cleanup := collectorOptions(progress)
	return pipeline.NewCollector(opts...), cleanup
}

// quietLogs raises the log threshold for full-screen commands unless
// --verbose asked for diagnostics.
func quietLogs() {
	if flagVerbose {
		return
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	slog.SetDefault(logger)
}

// loadData is the shared collection path used by all reporting commands.
func loadData() []pipeline.CollectResult {
	if !flagQuiet {
		fmt.Fprintf(os.Stderr, "  Scanning agent logs...\n")
	}

	progressFn := func(agent model.AgentKind, current, total int) {
		if flagQuiet {
			return
		}
		if current%100 == 0 || current == total {
			fmt.Fprintf(os.Stderr, "\r  Parsing %s [%d/%d]    ", agent.DisplayName(), current, total)
		}
	}

	col, cleanup := newCollector(progressFn)
	defer cleanup()

	results := col.CollectAll(agentSources())

	if !flagQuiet {
		var files, hits, reparsed int
		for _, r := range results {
			files += r.TotalFiles
			hits += r.CacheHits
			reparsed += r.Reparsed
		}
		if files > 0 {
			fmt.Fprintf(os.Stderr, "\r  %s files: %s cached + %s parsed                \n",
				cli.FormatNumber(int64(files)),
				cli.FormatNumber(int64(hits)),
				cli.FormatNumber(int64(reparsed)),
			)
		}
	}
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(os.Stderr, "  %s: %v\n", r.Agent.DisplayName(), r.Err)
		}
	}
	return results
}

// windowStart returns the first instant inside the --days window, or the zero
// time when the window is unbounded.
func windowStart(now time.Time) time.Time {
	if flagDays == 0 {
		return time.Time{}
	}
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location()).AddDate(0, 0, -(flagDays - 1))
}

// windowedRecords flattens results and applies the --days window.
func windowedRecords(results []pipeline.CollectResult) []model.NormalizedRecord {
	return pipeline.FilterSince(pipeline.Records(results), windowStart(time.Now()))
}

// parseAgentArgs returns the agents named on the command line, or all agents.
func parseAgentArgs(args []string) ([]model.AgentKind, error) {
	if len(args) == 0 {
		return model.Agents, nil
	}
	kinds := make([]model.AgentKind, 0, len(args))
	for _, a := range args {
		k, err := model.ParseAgentKind(a)
		if err != nil || k == model.AgentUnknown {
			return nil, fmt.Errorf("unknown agent %q (want one of: %s)", a, agentNames())
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

func agentNames() string {
	names := make([]string, 0, len(model.Agents))
	for _, k := range model.Agents {
		names = append(names, k.String())
	}
	return strings.Join(names, ", ")
}

func windowLabel() string {
	if flagDays == 0 {
		return "All time"
	}
	return fmt.Sprintf("Last %dd", flagDays)
}

func runSummary(_ *cobra.Command, _ []string) error {
	results := loadData()
	byAgent := pipeline.AggregateByAgent(windowedRecords(results), time.Local)

	fmt.Println()
	fmt.Println(cli.RenderTitle("AGENT ACTIVITY  " + windowLabel()))
	fmt.Println()

	var (
		rows       [][]string
		totalFiles int
		totalSize  int64
		totalTok   uint64
		activeDays int
	)
	for _, kind := range model.Agents {
		h, ok := byAgent[kind]
		if !ok {
			rows = append(rows, []string{kind.DisplayName(), "0", "0", "-", "-", "-"})
			continue
		}
		top := "-"
		if t, ok := h.TopTool(); ok {
			top = fmt.Sprintf("%s (%s)", t.ToolName, cli.FormatNumber(int64(t.Count)))
		}
		rows = append(rows, []string{
			kind.DisplayName(),
			cli.FormatNumber(int64(h.TotalFiles)),
			cli.FormatNumber(int64(h.ActiveDays())),
			cli.FormatBytes(h.TotalSize),
			cli.FormatTokens(h.TokenStats.TotalTokens),
			top,
		})
		totalFiles += h.TotalFiles
		totalSize += h.TotalSize
		totalTok = model.SatAdd(totalTok, h.TokenStats.TotalTokens)
		activeDays = max(activeDays, h.ActiveDays())
	}
	rows = append(rows, []string{"---"}, []string{
		"Total",
		cli.FormatNumber(int64(totalFiles)),
		cli.FormatNumber(int64(activeDays)),
		cli.FormatBytes(totalSize),
		cli.FormatTokens(totalTok),
		"",
	})

	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Agent", "Files", "Active days", "Size", "Tokens", "Top tool"},
		Rows:    rows,
	}))

	if totalFiles == 0 {
		fmt.Printf("\n  No agent logs found under %s.\n", homeDir())
	}
	return nil
}
