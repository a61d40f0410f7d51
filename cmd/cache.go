package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/agentinsights/internal/cli"
	"github.com/theirongolddev/agentinsights/internal/model"
	"github.com/theirongolddev/agentinsights/internal/store"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or reset the parsed-file cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cached entries per agent",
	RunE:  runCacheStats,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached entry",
	RunE:  runCacheClear,
}

var cachePathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the cache database path",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Println(cachePath())
	},
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd, cacheClearCmd, cachePathCmd)
	rootCmd.AddCommand(cacheCmd)
}

func openExistingCache() (*store.Cache, error) {
	path := cachePath()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("no cache at %s", path)
	}
	return store.Open(path, store.WithLogger(logger))
}

func runCacheStats(_ *cobra.Command, _ []string) error {
	cache, err := openExistingCache()
	if err != nil {
		return err
	}
	defer func() { _ = cache.Close() }()

	st, err := cache.Stats()
	if err != nil {
		return err
	}

	fmt.Printf("  Cache: %s\n", cache.Path())
	if fi, err := os.Stat(cache.Path()); err == nil {
		fmt.Printf("  Size:  %s\n", cli.FormatBytes(fi.Size()))
	}
	fmt.Println()

	rows := make([][]string, 0, len(model.Agents)+2)
	for _, kind := range model.Agents {
		rows = append(rows, []string{kind.DisplayName(), cli.FormatNumber(int64(st.ByAgent[kind]))})
	}
	if n := st.ByAgent[model.AgentUnknown]; n > 0 {
		rows = append(rows, []string{model.AgentUnknown.DisplayName(), cli.FormatNumber(int64(n))})
	}
	rows = append(rows, []string{"---"}, []string{"Total", cli.FormatNumber(int64(st.Total))})

	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Agent", "Entries"},
		Rows:    rows,
	}))
	return nil
}

func runCacheClear(_ *cobra.Command, _ []string) error {
	cache, err := openExistingCache()
	if err != nil {
		return err
	}
	defer func() { _ = cache.Close() }()

	if err := cache.Clear(); err != nil {
		return err
	}
	fmt.Printf("  Cleared %s\n", cache.Path())
	return nil
}
