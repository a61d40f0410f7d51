package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/agentinsights/internal/cli"
	"github.com/theirongolddev/agentinsights/internal/model"
	"github.com/theirongolddev/agentinsights/internal/pipeline"
)

var (
	flagHeatmapJSON  bool
	flagHeatmapTable bool
)

var heatmapCmd = &cobra.Command{
	Use:       "heatmap [agent]",
	Short:     "Daily activity heatmap per agent",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"claude", "codex", "gemini"},
	RunE:      runHeatmap,
}

func init() {
	heatmapCmd.Flags().BoolVar(&flagHeatmapJSON, "json", false, "Print heatmap results as JSON")
	heatmapCmd.Flags().BoolVar(&flagHeatmapTable, "table", false, "Print a per-day table instead of the grid")
	rootCmd.AddCommand(heatmapCmd)
}

func runHeatmap(_ *cobra.Command, args []string) error {
	kinds, err := parseAgentArgs(args)
	if err != nil {
		return err
	}

	results := loadData()
	records := windowedRecords(results)

	if flagHeatmapJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if len(args) == 1 {
			return enc.Encode(pipeline.AggregateAgent(pipeline.FilterAgent(records, kinds[0]), time.Local))
		}
		out := make(map[string]model.HeatmapResult, len(kinds))
		for kind, h := range pipeline.AggregateByAgent(records, time.Local) {
			out[kind.String()] = h
		}
		return enc.Encode(out)
	}

	now := time.Now()
	for _, kind := range kinds {
		h := pipeline.AggregateAgent(pipeline.FilterAgent(records, kind), time.Local)

		fmt.Println()
		fmt.Println(cli.RenderTitle(fmt.Sprintf("%s ACTIVITY  %s", kind.DisplayName(), windowLabel())))
		fmt.Println()

		if h.TotalFiles == 0 {
			fmt.Println("  No activity in this window.")
			continue
		}

		if flagHeatmapTable {
			fmt.Print(cli.RenderTable(dayTable(h)))
			continue
		}

		since := windowStart(now)
		if since.IsZero() {
			since = h.Days[0].Day(time.Local)
		}
		fmt.Print(cli.RenderHeatmap(pipeline.FillDays(h, since, now, time.Local)))
		fmt.Printf("\n  %s files on %s active days, peak %s/day, %s\n",
			cli.FormatNumber(int64(h.TotalFiles)),
			cli.FormatNumber(int64(h.ActiveDays())),
			cli.FormatNumber(int64(h.MaxCount)),
			cli.FormatBytes(h.TotalSize),
		)
	}
	return nil
}

func dayTable(h model.HeatmapResult) cli.Table {
	rows := make([][]string, 0, len(h.Days))
	for i := len(h.Days) - 1; i >= 0; i-- {
		d := h.Days[i]
		rows = append(rows, []string{
			d.Date,
			cli.FormatDayOfWeek(int(d.Day(time.Local).Weekday())),
			cli.FormatNumber(int64(d.Count)),
			cli.FormatBytes(d.SizeBytes),
		})
	}
	return cli.Table{
		Headers: []string{"Date", "Day", "Files", "Size"},
		Rows:    rows,
	}
}
