package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/agentinsights/internal/cli"
	"github.com/theirongolddev/agentinsights/internal/pipeline"
)

var flagToolsLimit int

var toolsCmd = &cobra.Command{
	Use:   "tools [agent]",
	Short: "Tool-call histogram per agent",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTools,
}

func init() {
	toolsCmd.Flags().IntVarP(&flagToolsLimit, "limit", "l", 15, "Max tools shown per agent (0 = all)")
	rootCmd.AddCommand(toolsCmd)
}

func runTools(_ *cobra.Command, args []string) error {
	kinds, err := parseAgentArgs(args)
	if err != nil {
		return err
	}

	records := windowedRecords(loadData())

	for _, kind := range kinds {
		h := pipeline.AggregateAgent(pipeline.FilterAgent(records, kind), time.Local)

		fmt.Println()
		fmt.Println(cli.RenderTitle(fmt.Sprintf("%s TOOLS  %s", kind.DisplayName(), windowLabel())))
		fmt.Println()

		tools := h.ToolCalls
		if len(tools) == 0 {
			fmt.Println("  No tool calls recorded.")
			continue
		}
		if flagToolsLimit > 0 && len(tools) > flagToolsLimit {
			tools = tools[:flagToolsLimit]
		}

		labelWidth := 0
		for _, t := range tools {
			labelWidth = max(labelWidth, len(t.ToolName))
		}
		peak := float64(tools[0].Count)
		for _, t := range tools {
			fmt.Println(cli.RenderHorizontalBar(t.ToolName, labelWidth, float64(t.Count), peak, 40))
		}
		if hidden := len(h.ToolCalls) - len(tools); hidden > 0 {
			fmt.Printf("\n  ... and %d more\n", hidden)
		}
	}
	return nil
}
