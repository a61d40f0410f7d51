package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/agentinsights/internal/cli"
	"github.com/theirongolddev/agentinsights/internal/model"
	"github.com/theirongolddev/agentinsights/internal/pipeline"
)

var tokensCmd = &cobra.Command{
	Use:   "tokens",
	Short: "Token consumption per agent",
	RunE:  runTokens,
}

func init() {
	rootCmd.AddCommand(tokensCmd)
}

func runTokens(_ *cobra.Command, _ []string) error {
	byAgent := pipeline.AggregateByAgent(windowedRecords(loadData()), time.Local)

	fmt.Println()
	fmt.Println(cli.RenderTitle("TOKENS  " + windowLabel()))
	fmt.Println()

	rows := make([][]string, 0, len(model.Agents))
	for _, kind := range model.Agents {
		st := byAgent[kind].TokenStats
		rows = append(rows, []string{
			kind.DisplayName(),
			cli.FormatTokens(st.InputTokens),
			cli.FormatTokens(st.OutputTokens),
			cli.FormatTokens(st.CacheReadTokens),
			cli.FormatTokens(st.CacheCreationTokens),
			cli.FormatOptionalTokens(st.ReasoningTokens),
			cli.FormatTokens(st.TotalTokens),
		})
	}

	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Agent", "Input", "Output", "Cache read", "Cache write", "Reasoning", "Total"},
		Rows:    rows,
	}))
	return nil
}
