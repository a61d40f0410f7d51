package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/agentinsights/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print new agent log files as they appear",
	RunE:  runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(_ *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	n := watch.New(agentSources(), watch.WithLogger(logger))
	events, unsubscribe := n.Subscribe()
	defer unsubscribe()

	errCh := make(chan error, 1)
	go func() { errCh <- n.Run(ctx) }()

	select {
	case <-n.Ready():
	case err := <-errCh:
		return err
	}

	watched := n.Watched()
	if len(watched) == 0 {
		return fmt.Errorf("no agent log directories found under %s", homeDir())
	}
	for kind, root := range watched {
		fmt.Fprintf(os.Stderr, "  Watching %s: %s\n", kind.DisplayName(), root)
	}

	for {
		ev, err := watch.Wait(ctx, events)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, watch.ErrClosed) {
				return nil
			}
			return err
		}
		fmt.Printf("%s  %-6s  %s\n", ev.At.Local().Format("15:04:05"), ev.Agent, ev.Path)
	}
}
