// Command consolidator scans a workspace for automation definitions, clusters the overlapping
// ones and prints the consolidated workflows as structured data.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "consolidator",
		Short:        "Find and merge overlapping CI workflows and runbooks",
		SilenceUsage: true,
	}
	root.AddCommand(newRunCmd())

	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newRootCmd().ExecuteContext(ctx)
	if err != nil {
		stop()
		os.Exit(1)
	}
}
