package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "sheetdrop: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sheetdrop",
		Short: "SheetDrop spreadsheet analysis backend",
		Long: `SheetDrop accepts spreadsheet uploads, infers column types and summaries,
and serves chart data. Configuration comes from the environment and the
optional YAML file named by SHEETDROP_CONFIG.`,
		SilenceUsage: true,
	}
	cmd.AddCommand(
		newServeCmd(),
		newWorkerCmd(),
		newMigrateCmd(),
		newCreateAdminCmd(),
		newAnalyzeCmd(),
	)
	return cmd
}
