package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vibecheck/vibegraph/cmd/vibegraph/commands"
	"github.com/vibecheck/vibegraph/logger"
)

var rootCmd = &cobra.Command{
	Use:   "vibegraph",
	Short: "vibegraph - Streaming dashboard client for vibe-check repo analysis",
	Long: `vibegraph - Streaming dashboard client for vibe-check repository analysis.

vibegraph submits repositories to a vibe-check backend, follows the analysis
over its push channel (degrading to polling when the channel is unreliable),
and maintains the live graph, findings, and health score locally.

Available commands:
  analyze - Submit a repository for analysis
  watch   - Follow a running analysis live
  history - List archived analysis runs
  version - Show version information

Examples:
  vibegraph analyze https://github.com/acme/shop --wait
  vibegraph watch an-123 --view dependencies
  vibegraph history --limit 10`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		jsonOutput, _ := cmd.Flags().GetBool("json-logs")
		if err := logger.Initialize(jsonOutput); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv)")
	rootCmd.PersistentFlags().Bool("json-logs", false, "Emit logs as JSON instead of console output")

	rootCmd.AddCommand(commands.AnalyzeCmd)
	rootCmd.AddCommand(commands.WatchCmd)
	rootCmd.AddCommand(commands.HistoryCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	defer logger.Cleanup()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
