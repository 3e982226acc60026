package commands

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/vibecheck/vibegraph/analysis"
)

// AnalyzeCmd submits a repository for analysis
var AnalyzeCmd = &cobra.Command{
	Use:   "analyze <repo-url>",
	Short: "Submit a repository for analysis",
	Long: `Submit a repository URL to the vibe-check backend for analysis.

The backend queues the run and answers immediately with an analysis id.
With --wait the command follows the run live, exactly like 'vibegraph watch'.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		branch, _ := cmd.Flags().GetString("branch")
		scope, _ := cmd.Flags().GetString("scope")
		maxFiles, _ := cmd.Flags().GetInt("max-files")
		wait, _ := cmd.Flags().GetBool("wait")

		c := newClient(cfg)
		resp, err := c.StartAnalysis(cmd.Context(), analysis.AnalyzeRequest{
			RepoURL:  args[0],
			Branch:   branch,
			Scope:    scope,
			MaxFiles: maxFiles,
		})
		if err != nil {
			return err
		}

		pterm.Success.Printf("Analysis queued: %s\n", resp.AnalysisID)
		pterm.Printf("  Repository: %s\n", resp.RepoName)
		if resp.EstimatedDuration > 0 {
			pterm.Printf("  Estimated duration: %ds\n", resp.EstimatedDuration)
		}

		if !wait {
			pterm.Printf("\nFollow it with: %s\n", pterm.LightCyan("vibegraph watch "+resp.AnalysisID))
			return nil
		}

		return followAnalysis(cmd, cfg, c, resp.AnalysisID)
	},
}

func init() {
	AnalyzeCmd.Flags().String("branch", "", "Branch to analyze (default: repository default branch)")
	AnalyzeCmd.Flags().String("scope", "", "Analysis scope passed to the backend")
	AnalyzeCmd.Flags().Int("max-files", 0, "Cap the number of files analyzed")
	AnalyzeCmd.Flags().BoolP("wait", "w", false, "Follow the analysis until it finishes")
}
