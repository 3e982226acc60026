package commands

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/vibecheck/vibegraph/archive"
	"github.com/vibecheck/vibegraph/errors"
)

// HistoryCmd lists archived analysis runs
var HistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "List archived analysis runs",
	Long: `List analysis runs recorded in the local archive, most recent first.

Runs are archived automatically when 'watch' or 'analyze --wait' sees an
analysis finish and an archive path is configured.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		arch, err := openArchive(cfg)
		if err != nil {
			return err
		}
		if arch == nil {
			return errors.New("no archive path configured (set archive.path in vibegraph.toml)")
		}
		defer arch.Close()

		repoURL, _ := cmd.Flags().GetString("repo")
		limit, _ := cmd.Flags().GetInt("limit")

		var runs []archive.Run
		if repoURL != "" {
			runs, err = arch.RunsForRepo(cmd.Context(), repoURL)
		} else {
			runs, err = arch.RecentRuns(cmd.Context(), limit)
		}
		if err != nil {
			return err
		}

		if len(runs) == 0 {
			pterm.Info.Println("No archived runs")
			return nil
		}

		rows := pterm.TableData{
			{"ANALYSIS", "REPOSITORY", "STATUS", "SCORE", "FINDINGS", "COMPLETED"},
		}
		for _, run := range runs {
			score := "-"
			if run.LetterGrade != "" {
				score = fmt.Sprintf("%s (%d)", run.LetterGrade, run.OverallScore)
			}
			rows = append(rows, []string{
				run.AnalysisID,
				run.RepoName,
				string(run.Status),
				score,
				fmt.Sprintf("%dc/%dw/%di", run.Findings.Critical, run.Findings.Warning, run.Findings.Info),
				run.CompletedAt.Format("2006-01-02 15:04"),
			})
		}
		return pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
	},
}

func init() {
	HistoryCmd.Flags().Int("limit", 20, "Maximum number of runs to list")
	HistoryCmd.Flags().String("repo", "", "Only list runs of this repository URL")
}
