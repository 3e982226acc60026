package commands

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/vibecheck/vibegraph/analysis"
	"github.com/vibecheck/vibegraph/archive"
	"github.com/vibecheck/vibegraph/client"
	"github.com/vibecheck/vibegraph/config"
	"github.com/vibecheck/vibegraph/errors"
	"github.com/vibecheck/vibegraph/graph"
	"github.com/vibecheck/vibegraph/logger"
	"github.com/vibecheck/vibegraph/render"
	"github.com/vibecheck/vibegraph/store"
	"github.com/vibecheck/vibegraph/stream"
)

// WatchCmd follows a running analysis live
var WatchCmd = &cobra.Command{
	Use:   "watch <analysis-id>",
	Short: "Follow a running analysis live",
	Long: `Attach to an analysis and follow it until it finishes.

Updates arrive over the backend's push channel; if the channel stays down
past the reconnect budget the command degrades to snapshot polling. The
graph, findings, and health score accumulate locally and the final result
is archived when an archive path is configured.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		view, _ := cmd.Flags().GetString("view")
		mode := graph.ViewMode(view)
		if view != "" && !mode.IsValid() {
			return errors.Newf("unknown view mode %q (expected structure, dependencies, or vulnerabilities)", view)
		}

		c := newClient(cfg)
		if err := followAnalysisInView(cmd, cfg, c, args[0], mode); err != nil {
			return err
		}
		return nil
	},
}

func init() {
	WatchCmd.Flags().String("view", "", "Initial view mode: structure|dependencies|vulnerabilities")
}

// followAnalysis runs the live-follow loop in the default view
func followAnalysis(cmd *cobra.Command, cfg *config.Config, c *client.Client, analysisID string) error {
	return followAnalysisInView(cmd, cfg, c, analysisID, "")
}

func followAnalysisInView(cmd *cobra.Command, cfg *config.Config, c *client.Client, analysisID string, mode graph.ViewMode) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st := store.New(analysisID, store.Options{
		Backend:           c,
		Renderer:          render.NewConsole(verbosity(cmd)),
		Logger:            logger.Logger,
		BlastDepth:        cfg.Graph.BlastDepth,
		PendingFlushLimit: cfg.Graph.PendingFlushLimit,
	})

	terminal := make(chan analysis.Status, 1)
	st.Subscribe(func(state store.State) {
		if state.Status.Terminal() {
			select {
			case terminal <- state.Status:
			default:
			}
		}
	})

	sub, err := stream.NewSubscriber(stream.Options{
		Dialer:    stream.NewWebsocketDialer(cfg.Server, cfg.Transport),
		Poller:    c,
		Sink:      st,
		Logger:    logger.Logger,
		Transport: cfg.Transport,
	})
	if err != nil {
		return err
	}
	defer sub.Close()

	cancel := sub.Subscribe(ctx, analysisID)
	defer cancel()

	if mode != "" {
		st.SetViewMode(mode)
	}

	// Catch up on graph elements pushed before we attached
	if snap, err := c.Graph(ctx, analysisID, st.Snapshot().View.Mode, 0); err != nil {
		logger.Debugw("Initial graph fetch skipped", "error", err)
	} else {
		st.ApplyFetchedGraph(analysisID, *snap)
	}

	pterm.Printf("👀 Watching analysis %s\n", pterm.LightCyan(analysisID))

	select {
	case <-ctx.Done():
		pterm.Warning.Println("Interrupted")
		return nil
	case status := <-terminal:
		return finishWatch(cmd.Context(), cfg, c, st, status)
	}
}

// finishWatch prints the run summary and archives the result
func finishWatch(ctx context.Context, cfg *config.Config, c *client.Client, st *store.Store, status analysis.Status) error {
	state := st.Snapshot()

	if status == analysis.StatusFailed {
		pterm.Error.Printf("Analysis failed: %s\n", state.LastError)
	} else {
		pterm.Success.Println("Analysis complete")
		if state.HealthScore != nil {
			pterm.Printf("  Health: %s (%d/100)\n",
				pterm.LightGreen(state.HealthScore.LetterGrade), state.HealthScore.Overall)
		}
		if state.Summary != nil {
			pterm.Printf("  Findings: %s critical, %d warning, %d info\n",
				pterm.Red(state.Summary.Critical), state.Summary.Warning, state.Summary.Info)
		}
		pterm.Printf("  Graph: %d nodes, %d edges", state.NodeCount, state.EdgeCount)
		if state.DroppedEdges > 0 {
			pterm.Printf(" (%d edges dropped waiting for endpoints)", state.DroppedEdges)
		}
		pterm.Println()

		if ranked := analysis.SortFindingsBySeverity(state.Findings); len(ranked) > 0 {
			top := ranked
			if len(top) > 3 {
				top = top[:3]
			}
			pterm.Println("  Top findings:")
			for _, f := range top {
				pterm.Printf("    [%s] %s\n", f.Severity, f.Title)
			}
		}

		if _, summary, err := c.FixReport(ctx, state.AnalysisID); err == nil && summary.TotalFixes > 0 {
			pterm.Printf("  Fixes: %d recommended", summary.TotalFixes)
			if summary.KeystoneFixes > 0 {
				pterm.Printf(", %d keystone eliminating %d chains",
					summary.KeystoneFixes, summary.ChainsEliminatedByKeystones)
			}
			if summary.EstimatedTotalEffort != "" {
				pterm.Printf(" (~%s)", summary.EstimatedTotalEffort)
			}
			pterm.Println()
		}
	}

	arch, err := openArchive(cfg)
	if err != nil {
		logger.Warnw("Archive unavailable, run not recorded", "error", err)
		return nil
	}
	if arch == nil {
		return nil
	}
	defer arch.Close()

	run := archive.Run{
		AnalysisID:      state.AnalysisID,
		Status:          state.Status,
		DurationSeconds: state.Duration,
		CompletedAt:     time.Now().UTC(),
	}
	if state.HealthScore != nil {
		run.OverallScore = state.HealthScore.Overall
		run.LetterGrade = state.HealthScore.LetterGrade
	}
	if state.Summary != nil {
		run.Findings = *state.Summary
	}

	// The result snapshot carries the repo identity the stream does not
	if result, err := c.Analysis(ctx, state.AnalysisID); err == nil {
		run.RepoURL = result.RepoURL
		run.RepoName = result.RepoName
		run.Branch = result.Branch
		if run.DurationSeconds == 0 {
			run.DurationSeconds = result.Timestamps.Duration
		}
	}

	if err := arch.SaveRun(ctx, run); err != nil {
		logger.Warnw("Failed to archive run", "error", err)
	}
	return nil
}
