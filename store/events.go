package store

import (
	"context"

	"github.com/vibecheck/vibegraph/analysis"
)

// HandleEvent applies one push-channel event tagged with the analysis id it
// was delivered for. Events tagged with a stale id are counted and dropped
// without side effect, which makes job switches safe against responses
// still in flight.
func (s *Store) HandleEvent(ctx context.Context, analysisID string, ev analysis.Event) {
	s.mu.Lock()
	if analysisID != s.analysisID {
		s.droppedStale++
		s.logger.Debugw("Discarding event for stale analysis",
			"event_id", analysisID,
			"event_type", ev.Kind(),
		)
		s.mu.Unlock()
		return
	}

	reconcile := s.applyLocked(ev)
	s.mu.Unlock()

	if reconcile {
		s.reconcile(ctx, analysisID)
	}
}

// HandleSnapshot applies a full-state snapshot obtained by fallback
// polling. Snapshots refine the lifecycle fields but never regress them;
// a snapshot carrying an earlier status than the store has seen is a no-op
// on status.
func (s *Store) HandleSnapshot(ctx context.Context, analysisID string, res analysis.Result) {
	s.mu.Lock()
	if analysisID != s.analysisID {
		s.droppedStale++
		s.logger.Debugw("Discarding snapshot for stale analysis", "snapshot_id", analysisID)
		s.mu.Unlock()
		return
	}

	reconcile := false
	if s.status.CanAdvanceTo(res.Status) {
		s.advanceStatusLocked(res.Status)
		reconcile = s.status == analysis.StatusCompleted && s.markReconcileLocked()
	}
	if res.HealthScore != nil {
		s.health = res.HealthScore
	}
	if res.Findings.Total > 0 || s.summary == nil {
		summary := res.Findings
		s.summary = &summary
	}
	if res.Timestamps.Duration > 0 {
		s.duration = res.Timestamps.Duration
	}
	s.notifyLocked()
	s.mu.Unlock()

	if reconcile {
		s.reconcile(ctx, analysisID)
	}
}

// applyLocked dispatches one event to its reducer. Returns true when the
// event moved the analysis to completed and the follow-up fetches should
// run.
func (s *Store) applyLocked(ev analysis.Event) bool {
	switch e := ev.(type) {
	case *analysis.StatusEvent:
		return s.applyStatusLocked(e)
	case *analysis.GraphNodeEvent:
		s.applyGraphLocked(func() bool { return s.elems.UpsertNode(e.Node) })
	case *analysis.GraphEdgeEvent:
		s.applyGraphLocked(func() bool { return s.elems.AddEdge(e.Edge) })
	case *analysis.FindingEvent:
		s.applyFindingLocked(e.Finding)
	case *analysis.AgentCompleteEvent:
		s.applyAgentCompleteLocked(e)
	case *analysis.InsightEvent:
		if !s.frozen {
			s.insights = append(s.insights, e.Insight)
			s.notifyLocked()
		}
	case *analysis.CompleteEvent:
		return s.applyCompleteLocked(e)
	case *analysis.ErrorEvent:
		s.applyErrorLocked(e)
	case *analysis.ConnectedEvent, *analysis.PongEvent:
		// Housekeeping frames carry no state
	}
	return false
}

func (s *Store) applyStatusLocked(e *analysis.StatusEvent) bool {
	if s.status.Terminal() {
		s.logger.Debugw("Ignoring status event after terminal status",
			"status", e.Status,
			"agent", e.Agent,
		)
		return false
	}

	if e.Agent != "" {
		s.agents[e.Agent] = analysis.AgentState{
			Status:   e.Status,
			Progress: e.Progress,
			Message:  e.Message,
		}
	}

	reconcile := false
	if s.status.CanAdvanceTo(e.Status) {
		s.advanceStatusLocked(e.Status)
		reconcile = s.status == analysis.StatusCompleted && s.markReconcileLocked()
	}

	s.notifyLocked()
	return reconcile
}

// advanceStatusLocked moves status forward, dropping the pending edge
// queue on entering a terminal status. Callers have already verified the
// transition with CanAdvanceTo.
func (s *Store) advanceStatusLocked(next analysis.Status) {
	s.logger.Infow("Analysis status advanced", "from", s.status, "to", next)
	s.status = next
	if next.Terminal() {
		if dropped := s.elems.DropPending(); dropped > 0 {
			s.logger.Warnw("Pending edges discarded at terminal status", "dropped", dropped)
		}
	}
}

func (s *Store) markReconcileLocked() bool {
	if s.reconciled || s.backend == nil {
		return false
	}
	s.reconciled = true
	return true
}

func (s *Store) applyGraphLocked(apply func() bool) {
	if s.frozen || s.status.Terminal() {
		return
	}
	if apply() {
		s.refreshLocked()
	}
}

// applyFindingLocked appends a streamed finding, deduplicating by id.
// Re-delivery of a known id is a no-op; the authoritative copy arrives in
// the post-completion fetch.
func (s *Store) applyFindingLocked(f analysis.Finding) {
	if s.frozen || s.status.Terminal() {
		return
	}
	if _, ok := s.findingIdx[f.ID]; ok {
		return
	}
	s.findingIdx[f.ID] = len(s.findings)
	s.findings = append(s.findings, f)
	s.notifyLocked()
}

func (s *Store) applyAgentCompleteLocked(e *analysis.AgentCompleteEvent) {
	if s.frozen || s.status.Terminal() {
		return
	}
	state := s.agents[e.Agent]
	state.Status = analysis.StatusCompleted
	state.Progress = 1
	s.agents[e.Agent] = state
	s.notifyLocked()
}

func (s *Store) applyCompleteLocked(e *analysis.CompleteEvent) bool {
	if s.status.Terminal() {
		return false
	}

	health := e.HealthScore
	summary := e.FindingsSummary
	s.health = &health
	s.summary = &summary
	s.duration = e.Duration

	reconcile := false
	if s.status.CanAdvanceTo(analysis.StatusCompleted) {
		s.advanceStatusLocked(analysis.StatusCompleted)
		reconcile = s.markReconcileLocked()
	}
	s.notifyLocked()
	return reconcile
}

// applyErrorLocked routes backend errors. Recoverable errors surface as a
// warning and leave the run alive; non-recoverable ones force failed and
// freeze the model against further mutation.
func (s *Store) applyErrorLocked(e *analysis.ErrorEvent) {
	if e.Recoverable {
		s.lastWarning = e.Message
		s.logger.Warnw("Recoverable analysis error", "agent", e.Agent, "message", e.Message)
		s.notifyLocked()
		return
	}

	s.lastError = e.Message
	s.logger.Errorw("Analysis failed", "agent", e.Agent, "message", e.Message)
	if s.status.CanAdvanceTo(analysis.StatusFailed) {
		s.advanceStatusLocked(analysis.StatusFailed)
	}
	s.frozen = true
	s.notifyLocked()
}

// reconcile runs the post-completion fetches for findings, fixes, and
// chains, then merges the authoritative copies into the model. The lock is
// released for the duration of the I/O; the analysis id is re-checked
// afterwards so a job switch during the fetch discards the responses.
func (s *Store) reconcile(ctx context.Context, analysisID string) {
	findings, findingsErr := s.backend.Findings(ctx, analysisID)
	fixes, fixesErr := s.backend.Fixes(ctx, analysisID)
	chains, chainsErr := s.backend.Chains(ctx, analysisID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if analysisID != s.analysisID {
		s.droppedStale++
		s.logger.Debugw("Discarding reconcile responses for stale analysis", "fetched_id", analysisID)
		return
	}

	if findingsErr != nil {
		s.lastWarning = "findings fetch failed: " + findingsErr.Error()
		s.logger.Warnw("Findings fetch failed", "error", findingsErr)
	} else {
		s.mergeFindingsLocked(findings)
	}

	if fixesErr != nil {
		s.lastWarning = "fixes fetch failed: " + fixesErr.Error()
		s.logger.Warnw("Fixes fetch failed", "error", fixesErr)
	} else {
		s.fixes = fixes
	}

	if chainsErr != nil {
		s.lastWarning = "chains fetch failed: " + chainsErr.Error()
		s.logger.Warnw("Chains fetch failed", "error", chainsErr)
	} else {
		s.mergeChainsLocked(chains)
	}

	s.notifyLocked()
}

// mergeFindingsLocked folds fetched findings into the streamed list. A
// fetched finding with a known id replaces the streamed copy in place;
// unknown ids append. Streamed findings absent from the fetch are kept.
func (s *Store) mergeFindingsLocked(fetched []analysis.Finding) {
	for _, f := range fetched {
		if idx, ok := s.findingIdx[f.ID]; ok {
			s.findings[idx] = f
			continue
		}
		s.findingIdx[f.ID] = len(s.findings)
		s.findings = append(s.findings, f)
	}
}

func (s *Store) mergeChainsLocked(fetched []analysis.Chain) {
	for _, c := range fetched {
		if idx, ok := s.chainIdx[c.ID]; ok {
			s.chains[idx] = c
			continue
		}
		s.chainIdx[c.ID] = len(s.chains)
		s.chains = append(s.chains, c)
	}
}
