package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/vibecheck/vibegraph/analysis"
	"github.com/vibecheck/vibegraph/graph"
)

type fakeBackend struct {
	findings []analysis.Finding
	fixes    []analysis.Fix
	chains   []analysis.Chain

	findingsCalls int
	fixesCalls    int
	chainsCalls   int
}

func (b *fakeBackend) Findings(_ context.Context, _ string) ([]analysis.Finding, error) {
	b.findingsCalls++
	return b.findings, nil
}

func (b *fakeBackend) Fixes(_ context.Context, _ string) ([]analysis.Fix, error) {
	b.fixesCalls++
	return b.fixes, nil
}

func (b *fakeBackend) Chains(_ context.Context, _ string) ([]analysis.Chain, error) {
	b.chainsCalls++
	return b.chains, nil
}

type captureRenderer struct {
	applies []capturedApply
}

type capturedApply struct {
	delta   graph.Delta
	classes graph.Classification
	mode    graph.ViewMode
}

func (r *captureRenderer) Apply(delta graph.Delta, classes graph.Classification, mode graph.ViewMode) {
	r.applies = append(r.applies, capturedApply{delta: delta, classes: classes, mode: mode})
}

func (r *captureRenderer) last() capturedApply {
	return r.applies[len(r.applies)-1]
}

func newTestStore(t *testing.T, backend Backend) (*Store, *captureRenderer) {
	t.Helper()
	renderer := &captureRenderer{}
	s := New("an-1", Options{Backend: backend, Renderer: renderer})
	return s, renderer
}

func node(id string) *analysis.GraphNodeEvent {
	return &analysis.GraphNodeEvent{Node: graph.Node{ID: id, Type: graph.NodeFile, Label: id}}
}

func edge(id, src, dst string, typ graph.EdgeType) *analysis.GraphEdgeEvent {
	return &analysis.GraphEdgeEvent{Edge: graph.Edge{ID: id, Source: src, Target: dst, Type: typ}}
}

func status(st analysis.Status) *analysis.StatusEvent {
	return &analysis.StatusEvent{Status: st}
}

func TestStatusAdvancesMonotonically(t *testing.T) {
	s, _ := newTestStore(t, nil)
	ctx := context.Background()

	s.HandleEvent(ctx, "an-1", status(analysis.StatusCloning))
	require.Equal(t, analysis.StatusCloning, s.Snapshot().Status)

	s.HandleEvent(ctx, "an-1", status(analysis.StatusAnalyzing))
	require.Equal(t, analysis.StatusAnalyzing, s.Snapshot().Status)

	// Late delivery of an earlier stage must not regress the status
	s.HandleEvent(ctx, "an-1", status(analysis.StatusMapping))
	assert.Equal(t, analysis.StatusAnalyzing, s.Snapshot().Status)
}

func TestFailedIsTerminal(t *testing.T) {
	s, _ := newTestStore(t, nil)
	ctx := context.Background()

	s.HandleEvent(ctx, "an-1", status(analysis.StatusCloning))
	s.HandleEvent(ctx, "an-1", status(analysis.StatusMapping))
	s.HandleEvent(ctx, "an-1", status(analysis.StatusFailed))
	require.Equal(t, analysis.StatusFailed, s.Snapshot().Status)

	// A straggling progress event after failure changes nothing
	s.HandleEvent(ctx, "an-1", status(analysis.StatusAnalyzing))
	assert.Equal(t, analysis.StatusFailed, s.Snapshot().Status)

	s.HandleEvent(ctx, "an-1", node("n1"))
	assert.Equal(t, 0, s.Snapshot().NodeCount)
}

func TestTerminalStatusDropsPendingEdges(t *testing.T) {
	s, _ := newTestStore(t, nil)
	ctx := context.Background()

	s.HandleEvent(ctx, "an-1", node("a"))
	s.HandleEvent(ctx, "an-1", edge("e1", "a", "missing", graph.EdgeImports))
	require.Equal(t, 1, s.Snapshot().PendingEdges)

	s.HandleEvent(ctx, "an-1", status(analysis.StatusFailed))
	state := s.Snapshot()
	assert.Equal(t, 0, state.PendingEdges)
	assert.Equal(t, 1, state.DroppedEdges)
	assert.Equal(t, 0, state.EdgeCount)
}

func TestOutOfOrderEdgeBecomesVisible(t *testing.T) {
	s, _ := newTestStore(t, nil)
	ctx := context.Background()

	s.HandleEvent(ctx, "an-1", edge("e1", "a", "b", graph.EdgeContains))
	require.Equal(t, 0, s.Snapshot().EdgeCount)
	require.Equal(t, 1, s.Snapshot().PendingEdges)

	s.HandleEvent(ctx, "an-1", node("a"))
	require.Equal(t, 0, s.Snapshot().EdgeCount)

	s.HandleEvent(ctx, "an-1", node("b"))
	state := s.Snapshot()
	assert.Equal(t, 1, state.EdgeCount)
	assert.Equal(t, 0, state.PendingEdges)
}

func TestDuplicateEventsAreIdempotent(t *testing.T) {
	s, renderer := newTestStore(t, nil)
	ctx := context.Background()

	s.HandleEvent(ctx, "an-1", node("a"))
	s.HandleEvent(ctx, "an-1", node("b"))
	s.HandleEvent(ctx, "an-1", edge("e1", "a", "b", graph.EdgeContains))
	applied := len(renderer.applies)

	s.HandleEvent(ctx, "an-1", node("a"))
	s.HandleEvent(ctx, "an-1", edge("e1", "a", "b", graph.EdgeContains))

	state := s.Snapshot()
	assert.Equal(t, 2, state.NodeCount)
	assert.Equal(t, 1, state.EdgeCount)
	assert.Equal(t, applied, len(renderer.applies), "no-op events must not trigger renders")
}

func TestCompleteTriggersReconcileFetches(t *testing.T) {
	backend := &fakeBackend{
		findings: []analysis.Finding{
			{ID: "f1", Severity: analysis.SeverityCritical, Title: "authoritative title"},
			{ID: "f2", Severity: analysis.SeverityInfo, Title: "only in fetch"},
		},
		fixes:  []analysis.Fix{{ID: "x1", Priority: 1}},
		chains: []analysis.Chain{{ID: "c1", Severity: analysis.SeverityCritical}},
	}
	s, _ := newTestStore(t, backend)
	ctx := context.Background()

	s.HandleEvent(ctx, "an-1", &analysis.FindingEvent{
		Finding: analysis.Finding{ID: "f1", Severity: analysis.SeverityCritical, Title: "streamed preview"},
	})
	s.HandleEvent(ctx, "an-1", &analysis.CompleteEvent{
		HealthScore: analysis.HealthScore{Overall: 82, LetterGrade: "B"},
		Duration:    41,
	})

	state := s.Snapshot()
	require.Equal(t, analysis.StatusCompleted, state.Status)
	require.Equal(t, 1, backend.findingsCalls)
	require.Equal(t, 1, backend.fixesCalls)
	require.Equal(t, 1, backend.chainsCalls)

	require.Len(t, state.Findings, 2)
	assert.Equal(t, "authoritative title", state.Findings[0].Title, "fetched copy wins over the streamed preview")
	assert.Equal(t, "f2", state.Findings[1].ID)
	assert.Len(t, state.Fixes, 1)
	assert.Len(t, state.Chains, 1)
	require.NotNil(t, state.HealthScore)
	assert.Equal(t, 82, state.HealthScore.Overall)
}

func TestReconcileRunsOnce(t *testing.T) {
	backend := &fakeBackend{}
	s, _ := newTestStore(t, backend)
	ctx := context.Background()

	s.HandleEvent(ctx, "an-1", &analysis.CompleteEvent{})
	s.HandleSnapshot(ctx, "an-1", analysis.Result{AnalysisID: "an-1", Status: analysis.StatusCompleted})

	assert.Equal(t, 1, backend.findingsCalls)
	assert.Equal(t, 1, backend.fixesCalls)
	assert.Equal(t, 1, backend.chainsCalls)
}

func TestRecoverableErrorDoesNotFail(t *testing.T) {
	s, _ := newTestStore(t, nil)
	ctx := context.Background()

	s.HandleEvent(ctx, "an-1", status(analysis.StatusAnalyzing))
	s.HandleEvent(ctx, "an-1", &analysis.ErrorEvent{Message: "agent timeout", Recoverable: true})

	state := s.Snapshot()
	assert.Equal(t, analysis.StatusAnalyzing, state.Status)
	assert.Equal(t, "agent timeout", state.LastWarning)
	assert.Empty(t, state.LastError)
}

func TestNonRecoverableErrorFreezesStore(t *testing.T) {
	s, _ := newTestStore(t, nil)
	ctx := context.Background()

	s.HandleEvent(ctx, "an-1", node("a"))
	s.HandleEvent(ctx, "an-1", &analysis.ErrorEvent{Message: "clone failed", Recoverable: false})

	state := s.Snapshot()
	require.Equal(t, analysis.StatusFailed, state.Status)
	assert.Equal(t, "clone failed", state.LastError)

	s.HandleEvent(ctx, "an-1", node("b"))
	s.HandleEvent(ctx, "an-1", &analysis.FindingEvent{Finding: analysis.Finding{ID: "f1"}})
	state = s.Snapshot()
	assert.Equal(t, 1, state.NodeCount)
	assert.Empty(t, state.Findings)
}

func TestStaleEventsAreDiscarded(t *testing.T) {
	s, _ := newTestStore(t, nil)
	ctx := context.Background()

	s.HandleEvent(ctx, "an-1", node("a"))
	s.Reset("an-2")
	require.Equal(t, 0, s.Snapshot().NodeCount)

	// Deliveries still tagged with the prior id must not leak in
	s.HandleEvent(ctx, "an-1", node("b"))
	s.HandleSnapshot(ctx, "an-1", analysis.Result{Status: analysis.StatusCompleted})

	state := s.Snapshot()
	assert.Equal(t, 0, state.NodeCount)
	assert.Equal(t, analysis.StatusQueued, state.Status)
	assert.Equal(t, 2, state.DroppedStale)
}

func TestSnapshotDoesNotRegressStatus(t *testing.T) {
	s, _ := newTestStore(t, nil)
	ctx := context.Background()

	s.HandleEvent(ctx, "an-1", status(analysis.StatusAnalyzing))
	s.HandleSnapshot(ctx, "an-1", analysis.Result{AnalysisID: "an-1", Status: analysis.StatusCloning})
	assert.Equal(t, analysis.StatusAnalyzing, s.Snapshot().Status)

	s.HandleSnapshot(ctx, "an-1", analysis.Result{AnalysisID: "an-1", Status: analysis.StatusCompleting})
	assert.Equal(t, analysis.StatusCompleting, s.Snapshot().Status)
}

func TestSelectUnknownNodeIsIgnored(t *testing.T) {
	s, renderer := newTestStore(t, nil)
	ctx := context.Background()

	s.HandleEvent(ctx, "an-1", node("a"))
	applied := len(renderer.applies)

	s.SelectNode("vanished")
	assert.Equal(t, applied, len(renderer.applies))
	assert.Empty(t, s.Snapshot().View.SelectedNode)

	s.SelectNode("a")
	require.Equal(t, "a", s.Snapshot().View.SelectedNode)
	assert.Equal(t, graph.ClassSelected, renderer.last().classes["a"])
}

func TestViewModeSwitchFiltersEdges(t *testing.T) {
	s, renderer := newTestStore(t, nil)
	ctx := context.Background()

	s.HandleEvent(ctx, "an-1", node("a"))
	s.HandleEvent(ctx, "an-1", node("b"))
	s.HandleEvent(ctx, "an-1", edge("contain", "a", "b", graph.EdgeContains))
	s.HandleEvent(ctx, "an-1", edge("imp", "a", "b", graph.EdgeImports))

	s.SetViewMode(graph.ViewDependencies)
	last := renderer.last()
	assert.Equal(t, graph.ViewDependencies, last.mode)
	require.Len(t, last.delta.AddedEdges, 1)
	assert.Equal(t, "imp", last.delta.AddedEdges[0].ID)
	assert.Contains(t, last.delta.RemovedEdges, "contain")

	s.SetViewMode(graph.ViewStructure)
	last = renderer.last()
	require.Len(t, last.delta.AddedEdges, 1)
	assert.Equal(t, "contain", last.delta.AddedEdges[0].ID)
	assert.Contains(t, last.delta.RemovedEdges, "imp")
}

func TestClearHighlightRestoresViewBaseline(t *testing.T) {
	s, renderer := newTestStore(t, nil)
	ctx := context.Background()

	s.HandleEvent(ctx, "an-1", node("a"))
	s.HandleEvent(ctx, "an-1", node("b"))
	s.HandleEvent(ctx, "an-1", edge("imp", "a", "b", graph.EdgeImports))
	s.SetViewMode(graph.ViewDependencies)

	s.SelectNode("a")
	require.Equal(t, graph.ClassSelected, renderer.last().classes["a"])

	s.ClearHighlight()
	last := renderer.last()
	assert.Equal(t, graph.ClassNormal, last.classes["a"])
	assert.Equal(t, graph.ClassHighlighted, last.classes["imp"], "dependencies baseline restored, not structure")
	assert.True(t, last.delta.Empty(), "clearing a highlight must not re-run layout")
}

func TestFilterRestrictsVisibleElements(t *testing.T) {
	s, renderer := newTestStore(t, nil)
	ctx := context.Background()

	s.HandleEvent(ctx, "an-1", &analysis.GraphNodeEvent{Node: graph.Node{ID: "a", Type: graph.NodeFile, Label: "auth.py"}})
	s.HandleEvent(ctx, "an-1", &analysis.GraphNodeEvent{Node: graph.Node{ID: "b", Type: graph.NodeFile, Label: "main.py"}})
	s.HandleEvent(ctx, "an-1", edge("e1", "a", "b", graph.EdgeContains))

	s.SetFilter("AUTH")
	last := renderer.last()
	assert.Contains(t, last.delta.RemovedNodes, "b")
	assert.Contains(t, last.delta.RemovedEdges, "e1")

	s.SetFilter("")
	last = renderer.last()
	require.Len(t, last.delta.AddedNodes, 1)
	assert.Equal(t, "b", last.delta.AddedNodes[0].ID)
}

func TestApplyFetchedGraphConvergesWithStream(t *testing.T) {
	s, _ := newTestStore(t, nil)
	ctx := context.Background()

	s.HandleEvent(ctx, "an-1", node("a"))
	s.HandleEvent(ctx, "an-1", edge("e1", "a", "b", graph.EdgeContains))

	s.ApplyFetchedGraph("an-1", graph.Snapshot{
		Nodes: []graph.Node{
			{ID: "a", Type: graph.NodeFile, Label: "a"},
			{ID: "b", Type: graph.NodeFile, Label: "b"},
		},
		Edges: []graph.Edge{{ID: "e1", Source: "a", Target: "b", Type: graph.EdgeContains}},
	})

	state := s.Snapshot()
	assert.Equal(t, 2, state.NodeCount)
	assert.Equal(t, 1, state.EdgeCount)
	assert.Equal(t, 0, state.PendingEdges)

	s.ApplyFetchedGraph("an-other", graph.Snapshot{Nodes: []graph.Node{{ID: "z"}}})
	assert.Equal(t, 2, s.Snapshot().NodeCount)
}

func TestHighlightChainUsesChainStepNodes(t *testing.T) {
	// The fetched chain names its step nodes; the streamed edges between
	// them carry no chain id, so highlighting must go through the chain.
	backend := &fakeBackend{
		chains: []analysis.Chain{{
			ID:       "c1",
			Severity: analysis.SeverityCritical,
			Steps: []analysis.ChainStep{
				{Node: "a", Type: "entry"},
				{Node: "b", Type: "sink"},
			},
		}},
	}
	s, renderer := newTestStore(t, backend)
	ctx := context.Background()

	s.HandleEvent(ctx, "an-1", node("a"))
	s.HandleEvent(ctx, "an-1", node("b"))
	s.HandleEvent(ctx, "an-1", node("c"))
	s.HandleEvent(ctx, "an-1", edge("ab", "a", "b", graph.EdgeContains))
	s.HandleEvent(ctx, "an-1", edge("bc", "b", "c", graph.EdgeContains))
	s.HandleEvent(ctx, "an-1", &analysis.CompleteEvent{})
	require.Len(t, s.Snapshot().Chains, 1)

	s.HighlightChain("c1")
	last := renderer.last()
	assert.Equal(t, graph.ClassHighlighted, last.classes["a"])
	assert.Equal(t, graph.ClassHighlighted, last.classes["b"])
	assert.Equal(t, graph.ClassHighlighted, last.classes["ab"], "edge between step nodes joins the chain")
	assert.Equal(t, graph.ClassDimmed, last.classes["c"])
	assert.Equal(t, graph.ClassDimmed, last.classes["bc"])
}

func TestResetRetagsLoggerWithoutStacking(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	s := New("an-1", Options{Logger: zap.New(core).Sugar()})

	s.Reset("an-2")
	s.Reset("an-3")
	s.HandleEvent(context.Background(), "an-3", status(analysis.StatusCloning))

	entries := logs.FilterMessage("Analysis status advanced").All()
	require.NotEmpty(t, entries)

	ids := 0
	for _, field := range entries[len(entries)-1].Context {
		if field.Key == "analysis_id" {
			ids++
			assert.Equal(t, "an-3", field.String)
		}
	}
	assert.Equal(t, 1, ids, "job switches must not stack analysis_id fields")
}

func TestAgentStateTracking(t *testing.T) {
	s, _ := newTestStore(t, nil)
	ctx := context.Background()

	s.HandleEvent(ctx, "an-1", &analysis.StatusEvent{
		Agent: "security", Status: analysis.StatusAnalyzing, Progress: 0.5, Message: "scanning",
	})
	s.HandleEvent(ctx, "an-1", &analysis.AgentCompleteEvent{Agent: "security", FindingsCount: 3})

	state := s.Snapshot()
	require.Contains(t, state.Agents, "security")
	assert.Equal(t, analysis.StatusCompleted, state.Agents["security"].Status)
	assert.Equal(t, 1.0, state.Agents["security"].Progress)
}
