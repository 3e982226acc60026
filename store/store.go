// Package store is the single mutable source of truth for one analysis
// run: lifecycle status, the accumulated finding/fix/chain lists, the
// graph element sets, and the ephemeral view state. Every inbound event
// funnels through one serialized transition path, so out-of-order and
// duplicated deliveries reduce to idempotent merges.
package store

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/vibecheck/vibegraph/analysis"
	"github.com/vibecheck/vibegraph/graph"
	"github.com/vibecheck/vibegraph/render"
)

// Backend fetches full-state collections from the REST collaborators.
// The store calls it for the follow-up fetches a complete event triggers
// and never for anything incremental.
type Backend interface {
	Findings(ctx context.Context, analysisID string) ([]analysis.Finding, error)
	Fixes(ctx context.Context, analysisID string) ([]analysis.Fix, error)
	Chains(ctx context.Context, analysisID string) ([]analysis.Chain, error)
}

// ViewState is the ephemeral per-job UI state. It is the only part of the
// model reset when the analysis id changes.
type ViewState struct {
	Mode           graph.ViewMode
	SelectedNode   string
	HighlightChain string
	ShowImpact     bool
	Filter         string
}

// Options configures a Store
type Options struct {
	Backend           Backend
	Renderer          render.Renderer
	Logger            *zap.SugaredLogger
	BlastDepth        int
	PendingFlushLimit int
}

// State is a read-only copy of the store's current model, handed to
// subscribers and status panels.
type State struct {
	AnalysisID  string
	Status      analysis.Status
	Agents      map[string]analysis.AgentState
	Findings    []analysis.Finding
	Fixes       []analysis.Fix
	Chains      []analysis.Chain
	Insights    []string
	HealthScore *analysis.HealthScore
	Summary     *analysis.FindingsSummary
	Duration    int
	LastWarning string
	LastError   string
	View        ViewState

	NodeCount    int
	EdgeCount    int
	PendingEdges int
	DroppedEdges int
	DroppedStale int
}

// Store holds the model and applies events to it. All entry points
// serialize on one mutex: handlers run to completion before the next is
// dispatched, so no transition ever observes a half-applied peer.
type Store struct {
	mu sync.Mutex

	backend    Backend
	renderer   render.Renderer
	baseLogger *zap.SugaredLogger
	logger     *zap.SugaredLogger
	blastDepth int

	analysisID string
	status     analysis.Status
	frozen     bool // non-recoverable error: reject further graph/finding events
	reconciled bool // complete follow-up fetches already ran

	agents      map[string]analysis.AgentState
	findings    []analysis.Finding
	findingIdx  map[string]int
	fixes       []analysis.Fix
	chains      []analysis.Chain
	chainIdx    map[string]int
	insights    []string
	health      *analysis.HealthScore
	summary     *analysis.FindingsSummary
	duration    int
	lastWarning string
	lastError   string

	view  ViewState
	elems *graph.ElementSet

	renderedNodes []graph.Node
	renderedEdges []graph.Edge

	droppedStale int

	subscribers []func(State)
}

// New creates a store bound to one analysis id
func New(analysisID string, opts Options) *Store {
	renderer := opts.Renderer
	if renderer == nil {
		renderer = render.Noop{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	blastDepth := opts.BlastDepth
	if blastDepth <= 0 {
		blastDepth = graph.DefaultBlastDepth
	}

	return &Store{
		backend:    opts.Backend,
		renderer:   renderer,
		baseLogger: logger,
		logger:     logger.With("analysis_id", analysisID),
		blastDepth: blastDepth,
		analysisID: analysisID,
		status:     analysis.StatusQueued,
		agents:     make(map[string]analysis.AgentState),
		findingIdx: make(map[string]int),
		chainIdx:   make(map[string]int),
		view:       ViewState{Mode: graph.ViewStructure},
		elems:      graph.NewElementSet(opts.PendingFlushLimit, logger),
	}
}

// Subscribe registers a callback invoked with a state copy after every
// change. Callbacks run on the mutating goroutine; keep them cheap.
func (s *Store) Subscribe(fn func(State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

// Reset switches the store to a new analysis id, clearing every list, the
// graph sets, and the view state. Responses still in flight for the prior
// id are discarded by the tag checks on HandleEvent/HandleSnapshot.
func (s *Store) Reset(analysisID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.analysisID = analysisID
	s.logger = s.baseLogger.With("analysis_id", analysisID)
	s.status = analysis.StatusQueued
	s.frozen = false
	s.reconciled = false
	s.agents = make(map[string]analysis.AgentState)
	s.findings = nil
	s.findingIdx = make(map[string]int)
	s.fixes = nil
	s.chains = nil
	s.chainIdx = make(map[string]int)
	s.insights = nil
	s.health = nil
	s.summary = nil
	s.duration = 0
	s.lastWarning = ""
	s.lastError = ""
	s.view = ViewState{Mode: graph.ViewStructure}
	s.elems.Clear()
	s.renderedNodes = nil
	s.renderedEdges = nil

	s.refreshLocked()
}

// AnalysisID returns the currently subscribed analysis id
func (s *Store) AnalysisID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.analysisID
}

// Snapshot returns a read-only copy of the current state
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() State {
	agents := make(map[string]analysis.AgentState, len(s.agents))
	for k, v := range s.agents {
		agents[k] = v
	}
	return State{
		AnalysisID:   s.analysisID,
		Status:       s.status,
		Agents:       agents,
		Findings:     append([]analysis.Finding(nil), s.findings...),
		Fixes:        append([]analysis.Fix(nil), s.fixes...),
		Chains:       append([]analysis.Chain(nil), s.chains...),
		Insights:     append([]string(nil), s.insights...),
		HealthScore:  s.health,
		Summary:      s.summary,
		Duration:     s.duration,
		LastWarning:  s.lastWarning,
		LastError:    s.lastError,
		View:         s.view,
		NodeCount:    s.elems.NodeCount(),
		EdgeCount:    s.elems.EdgeCount(),
		PendingEdges: s.elems.PendingCount(),
		DroppedEdges: s.elems.DroppedPendingCount(),
		DroppedStale: s.droppedStale,
	}
}

// notifyLocked hands the fresh state to every subscriber
func (s *Store) notifyLocked() {
	if len(s.subscribers) == 0 {
		return
	}
	state := s.snapshotLocked()
	for _, fn := range s.subscribers {
		fn(state)
	}
}
