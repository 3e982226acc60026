package store

import (
	"strings"

	"github.com/vibecheck/vibegraph/graph"
)

// SetViewMode switches the active view. The visible edge set, layout hint,
// and baseline classification all follow from the mode, so one refresh
// covers the whole transition. Selection and chain highlight survive the
// switch and are re-interpreted against the new baseline.
func (s *Store) SetViewMode(mode graph.ViewMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if mode == s.view.Mode {
		return
	}
	s.view.Mode = mode
	s.refreshLocked()
}

// SelectNode marks a node selected. Selecting an id that is not in the
// node set is ignored: a stale reference from a surface that has not
// re-rendered yet must not disturb the current classification. An empty
// id clears the selection.
func (s *Store) SelectNode(nodeID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if nodeID != "" && !s.elems.Contains(nodeID) {
		s.logger.Debugw("Ignoring selection of unknown node", "node_id", nodeID)
		return
	}

	s.view.SelectedNode = nodeID
	if nodeID == "" {
		s.view.ShowImpact = false
	}
	s.refreshLocked()
}

// ShowImpact toggles the blast-radius traversal from the selected node.
// Without a selection it is a no-op.
func (s *Store) ShowImpact(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.view.SelectedNode == "" {
		return
	}
	if s.view.ShowImpact == on {
		return
	}
	s.view.ShowImpact = on
	s.refreshLocked()
}

// HighlightChain emphasizes one vulnerability chain. An empty id clears the
// chain highlight.
func (s *Store) HighlightChain(chainID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.view.HighlightChain == chainID {
		return
	}
	s.view.HighlightChain = chainID
	s.refreshLocked()
}

// ClearHighlight drops the selection, impact traversal, and chain
// highlight. The classification falls back to the current view mode's
// baseline, not to a fixed default.
func (s *Store) ClearHighlight() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.view.SelectedNode == "" && s.view.HighlightChain == "" && !s.view.ShowImpact {
		return
	}
	s.view.SelectedNode = ""
	s.view.HighlightChain = ""
	s.view.ShowImpact = false
	s.refreshLocked()
}

// SetFilter restricts visible nodes to those whose label contains the
// given substring, case-insensitively. Edges survive only when both
// endpoints do. An empty filter shows everything.
func (s *Store) SetFilter(filter string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.view.Filter == filter {
		return
	}
	s.view.Filter = filter
	s.refreshLocked()
}

// ApplyFetchedGraph merges a full graph snapshot obtained over REST into
// the element sets. Admission is the same idempotent upsert path streamed
// events use, so replaying a snapshot over streamed elements converges to
// the same visible state.
func (s *Store) ApplyFetchedGraph(analysisID string, snap graph.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if analysisID != s.analysisID {
		s.droppedStale++
		s.logger.Debugw("Discarding graph snapshot for stale analysis", "snapshot_id", analysisID)
		return
	}

	changed := false
	for _, n := range snap.Nodes {
		if s.elems.UpsertNode(n) {
			changed = true
		}
	}
	for _, e := range snap.Edges {
		if s.elems.AddEdge(e) {
			changed = true
		}
	}
	if changed {
		s.refreshLocked()
	}
}

// refreshLocked recomputes the visible element sets, hands the renderer
// the exact delta against what it last drew plus a fresh classification,
// and notifies subscribers.
func (s *Store) refreshLocked() {
	nodes, edges := s.elems.VisibleFor(s.view.Mode)
	nodes, edges = applyFilter(nodes, edges, s.view.Filter)

	delta := graph.ComputeDelta(s.renderedNodes, nodes, s.renderedEdges, edges)
	classes := graph.Classify(s.view.Mode, nodes, edges, graph.Selection{
		NodeID:     s.view.SelectedNode,
		ChainID:    s.view.HighlightChain,
		ChainNodes: s.chainNodesLocked(s.view.HighlightChain),
		ShowImpact: s.view.ShowImpact,
	}, s.blastDepth)

	s.renderer.Apply(delta, classes, s.view.Mode)
	s.renderedNodes = nodes
	s.renderedEdges = edges

	s.notifyLocked()
}

// chainNodesLocked resolves a chain id to the node ids its steps touch.
// Chains delivered without per-edge chain tags still highlight this way.
func (s *Store) chainNodesLocked(chainID string) []string {
	if chainID == "" {
		return nil
	}
	idx, ok := s.chainIdx[chainID]
	if !ok {
		return nil
	}
	return s.chains[idx].NodeIDs()
}

func applyFilter(nodes []graph.Node, edges []graph.Edge, filter string) ([]graph.Node, []graph.Edge) {
	if filter == "" {
		return nodes, edges
	}

	needle := strings.ToLower(filter)
	kept := make(map[string]bool, len(nodes))
	filteredNodes := nodes[:0:0]
	for _, n := range nodes {
		if strings.Contains(strings.ToLower(n.Label), needle) {
			kept[n.ID] = true
			filteredNodes = append(filteredNodes, n)
		}
	}

	filteredEdges := edges[:0:0]
	for _, e := range edges {
		if kept[e.Source] && kept[e.Target] {
			filteredEdges = append(filteredEdges, e)
		}
	}
	return filteredNodes, filteredEdges
}
