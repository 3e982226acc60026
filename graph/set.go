package graph

import (
	"reflect"
	"sort"

	"go.uber.org/zap"
)

// DefaultPendingFlushLimit bounds how many flush cycles an edge with
// missing endpoints may wait before it is dropped.
const DefaultPendingFlushLimit = 64

// ElementSet accumulates the node and edge sets for one analysis run.
// Both sets grow monotonically: elements are never removed until the set
// is cleared for a new run. Edges whose endpoints have not arrived yet are
// held in a pending queue and re-attempted on every node upsert, so edge
// admission converges to the same visible set regardless of delivery order.
//
// ElementSet is not safe for concurrent use; the store serializes access.
type ElementSet struct {
	nodes map[string]Node
	edges map[string]Edge

	pending    []pendingEdge
	flushLimit int

	droppedPending int

	logger *zap.SugaredLogger
}

type pendingEdge struct {
	edge   Edge
	cycles int
}

// NewElementSet creates an empty element set. A flushLimit <= 0 falls back
// to DefaultPendingFlushLimit.
func NewElementSet(flushLimit int, logger *zap.SugaredLogger) *ElementSet {
	if flushLimit <= 0 {
		flushLimit = DefaultPendingFlushLimit
	}
	return &ElementSet{
		nodes:      make(map[string]Node),
		edges:      make(map[string]Edge),
		flushLimit: flushLimit,
		logger:     logger,
	}
}

// UpsertNode adds a node or refines an existing one. Identity and type are
// immutable once set; only severity, finding count, and metadata may be
// updated by later events carrying the same id. Applying the same node
// twice is a no-op after the first application.
//
// Returns true if the visible state changed (including edges admitted from
// the pending queue as a consequence of this node arriving).
func (s *ElementSet) UpsertNode(n Node) bool {
	existing, ok := s.nodes[n.ID]
	if !ok {
		s.nodes[n.ID] = n
		s.flushPending()
		return true
	}

	changed := false
	if n.Severity != "" && n.Severity != existing.Severity {
		existing.Severity = n.Severity
		changed = true
	}
	if n.FindingCount != 0 && n.FindingCount != existing.FindingCount {
		existing.FindingCount = n.FindingCount
		changed = true
	}
	for k, v := range n.Metadata {
		if existing.Metadata == nil {
			existing.Metadata = make(map[string]interface{}, len(n.Metadata))
		}
		// Metadata values decoded from JSON may be maps or slices, so a
		// plain comparison would panic on re-delivery
		if !reflect.DeepEqual(existing.Metadata[k], v) {
			existing.Metadata[k] = v
			changed = true
		}
	}
	if changed {
		s.nodes[n.ID] = existing
	}
	return changed
}

// AddEdge admits an edge if both endpoints are present, otherwise queues it
// for retry. Re-delivering an edge that is already visible or already
// pending is a no-op. Returns true if the visible edge set changed.
func (s *ElementSet) AddEdge(e Edge) bool {
	if _, ok := s.edges[e.ID]; ok {
		return false
	}

	if s.hasEndpoints(e) {
		s.edges[e.ID] = e
		return true
	}

	for _, p := range s.pending {
		if p.edge.ID == e.ID {
			return false
		}
	}
	s.pending = append(s.pending, pendingEdge{edge: e})
	if s.logger != nil {
		s.logger.Debugw("Edge queued pending endpoints",
			"edge_id", e.ID,
			"source", e.Source,
			"target", e.Target,
		)
	}
	return false
}

// flushPending re-attempts queued edges and drops those that have waited
// past the flush limit. Returns true if any edge became visible.
func (s *ElementSet) flushPending() bool {
	if len(s.pending) == 0 {
		return false
	}

	admitted := false
	remaining := s.pending[:0]
	for _, p := range s.pending {
		if s.hasEndpoints(p.edge) {
			if _, ok := s.edges[p.edge.ID]; !ok {
				s.edges[p.edge.ID] = p.edge
				admitted = true
			}
			continue
		}

		p.cycles++
		if p.cycles >= s.flushLimit {
			s.droppedPending++
			if s.logger != nil {
				s.logger.Warnw("Dropping edge after pending retry limit",
					"edge_id", p.edge.ID,
					"source", p.edge.Source,
					"target", p.edge.Target,
					"cycles", p.cycles,
				)
			}
			continue
		}
		remaining = append(remaining, p)
	}
	s.pending = remaining
	return admitted
}

// DropPending discards every still-pending edge, counting each drop. The
// store calls this once the analysis reaches a terminal status: an edge
// whose endpoints never arrived will never become admissible.
func (s *ElementSet) DropPending() int {
	dropped := len(s.pending)
	if dropped == 0 {
		return 0
	}
	s.droppedPending += dropped
	if s.logger != nil {
		s.logger.Warnw("Dropping pending edges at terminal status",
			"count", dropped,
		)
	}
	s.pending = nil
	return dropped
}

// Clear resets the set for a new analysis run
func (s *ElementSet) Clear() {
	s.nodes = make(map[string]Node)
	s.edges = make(map[string]Edge)
	s.pending = nil
	s.droppedPending = 0
}

func (s *ElementSet) hasEndpoints(e Edge) bool {
	_, src := s.nodes[e.Source]
	_, dst := s.nodes[e.Target]
	return src && dst
}

// Contains reports whether a node id is present in the set
func (s *ElementSet) Contains(nodeID string) bool {
	_, ok := s.nodes[nodeID]
	return ok
}

// Node returns a node by id
func (s *ElementSet) Node(id string) (Node, bool) {
	n, ok := s.nodes[id]
	return n, ok
}

// Nodes returns all nodes ordered by id
func (s *ElementSet) Nodes() []Node {
	nodes := make([]Node, 0, len(s.nodes))
	for _, n := range s.nodes {
		nodes = append(nodes, n)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	return nodes
}

// Edges returns all visible edges ordered by id
func (s *ElementSet) Edges() []Edge {
	edges := make([]Edge, 0, len(s.edges))
	for _, e := range s.edges {
		edges = append(edges, e)
	}
	sort.Slice(edges, func(i, j int) bool { return edges[i].ID < edges[j].ID })
	return edges
}

// VisibleFor returns the nodes and edges that belong to the given view
// mode. Every view shares the node set; only edges are filtered.
func (s *ElementSet) VisibleFor(mode ViewMode) ([]Node, []Edge) {
	edges := make([]Edge, 0, len(s.edges))
	for _, e := range s.edges {
		if e.Type.visibleIn(mode) {
			edges = append(edges, e)
		}
	}
	sort.Slice(edges, func(i, j int) bool { return edges[i].ID < edges[j].ID })
	return s.Nodes(), edges
}

// NodeCount returns the number of nodes in the set
func (s *ElementSet) NodeCount() int { return len(s.nodes) }

// EdgeCount returns the number of visible edges in the set
func (s *ElementSet) EdgeCount() int { return len(s.edges) }

// PendingCount returns the number of edges waiting for endpoints
func (s *ElementSet) PendingCount() int { return len(s.pending) }

// DroppedPendingCount returns how many pending edges have been dropped
func (s *ElementSet) DroppedPendingCount() int { return s.droppedPending }
