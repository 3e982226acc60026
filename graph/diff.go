package graph

import "sort"

// Delta is the exact add/remove difference between two versions of the
// visible element sets. The rendering adapter consumes deltas only; it is
// never handed a full redraw when an incremental diff suffices, which
// bounds rendering cost to the size of the change.
type Delta struct {
	AddedNodes   []Node
	RemovedNodes []string // node ids
	AddedEdges   []Edge
	RemovedEdges []string // edge ids
}

// Empty reports whether the delta carries no change
func (d Delta) Empty() bool {
	return len(d.AddedNodes) == 0 && len(d.RemovedNodes) == 0 &&
		len(d.AddedEdges) == 0 && len(d.RemovedEdges) == 0
}

// ComputeDelta returns added = next - prev and removed = prev - next by
// identifier set difference. Elements present in both are untouched even
// if their fields differ; field refinement is the classifier's concern,
// not the renderer's element lifecycle.
func ComputeDelta(prevNodes, nextNodes []Node, prevEdges, nextEdges []Edge) Delta {
	var d Delta

	prevNodeIDs := make(map[string]bool, len(prevNodes))
	for _, n := range prevNodes {
		prevNodeIDs[n.ID] = true
	}
	nextNodeIDs := make(map[string]bool, len(nextNodes))
	for _, n := range nextNodes {
		nextNodeIDs[n.ID] = true
		if !prevNodeIDs[n.ID] {
			d.AddedNodes = append(d.AddedNodes, n)
		}
	}
	for _, n := range prevNodes {
		if !nextNodeIDs[n.ID] {
			d.RemovedNodes = append(d.RemovedNodes, n.ID)
		}
	}

	prevEdgeIDs := make(map[string]bool, len(prevEdges))
	for _, e := range prevEdges {
		prevEdgeIDs[e.ID] = true
	}
	nextEdgeIDs := make(map[string]bool, len(nextEdges))
	for _, e := range nextEdges {
		nextEdgeIDs[e.ID] = true
		if !prevEdgeIDs[e.ID] {
			d.AddedEdges = append(d.AddedEdges, e)
		}
	}
	for _, e := range prevEdges {
		if !nextEdgeIDs[e.ID] {
			d.RemovedEdges = append(d.RemovedEdges, e.ID)
		}
	}

	sort.Slice(d.AddedNodes, func(i, j int) bool { return d.AddedNodes[i].ID < d.AddedNodes[j].ID })
	sort.Strings(d.RemovedNodes)
	sort.Slice(d.AddedEdges, func(i, j int) bool { return d.AddedEdges[i].ID < d.AddedEdges[j].ID })
	sort.Strings(d.RemovedEdges)

	return d
}
