package graph

// Class is the visual classification of a single element under the current
// view mode and selection. Classes are mutually exclusive per element at
// any instant.
type Class string

const (
	ClassNormal      Class = "normal"
	ClassDimmed      Class = "dimmed"
	ClassHighlighted Class = "highlighted"
	ClassChainMember Class = "chain-member"
	ClassSelected    Class = "selected"
	ClassBlastHop1   Class = "blast-hop-1"
	ClassBlastHop2   Class = "blast-hop-2"
	ClassBlastHop3   Class = "blast-hop-3"
)

// DefaultBlastDepth is how many hops "show impact" traverses
const DefaultBlastDepth = 3

var blastClasses = []Class{ClassBlastHop1, ClassBlastHop2, ClassBlastHop3}

// BlastClass returns the class for a node discovered at the given hop
// distance (1-based). Hops beyond the deepest named class reuse it.
func BlastClass(hop int) Class {
	if hop < 1 {
		return ClassSelected
	}
	if hop > len(blastClasses) {
		hop = len(blastClasses)
	}
	return blastClasses[hop-1]
}

// Selection is the user-driven highlight input layered on top of the view
// mode. A zero Selection means no selection.
type Selection struct {
	NodeID     string   // selected node, "" for none
	ChainID    string   // highlighted chain, "" for none
	ChainNodes []string // node ids of the highlighted chain's steps, for edges that carry no chain id
	ShowImpact bool     // blast-radius traversal from NodeID
}

// Classification maps element id (node or edge) to its class
type Classification map[string]Class

// Classify computes the classification of every element for the given view
// mode and selection. It is a pure function: clearing a highlight is just
// re-classifying with an empty selection, which restores the current view
// mode's baseline rather than a hardcoded default.
//
// A selection referencing a node that is not in the node set (a stale
// reference from a component that has not re-rendered) is ignored.
func Classify(mode ViewMode, nodes []Node, edges []Edge, sel Selection, blastDepth int) Classification {
	if blastDepth <= 0 {
		blastDepth = DefaultBlastDepth
	}

	classes := make(Classification, len(nodes)+len(edges))
	nodeSet := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		nodeSet[n.ID] = true
	}

	// Drop stale node selections before they influence anything
	if sel.NodeID != "" && !nodeSet[sel.NodeID] {
		sel.NodeID = ""
		sel.ShowImpact = false
	}

	baseline(mode, nodes, edges, classes)

	if sel.ChainID != "" {
		chainOverlay(sel, nodes, edges, classes)
	}

	if sel.NodeID != "" {
		selectionOverlay(sel, nodes, edges, classes, blastDepth)
	}

	return classes
}

// baseline writes the view mode's classification with no selection active
func baseline(mode ViewMode, nodes []Node, edges []Edge, classes Classification) {
	switch mode {
	case ViewDependencies:
		// Same node set as structure; dependency-class edges are
		// emphasized while containment edges recede.
		for _, n := range nodes {
			classes[n.ID] = ClassNormal
		}
		for _, e := range edges {
			if e.Type.Structural() {
				classes[e.ID] = ClassDimmed
			} else {
				classes[e.ID] = ClassHighlighted
			}
		}

	case ViewVulnerabilities:
		// Everything off a vulnerability chain dims; chain members stand out.
		chainNodes := make(map[string]bool)
		for _, e := range edges {
			if e.IsVulnerabilityChain {
				chainNodes[e.Source] = true
				chainNodes[e.Target] = true
			}
		}
		for _, n := range nodes {
			if chainNodes[n.ID] {
				classes[n.ID] = ClassChainMember
			} else {
				classes[n.ID] = ClassDimmed
			}
		}
		for _, e := range edges {
			if e.IsVulnerabilityChain {
				classes[e.ID] = ClassHighlighted
			} else {
				classes[e.ID] = ClassDimmed
			}
		}

	default: // ViewStructure
		for _, n := range nodes {
			classes[n.ID] = ClassNormal
		}
		for _, e := range edges {
			classes[e.ID] = ClassNormal
		}
	}
}

// chainOverlay dims every element not connected to the chosen chain and
// marks chain members and edges highlighted. Membership comes from edges
// tagged with the chain id plus the chain's own step nodes; an edge between
// two member nodes counts even when it carries no chain id itself.
func chainOverlay(sel Selection, nodes []Node, edges []Edge, classes Classification) {
	member := make(map[string]bool)
	for _, id := range sel.ChainNodes {
		member[id] = true
	}
	for _, e := range edges {
		if e.ChainID == sel.ChainID {
			member[e.ID] = true
			member[e.Source] = true
			member[e.Target] = true
		}
	}
	for _, e := range edges {
		if member[e.Source] && member[e.Target] {
			member[e.ID] = true
		}
	}

	for _, n := range nodes {
		if member[n.ID] {
			classes[n.ID] = ClassHighlighted
		} else {
			classes[n.ID] = ClassDimmed
		}
	}
	for _, e := range edges {
		if member[e.ID] {
			classes[e.ID] = ClassHighlighted
		} else {
			classes[e.ID] = ClassDimmed
		}
	}
}

// selectionOverlay marks the selected node and, when impact is requested,
// labels reachable nodes by shortest discovered hop distance.
func selectionOverlay(sel Selection, nodes []Node, edges []Edge, classes Classification, blastDepth int) {
	classes[sel.NodeID] = ClassSelected

	if !sel.ShowImpact {
		return
	}

	hops := blastHops(sel.NodeID, edges, blastDepth)
	for id, hop := range hops {
		classes[id] = BlastClass(hop)
	}

	// Edges fully inside the blast set light up with the traversal
	inBlast := func(id string) bool {
		if id == sel.NodeID {
			return true
		}
		_, ok := hops[id]
		return ok
	}
	for _, e := range edges {
		if inBlast(e.Source) && inBlast(e.Target) {
			classes[e.ID] = ClassHighlighted
		}
	}
}

// blastHops runs a breadth-first traversal from the origin along edges in
// both directions up to maxDepth hops. BFS discovers every node at its
// minimum distance first, so a node reachable by multiple paths keeps the
// smallest hop label and is never re-labeled to a higher one.
func blastHops(origin string, edges []Edge, maxDepth int) map[string]int {
	adjacent := make(map[string][]string, len(edges))
	for _, e := range edges {
		adjacent[e.Source] = append(adjacent[e.Source], e.Target)
		adjacent[e.Target] = append(adjacent[e.Target], e.Source)
	}

	hops := make(map[string]int)
	frontier := []string{origin}
	visited := map[string]bool{origin: true}

	for depth := 1; depth <= maxDepth && len(frontier) > 0; depth++ {
		var next []string
		for _, id := range frontier {
			for _, neighbor := range adjacent[id] {
				if visited[neighbor] {
					continue
				}
				visited[neighbor] = true
				hops[neighbor] = depth
				next = append(next, neighbor)
			}
		}
		frontier = next
	}

	return hops
}
