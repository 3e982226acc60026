package graph

// NodeType categorizes graph nodes
type NodeType string

const (
	NodeFile       NodeType = "file"
	NodeDirectory  NodeType = "directory"
	NodeFunction   NodeType = "function"
	NodeClass      NodeType = "class"
	NodeDependency NodeType = "dependency"
	NodeEndpoint   NodeType = "endpoint"
)

// IsValid returns true for a known node type
func (t NodeType) IsValid() bool {
	switch t {
	case NodeFile, NodeDirectory, NodeFunction, NodeClass, NodeDependency, NodeEndpoint:
		return true
	}
	return false
}

// EdgeType categorizes graph edges
type EdgeType string

const (
	EdgeContains  EdgeType = "contains"
	EdgeImports   EdgeType = "imports"
	EdgeDependsOn EdgeType = "depends_on"
	EdgeCalls     EdgeType = "calls"
	EdgeHandles   EdgeType = "handles"
)

// IsValid returns true for a known edge type
func (t EdgeType) IsValid() bool {
	switch t {
	case EdgeContains, EdgeImports, EdgeDependsOn, EdgeCalls, EdgeHandles:
		return true
	}
	return false
}

// Structural reports whether the edge describes containment rather than a
// code-level relationship. The structure view keeps only structural edges;
// the dependencies view keeps only the rest.
func (t EdgeType) Structural() bool {
	return t == EdgeContains
}

// ViewMode selects which slice of the graph is visible and how elements
// are classified. Wire names follow the get-graph endpoint's view param.
type ViewMode string

const (
	ViewStructure       ViewMode = "structure"
	ViewDependencies    ViewMode = "dependencies"
	ViewVulnerabilities ViewMode = "vulnerabilities"
)

// IsValid returns true for a known view mode
func (m ViewMode) IsValid() bool {
	switch m {
	case ViewStructure, ViewDependencies, ViewVulnerabilities:
		return true
	}
	return false
}

// LayoutHint returns the layout the rendering surface should use for the
// view mode, matching the hints the backend attaches to graph snapshots.
func (m ViewMode) LayoutHint() Layout {
	if m == ViewStructure {
		return Layout{Algorithm: "dagre", Direction: "TB"}
	}
	return Layout{Algorithm: "cose-bilkent"}
}

// visibleIn reports whether an edge belongs to the given view mode
func (t EdgeType) visibleIn(mode ViewMode) bool {
	switch mode {
	case ViewStructure:
		return t.Structural()
	case ViewDependencies:
		return !t.Structural()
	default:
		return true
	}
}
