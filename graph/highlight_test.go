package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chainGraph builds five nodes where a->b->c form a vulnerability chain
// and d, e hang off to the side.
func chainGraph() ([]Node, []Edge) {
	nodes := []Node{n("a"), n("b"), n("c"), n("d"), n("e")}
	edges := []Edge{
		{ID: "ab", Source: "a", Target: "b", Type: EdgeCalls, IsVulnerabilityChain: true, ChainID: "c1"},
		{ID: "bc", Source: "b", Target: "c", Type: EdgeCalls, IsVulnerabilityChain: true, ChainID: "c1"},
		{ID: "cd", Source: "c", Target: "d", Type: EdgeCalls},
		{ID: "de", Source: "d", Target: "e", Type: EdgeImports},
	}
	return nodes, edges
}

func TestStructureBaselineIsAllNormal(t *testing.T) {
	nodes, edges := chainGraph()
	classes := Classify(ViewStructure, nodes, edges, Selection{}, 0)

	for _, node := range nodes {
		assert.Equal(t, ClassNormal, classes[node.ID])
	}
	for _, edge := range edges {
		assert.Equal(t, ClassNormal, classes[edge.ID])
	}
}

func TestDependenciesBaselineDimsStructuralEdges(t *testing.T) {
	nodes := []Node{n("a"), n("b")}
	edges := []Edge{
		e("contain", "a", "b", EdgeContains),
		e("imp", "a", "b", EdgeImports),
	}
	classes := Classify(ViewDependencies, nodes, edges, Selection{}, 0)

	assert.Equal(t, ClassNormal, classes["a"])
	assert.Equal(t, ClassDimmed, classes["contain"])
	assert.Equal(t, ClassHighlighted, classes["imp"])
}

func TestVulnerabilitiesBaselineMarksChainMembers(t *testing.T) {
	nodes, edges := chainGraph()
	classes := Classify(ViewVulnerabilities, nodes, edges, Selection{}, 0)

	for _, id := range []string{"a", "b", "c"} {
		assert.Equal(t, ClassChainMember, classes[id], "node %s", id)
	}
	for _, id := range []string{"d", "e"} {
		assert.Equal(t, ClassDimmed, classes[id], "node %s", id)
	}
	assert.Equal(t, ClassHighlighted, classes["ab"])
	assert.Equal(t, ClassHighlighted, classes["bc"])
	assert.Equal(t, ClassDimmed, classes["cd"])
	assert.Equal(t, ClassDimmed, classes["de"])
}

func TestChainOverlayDimsEverythingElse(t *testing.T) {
	nodes, edges := chainGraph()
	classes := Classify(ViewStructure, nodes, edges, Selection{ChainID: "c1"}, 0)

	assert.Equal(t, ClassHighlighted, classes["a"])
	assert.Equal(t, ClassHighlighted, classes["b"])
	assert.Equal(t, ClassHighlighted, classes["c"])
	assert.Equal(t, ClassHighlighted, classes["ab"])
	assert.Equal(t, ClassDimmed, classes["d"])
	assert.Equal(t, ClassDimmed, classes["cd"])
}

func TestChainOverlayUsesChainStepNodes(t *testing.T) {
	// Edges carry no chain id; membership comes from the chain's steps
	nodes := []Node{n("a"), n("b"), n("c"), n("d")}
	edges := []Edge{
		e("ab", "a", "b", EdgeCalls),
		e("bc", "b", "c", EdgeCalls),
		e("cd", "c", "d", EdgeCalls),
	}

	sel := Selection{ChainID: "c1", ChainNodes: []string{"a", "b", "c"}}
	classes := Classify(ViewStructure, nodes, edges, sel, 0)

	assert.Equal(t, ClassHighlighted, classes["a"])
	assert.Equal(t, ClassHighlighted, classes["c"])
	assert.Equal(t, ClassDimmed, classes["d"])
	assert.Equal(t, ClassHighlighted, classes["ab"], "edge between member nodes joins the chain")
	assert.Equal(t, ClassHighlighted, classes["bc"])
	assert.Equal(t, ClassDimmed, classes["cd"])
}

func TestSelectionWithoutImpact(t *testing.T) {
	nodes, edges := chainGraph()
	classes := Classify(ViewStructure, nodes, edges, Selection{NodeID: "b"}, 0)

	assert.Equal(t, ClassSelected, classes["b"])
	assert.Equal(t, ClassNormal, classes["a"], "neighbors untouched without impact")
}

func TestBlastRadiusLabelsMinimumHops(t *testing.T) {
	// Diamond: origin reaches "far" via two paths of length 2, plus a
	// long chain to test depth limiting.
	nodes := []Node{n("origin"), n("l"), n("r"), n("far"), n("x3"), n("x4")}
	edges := []Edge{
		e("ol", "origin", "l", EdgeCalls),
		e("or", "origin", "r", EdgeCalls),
		e("lf", "l", "far", EdgeCalls),
		e("rf", "r", "far", EdgeCalls),
		e("f3", "far", "x3", EdgeCalls),
		e("34", "x3", "x4", EdgeCalls),
	}

	classes := Classify(ViewStructure, nodes, edges, Selection{NodeID: "origin", ShowImpact: true}, 3)

	assert.Equal(t, ClassSelected, classes["origin"])
	assert.Equal(t, ClassBlastHop1, classes["l"])
	assert.Equal(t, ClassBlastHop1, classes["r"])
	assert.Equal(t, ClassBlastHop2, classes["far"], "multiple paths keep the minimum hop label")
	assert.Equal(t, ClassBlastHop3, classes["x3"])
	assert.Equal(t, ClassNormal, classes["x4"], "beyond blast depth")

	// Edges wholly inside the blast set are lit
	assert.Equal(t, ClassHighlighted, classes["ol"])
	assert.Equal(t, ClassHighlighted, classes["lf"])
	assert.Equal(t, ClassNormal, classes["34"])
}

func TestBlastTraversalIsUndirected(t *testing.T) {
	nodes := []Node{n("up"), n("origin")}
	edges := []Edge{e("uo", "up", "origin", EdgeCalls)}

	classes := Classify(ViewStructure, nodes, edges, Selection{NodeID: "origin", ShowImpact: true}, 3)
	assert.Equal(t, ClassBlastHop1, classes["up"], "incoming edges count for impact")
}

func TestStaleSelectionIsIgnored(t *testing.T) {
	nodes, edges := chainGraph()
	classes := Classify(ViewVulnerabilities, nodes, edges, Selection{NodeID: "gone", ShowImpact: true}, 0)

	// The baseline must be untouched by the dangling reference
	assert.Equal(t, ClassChainMember, classes["a"])
	assert.Equal(t, ClassDimmed, classes["d"])
	_, present := classes["gone"]
	assert.False(t, present)
}

func TestClearingSelectionRestoresModeBaseline(t *testing.T) {
	nodes, edges := chainGraph()

	selected := Classify(ViewVulnerabilities, nodes, edges, Selection{NodeID: "d"}, 0)
	require.Equal(t, ClassSelected, selected["d"])

	cleared := Classify(ViewVulnerabilities, nodes, edges, Selection{}, 0)
	assert.Equal(t, ClassDimmed, cleared["d"], "vulnerability baseline returns, not structure's normal")
	assert.Equal(t, ClassChainMember, cleared["a"])
}

func TestBlastClassSaturatesAtDeepestHop(t *testing.T) {
	assert.Equal(t, ClassBlastHop1, BlastClass(1))
	assert.Equal(t, ClassBlastHop3, BlastClass(3))
	assert.Equal(t, ClassBlastHop3, BlastClass(7))
}

func TestLayoutHints(t *testing.T) {
	structure := ViewStructure.LayoutHint()
	assert.Equal(t, "dagre", structure.Algorithm)
	assert.Equal(t, "TB", structure.Direction)

	deps := ViewDependencies.LayoutHint()
	assert.Equal(t, "cose-bilkent", deps.Algorithm)
}
