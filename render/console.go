package render

import (
	"fmt"

	"github.com/pterm/pterm"

	"github.com/vibecheck/vibegraph/graph"
)

// Console renders graph updates as terminal output using pterm. It is the
// surface the watch command attaches; a graphical adapter implements the
// same Renderer contract against a drawing library instead.
type Console struct {
	verbosity int
}

// NewConsole creates a console renderer. Verbosity >= 1 also prints
// per-element classification changes.
func NewConsole(verbosity int) *Console {
	return &Console{verbosity: verbosity}
}

// Apply implements Renderer
func (c *Console) Apply(delta graph.Delta, classes graph.Classification, mode graph.ViewMode) {
	if !delta.Empty() {
		layout := mode.LayoutHint()
		pterm.Printf("🔄 %s view: +%s/-%s nodes, +%s/-%s edges (%s layout)\n",
			pterm.LightCyan(string(mode)),
			pterm.Green(fmt.Sprintf("%d", len(delta.AddedNodes))),
			pterm.Red(fmt.Sprintf("%d", len(delta.RemovedNodes))),
			pterm.Green(fmt.Sprintf("%d", len(delta.AddedEdges))),
			pterm.Red(fmt.Sprintf("%d", len(delta.RemovedEdges))),
			layout.Algorithm,
		)
	}

	if c.verbosity < 1 {
		return
	}

	counts := make(map[graph.Class]int, len(classes))
	for _, class := range classes {
		counts[class]++
	}
	for _, class := range []graph.Class{
		graph.ClassSelected,
		graph.ClassBlastHop1,
		graph.ClassBlastHop2,
		graph.ClassBlastHop3,
		graph.ClassChainMember,
		graph.ClassHighlighted,
		graph.ClassDimmed,
	} {
		if n := counts[class]; n > 0 {
			pterm.Printf("  %s: %d\n", class, n)
		}
	}
}
