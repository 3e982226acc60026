// Package render defines the one-way contract between the streaming state
// store and whatever surface draws the graph. Adapters receive incremental
// deltas plus a full classification map; they never read or mutate the
// store, which keeps the synchronization logic testable without a drawing
// surface.
package render

import "github.com/vibecheck/vibegraph/graph"

// Renderer consumes graph deltas and element classifications.
//
// Implementations must add new elements positioned by the layout for the
// given view mode, remove deleted elements, re-run layout only when the
// delta is non-empty, and apply classification as a pure style lookup.
type Renderer interface {
	Apply(delta graph.Delta, classes graph.Classification, mode graph.ViewMode)
}

// Noop is a Renderer that discards everything. Useful for headless runs
// and as a default before a surface attaches.
type Noop struct{}

// Apply implements Renderer
func (Noop) Apply(graph.Delta, graph.Classification, graph.ViewMode) {}
