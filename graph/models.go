// Package graph maintains the client-side model of the analysis graph:
// the monotonically growing node and edge sets fed by the event stream,
// the diff engine that turns them into incremental render deltas, and the
// view-mode highlight state machine.
package graph

// Node represents an entity in the analysis graph
type Node struct {
	ID           string                 `json:"id"`
	Type         NodeType               `json:"type"`
	Label        string                 `json:"label"`
	Path         string                 `json:"path,omitempty"`
	Category     string                 `json:"category,omitempty"`
	Language     string                 `json:"language,omitempty"`
	Lines        int                    `json:"lines,omitempty"`
	Severity     string                 `json:"severity,omitempty"`     // Highest finding severity touching the node
	FindingCount int                    `json:"findingCount"`           // Drives visual weight
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

// Edge represents a relationship between two nodes
type Edge struct {
	ID                   string   `json:"id"`
	Source               string   `json:"source"` // Node ID
	Target               string   `json:"target"` // Node ID
	Type                 EdgeType `json:"type"`
	IsVulnerabilityChain bool     `json:"isVulnerabilityChain"`
	ChainID              string   `json:"chainId,omitempty"`
}

// Layout carries the server's layout hint for a fetched graph view
type Layout struct {
	Algorithm string `json:"algorithm,omitempty"` // "dagre" or "cose-bilkent"
	Direction string `json:"direction,omitempty"` // "TB" for tree layouts, empty otherwise
}

// Snapshot is a total, consistent graph state as returned by the
// get-graph endpoint. The diff engine is what turns snapshots into deltas.
type Snapshot struct {
	Nodes  []Node `json:"nodes"`
	Edges  []Edge `json:"edges"`
	Layout Layout `json:"layout"`
}
