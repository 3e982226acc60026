package analysis

import (
	"encoding/json"

	"github.com/vibecheck/vibegraph/errors"
	"github.com/vibecheck/vibegraph/graph"
)

// EventType tags frames on the per-analysis push channel
type EventType string

const (
	EventStatus        EventType = "status"
	EventGraphNode     EventType = "graph_node"
	EventGraphEdge     EventType = "graph_edge"
	EventFinding       EventType = "finding"
	EventAgentComplete EventType = "agent_complete"
	EventInsight       EventType = "cross_reference_insight"
	EventComplete      EventType = "complete"
	EventError         EventType = "error"

	// Channel housekeeping frames; recognized so they are not counted as
	// malformed, but they carry no state.
	EventConnected EventType = "connected"
	EventPong      EventType = "pong"
)

// Event is one typed frame from the push channel
type Event interface {
	Kind() EventType
}

// StatusEvent reports an agent's lifecycle progress
type StatusEvent struct {
	Agent    string  `json:"agent"`
	Status   Status  `json:"status"`
	Progress float64 `json:"progress"`
	Message  string  `json:"message"`
}

func (StatusEvent) Kind() EventType { return EventStatus }

// GraphNodeEvent delivers one graph node incrementally
type GraphNodeEvent struct {
	Node graph.Node `json:"node"`
}

func (GraphNodeEvent) Kind() EventType { return EventGraphNode }

// GraphEdgeEvent delivers one graph edge incrementally
type GraphEdgeEvent struct {
	Edge graph.Edge `json:"edge"`
}

func (GraphEdgeEvent) Kind() EventType { return EventGraphEdge }

// FindingEvent delivers a live preview of a finding. For large result sets
// the stream intentionally does not carry every finding; the full list is
// fetched when the analysis completes.
type FindingEvent struct {
	Finding Finding `json:"finding"`
}

func (FindingEvent) Kind() EventType { return EventFinding }

// AgentCompleteEvent reports that one analysis agent finished its pass
type AgentCompleteEvent struct {
	Agent         string `json:"agent"`
	FindingsCount int    `json:"findingsCount"`
	DurationMS    int    `json:"durationMs"`
	Provider      string `json:"provider"`
}

func (AgentCompleteEvent) Kind() EventType { return EventAgentComplete }

// InsightEvent carries a cross-reference insight produced while agents
// correlate their findings
type InsightEvent struct {
	Insight     string `json:"insight"`
	SourceCount int    `json:"sourceCount"`
}

func (InsightEvent) Kind() EventType { return EventInsight }

// CompleteEvent finalizes the run with the score and findings summary
type CompleteEvent struct {
	HealthScore     HealthScore     `json:"healthScore"`
	FindingsSummary FindingsSummary `json:"findingsSummary"`
	Duration        int             `json:"duration"`
}

func (CompleteEvent) Kind() EventType { return EventComplete }

// ErrorEvent reports a backend failure. A non-recoverable error forces the
// analysis to failed and freezes further mutation; a recoverable one is
// surfaced without changing status.
type ErrorEvent struct {
	Agent       string `json:"agent,omitempty"`
	Message     string `json:"message"`
	Recoverable bool   `json:"recoverable"`
}

func (ErrorEvent) Kind() EventType { return EventError }

// ConnectedEvent acknowledges channel establishment
type ConnectedEvent struct {
	AnalysisID string `json:"analysisId"`
}

func (ConnectedEvent) Kind() EventType { return EventConnected }

// PongEvent answers a client ping
type PongEvent struct{}

func (PongEvent) Kind() EventType { return EventPong }

// ParseEvent decodes a raw channel frame against the event union. Frames
// that do not parse return an error wrapping errors.ErrMalformedEvent; the
// transport drops them without side effect.
func ParseEvent(data []byte) (Event, error) {
	var envelope struct {
		Type EventType `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, errors.Wrap(errors.ErrMalformedEvent, err.Error())
	}

	decode := func(v Event) (Event, error) {
		if err := json.Unmarshal(data, v); err != nil {
			return nil, errors.Wrapf(errors.ErrMalformedEvent, "%s: %s", envelope.Type, err.Error())
		}
		return v, nil
	}

	switch envelope.Type {
	case EventStatus:
		ev := &StatusEvent{}
		if _, err := decode(ev); err != nil {
			return nil, err
		}
		if !ev.Status.IsValid() {
			return nil, errors.Wrapf(errors.ErrMalformedEvent, "unknown status %q", ev.Status)
		}
		return ev, nil
	case EventGraphNode:
		return decode(&GraphNodeEvent{})
	case EventGraphEdge:
		return decode(&GraphEdgeEvent{})
	case EventFinding:
		return decode(&FindingEvent{})
	case EventAgentComplete:
		return decode(&AgentCompleteEvent{})
	case EventInsight:
		return decode(&InsightEvent{})
	case EventComplete:
		return decode(&CompleteEvent{})
	case EventError:
		return decode(&ErrorEvent{})
	case EventConnected:
		return decode(&ConnectedEvent{})
	case EventPong:
		return &PongEvent{}, nil
	default:
		return nil, errors.Wrapf(errors.ErrMalformedEvent, "unknown event type %q", envelope.Type)
	}
}
