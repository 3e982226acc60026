// Package analysis holds the vibe-check domain model consumed by the
// streaming dashboard core: the analysis lifecycle, findings, fixes,
// vulnerability chains, and the push channel event union.
package analysis

// Status represents the lifecycle state of an analysis run
type Status string

const (
	StatusQueued     Status = "queued"
	StatusCloning    Status = "cloning"
	StatusMapping    Status = "mapping"
	StatusAnalyzing  Status = "analyzing"
	StatusCompleting Status = "completing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// statusRank orders the lifecycle for monotonicity checks. Both terminal
// states share the highest rank so neither can displace the other.
var statusRank = map[Status]int{
	StatusQueued:     0,
	StatusCloning:    1,
	StatusMapping:    2,
	StatusAnalyzing:  3,
	StatusCompleting: 4,
	StatusCompleted:  5,
	StatusFailed:     5,
}

// IsValid returns true if the status string is a known lifecycle state
func (s Status) IsValid() bool {
	_, ok := statusRank[s]
	return ok
}

// Rank returns the position of the status in the forward lifecycle order
func (s Status) Rank() int {
	return statusRank[s]
}

// Terminal returns true once no further status transition is allowed
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanAdvanceTo reports whether a live status event may move the lifecycle
// from s to next. Terminal states freeze; everything else only moves
// forward (a late out-of-order event never regresses the status).
func (s Status) CanAdvanceTo(next Status) bool {
	if !next.IsValid() {
		return false
	}
	if s.Terminal() {
		return false
	}
	return next.Rank() >= s.Rank()
}
