package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusValidity(t *testing.T) {
	for _, s := range []Status{
		StatusQueued, StatusCloning, StatusMapping,
		StatusAnalyzing, StatusCompleting, StatusCompleted, StatusFailed,
	} {
		assert.True(t, s.IsValid(), "%s", s)
	}
	assert.False(t, Status("ascending").IsValid())
	assert.False(t, Status("").IsValid())
}

func TestStatusOnlyMovesForward(t *testing.T) {
	assert.True(t, StatusQueued.CanAdvanceTo(StatusCloning))
	assert.True(t, StatusCloning.CanAdvanceTo(StatusAnalyzing), "stages may be skipped")
	assert.True(t, StatusAnalyzing.CanAdvanceTo(StatusCompleted))

	assert.False(t, StatusAnalyzing.CanAdvanceTo(StatusCloning))
	assert.False(t, StatusCompleting.CanAdvanceTo(StatusQueued))
}

func TestFailureAllowedFromAnyLiveStage(t *testing.T) {
	for _, s := range []Status{StatusQueued, StatusCloning, StatusMapping, StatusAnalyzing, StatusCompleting} {
		assert.True(t, s.CanAdvanceTo(StatusFailed), "%s", s)
	}
}

func TestTerminalStatesFreeze(t *testing.T) {
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusFailed.Terminal())
	assert.False(t, StatusCompleting.Terminal())

	for _, next := range []Status{StatusQueued, StatusAnalyzing, StatusCompleted, StatusFailed} {
		assert.False(t, StatusCompleted.CanAdvanceTo(next), "completed -> %s", next)
		assert.False(t, StatusFailed.CanAdvanceTo(next), "failed -> %s", next)
	}
}

func TestCanAdvanceRejectsUnknownStatus(t *testing.T) {
	assert.False(t, StatusQueued.CanAdvanceTo(Status("warp")))
}
