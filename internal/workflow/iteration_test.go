package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecideNextContinuesWhileSuggestionsRemain(t *testing.T) {
	dec := decideNext(1, 3, true, 5, 3)
	assert.False(t, dec.Stop)
}

func TestDecideNextStopsOnConvergence(t *testing.T) {
	dec := decideNext(1, 3, true, 2, 3)
	assert.True(t, dec.Stop)
	assert.Equal(t, ReasonConverged, dec.Reason)
}

func TestDecideNextStopsAtCap(t *testing.T) {
	dec := decideNext(3, 3, true, 10, 3)
	assert.True(t, dec.Stop)
	assert.Equal(t, ReasonMaxIterations, dec.Reason)
}

func TestDecideNextCapWinsTies(t *testing.T) {
	// both the cap and convergence apply; the cap is the reported reason
	dec := decideNext(2, 2, true, 0, 3)
	assert.True(t, dec.Stop)
	assert.Equal(t, ReasonMaxIterations, dec.Reason)
}

func TestDecideNextSinglePassWithoutReview(t *testing.T) {
	dec := decideNext(1, 5, false, 0, 3)
	assert.True(t, dec.Stop)
	assert.Equal(t, ReasonSinglePass, dec.Reason)
}

func TestDecideNextIsIdempotent(t *testing.T) {
	first := decideNext(2, 3, true, 4, 3)
	second := decideNext(2, 3, true, 4, 3)
	assert.Equal(t, first, second)
}

func TestHasReviewStep(t *testing.T) {
	with := Workflow{Steps: []Step{{Task: "implement"}, {Task: "review"}}}
	without := Workflow{Steps: []Step{{Task: "implement"}, {Task: "refine"}}}
	assert.True(t, with.HasReviewStep())
	assert.False(t, without.HasReviewStep())
}

func TestCapabilityFor(t *testing.T) {
	assert.Equal(t, CapabilityReview, CapabilityFor("review"))
	assert.Equal(t, CapabilityRefinement, CapabilityFor("refine"))
	assert.Equal(t, CapabilitySuggestions, CapabilityFor("suggest"))
	assert.Equal(t, CapabilityImplementation, CapabilityFor("implement"))
	assert.Equal(t, CapabilityImplementation, CapabilityFor("anything-else"))
}

func TestContextAbsorb(t *testing.T) {
	c := Context{Task: "build it", Files: []string{"a.go"}}

	c.Absorb(TaskResult{Task: "implement", Success: true,
		Output: "done", Files: []string{"b.go", "a.go"}})
	assert.Equal(t, "done", c.PreviousOutput)
	assert.Equal(t, []string{"a.go", "b.go"}, c.Files)
	assert.Empty(t, c.Feedback)

	c.Absorb(TaskResult{Task: "review", Success: true,
		Output: "1. fix X\n2. fix Y", Suggestions: 2})
	assert.Equal(t, "1. fix X\n2. fix Y", c.Feedback)
	assert.Equal(t, 2, c.Suggestions)
	assert.Equal(t, []string{"a.go", "b.go"}, c.Files, "file set never shrinks")
}
