package workflow

const (
	ReasonMaxIterations = "max iterations reached"
	ReasonConverged     = "review suggestions below threshold"
	ReasonSinglePass    = "no review step in workflow"
)

type StopDecision struct {
	Stop   bool
	Reason string
}

// decideNext determines whether another iteration should run after the one
// just completed. The iteration cap is checked first so it wins every tie.
func decideNext(iteration, maxIterations int, hasReview bool, suggestions, minSuggestions int) StopDecision {
	if iteration >= maxIterations {
		return StopDecision{Stop: true, Reason: ReasonMaxIterations}
	}
	if !hasReview {
		return StopDecision{Stop: true, Reason: ReasonSinglePass}
	}
	if suggestions < minSuggestions {
		return StopDecision{Stop: true, Reason: ReasonConverged}
	}
	return StopDecision{}
}
