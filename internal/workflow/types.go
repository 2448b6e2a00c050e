package workflow

import (
	"context"
	"sort"
	"strings"
	"time"
)

type Capability string

const (
	CapabilityImplementation Capability = "implementation"
	CapabilityReview         Capability = "review"
	CapabilityRefinement     Capability = "refinement"
	CapabilitySuggestions    Capability = "suggestions"
)

// CapabilityFor maps a step task kind to the capability it exercises.
func CapabilityFor(task string) Capability {
	switch strings.ToLower(task) {
	case "review":
		return CapabilityReview
	case "refine":
		return CapabilityRefinement
	case "suggest":
		return CapabilitySuggestions
	default:
		return CapabilityImplementation
	}
}

type Step struct {
	Agent       string
	Task        string
	Description string
	Skippable   bool
}

type Workflow struct {
	Name           string
	Steps          []Step
	MaxIterations  int
	MinSuggestions int
}

// HasReviewStep reports whether any step produces review feedback. Without
// one the engine runs a single pass.
func (w Workflow) HasReviewStep() bool {
	for _, step := range w.Steps {
		if CapabilityFor(step.Task) == CapabilityReview {
			return true
		}
	}
	return false
}

// TaskResult is the outcome of one agent step.
type TaskResult struct {
	Agent       string        `json:"agent"`
	Task        string        `json:"task"`
	Iteration   int           `json:"iteration"`
	Success     bool          `json:"success"`
	Output      string        `json:"output,omitempty"`
	Error       string        `json:"error,omitempty"`
	Files       []string      `json:"files,omitempty"`
	Suggestions int           `json:"suggestions"`
	Structured  bool          `json:"structured"`
	Duration    time.Duration `json:"duration"`
}

// Context carries state between steps: the task, the latest output and
// review feedback, and the union of every file touched so far.
type Context struct {
	Task           string
	Iteration      int
	PreviousOutput string
	Feedback       string
	Suggestions    int
	Files          []string
}

// Absorb folds a successful step result into the context. Review output
// becomes the feedback for the next refinement pass. The file set only grows.
func (c *Context) Absorb(res TaskResult) {
	if res.Output != "" {
		c.PreviousOutput = res.Output
	}
	if CapabilityFor(res.Task) == CapabilityReview {
		c.Feedback = res.Output
		c.Suggestions = res.Suggestions
	}
	c.Files = mergeFiles(c.Files, res.Files)
}

func mergeFiles(existing, added []string) []string {
	if len(added) == 0 {
		return existing
	}
	seen := make(map[string]bool, len(existing)+len(added))
	merged := make([]string, 0, len(existing)+len(added))
	for _, f := range existing {
		if !seen[f] {
			seen[f] = true
			merged = append(merged, f)
		}
	}
	for _, f := range added {
		if f != "" && !seen[f] {
			seen[f] = true
			merged = append(merged, f)
		}
	}
	sort.Strings(merged)
	return merged
}

// Agent executes one workflow step. Implementations report failures through
// the result, never by panicking past the engine.
type Agent interface {
	Name() string
	Capabilities() []Capability
	Execute(ctx context.Context, step Step, exec Context) TaskResult
}
