package agent

import (
	"fmt"
	"strings"

	"github.com/hoangsonww/AI-Agents-Orchestrator/internal/workflow"
)

// buildPrompt composes the payload for one step, injecting prior output and
// review feedback where the task kind benefits from them.
func buildPrompt(step workflow.Step, exec workflow.Context) string {
	switch workflow.CapabilityFor(step.Task) {
	case workflow.CapabilityReview:
		return reviewPrompt(exec)
	case workflow.CapabilityRefinement:
		return refinePrompt(exec)
	case workflow.CapabilitySuggestions:
		return suggestionsPrompt(exec)
	default:
		return implementPrompt(exec)
	}
}

func implementPrompt(exec workflow.Context) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Implement the following: %s\n", exec.Task)
	b.WriteString("\nPlease provide clear, well-documented code with proper error handling.")
	return b.String()
}

func reviewPrompt(exec workflow.Context) string {
	var b strings.Builder
	b.WriteString("You are an expert code reviewer.\n")
	fmt.Fprintf(&b, "\nTask: %s\n", exec.Task)

	if exec.PreviousOutput != "" {
		b.WriteString("\nCode to review:\n```\n")
		b.WriteString(exec.PreviousOutput)
		b.WriteString("\n```\n")
	}
	if len(exec.Files) > 0 {
		fmt.Fprintf(&b, "\nFiles involved: %s\n", strings.Join(exec.Files, ", "))
	}

	b.WriteString("\nReview for correctness, error handling, security, and maintainability.\n")
	b.WriteString("Provide specific, actionable feedback as a numbered list.\n")
	b.WriteString("Prioritize issues by severity: Critical, High, Medium, Low.")
	return b.String()
}

func refinePrompt(exec workflow.Context) string {
	var b strings.Builder
	b.WriteString("You are refining code based on review feedback.\n")
	fmt.Fprintf(&b, "\nTask: %s\n", exec.Task)

	if exec.Feedback != "" {
		b.WriteString("\nCode review feedback:\n")
		b.WriteString(exec.Feedback)
		b.WriteString("\n")
	}
	if exec.PreviousOutput != "" {
		b.WriteString("\nCurrent implementation:\n")
		b.WriteString(exec.PreviousOutput)
		b.WriteString("\n")
	}

	b.WriteString("\nImplement the suggested improvements while keeping the code working.")
	return b.String()
}

func suggestionsPrompt(exec workflow.Context) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Suggest improvements for: %s\n", exec.Task)
	if exec.PreviousOutput != "" {
		b.WriteString("\nCurrent state:\n")
		b.WriteString(exec.PreviousOutput)
		b.WriteString("\n")
	}
	b.WriteString("\nList each suggestion as a separate bullet point.")
	return b.String()
}
