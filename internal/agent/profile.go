package agent

import (
	"os/exec"
	"time"

	"github.com/hoangsonww/AI-Agents-Orchestrator/internal/config"
	"github.com/hoangsonww/AI-Agents-Orchestrator/internal/invoke"
	"github.com/hoangsonww/AI-Agents-Orchestrator/internal/workflow"
)

// Profile describes how to drive one agent CLI: the binary, how the prompt
// travels to it, and what the agent is good for.
type Profile struct {
	Name         string
	Command      string
	Args         []string
	Method       invoke.Method
	PromptFlag   string
	Capabilities []workflow.Capability
	Workspace    bool
	Timeout      time.Duration
}

// FromConfig builds a profile from its config entry.
func FromConfig(name string, cfg config.AgentConfig) Profile {
	method := invoke.Method(cfg.Method)
	if method == "" {
		method = invoke.MethodStdin
	}
	return Profile{
		Name:         name,
		Command:      cfg.Command,
		Args:         cfg.Args,
		Method:       method,
		PromptFlag:   cfg.PromptFlag,
		Capabilities: capabilitiesFor(cfg.Role),
		Workspace:    cfg.Workspace,
		Timeout:      cfg.Timeout(),
	}
}

// Available reports whether the agent binary can be found on PATH.
func (p Profile) Available() bool {
	_, err := exec.LookPath(p.Command)
	return err == nil
}

func capabilitiesFor(role string) []workflow.Capability {
	switch role {
	case "review":
		return []workflow.Capability{workflow.CapabilityReview, workflow.CapabilitySuggestions}
	case "refinement":
		return []workflow.Capability{workflow.CapabilityRefinement, workflow.CapabilityImplementation}
	case "suggestions":
		return []workflow.Capability{workflow.CapabilitySuggestions}
	default:
		return []workflow.Capability{workflow.CapabilityImplementation}
	}
}
