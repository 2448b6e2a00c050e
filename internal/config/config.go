package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// ErrConfigInvalid is returned when the loaded configuration cannot drive a
// run. Validation happens before any subprocess is spawned.
var ErrConfigInvalid = errors.New("config invalid")

type Config struct {
	Agents    map[string]AgentConfig    `mapstructure:"agents"`
	Workflows map[string]WorkflowConfig `mapstructure:"workflows"`
	Settings  Settings                  `mapstructure:"settings"`
}

type AgentConfig struct {
	Command        string   `mapstructure:"command"`
	Args           []string `mapstructure:"args"`
	Enabled        bool     `mapstructure:"enabled"`
	Role           string   `mapstructure:"role"`
	TimeoutSeconds int      `mapstructure:"timeout_seconds"`
	Method         string   `mapstructure:"method"`
	PromptFlag     string   `mapstructure:"prompt_flag"`
	Workspace      bool     `mapstructure:"workspace"`
}

func (a AgentConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutSeconds) * time.Second
}

type StepConfig struct {
	Agent       string `mapstructure:"agent"`
	Task        string `mapstructure:"task"`
	Description string `mapstructure:"description"`
	Skippable   bool   `mapstructure:"skippable"`
}

type WorkflowConfig struct {
	Steps          []StepConfig `mapstructure:"steps"`
	MaxIterations  int          `mapstructure:"max_iterations"`
	MinSuggestions int          `mapstructure:"min_suggestions"`
}

type Settings struct {
	OutputDir    string `mapstructure:"output_dir"`
	WorkspaceDir string `mapstructure:"workspace_dir"`
	SessionDB    string `mapstructure:"session_db"`
	LogLevel     string `mapstructure:"log_level"`
	RetryMax     int    `mapstructure:"retry_max"`
}

var knownMethods = map[string]bool{
	"stdin":   true,
	"file":    true,
	"arg":     true,
	"heredoc": true,
}

var knownRoles = map[string]bool{
	"implementation": true,
	"review":         true,
	"refinement":     true,
	"suggestions":    true,
}

func Default() Config {
	return Config{
		Agents: map[string]AgentConfig{
			"codex": {
				Command: "codex", Args: []string{"exec"}, Enabled: true,
				Role: "implementation", TimeoutSeconds: 300, Method: "arg", Workspace: true,
			},
			"gemini": {
				Command: "gemini", Enabled: true, Role: "review",
				TimeoutSeconds: 300, Method: "arg", PromptFlag: "--prompt",
			},
			"claude": {
				Command: "claude", Enabled: true, Role: "refinement",
				TimeoutSeconds: 300, Method: "arg", PromptFlag: "--print", Workspace: true,
			},
			"copilot": {
				Command: "copilot", Enabled: false, Role: "suggestions",
				TimeoutSeconds: 300, Method: "stdin",
			},
		},
		Workflows: map[string]WorkflowConfig{
			"default": {
				Steps: []StepConfig{
					{Agent: "codex", Task: "implement", Description: "implement the task"},
					{Agent: "gemini", Task: "review", Description: "review the implementation"},
					{Agent: "claude", Task: "refine", Description: "apply review feedback"},
				},
				MaxIterations:  3,
				MinSuggestions: 3,
			},
		},
		Settings: Settings{
			OutputDir:    "./output",
			WorkspaceDir: "./workspace",
			SessionDB:    "sessions.db",
			LogLevel:     "info",
			RetryMax:     3,
		},
	}
}

// Load reads a YAML config file and merges it over the defaults. An empty
// path returns the defaults unchanged. The result is always validated.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, cfg.Validate()
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	for name, agent := range c.Agents {
		if agent.Command == "" {
			return fmt.Errorf("%w: agent %q has no command", ErrConfigInvalid, name)
		}
		if agent.TimeoutSeconds <= 0 {
			return fmt.Errorf("%w: agent %q has non-positive timeout", ErrConfigInvalid, name)
		}
		if agent.Method != "" && !knownMethods[agent.Method] {
			return fmt.Errorf("%w: agent %q has unknown method %q", ErrConfigInvalid, name, agent.Method)
		}
		if agent.Role != "" && !knownRoles[agent.Role] {
			return fmt.Errorf("%w: agent %q has unknown role %q", ErrConfigInvalid, name, agent.Role)
		}
	}

	for name, wf := range c.Workflows {
		if len(wf.Steps) == 0 {
			return fmt.Errorf("%w: workflow %q has no steps", ErrConfigInvalid, name)
		}
		if wf.MaxIterations < 1 {
			return fmt.Errorf("%w: workflow %q has max_iterations < 1", ErrConfigInvalid, name)
		}
		if wf.MinSuggestions < 0 {
			return fmt.Errorf("%w: workflow %q has negative min_suggestions", ErrConfigInvalid, name)
		}
		for i, step := range wf.Steps {
			if _, ok := c.Agents[step.Agent]; !ok {
				return fmt.Errorf("%w: workflow %q step %d references unknown agent %q",
					ErrConfigInvalid, name, i+1, step.Agent)
			}
			if step.Task == "" {
				return fmt.Errorf("%w: workflow %q step %d has no task kind", ErrConfigInvalid, name, i+1)
			}
		}
	}

	return nil
}

func (c Config) Workflow(name string) (WorkflowConfig, error) {
	wf, ok := c.Workflows[name]
	if !ok {
		return WorkflowConfig{}, fmt.Errorf("%w: workflow %q not found", ErrConfigInvalid, name)
	}
	return wf, nil
}
