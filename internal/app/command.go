package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/hoangsonww/AI-Agents-Orchestrator/internal/agent"
	"github.com/hoangsonww/AI-Agents-Orchestrator/internal/config"
	"github.com/hoangsonww/AI-Agents-Orchestrator/internal/events"
	"github.com/hoangsonww/AI-Agents-Orchestrator/internal/invoke"
	"github.com/hoangsonww/AI-Agents-Orchestrator/internal/session"
	"github.com/hoangsonww/AI-Agents-Orchestrator/internal/workflow"
	"github.com/hoangsonww/AI-Agents-Orchestrator/internal/workspace"
)

// ErrAmbiguousTask means the message could either continue the previous task
// or start a new one; the caller must decide and rerun.
var ErrAmbiguousTask = errors.New("ambiguous task: rerun with --followup or --new")

// Command runs one task through a workflow inside a named session.
type Command struct {
	Task          string
	Session       string
	Workflow      string
	ConfigPath    string
	Followup      bool
	ForceNew      bool
	MaxIterations int
	Logger        *zap.Logger
	Bus           *events.Bus
}

type Result struct {
	Report         workflow.RunResult
	Session        string
	Classification session.Kind
	ReportPath     string
}

func (c Command) Run(ctx context.Context) (Result, error) {
	log := c.Logger
	if log == nil {
		log = zap.NewNop()
	}

	cfg, err := config.Load(c.ConfigPath)
	if err != nil {
		return Result{}, err
	}

	workflowName := c.Workflow
	if workflowName == "" {
		workflowName = "default"
	}
	wfCfg, err := cfg.Workflow(workflowName)
	if err != nil {
		return Result{}, err
	}

	store, err := session.NewStore(cfg.Settings.SessionDB)
	if err != nil {
		return Result{}, err
	}
	defer store.Close()
	if err := store.Init(ctx); err != nil {
		return Result{}, err
	}

	sessionName := c.Session
	if sessionName == "" {
		sessionName = "default"
	}
	manager := session.NewManager(store, log)
	sess, release, err := manager.Acquire(ctx, sessionName)
	if err != nil {
		return Result{}, err
	}
	defer release()

	kind := c.classify(sess)
	if kind == session.Ambiguous {
		return Result{Session: sessionName, Classification: kind},
			fmt.Errorf("%w (previous task: %.60s)", ErrAmbiguousTask, sess.LastTask)
	}

	task := c.Task
	if kind == session.Continuation {
		task = continuationTask(sess, c.Task)
	}

	wf, agents, err := c.assemble(cfg, workflowName, wfCfg, log)
	if err != nil {
		return Result{}, err
	}
	if c.MaxIterations > 0 {
		wf.MaxIterations = c.MaxIterations
	}

	sink, err := events.NewFileSink(filepath.Join(cfg.Settings.OutputDir, "events.jsonl"))
	if err != nil {
		return Result{}, err
	}
	defer sink.Close()

	var pub events.Publisher = sink
	if c.Bus != nil {
		pub = events.Tee{c.Bus, sink}
	}

	engine := workflow.NewEngine(agents, pub, log)
	report := engine.Run(ctx, wf, task)

	sess.Append("user", c.Task, map[string]string{"classification": kind.String()})
	sess.Append("assistant", report.FinalOutput, map[string]string{
		"run_id": report.RunID,
		"status": report.Status,
	})
	if report.Status == workflow.StatusCompleted {
		sess.RecordRun(c.Task, report.FinalOutput, report.Files)
	}
	if err := manager.Save(ctx, sess); err != nil {
		log.Warn("session save failed", zap.Error(err))
	}

	reportPath, err := writeReport(cfg.Settings.OutputDir, report)
	if err != nil {
		log.Warn("report write failed", zap.Error(err))
	}

	return Result{
		Report:         report,
		Session:        sessionName,
		Classification: kind,
		ReportPath:     reportPath,
	}, nil
}

func (c Command) classify(sess *session.Session) session.Kind {
	if c.ForceNew {
		return session.NewTask
	}
	return session.Classify(c.Task, sess.LastTask, c.Followup)
}

// assemble builds the runtime workflow and one adapter per referenced agent.
// A missing binary fails fast unless every step using it is skippable.
func (c Command) assemble(cfg config.Config, name string, wfCfg config.WorkflowConfig,
	log *zap.Logger) (workflow.Workflow, []workflow.Agent, error) {

	wf := workflow.Workflow{
		Name:           name,
		MaxIterations:  wfCfg.MaxIterations,
		MinSuggestions: wfCfg.MinSuggestions,
	}
	for _, step := range wfCfg.Steps {
		wf.Steps = append(wf.Steps, workflow.Step{
			Agent:       step.Agent,
			Task:        step.Task,
			Description: step.Description,
			Skippable:   step.Skippable,
		})
	}

	invoker := invoke.NewRetrier(
		invoke.NewSubprocess(log),
		retryConfig(cfg.Settings),
		log,
	)

	var agents []workflow.Agent
	byName := make(map[string]workflow.Agent)
	seen := make(map[string]bool)
	for _, step := range wfCfg.Steps {
		if seen[step.Agent] {
			continue
		}
		seen[step.Agent] = true

		agentCfg := cfg.Agents[step.Agent]
		if !agentCfg.Enabled {
			return workflow.Workflow{}, nil,
				fmt.Errorf("%w: agent %q is disabled", config.ErrConfigInvalid, step.Agent)
		}

		profile := agent.FromConfig(step.Agent, agentCfg)
		if !profile.Available() {
			if stepsSkippable(wfCfg.Steps, step.Agent) {
				log.Warn("agent binary not found, its steps will be skipped",
					zap.String("agent", step.Agent),
					zap.String("command", profile.Command))
				continue
			}
			return workflow.Workflow{}, nil,
				fmt.Errorf("%w: %s (agent %q)", invoke.ErrCommandNotFound, profile.Command, step.Agent)
		}

		var opts []agent.Option
		if profile.Workspace && cfg.Settings.WorkspaceDir != "" {
			if err := os.MkdirAll(cfg.Settings.WorkspaceDir, 0o755); err != nil {
				return workflow.Workflow{}, nil, fmt.Errorf("create workspace: %w", err)
			}
			opts = append(opts, agent.WithWorkdir(
				cfg.Settings.WorkspaceDir,
				workspace.NewTracker(cfg.Settings.WorkspaceDir)))
		}

		adapter := agent.NewAdapter(profile, invoker, log, opts...)
		agents = append(agents, adapter)
		byName[step.Agent] = adapter
	}

	// a step whose task kind the bound agent cannot perform is a config
	// error, caught before any subprocess is spawned
	for i, step := range wfCfg.Steps {
		bound, ok := byName[step.Agent]
		if !ok {
			continue
		}
		need := workflow.CapabilityFor(step.Task)
		if !hasCapability(bound.Capabilities(), need) {
			return workflow.Workflow{}, nil, fmt.Errorf(
				"%w: workflow %q step %d: agent %q (role %q) does not support %q tasks",
				config.ErrConfigInvalid, name, i+1, step.Agent,
				cfg.Agents[step.Agent].Role, step.Task)
		}
	}

	return wf, agents, nil
}

func hasCapability(caps []workflow.Capability, need workflow.Capability) bool {
	for _, c := range caps {
		if c == need {
			return true
		}
	}
	return false
}

func retryConfig(settings config.Settings) invoke.RetryConfig {
	rc := invoke.DefaultRetryConfig()
	if settings.RetryMax > 0 {
		rc.MaxAttempts = settings.RetryMax
	}
	return rc
}

func stepsSkippable(steps []config.StepConfig, agentName string) bool {
	for _, step := range steps {
		if step.Agent == agentName && !step.Skippable {
			return false
		}
	}
	return true
}

// continuationTask folds the previous task's outcome into the follow-up
// message so the next agent picks up where the last run stopped.
func continuationTask(sess *session.Session, message string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Previous task: %s\n", sess.LastTask)
	if sess.LastOutput != "" {
		b.WriteString("\nPrevious result:\n")
		b.WriteString(sess.LastOutput)
		b.WriteString("\n")
	}
	if len(sess.LastFiles) > 0 {
		fmt.Fprintf(&b, "\nFiles from the previous run: %s\n", strings.Join(sess.LastFiles, ", "))
	}
	fmt.Fprintf(&b, "\nFollow-up request: %s", message)
	return b.String()
}

func writeReport(outputDir string, report workflow.RunResult) (string, error) {
	dir := filepath.Join(outputDir, report.RunID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(dir, "summary.json")
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// ListSessions prints the stored sessions, newest first.
func ListSessions(ctx context.Context, configPath string) ([]session.Summary, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	store, err := session.NewStore(cfg.Settings.SessionDB)
	if err != nil {
		return nil, err
	}
	defer store.Close()
	if err := store.Init(ctx); err != nil {
		return nil, err
	}
	return store.List(ctx)
}
