package workflow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hoangsonww/AI-Agents-Orchestrator/internal/events"
)

type State int

const (
	StateIdle State = iota
	StateRunning
	StateStopped
)

const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// RunResult is the aggregate report for one workflow run.
type RunResult struct {
	RunID       string        `json:"run_id"`
	Workflow    string        `json:"workflow"`
	Task        string        `json:"task"`
	Status      string        `json:"status"`
	StopReason  string        `json:"stop_reason"`
	Iterations  int           `json:"iterations"`
	Results     []TaskResult  `json:"results"`
	Files       []string      `json:"files,omitempty"`
	FinalOutput string        `json:"final_output,omitempty"`
	Duration    time.Duration `json:"duration"`
}

// Engine sequences agents through workflow steps, iterating until the stop
// policy fires or a fatal failure ends the run.
type Engine struct {
	agents map[string]Agent
	pub    events.Publisher
	log    *zap.Logger

	mu    sync.Mutex
	state State
}

func NewEngine(agents []Agent, pub events.Publisher, log *zap.Logger) *Engine {
	byName := make(map[string]Agent, len(agents))
	for _, a := range agents {
		byName[a.Name()] = a
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{agents: byName, pub: pub, log: log, state: StateIdle}
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

// Run executes the workflow for the given task. It always returns a report;
// failures and cancellation are reported through the Status field.
func (e *Engine) Run(ctx context.Context, wf Workflow, task string) RunResult {
	runID := uuid.NewString()
	start := time.Now()

	e.setState(StateRunning)
	defer e.setState(StateStopped)

	e.publish(runID, events.Event{Type: events.TypeRunStarted, Message: wf.Name})
	e.log.Info("workflow run started",
		zap.String("run_id", runID),
		zap.String("workflow", wf.Name),
		zap.Int("steps", len(wf.Steps)))

	execCtx := Context{Task: task}
	report := RunResult{
		RunID:    runID,
		Workflow: wf.Name,
		Task:     task,
		Status:   StatusCompleted,
	}

	for iteration := 1; ; iteration++ {
		report.Iterations = iteration
		execCtx.Iteration = iteration

		for i, step := range wf.Steps {
			res, done := e.runStep(ctx, runID, iteration, i, step, &execCtx, &report)
			if res != nil {
				report.Results = append(report.Results, *res)
			}
			if done {
				return e.finish(runID, start, execCtx, report)
			}
		}

		e.publish(runID, events.Event{Type: events.TypeIterationDone, Iteration: iteration})

		dec := decideNext(iteration, wf.MaxIterations, wf.HasReviewStep(),
			execCtx.Suggestions, wf.MinSuggestions)
		if dec.Stop {
			report.StopReason = dec.Reason
			return e.finish(runID, start, execCtx, report)
		}
	}
}

// runStep executes one step and folds its result into the context. The
// returned flag tells the caller to end the run. On cancellation the context
// is left exactly as it was before the step started.
func (e *Engine) runStep(ctx context.Context, runID string, iteration, index int,
	step Step, execCtx *Context, report *RunResult) (*TaskResult, bool) {

	if ctx.Err() != nil {
		report.Status = StatusCancelled
		report.StopReason = "cancelled"
		return nil, true
	}

	agent, ok := e.agents[step.Agent]
	if !ok {
		res := TaskResult{
			Agent:     step.Agent,
			Task:      step.Task,
			Iteration: iteration,
			Error:     fmt.Sprintf("agent %q not registered", step.Agent),
		}
		if step.Skippable {
			e.publish(runID, events.Event{Type: events.TypeStepSkipped,
				Agent: step.Agent, Step: index + 1, Iteration: iteration, Message: res.Error})
			return &res, false
		}
		report.Status = StatusFailed
		report.StopReason = res.Error
		return &res, true
	}

	e.publish(runID, events.Event{Type: events.TypeStepStarted,
		Agent: step.Agent, Step: index + 1, Iteration: iteration, Message: step.Task})

	snapshot := *execCtx
	res := agent.Execute(ctx, step, snapshot)
	res.Iteration = iteration

	if ctx.Err() != nil {
		// killed mid-step; keep the pre-step context intact
		*execCtx = snapshot
		res.Success = false
		if res.Error == "" {
			res.Error = "cancelled"
		}
		e.publish(runID, events.Event{Type: events.TypeStepFailed,
			Agent: step.Agent, Step: index + 1, Iteration: iteration, Message: res.Error})
		report.Status = StatusCancelled
		report.StopReason = "cancelled"
		return &res, true
	}

	if res.Success {
		execCtx.Absorb(res)
		e.publish(runID, events.Event{Type: events.TypeStepFinished,
			Agent: step.Agent, Step: index + 1, Iteration: iteration, Message: step.Task})
		return &res, false
	}

	if step.Skippable {
		e.log.Warn("skippable step failed",
			zap.String("run_id", runID),
			zap.String("agent", step.Agent),
			zap.String("error", res.Error))
		e.publish(runID, events.Event{Type: events.TypeStepSkipped,
			Agent: step.Agent, Step: index + 1, Iteration: iteration, Message: res.Error})
		return &res, false
	}

	e.publish(runID, events.Event{Type: events.TypeStepFailed,
		Agent: step.Agent, Step: index + 1, Iteration: iteration, Message: res.Error})
	report.Status = StatusFailed
	report.StopReason = fmt.Sprintf("step %d (%s/%s) failed: %s",
		index+1, step.Agent, step.Task, res.Error)
	return &res, true
}

func (e *Engine) finish(runID string, start time.Time, execCtx Context, report RunResult) RunResult {
	report.Files = execCtx.Files
	report.FinalOutput = execCtx.PreviousOutput
	report.Duration = time.Since(start)

	e.publish(runID, events.Event{Type: events.TypeRunFinished, Message: report.Status})
	e.log.Info("workflow run finished",
		zap.String("run_id", runID),
		zap.String("status", report.Status),
		zap.String("stop_reason", report.StopReason),
		zap.Int("iterations", report.Iterations),
		zap.Duration("duration", report.Duration))
	return report
}

func (e *Engine) publish(runID string, evt events.Event) {
	if e.pub != nil {
		e.pub.Publish(runID, evt)
	}
}
