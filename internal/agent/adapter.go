package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hoangsonww/AI-Agents-Orchestrator/internal/invoke"
	"github.com/hoangsonww/AI-Agents-Orchestrator/internal/workflow"
)

// MaxTaskLength bounds the user task; longer ones are rejected before any
// subprocess is spawned.
const MaxTaskLength = 50_000

// Adapter drives one agent CLI through the invoker and turns its raw output
// into a TaskResult. Failures are reported through the result, never panics.
// Observer watches a workspace around an invocation: Begin before the
// subprocess starts, Changes after it exits.
type Observer interface {
	Begin() error
	Changes() ([]string, error)
}

type Adapter struct {
	profile   Profile
	invoker   invoke.Invoker
	workdir   string
	observer  Observer
	extractor Extractor
	log       *zap.Logger
}

type Option func(*Adapter)

// WithWorkdir runs the agent inside dir and observes file changes there.
func WithWorkdir(dir string, observer Observer) Option {
	return func(a *Adapter) {
		a.workdir = dir
		a.observer = observer
	}
}

func WithExtractor(ex Extractor) Option {
	return func(a *Adapter) { a.extractor = ex }
}

func NewAdapter(profile Profile, invoker invoke.Invoker, log *zap.Logger, opts ...Option) *Adapter {
	if log == nil {
		log = zap.NewNop()
	}
	a := &Adapter{
		profile:   profile,
		invoker:   invoker,
		extractor: PatternExtractor{},
		log:       log,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Adapter) Name() string { return a.profile.Name }

func (a *Adapter) Capabilities() []workflow.Capability { return a.profile.Capabilities }

func (a *Adapter) Execute(ctx context.Context, step workflow.Step, exec workflow.Context) workflow.TaskResult {
	res := workflow.TaskResult{Agent: a.profile.Name, Task: step.Task}

	task := strings.TrimSpace(exec.Task)
	if task == "" {
		res.Error = "task is empty"
		return res
	}
	if len(task) > MaxTaskLength {
		res.Error = fmt.Sprintf("task is %d bytes, max is %d", len(task), MaxTaskLength)
		return res
	}

	prompt := buildPrompt(step, exec)
	spec := invoke.Spec{
		Argv:       append([]string{a.profile.Command}, a.profile.Args...),
		Payload:    prompt,
		Method:     a.profile.Method,
		PromptFlag: a.profile.PromptFlag,
		Timeout:    a.profile.Timeout,
	}
	if a.profile.Workspace && a.workdir != "" {
		spec.Dir = a.workdir
	}

	if a.observer != nil {
		if err := a.observer.Begin(); err != nil {
			a.log.Warn("workspace snapshot failed", zap.Error(err))
		}
	}

	out, err := a.invoker.Run(ctx, spec)
	if errors.Is(err, invoke.ErrInputTooLarge) && spec.Method == invoke.MethodArg {
		a.log.Info("prompt too large for argv, falling back to file delivery",
			zap.String("agent", a.profile.Name),
			zap.Int("bytes", len(prompt)))
		spec.Method = invoke.MethodFile
		out, err = a.invoker.Run(ctx, spec)
	}
	res.Duration = out.Duration
	if err != nil {
		res.Error = err.Error()
		if tail := lastLine(out.Stderr); tail != "" {
			res.Error = fmt.Sprintf("%s: %s", res.Error, tail)
		}
		return res
	}

	parsed := parseOutput(out.Stdout)
	res.Success = true
	res.Output = parsed.Output
	res.Structured = parsed.Structured

	files := append([]string{}, parsed.Files...)
	files = append(files, a.extractor.Files(parsed.Output)...)
	if a.observer != nil {
		if observed, obsErr := a.observer.Changes(); obsErr == nil {
			files = append(files, observed...)
		}
	}
	res.Files = dedupe(files)

	if workflow.CapabilityFor(step.Task) == workflow.CapabilityReview {
		res.Suggestions = parsed.Suggestions
		if !parsed.Structured {
			res.Suggestions = CountSuggestions(parsed.Output)
		}
	}

	return res
}

func dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := items[:0]
	for _, item := range items {
		if item == "" || seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
