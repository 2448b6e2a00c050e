package invoke

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrTimeout reports that the subprocess exceeded its deadline and was killed.
	ErrTimeout = errors.New("command timed out")
	// ErrCommandNotFound reports that the agent binary is not on PATH.
	ErrCommandNotFound = errors.New("command not found")
	// ErrInputTooLarge reports a payload too big to pass as an argv element.
	ErrInputTooLarge = errors.New("input too large for argument delivery")
)

type Method string

const (
	MethodStdin   Method = "stdin"
	MethodFile    Method = "file"
	MethodArg     Method = "arg"
	MethodHeredoc Method = "heredoc"
)

// Spec describes one agent subprocess invocation: the command line, the task
// payload, and how the payload travels to the process.
type Spec struct {
	Argv       []string
	Payload    string
	Method     Method
	PromptFlag string
	Dir        string
	Env        map[string]string
	Timeout    time.Duration
}

type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

type Invoker interface {
	Run(ctx context.Context, spec Spec) (Result, error)
}

// Subprocess runs agent commands via os/exec, delivering the payload with
// the Spec's communication method.
type Subprocess struct {
	log *zap.Logger
}

func NewSubprocess(log *zap.Logger) *Subprocess {
	if log == nil {
		log = zap.NewNop()
	}
	return &Subprocess{log: log}
}

func (s *Subprocess) Run(ctx context.Context, spec Spec) (Result, error) {
	if len(spec.Argv) == 0 {
		return Result{}, fmt.Errorf("command argv required")
	}

	if _, err := exec.LookPath(spec.Argv[0]); err != nil {
		return Result{}, fmt.Errorf("%w: %s", ErrCommandNotFound, spec.Argv[0])
	}

	prep, cleanup, err := prepare(spec)
	if err != nil {
		return Result{}, err
	}
	defer cleanup()

	runCtx := ctx
	var cancel context.CancelFunc
	if spec.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, spec.Timeout)
		defer cancel()
	}

	start := time.Now()
	cmd := exec.CommandContext(runCtx, prep.argv[0], prep.argv[1:]...)
	cmd.WaitDelay = 3 * time.Second
	if spec.Dir != "" {
		cmd.Dir = spec.Dir
	}
	if len(spec.Env) > 0 {
		cmd.Env = append(os.Environ(), envSlice(spec.Env)...)
	}
	if prep.stdin != nil {
		cmd.Stdin = prep.stdin
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	duration := time.Since(start)

	res := Result{
		ExitCode: exitCode(runErr),
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: duration,
	}

	// The file method lets the agent write its answer to the output path
	// instead of stdout.
	if prep.outputPath != "" {
		if data, readErr := os.ReadFile(prep.outputPath); readErr == nil && len(data) > 0 {
			res.Stdout = string(data)
		}
	}

	if runErr != nil {
		if runCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			s.log.Warn("agent command timed out",
				zap.String("command", spec.Argv[0]),
				zap.Duration("timeout", spec.Timeout))
			return res, fmt.Errorf("%w after %s: %s", ErrTimeout, spec.Timeout, spec.Argv[0])
		}
		if errors.Is(runErr, exec.ErrNotFound) {
			return res, fmt.Errorf("%w: %s", ErrCommandNotFound, spec.Argv[0])
		}
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			return res, fmt.Errorf("command %s exited with code %d", spec.Argv[0], res.ExitCode)
		}
		return res, fmt.Errorf("run command %s: %w", spec.Argv[0], runErr)
	}

	return res, nil
}

func envSlice(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for key, value := range env {
		out = append(out, fmt.Sprintf("%s=%s", key, value))
	}
	return out
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
