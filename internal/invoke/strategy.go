package invoke

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// MaxArgPayload bounds what we are willing to put into a single argv element.
// Larger payloads must use the file method.
const MaxArgPayload = 100_000

type prepared struct {
	argv       []string
	stdin      io.Reader
	outputPath string
}

// prepare turns a Spec into the concrete argv and stdin for the chosen
// communication method. The returned cleanup removes any temp files and is
// safe to call on every path.
func prepare(spec Spec) (prepared, func(), error) {
	noop := func() {}

	switch spec.Method {
	case MethodStdin, "":
		return prepared{
			argv:  spec.Argv,
			stdin: strings.NewReader(spec.Payload),
		}, noop, nil

	case MethodArg:
		if len(spec.Payload) > MaxArgPayload {
			return prepared{}, noop, fmt.Errorf("%w: %d bytes", ErrInputTooLarge, len(spec.Payload))
		}
		argv := append([]string{}, spec.Argv...)
		if spec.PromptFlag != "" {
			argv = append(argv, spec.PromptFlag)
		}
		argv = append(argv, spec.Payload)
		return prepared{argv: argv}, noop, nil

	case MethodFile:
		dir, err := os.MkdirTemp("", "orchestrator-")
		if err != nil {
			return prepared{}, noop, fmt.Errorf("create temp dir: %w", err)
		}
		cleanup := func() { os.RemoveAll(dir) }

		inputPath := filepath.Join(dir, "input.txt")
		if err := os.WriteFile(inputPath, []byte(spec.Payload), 0o600); err != nil {
			cleanup()
			return prepared{}, noop, fmt.Errorf("write input file: %w", err)
		}
		outputPath := filepath.Join(dir, "output.txt")

		argv := append([]string{}, spec.Argv...)
		argv = append(argv, "--input", inputPath, "--output", outputPath)
		return prepared{argv: argv, outputPath: outputPath}, cleanup, nil

	case MethodHeredoc:
		script := heredocScript(spec.Argv, spec.PromptFlag, spec.Payload)
		return prepared{argv: []string{"bash", "-c", script}}, noop, nil

	default:
		return prepared{}, noop, fmt.Errorf("unknown communication method %q", spec.Method)
	}
}

// heredocScript builds a bash script feeding the payload to the command
// through a quoted heredoc. The delimiter is extended until it does not occur
// in the payload, and quoting it stops bash from expanding anything inside.
// Heredoc lines are newline-terminated, so a payload without a trailing
// newline is delivered with one appended; newline-terminated payloads arrive
// byte for byte.
func heredocScript(argv []string, promptFlag, payload string) string {
	delim := "ORCH_EOF"
	for strings.Contains(payload, delim) {
		delim += "_X"
	}

	words := make([]string, 0, len(argv)+1)
	for _, arg := range argv {
		words = append(words, shellQuote(arg))
	}
	if promptFlag != "" {
		words = append(words, shellQuote(promptFlag))
	}

	var b strings.Builder
	b.WriteString(strings.Join(words, " "))
	b.WriteString(" <<'")
	b.WriteString(delim)
	b.WriteString("'\n")
	b.WriteString(payload)
	if !strings.HasSuffix(payload, "\n") {
		b.WriteString("\n")
	}
	b.WriteString(delim)
	b.WriteString("\n")
	return b.String()
}

func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
