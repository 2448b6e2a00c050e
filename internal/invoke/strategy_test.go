package invoke

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHeredocRoundTrip(t *testing.T) {
	inv := NewSubprocess(zap.NewNop())

	payload := "line one\nline 'with quotes'\n$HOME stays literal\n"
	res, err := inv.Run(context.Background(), Spec{
		Argv:    []string{"cat"},
		Payload: payload,
		Method:  MethodHeredoc,
		Timeout: 10 * time.Second,
	})
	require.NoError(t, err)
	assert.Equal(t, payload, res.Stdout, "payload delivered byte-for-byte")
}

func TestHeredocPayloadContainingDelimiter(t *testing.T) {
	inv := NewSubprocess(zap.NewNop())

	payload := "before\nORCH_EOF\nafter\n"
	res, err := inv.Run(context.Background(), Spec{
		Argv:    []string{"cat"},
		Payload: payload,
		Method:  MethodHeredoc,
		Timeout: 10 * time.Second,
	})
	require.NoError(t, err)
	assert.Equal(t, payload, res.Stdout)
}

func TestHeredocScriptDelimiterExtension(t *testing.T) {
	script := heredocScript([]string{"cat"}, "", "has ORCH_EOF and ORCH_EOF_X inside")
	assert.Contains(t, script, "<<'ORCH_EOF_X_X'")
	assert.NotContains(t, script, "<<'ORCH_EOF'\n")
}

func TestHeredocAppendsMissingNewline(t *testing.T) {
	inv := NewSubprocess(zap.NewNop())

	res, err := inv.Run(context.Background(), Spec{
		Argv:    []string{"cat"},
		Payload: "no trailing newline",
		Method:  MethodHeredoc,
		Timeout: 10 * time.Second,
	})
	require.NoError(t, err)
	assert.Equal(t, "no trailing newline\n", res.Stdout)
}

func TestShellQuote(t *testing.T) {
	assert.Equal(t, "''", shellQuote(""))
	assert.Equal(t, "'plain'", shellQuote("plain"))
	assert.Equal(t, `'it'\''s'`, shellQuote("it's"))
}

func TestPrepareUnknownMethod(t *testing.T) {
	_, cleanup, err := prepare(Spec{Argv: []string{"cat"}, Method: "carrier-pigeon"})
	cleanup()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "carrier-pigeon")
}

func TestPrepareDefaultsToStdin(t *testing.T) {
	prep, cleanup, err := prepare(Spec{Argv: []string{"cat"}, Payload: "p"})
	defer cleanup()
	require.NoError(t, err)
	assert.Equal(t, []string{"cat"}, prep.argv)
	assert.NotNil(t, prep.stdin)
}

func TestPrepareFileCleanupRemovesTempDir(t *testing.T) {
	prep, cleanup, err := prepare(Spec{Argv: []string{"cat"}, Payload: "p", Method: MethodFile})
	require.NoError(t, err)
	require.Len(t, prep.argv, 5)
	assert.Equal(t, "--input", prep.argv[1])

	inputPath := prep.argv[2]
	_, err = os.Stat(inputPath)
	require.NoError(t, err)

	cleanup()
	_, err = os.Stat(inputPath)
	assert.True(t, os.IsNotExist(err))
}

func TestPrepareArgWithoutPromptFlag(t *testing.T) {
	prep, cleanup, err := prepare(Spec{
		Argv:    []string{"codex", "exec"},
		Payload: "implement it",
		Method:  MethodArg,
	})
	defer cleanup()
	require.NoError(t, err)
	assert.Equal(t, []string{"codex", "exec", "implement it"}, prep.argv)
}

func TestHeredocScriptQuotesCommandWords(t *testing.T) {
	script := heredocScript([]string{"claude", "--print"}, "", "x")
	assert.True(t, strings.HasPrefix(script, "'claude' '--print' <<'"))
}
