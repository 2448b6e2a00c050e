package workspace

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestTrackerDetectsCreatedAndModifiedFiles(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "main.go", "package main")
	write(t, dir, "lib/util.go", "package lib")

	tr := NewTracker(dir)
	before, err := tr.Snapshot()
	require.NoError(t, err)

	write(t, dir, "new.go", "package main")
	write(t, dir, "main.go", "package main // changed")
	// force a distinct mtime even on coarse filesystems
	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "main.go"), future, future))

	after, err := tr.Snapshot()
	require.NoError(t, err)

	assert.Equal(t, []string{"main.go", "new.go"}, after.Diff(before))
}

func TestTrackerNoChanges(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "a.txt", "a")

	tr := NewTracker(dir)
	before, err := tr.Snapshot()
	require.NoError(t, err)
	after, err := tr.Snapshot()
	require.NoError(t, err)

	assert.Empty(t, after.Diff(before))
}

func TestTrackerMissingRoot(t *testing.T) {
	tr := NewTracker(filepath.Join(t.TempDir(), "does-not-exist-yet"))
	snap, err := tr.Snapshot()
	require.NoError(t, err)
	assert.Empty(t, snap)
}

func TestTrackerSkipsGitDir(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, ".git/HEAD", "ref: refs/heads/main")
	write(t, dir, "code.go", "package code")

	tr := NewTracker(dir)
	snap, err := tr.Snapshot()
	require.NoError(t, err)

	assert.Contains(t, snap, "code.go")
	assert.NotContains(t, snap, ".git/HEAD")
}
