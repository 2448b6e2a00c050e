package workspace

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Fingerprint identifies one file version by its modification time and size.
type Fingerprint struct {
	ModTime time.Time
	Size    int64
}

type Snapshot map[string]Fingerprint

// Tracker observes which files an agent subprocess touched by comparing
// directory snapshots taken before and after the run.
type Tracker struct {
	root string
	last Snapshot
}

func NewTracker(root string) *Tracker {
	return &Tracker{root: root}
}

// Begin takes the before snapshot for a following Changes call.
func (t *Tracker) Begin() error {
	snap, err := t.Snapshot()
	if err != nil {
		return err
	}
	t.last = snap
	return nil
}

// Changes reports the files created or modified since Begin.
func (t *Tracker) Changes() ([]string, error) {
	after, err := t.Snapshot()
	if err != nil {
		return nil, err
	}
	return after.Diff(t.last), nil
}

// Snapshot walks the workspace and records a fingerprint per regular file.
// Paths are relative to the root with forward slashes. A missing root yields
// an empty snapshot, not an error: the agent may create the directory itself.
func (t *Tracker) Snapshot() (Snapshot, error) {
	snap := make(Snapshot)
	if _, err := os.Stat(t.root); os.IsNotExist(err) {
		return snap, nil
	}

	err := filepath.WalkDir(t.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if skipDir(d.Name()) && path != t.root {
				return filepath.SkipDir
			}
			return nil
		}
		info, err := d.Info()
		if err != nil {
			// File vanished between walk and stat.
			return nil
		}
		rel, err := filepath.Rel(t.root, path)
		if err != nil {
			return err
		}
		snap[filepath.ToSlash(rel)] = Fingerprint{ModTime: info.ModTime(), Size: info.Size()}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// Diff returns the paths created or changed since the before snapshot,
// sorted for stable output.
func (after Snapshot) Diff(before Snapshot) []string {
	var changed []string
	for path, fp := range after {
		prev, ok := before[path]
		if !ok || prev.ModTime != fp.ModTime || prev.Size != fp.Size {
			changed = append(changed, path)
		}
	}
	sort.Strings(changed)
	return changed
}

func skipDir(name string) bool {
	return name == ".git" || strings.HasPrefix(name, ".orchestrator")
}
