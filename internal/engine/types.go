package engine

import "github.com/bianoble/packinstall/internal/lock"

// ArtifactAction records what happened to a single artifact during install.
type ArtifactAction struct {
	Artifact string
	Path     string
	Action   string // "skipped", "verified", "quarantined", "resumed", "cached", "fetched", "promoted", "unchanged"
}

// InstallResult holds the outcome of an install run.
type InstallResult struct {
	RunID       string
	Installed   int
	Verified    int
	Skipped     int
	Promoted    int
	Quarantined int
	SnapshotID  string // empty when no snapshot was written
	Actions     []ArtifactAction
}

// DriftEntry represents a final file that differs from the lockfile.
type DriftEntry struct {
	Artifact string
	Path     string
	Expected string
	Actual   string
}

// CheckResult holds the outcome of a check operation.
type CheckResult struct {
	Clean   bool
	Drifted []DriftEntry
	Missing []string
}

func (r *InstallResult) record(a lock.Artifact, action string) {
	r.Actions = append(r.Actions, ArtifactAction{Artifact: a.Name, Path: a.Path, Action: action})
}
