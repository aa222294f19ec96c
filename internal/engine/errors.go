package engine

import (
	"fmt"

	"github.com/bianoble/packinstall/internal/checksum"
	"github.com/bianoble/packinstall/internal/lock"
)

// UnsupportedKindError is returned before any I/O when the lockfile names
// an artifact kind this installer cannot handle.
type UnsupportedKindError struct {
	Artifact string
	Kind     lock.Kind
}

func (e *UnsupportedKindError) Error() string {
	if e.Kind == lock.KindManagedRuntime {
		return fmt.Sprintf("artifact '%s' has kind '%s', which this installer does not handle — "+
			"install the runtime with its own provisioner and remove it from the lockfile passed here", e.Artifact, e.Kind)
	}
	return fmt.Sprintf("artifact '%s' has unsupported kind '%s'", e.Artifact, e.Kind)
}

// ChecksumMismatchError is returned when freshly fetched bytes do not match
// the lockfile. It is fatal and not retried.
type ChecksumMismatchError struct {
	Artifact     string
	Algorithm    checksum.Algorithm
	Expected     string
	Actual       string
	ExpectedSize int64
	ActualSize   int64
	Err          error
}

func (e *ChecksumMismatchError) Error() string {
	if e.ExpectedSize > 0 && e.ExpectedSize != e.ActualSize {
		return fmt.Sprintf("artifact '%s': fetched size %d does not match expected %d", e.Artifact, e.ActualSize, e.ExpectedSize)
	}
	return fmt.Sprintf("artifact '%s': fetched %s %s does not match expected %s", e.Artifact, e.Algorithm, e.Actual, e.Expected)
}

func (e *ChecksumMismatchError) Unwrap() error {
	return e.Err
}

// ArtifactError represents an I/O failure while handling one artifact.
type ArtifactError struct {
	Artifact string
	Op       string // "stage", "fetch", "verify", "promote"
	Err      error
}

func (e *ArtifactError) Error() string {
	return fmt.Sprintf("artifact '%s': %s failed: %s", e.Artifact, e.Op, e.Err)
}

func (e *ArtifactError) Unwrap() error {
	return e.Err
}
