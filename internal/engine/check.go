package engine

import (
	"context"
	"errors"
	"io/fs"

	"github.com/bianoble/packinstall/internal/checksum"
	"github.com/bianoble/packinstall/internal/layout"
	"github.com/bianoble/packinstall/internal/lock"
)

// Checker verifies that final files match the lockfile without changing anything.
type Checker struct {
	Layout layout.Layout
}

// Check verifies final files against the lockfile.
// Returns Clean=true if everything matches.
func (c *Checker) Check(ctx context.Context, lf *lock.Lockfile) (*CheckResult, error) {
	result := &CheckResult{Clean: true}

	for _, a := range lf.Installable() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		final, err := c.Layout.FinalPath(a)
		if err != nil {
			return nil, err
		}

		obs, err := checksum.Verify(final, a.Checksum.Algorithm, a.Checksum.Value, a.Size)
		var mm *checksum.MismatchError
		switch {
		case err == nil:
		case errors.Is(err, fs.ErrNotExist):
			result.Missing = append(result.Missing, a.Path)
			result.Clean = false
		case errors.As(err, &mm):
			result.Drifted = append(result.Drifted, DriftEntry{
				Artifact: a.Name,
				Path:     a.Path,
				Expected: a.Checksum.Value,
				Actual:   obs.Digest,
			})
			result.Clean = false
		default:
			return nil, &ArtifactError{Artifact: a.Name, Op: "verify", Err: err}
		}
	}

	return result, nil
}
