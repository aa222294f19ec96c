// Package plan decides what each artifact of a lockfile needs.
package plan

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/bianoble/packinstall/internal/checksum"
	"github.com/bianoble/packinstall/internal/layout"
	"github.com/bianoble/packinstall/internal/lock"
)

// Disposition is the planned action for one artifact.
type Disposition string

const (
	NeedsInstall      Disposition = "needs-install"
	NeedsVerification Disposition = "needs-verification"
	Satisfied         Disposition = "satisfied"
)

// Entry pairs an artifact with its disposition.
type Entry struct {
	Artifact    lock.Artifact
	Disposition Disposition
	FinalPath   string
}

// Planner compares the final tree against the lockfile.
type Planner struct {
	Layout layout.Layout

	// ForceVerify routes every present final through verification.
	ForceVerify bool
}

// Plan returns one entry per installable artifact, in lockfile order.
// Managed runtimes never appear.
func (p *Planner) Plan(ctx context.Context, lf *lock.Lockfile) ([]Entry, error) {
	artifacts := lf.Installable()
	entries := make([]Entry, 0, len(artifacts))

	for _, a := range artifacts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		final, err := p.Layout.FinalPath(a)
		if err != nil {
			return nil, err
		}
		e := Entry{Artifact: a, FinalPath: final}

		_, err = checksum.Verify(final, a.Checksum.Algorithm, a.Checksum.Value, a.Size)
		var mm *checksum.MismatchError
		switch {
		case errors.Is(err, fs.ErrNotExist):
			e.Disposition = NeedsInstall
		case errors.As(err, &mm):
			e.Disposition = NeedsVerification
		case err != nil:
			return nil, fmt.Errorf("planning '%s': %w", a.Name, err)
		case p.ForceVerify:
			e.Disposition = NeedsVerification
		default:
			e.Disposition = Satisfied
		}

		entries = append(entries, e)
	}

	return entries, nil
}

// Count tallies entries per disposition.
func Count(entries []Entry) map[Disposition]int {
	out := make(map[Disposition]int, 3)
	for _, e := range entries {
		out[e.Disposition]++
	}
	return out
}
