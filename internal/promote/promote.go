// Package promote commits staged artifacts into the live tree.
package promote

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/bianoble/packinstall/internal/checksum"
	"github.com/bianoble/packinstall/internal/layout"
	"github.com/bianoble/packinstall/internal/lock"
	"github.com/bianoble/packinstall/internal/logging"
	"github.com/bianoble/packinstall/internal/quarantine"
	"github.com/bianoble/packinstall/internal/sandbox"
)

// Outcome reports what a promotion did to the final path.
type Outcome string

const (
	// Committed: no final existed; the staged file now does.
	Committed Outcome = "committed"
	// Replaced: an invalid final was quarantined and overwritten.
	Replaced Outcome = "replaced"
	// Unchanged: the final already matched; the staged copy was discarded.
	Unchanged Outcome = "unchanged"
)

// Result is the outcome of one promotion. Quarantined is set when an
// invalid final was moved aside before being replaced.
type Result struct {
	Outcome     Outcome
	Quarantined *quarantine.Entry
}

// Extractor unpacks an archive into destDir.
type Extractor interface {
	Extract(ctx context.Context, archive, destDir string) error
}

// Promoter moves verified staged files to their final paths.
type Promoter struct {
	Layout     layout.Layout
	Quarantine *quarantine.Store
	Extractor  Extractor
	Logger     *slog.Logger

	rename func(oldpath, newpath string) error
}

// Promote commits staged over final. Each final is replaced in a single
// rename so readers see either the old or the new file, never a partial
// one.
func (p *Promoter) Promote(ctx context.Context, a lock.Artifact, staged, final string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	log := logging.Area(p.Logger, "promote")

	res := Result{Outcome: Committed}
	_, err := checksum.Verify(final, a.Checksum.Algorithm, a.Checksum.Value, a.Size)
	var mm *checksum.MismatchError
	switch {
	case err == nil:
		if rmErr := os.Remove(staged); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			log.Warn("discarding staged copy failed", logging.Meta("artifact", a.Name, "error", rmErr.Error()))
		}
		res.Outcome = Unchanged
	case errors.Is(err, fs.ErrNotExist):
	case errors.As(err, &mm):
		res.Outcome = Replaced
		res.Quarantined = p.quarantineFinal(log, a, final)
	default:
		return Result{}, fmt.Errorf("inspecting final path: %w", err)
	}

	if res.Outcome != Unchanged {
		if err := p.commit(staged, final); err != nil {
			return res, err
		}
	}

	if err := p.postProcess(ctx, a, final, res.Outcome); err != nil {
		return res, err
	}

	log.Info("promoted", logging.Meta("artifact", a.Name, "outcome", string(res.Outcome), "path", a.Path))
	return res, nil
}

// quarantineFinal is best effort: failure leaves the file for the commit
// to overwrite. It returns the entry when the file was moved.
func (p *Promoter) quarantineFinal(log *slog.Logger, a lock.Artifact, final string) *quarantine.Entry {
	if p.Quarantine == nil {
		return nil
	}
	entry, err := p.Quarantine.Quarantine(final, a, quarantine.ReasonChecksumMismatch)
	if !quarantine.Moved(err) {
		log.Warn("quarantine failed, overwriting", logging.Meta("artifact", a.Name, "error", err.Error()))
		return nil
	}
	if err != nil {
		log.Warn("quarantine sidecar not written", logging.Meta("artifact", a.Name, "error", err.Error()))
	}
	log.Warn("quarantined corrupt final", logging.Meta("artifact", a.Name, "quarantinePath", entry.QuarantinePath))
	return &entry
}

func (p *Promoter) commit(staged, final string) error {
	dir := filepath.Dir(final)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	rename := p.rename
	if rename == nil {
		rename = os.Rename
	}
	if err := rename(staged, final); err != nil {
		// Typically a cross-device link; copy through a sibling temp instead.
		if cpErr := sandbox.CopyFileAtomic(staged, final, 0644); cpErr != nil {
			return fmt.Errorf("promoting to %s: rename: %v; copy: %w", final, err, cpErr)
		}
		_ = os.Remove(staged)
		return nil
	}
	return sandbox.SyncDir(dir)
}

func (p *Promoter) postProcess(ctx context.Context, a lock.Artifact, final string, outcome Outcome) error {
	switch a.Kind {
	case lock.KindNativeBundle:
		dest, err := p.Layout.NativesPath(a)
		if err != nil {
			return err
		}
		if outcome == Unchanged {
			if _, err := os.Stat(dest); err == nil {
				return nil
			}
		}
		if p.Extractor == nil {
			return fmt.Errorf("no extractor configured for native bundle '%s'", a.Name)
		}
		if err := p.Extractor.Extract(ctx, final, dest); err != nil {
			return fmt.Errorf("extracting native bundle '%s': %w", a.Name, err)
		}
		return nil
	case lock.KindVersionDescriptor, lock.KindPrimaryBinary, lock.KindAssetIndex,
		lock.KindAsset, lock.KindLibrary:
		return nil
	case lock.KindManagedRuntime:
		return fmt.Errorf("artifact '%s': managed runtimes are not promoted", a.Name)
	default:
		return fmt.Errorf("artifact '%s': unknown kind '%s'", a.Name, a.Kind)
	}
}
