// Package rollback restores the final tree from a snapshot.
package rollback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bianoble/packinstall/internal/checksum"
	"github.com/bianoble/packinstall/internal/layout"
	"github.com/bianoble/packinstall/internal/lock"
	"github.com/bianoble/packinstall/internal/logging"
	"github.com/bianoble/packinstall/internal/promote"
	"github.com/bianoble/packinstall/internal/sandbox"
	"github.com/bianoble/packinstall/internal/snapshot"
)

// Result summarizes a completed rollback.
type Result struct {
	SnapshotID    string
	RestoredCount int
}

// Executor restores snapshots for one instance. It never writes the
// lockfile or the snapshot being restored.
type Executor struct {
	Layout layout.Layout
	Logger *slog.Logger

	// Extractor re-unpacks restored native bundles into natives/<name>.
	Extractor promote.Extractor
}

type restoreItem struct {
	entry    snapshot.Entry
	artifact lock.Artifact
	source   string
	final    string
}

// Rollback restores snapshotID, or the newest valid snapshot when empty.
// Every snapshot file is verified before the first final is touched.
func (e *Executor) Rollback(ctx context.Context, snapshotID string) (*Result, error) {
	log := logging.Area(e.Logger, "rollback")
	store := &snapshot.Store{Layout: e.Layout}

	var (
		m   *snapshot.Manifest
		err error
	)
	if snapshotID == "" {
		m, err = store.Latest()
	} else {
		m, err = store.Load(snapshotID)
	}
	if err != nil {
		return nil, err
	}

	items := make([]restoreItem, 0, len(m.Artifacts))
	for _, entry := range m.Artifacts {
		a := lock.Artifact{Name: entry.LogicalName, Kind: entry.Kind, Path: entry.RelativePath, Checksum: entry.Checksum, Size: entry.Size}
		src, err := store.FilePath(m.SnapshotID, entry.RelativePath)
		if err != nil {
			return nil, fmt.Errorf("snapshot %s: %w", m.SnapshotID, err)
		}
		if _, err := checksum.Verify(src, entry.Checksum.Algorithm, entry.Checksum.Value, entry.Size); err != nil {
			return nil, fmt.Errorf("snapshot %s is not restorable: entry '%s': %w", m.SnapshotID, entry.LogicalName, err)
		}
		final, err := e.Layout.FinalPath(a)
		if err != nil {
			return nil, fmt.Errorf("snapshot %s: %w", m.SnapshotID, err)
		}
		items = append(items, restoreItem{entry: entry, artifact: a, source: src, final: final})
	}

	res := &Result{SnapshotID: m.SnapshotID}
	for _, it := range items {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := sandbox.CopyFileAtomic(it.source, it.final, 0644); err != nil {
			return res, fmt.Errorf("restoring '%s': %w", it.entry.LogicalName, err)
		}
		if _, err := checksum.Verify(it.final, it.entry.Checksum.Algorithm, it.entry.Checksum.Value, it.entry.Size); err != nil {
			return res, fmt.Errorf("restored '%s' failed verification: %w", it.entry.LogicalName, err)
		}
		res.RestoredCount++
		log.Debug("restored", logging.Meta("artifact", it.entry.LogicalName, "path", it.entry.RelativePath))

		if it.artifact.Kind == lock.KindNativeBundle {
			if err := e.extract(ctx, it.artifact, it.final); err != nil {
				return res, err
			}
			log.Debug("natives extracted", logging.Meta("artifact", it.entry.LogicalName))
		}
	}

	log.Info("rollback complete", logging.Meta("snapshotId", res.SnapshotID, "restored", res.RestoredCount))
	return res, nil
}

func (e *Executor) extract(ctx context.Context, a lock.Artifact, archive string) error {
	if e.Extractor == nil {
		return errors.New("no extractor configured for native bundle '" + a.Name + "'")
	}
	dest, err := e.Layout.NativesPath(a)
	if err != nil {
		return err
	}
	if err := e.Extractor.Extract(ctx, archive, dest); err != nil {
		return fmt.Errorf("extracting restored native bundle '%s': %w", a.Name, err)
	}
	return nil
}
