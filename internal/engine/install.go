package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/bianoble/packinstall/internal/cache"
	"github.com/bianoble/packinstall/internal/checksum"
	"github.com/bianoble/packinstall/internal/fetch"
	"github.com/bianoble/packinstall/internal/layout"
	"github.com/bianoble/packinstall/internal/lock"
	"github.com/bianoble/packinstall/internal/logging"
	"github.com/bianoble/packinstall/internal/metrics"
	"github.com/bianoble/packinstall/internal/plan"
	"github.com/bianoble/packinstall/internal/promote"
	"github.com/bianoble/packinstall/internal/quarantine"
	"github.com/bianoble/packinstall/internal/recovery"
	"github.com/bianoble/packinstall/internal/snapshot"
)

// Installer brings an instance's final tree in line with a lockfile.
// Callers must not run two installs for the same instance concurrently.
type Installer struct {
	Layout    layout.Layout
	Fetcher   fetch.Fetcher
	Cache     *cache.Cache // optional shared download cache
	Extractor promote.Extractor
	Metrics   metrics.Metrics
	Logger    *slog.Logger

	// ForceVerify re-hashes finals that already match on size and digest
	// through the verification path.
	ForceVerify bool

	// DisableSnapshots skips the post-install snapshot.
	DisableSnapshots bool

	// Now is used for quarantine and snapshot timestamps. Defaults to time.Now.
	Now func() time.Time
}

type stagedArtifact struct {
	artifact lock.Artifact
	staged   string
	final    string
}

// Install runs recovery, planning, staging, promotion and snapshotting
// for lf, strictly in lockfile order.
func (i *Installer) Install(ctx context.Context, lf *lock.Lockfile) (res *InstallResult, err error) {
	started := time.Now()
	runID := uuid.NewString()
	log := logging.Area(i.Logger, "install").With(slog.String("runId", runID))
	m := i.metrics()

	defer func() {
		status := "success"
		if err != nil {
			status = "failure"
		}
		m.IncRuns("install", status)
		m.ObserveRunDuration("install", time.Since(started).Seconds())
	}()

	if err := Preflight(i.Layout, lf); err != nil {
		log.Error("preflight failed", logging.Meta("error", err.Error()))
		return nil, err
	}

	res = &InstallResult{RunID: runID}
	log.Info("install started", logging.Meta(
		"packId", lf.PackID,
		"packVersion", lf.PackVersion,
		"targetId", lf.TargetID,
		"artifacts", len(lf.Artifacts),
	))

	scan, err := (&recovery.Scanner{Layout: i.Layout, Logger: i.Logger}).Scan(ctx, lf)
	if err != nil {
		return res, fmt.Errorf("scanning staging: %w", err)
	}

	entries, err := (&plan.Planner{Layout: i.Layout, ForceVerify: i.ForceVerify}).Plan(ctx, lf)
	if err != nil {
		return res, fmt.Errorf("planning install: %w", err)
	}
	counts := plan.Count(entries)
	log.Info("plan ready", logging.Meta(
		"needsInstall", counts[plan.NeedsInstall],
		"needsVerification", counts[plan.NeedsVerification],
		"satisfied", counts[plan.Satisfied],
	))

	store := quarantine.ForLayout(i.Layout)
	if i.Now != nil {
		store.Now = i.Now
	}

	var staged []stagedArtifact
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		a := e.Artifact

		switch e.Disposition {
		case plan.Satisfied:
			res.Skipped++
			res.record(a, "skipped")
			log.Debug("artifact satisfied", logging.Meta("artifact", a.Name))
			continue

		case plan.NeedsVerification:
			ok, err := i.verifyFinal(log, store, res, a, e.FinalPath)
			if err != nil {
				return res, err
			}
			if ok {
				continue
			}

		case plan.NeedsInstall:
		}

		path, err := i.stage(ctx, log, scan, res, a)
		if err != nil {
			return res, err
		}
		staged = append(staged, stagedArtifact{artifact: a, staged: path, final: e.FinalPath})
	}

	promoter := &promote.Promoter{
		Layout:     i.Layout,
		Quarantine: store,
		Extractor:  i.Extractor,
		Logger:     log,
	}
	for _, s := range staged {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		pr, err := promoter.Promote(ctx, s.artifact, s.staged, s.final)
		if pr.Quarantined != nil {
			res.Quarantined++
			res.record(s.artifact, "quarantined")
		}
		if err != nil {
			log.Error("promotion failed", logging.Meta("artifact", s.artifact.Name, "error", err.Error()))
			return res, &ArtifactError{Artifact: s.artifact.Name, Op: "promote", Err: err}
		}
		if pr.Outcome == promote.Unchanged {
			res.record(s.artifact, "unchanged")
			continue
		}
		res.Promoted++
		res.record(s.artifact, "promoted")
	}

	if !i.DisableSnapshots {
		w := &snapshot.Writer{Layout: i.Layout, Now: i.Now, Logger: log}
		id, err := w.Create(ctx, lf, lf.Installable())
		if err != nil {
			log.Warn("snapshot failed", logging.Meta("error", err.Error()))
		} else {
			res.SnapshotID = id
		}
	}

	if err := os.RemoveAll(i.Layout.StagingRoot()); err != nil {
		log.Warn("clearing staging failed", logging.Meta("error", err.Error()))
	}

	m.IncArtifacts("installed", res.Installed)
	m.IncArtifacts("verified", res.Verified)
	m.IncArtifacts("skipped", res.Skipped)
	m.IncArtifacts("promoted", res.Promoted)
	m.IncArtifacts("quarantined", res.Quarantined)

	log.Info("install complete", logging.Meta(
		"installed", res.Installed,
		"verified", res.Verified,
		"skipped", res.Skipped,
		"promoted", res.Promoted,
		"quarantined", res.Quarantined,
		"snapshotId", res.SnapshotID,
		"durationMs", time.Since(started).Milliseconds(),
	))
	return res, nil
}

// verifyFinal re-hashes a present final. It returns true when the final
// matches; a mismatching final is quarantined and must be staged again.
func (i *Installer) verifyFinal(log *slog.Logger, store *quarantine.Store, res *InstallResult, a lock.Artifact, final string) (bool, error) {
	obs, err := checksum.Verify(final, a.Checksum.Algorithm, a.Checksum.Value, a.Size)
	rec := recovery.Record{Artifact: a.Name, Expected: recovery.Expected(a), Observed: recovery.Observed(obs)}

	var mm *checksum.MismatchError
	switch {
	case err == nil:
		rec.Decision = recovery.SkipValid
		recovery.LogDecision(log, rec)
		res.Verified++
		res.record(a, "verified")
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	case errors.As(err, &mm):
	default:
		return false, &ArtifactError{Artifact: a.Name, Op: "verify", Err: err}
	}

	rec.Decision = recovery.QuarantineCorrupt
	recovery.LogDecision(log, rec)

	entry, qErr := store.Quarantine(final, a, quarantine.ReasonChecksumMismatch)
	if !quarantine.Moved(qErr) {
		// Promotion overwrites the corrupt final regardless.
		log.Warn("quarantine failed", logging.Meta("artifact", a.Name, "error", qErr.Error()))
		return false, nil
	}
	if qErr != nil {
		log.Warn("quarantine sidecar not written", logging.Meta("artifact", a.Name, "error", qErr.Error()))
	}
	res.Quarantined++
	res.record(a, "quarantined")
	log.Warn("quarantined", logging.Meta(
		"artifact", a.Name,
		"reason", entry.Reason,
		"quarantinePath", entry.QuarantinePath,
	))
	return false, nil
}

// stage places a verified copy of a in staging: a resumable staged file,
// a shared cache hit, or a fresh fetch, in that order.
func (i *Installer) stage(ctx context.Context, log *slog.Logger, scan *recovery.Result, res *InstallResult, a lock.Artifact) (string, error) {
	path, err := i.Layout.StagingPath(a)
	if err != nil {
		return "", &ArtifactError{Artifact: a.Name, Op: "stage", Err: err}
	}

	if scan.IsResumable(a.Name) {
		res.Installed++
		res.record(a, "resumed")
		log.Info("resuming staged artifact", logging.Meta("artifact", a.Name))
		return path, nil
	}

	if i.Cache != nil {
		hit, err := i.Cache.CopyTo(a.Checksum.Algorithm, a.Checksum.Value, a.Size, path)
		if err != nil {
			log.Warn("cache read failed", logging.Meta("artifact", a.Name, "error", err.Error()))
		}
		if hit {
			res.Installed++
			res.record(a, "cached")
			log.Info("staged from cache", logging.Meta("artifact", a.Name))
			return path, nil
		}
	}

	if i.Fetcher == nil {
		return "", &ArtifactError{Artifact: a.Name, Op: "fetch", Err: errors.New("no fetcher configured")}
	}

	exp := fetch.Expect{Size: a.Size, Algorithm: a.Checksum.Algorithm, Checksum: a.Checksum.Value}
	log.Info("fetching", logging.Meta("artifact", a.Name, "url", logging.RedactURL(a.URL)))
	fr, err := i.Fetcher.Fetch(ctx, a.URL, path, exp)
	if err != nil {
		_ = os.Remove(path)
		var mm *checksum.MismatchError
		if errors.As(err, &mm) {
			log.Error("fetched artifact failed verification", logging.Meta(
				"artifact", a.Name,
				"expected", checksum.Short(mm.Expected),
				"actual", checksum.Short(mm.Actual),
			))
			return "", &ChecksumMismatchError{
				Artifact:     a.Name,
				Algorithm:    a.Checksum.Algorithm,
				Expected:     mm.Expected,
				Actual:       mm.Actual,
				ExpectedSize: mm.ExpectedSize,
				ActualSize:   mm.ActualSize,
				Err:          err,
			}
		}
		return "", &ArtifactError{Artifact: a.Name, Op: "fetch", Err: err}
	}

	res.Installed++
	res.record(a, "fetched")
	if fr.Downloaded {
		i.metrics().AddFetchedBytes(fr.Size)
	}
	log.Info("fetched", logging.Meta("artifact", a.Name, "bytes", fr.Size, "downloaded", fr.Downloaded))

	if i.Cache != nil {
		if err := i.Cache.PutFile(a.Checksum.Algorithm, a.Checksum.Value, path); err != nil {
			log.Warn("cache write failed", logging.Meta("artifact", a.Name, "error", err.Error()))
		}
	}
	return path, nil
}

func (i *Installer) metrics() metrics.Metrics {
	if i.Metrics == nil {
		return metrics.Noop{}
	}
	return i.Metrics
}
