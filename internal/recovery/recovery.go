// Package recovery inspects staging left behind by an interrupted install
// and decides which staged files can be reused.
package recovery

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/bianoble/packinstall/internal/checksum"
	"github.com/bianoble/packinstall/internal/layout"
	"github.com/bianoble/packinstall/internal/lock"
	"github.com/bianoble/packinstall/internal/logging"
)

// Decision is the outcome recorded for one artifact.
type Decision string

const (
	Resume            Decision = "resume"
	RedownloadCorrupt Decision = "redownload-corrupt"
	QuarantineCorrupt Decision = "quarantine-corrupt"
	SkipValid         Decision = "skip-valid"
)

// Authority names the source of truth for every decision.
const Authority = "lockfile"

// Evidence is the digest summary logged with a decision.
type Evidence struct {
	Algorithm  checksum.Algorithm `json:"algo"`
	Size       int64              `json:"size"`
	HashPrefix string             `json:"hashPrefix"`
}

// Record is a single decision and the evidence behind it.
type Record struct {
	Artifact string
	Decision Decision
	Expected Evidence
	Observed Evidence
}

// Expected builds the lockfile side of the evidence for a.
func Expected(a lock.Artifact) Evidence {
	return Evidence{
		Algorithm:  a.Checksum.Algorithm,
		Size:       a.Size,
		HashPrefix: checksum.Short(a.Checksum.Value),
	}
}

// Observed builds the on-disk side of the evidence.
func Observed(obs checksum.Observation) Evidence {
	return Evidence{
		Algorithm:  obs.Algorithm,
		Size:       obs.Size,
		HashPrefix: checksum.Short(obs.Digest),
	}
}

// LogDecision emits one decision record.
func LogDecision(log *slog.Logger, rec Record) {
	level := slog.LevelInfo
	if rec.Decision == RedownloadCorrupt || rec.Decision == QuarantineCorrupt {
		level = slog.LevelWarn
	}
	log.LogAttrs(context.Background(), level, "recovery decision",
		logging.Meta(
			slog.String("artifact", rec.Artifact),
			slog.String("decision", string(rec.Decision)),
			slog.String("authority", Authority),
			slog.Group("expected",
				slog.String("algo", string(rec.Expected.Algorithm)),
				slog.Int64("size", rec.Expected.Size),
				slog.String("hashPrefix", rec.Expected.HashPrefix)),
			slog.Group("observed",
				slog.String("algo", string(rec.Observed.Algorithm)),
				slog.Int64("size", rec.Observed.Size),
				slog.String("hashPrefix", rec.Observed.HashPrefix)),
		))
}

// Result lists the staged files that verified and may be promoted as-is.
type Result struct {
	Resumable map[string]bool // artifact name -> staged file is valid
	Records   []Record
}

// IsResumable reports whether the named artifact has a valid staged file.
func (r *Result) IsResumable(name string) bool {
	return r != nil && r.Resumable[name]
}

// Scanner validates staging against the lockfile. It never reads or
// writes the final tree.
type Scanner struct {
	Layout layout.Layout
	Logger *slog.Logger
}

// Scan walks every installable artifact in lockfile order. Valid staged
// files are marked resumable; corrupt ones are deleted so they are fetched
// again; missing ones are ignored.
func (s *Scanner) Scan(ctx context.Context, lf *lock.Lockfile) (*Result, error) {
	log := logging.Area(s.Logger, "recovery")
	res := &Result{Resumable: make(map[string]bool)}

	for _, a := range lf.Installable() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		staged, err := s.Layout.StagingPath(a)
		if err != nil {
			return nil, err
		}

		obs, err := checksum.Verify(staged, a.Checksum.Algorithm, a.Checksum.Value, a.Size)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}

		rec := Record{Artifact: a.Name, Expected: Expected(a), Observed: Observed(obs)}
		var mm *checksum.MismatchError
		switch {
		case err == nil:
			rec.Decision = Resume
			res.Resumable[a.Name] = true
		case errors.As(err, &mm):
			rec.Decision = RedownloadCorrupt
			if rmErr := os.Remove(staged); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
				return nil, fmt.Errorf("removing corrupt staged file for '%s': %w", a.Name, rmErr)
			}
		default:
			return nil, fmt.Errorf("inspecting staged file for '%s': %w", a.Name, err)
		}

		res.Records = append(res.Records, rec)
		LogDecision(log, rec)
	}

	return res, nil
}
