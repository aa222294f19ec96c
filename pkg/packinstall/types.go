package packinstall

import (
	"github.com/bianoble/packinstall/internal/engine"
	"github.com/bianoble/packinstall/internal/fetch"
	"github.com/bianoble/packinstall/internal/lock"
	"github.com/bianoble/packinstall/internal/metrics"
	"github.com/bianoble/packinstall/internal/promote"
	"github.com/bianoble/packinstall/internal/quarantine"
	"github.com/bianoble/packinstall/internal/rollback"
	"github.com/bianoble/packinstall/internal/snapshot"
)

// Type aliases re-export internal types as the public API.
// Users import "github.com/bianoble/packinstall/pkg/packinstall" and use
// packinstall.InstallResult, packinstall.Lockfile, etc.

type Lockfile = lock.Lockfile
type Artifact = lock.Artifact
type Kind = lock.Kind

type InstallResult = engine.InstallResult
type ArtifactAction = engine.ArtifactAction
type CheckResult = engine.CheckResult
type DriftEntry = engine.DriftEntry
type RollbackResult = rollback.Result
type Manifest = snapshot.Manifest
type QuarantineEntry = quarantine.Entry

type UnsupportedKindError = engine.UnsupportedKindError
type ChecksumMismatchError = engine.ChecksumMismatchError
type ArtifactError = engine.ArtifactError
type LegacyManifestError = snapshot.LegacyManifestError

type Fetcher = fetch.Fetcher
type FetchExpect = fetch.Expect
type FetchResult = fetch.Result
type Extractor = promote.Extractor
type Metrics = metrics.Metrics
