// Package layout maps an instance root and its lockfile artifacts to
// on-disk locations.
//
// Instance layout:
//
//	<root>/
//	  pack/lock.json                 authoritative lockfile, read-only here
//	  .staging/pack-install/<path>   staged artifacts awaiting promotion
//	  .quarantine/<ts>-<name>        relocated corrupt files
//	  .rollback/<snapshot-id>/       materialized snapshots
//	  natives/<artifact>/            extracted native bundles
//	  <path>                         final artifact tree
package layout

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bianoble/packinstall/internal/lock"
	"github.com/bianoble/packinstall/internal/sandbox"
)

const (
	PackDir       = "pack"
	LockFileName  = "lock.json"
	StagingDir    = ".staging/pack-install"
	QuarantineDir = ".quarantine"
	RollbackDir   = ".rollback"
	NativesDir    = "natives"
)

// reserved top-level entries an artifact path may never land in.
var reserved = []string{PackDir, ".staging", QuarantineDir, RollbackDir, NativesDir}

// Layout resolves paths for a single instance.
type Layout struct {
	Root string
}

// New returns the layout for an instance rooted at root.
func New(root string) Layout {
	return Layout{Root: root}
}

// ForInstance maps an instance id to its root below base.
func ForInstance(base, instanceID string) (Layout, error) {
	id := strings.TrimSpace(instanceID)
	if id == "" {
		return Layout{}, fmt.Errorf("instance id is required")
	}
	if id != filepath.Base(id) || id == "." || id == ".." || strings.HasPrefix(id, ".") {
		return Layout{}, fmt.Errorf("invalid instance id '%s' — must be a single path segment not starting with '.'", instanceID)
	}
	root, err := sandbox.ValidatePath(base, id)
	if err != nil {
		return Layout{}, fmt.Errorf("instance '%s': %w", instanceID, err)
	}
	return Layout{Root: root}, nil
}

func (l Layout) LockPath() string       { return filepath.Join(l.Root, PackDir, LockFileName) }
func (l Layout) StagingRoot() string    { return filepath.Join(l.Root, filepath.FromSlash(StagingDir)) }
func (l Layout) QuarantineRoot() string { return filepath.Join(l.Root, QuarantineDir) }
func (l Layout) RollbackRoot() string   { return filepath.Join(l.Root, RollbackDir) }
func (l Layout) NativesRoot() string    { return filepath.Join(l.Root, NativesDir) }

// Resolve maps a lockfile-relative path to its final location, rejecting
// paths that escape the instance or collide with installer directories.
func (l Layout) Resolve(relPath string) (string, error) {
	native := filepath.FromSlash(relPath)
	if !filepath.IsLocal(native) {
		return "", fmt.Errorf("path '%s' is not a local relative path", relPath)
	}
	first := strings.SplitN(filepath.ToSlash(filepath.Clean(native)), "/", 2)[0]
	for _, r := range reserved {
		if first == r {
			return "", fmt.Errorf("path '%s' is inside the reserved '%s' directory", relPath, r)
		}
	}
	return sandbox.ValidatePath(l.Root, native)
}

// FinalPath returns where a validated artifact lives in the live tree.
func (l Layout) FinalPath(a lock.Artifact) (string, error) {
	p, err := l.Resolve(a.Path)
	if err != nil {
		return "", fmt.Errorf("artifact '%s': %w", a.Name, err)
	}
	return p, nil
}

// StagingPath returns the staging location mirroring FinalPath.
func (l Layout) StagingPath(a lock.Artifact) (string, error) {
	if _, err := l.Resolve(a.Path); err != nil {
		return "", fmt.Errorf("artifact '%s': %w", a.Name, err)
	}
	p, err := sandbox.ValidatePath(l.StagingRoot(), filepath.FromSlash(a.Path))
	if err != nil {
		return "", fmt.Errorf("artifact '%s': %w", a.Name, err)
	}
	return p, nil
}

// NativesPath returns the extraction directory for a native bundle.
func (l Layout) NativesPath(a lock.Artifact) (string, error) {
	return sandbox.ValidatePath(l.NativesRoot(), SanitizeName(a.Name))
}

// SanitizeName maps an artifact name onto a single safe filename segment.
func SanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := strings.Trim(b.String(), ".")
	if out == "" {
		return "artifact"
	}
	return out
}
