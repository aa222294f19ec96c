package engine

import (
	"github.com/bianoble/packinstall/internal/layout"
	"github.com/bianoble/packinstall/internal/lock"
)

// Preflight rejects lockfiles the installer cannot act on, before any
// file is read or written.
func Preflight(l layout.Layout, lf *lock.Lockfile) error {
	for _, a := range lf.Artifacts {
		switch a.Kind {
		case lock.KindManagedRuntime:
			return &UnsupportedKindError{Artifact: a.Name, Kind: a.Kind}
		case lock.KindVersionDescriptor, lock.KindPrimaryBinary, lock.KindAssetIndex,
			lock.KindAsset, lock.KindLibrary, lock.KindNativeBundle:
		default:
			return &UnsupportedKindError{Artifact: a.Name, Kind: a.Kind}
		}

		if _, err := l.FinalPath(a); err != nil {
			return err
		}
		if _, err := l.StagingPath(a); err != nil {
			return err
		}
	}
	return nil
}
