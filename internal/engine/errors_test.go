package engine

import (
	"errors"
	"strings"
	"testing"

	"github.com/bianoble/packinstall/internal/layout"
	"github.com/bianoble/packinstall/internal/lock"
)

func TestUnsupportedKindErrorMessage(t *testing.T) {
	err := &UnsupportedKindError{Artifact: "java-17", Kind: lock.KindManagedRuntime}
	if !strings.Contains(err.Error(), "'java-17'") || !strings.Contains(err.Error(), "provisioner") {
		t.Errorf("message should name the artifact and give guidance: %s", err)
	}

	other := &UnsupportedKindError{Artifact: "x", Kind: "plugin"}
	if !strings.Contains(other.Error(), "unsupported kind 'plugin'") {
		t.Errorf("unexpected message: %s", other)
	}
}

func TestChecksumMismatchErrorMessage(t *testing.T) {
	inner := errors.New("inner")
	err := &ChecksumMismatchError{Artifact: "lib", Algorithm: "sha1", Expected: "aaa", Actual: "bbb", Err: inner}
	if !strings.Contains(err.Error(), "sha1 bbb does not match expected aaa") {
		t.Errorf("unexpected message: %s", err)
	}
	if !errors.Is(err, inner) {
		t.Error("should unwrap to inner error")
	}

	sized := &ChecksumMismatchError{Artifact: "lib", ExpectedSize: 10, ActualSize: 4}
	if !strings.Contains(sized.Error(), "size 4 does not match expected 10") {
		t.Errorf("unexpected message: %s", sized)
	}
}

func TestArtifactErrorUnwrap(t *testing.T) {
	inner := errors.New("disk full")
	err := &ArtifactError{Artifact: "a", Op: "promote", Err: inner}
	if err.Error() != "artifact 'a': promote failed: disk full" {
		t.Errorf("unexpected message: %s", err)
	}
	if !errors.Is(err, inner) {
		t.Error("should unwrap")
	}
}

func TestPreflightRejectsUnknownKindAndBadPath(t *testing.T) {
	l := layout.New(t.TempDir())

	lf := &lock.Lockfile{Artifacts: []lock.Artifact{{Name: "p", Kind: "plugin", Path: "p.bin"}}}
	var uk *UnsupportedKindError
	if err := Preflight(l, lf); !errors.As(err, &uk) {
		t.Fatalf("expected UnsupportedKindError, got %v", err)
	}

	lf = &lock.Lockfile{Artifacts: []lock.Artifact{{Name: "evil", Kind: lock.KindAsset, Path: "../../etc/passwd"}}}
	if err := Preflight(l, lf); err == nil {
		t.Fatal("expected path error")
	}

	lf = &lock.Lockfile{Artifacts: []lock.Artifact{{Name: "ok", Kind: lock.KindAsset, Path: "assets/ok"}}}
	if err := Preflight(l, lf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
