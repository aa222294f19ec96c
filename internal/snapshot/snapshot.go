// Package snapshot materializes the validated artifact set after a
// successful install so it can be restored later.
//
// A snapshot lives at .rollback/<id>/ and holds manifest.json plus a copy
// of every artifact under files/<relative path>. It is built in
// .rollback/.build-<id> and renamed into place once complete, so a
// snapshot directory without the build prefix is always whole.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bianoble/packinstall/internal/checksum"
	"github.com/bianoble/packinstall/internal/layout"
	"github.com/bianoble/packinstall/internal/lock"
	"github.com/bianoble/packinstall/internal/logging"
	"github.com/bianoble/packinstall/internal/sandbox"
)

const (
	idTimeFormat = "20060102T150405.000000000Z"
	manifestName = "manifest.json"
	filesDir     = "files"
	buildPrefix  = ".build-"
)

// ErrNoSnapshots is returned when an instance has no usable snapshot.
var ErrNoSnapshots = errors.New("no snapshots available")

// NewID builds a snapshot id whose lexical order is chronological.
func NewID(now time.Time, targetID string) string {
	return now.UTC().Format(idTimeFormat) + "-" + layout.SanitizeName(targetID)
}

// Writer creates snapshots for one instance.
type Writer struct {
	Layout layout.Layout
	Now    func() time.Time
	Logger *slog.Logger
}

// Create copies every validated artifact from the final tree into a new
// snapshot and returns its id. On failure nothing is left behind.
func (w *Writer) Create(ctx context.Context, lf *lock.Lockfile, validated []lock.Artifact) (id string, err error) {
	log := logging.Area(w.Logger, "snapshot")
	now := time.Now
	if w.Now != nil {
		now = w.Now
	}
	created := now().UTC()
	id = NewID(created, lf.TargetID)

	root := w.Layout.RollbackRoot()
	build := filepath.Join(root, buildPrefix+id)
	dest := filepath.Join(root, id)

	if _, statErr := os.Stat(dest); statErr == nil {
		return "", fmt.Errorf("snapshot %s already exists", id)
	}
	if err := os.MkdirAll(build, 0755); err != nil {
		return "", fmt.Errorf("creating snapshot build directory: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.RemoveAll(build)
		}
	}()

	m := &Manifest{
		SchemaVersion: SchemaVersion,
		SnapshotID:    id,
		CreatedAt:     created,
		TargetID:      lf.TargetID,
		PackID:        lf.PackID,
		PackVersion:   lf.PackVersion,
		Authority:     Authority,
		Artifacts:     make([]Entry, 0, len(validated)),
	}

	for _, a := range validated {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		entry, err := w.capture(build, a)
		if err != nil {
			return "", fmt.Errorf("snapshot %s: artifact '%s': %w", id, a.Name, err)
		}
		m.Artifacts = append(m.Artifacts, entry)
	}
	m.ArtifactCount = len(m.Artifacts)

	// Manifest last: its presence marks the build complete.
	data, err := Encode(m)
	if err != nil {
		return "", err
	}
	if err := sandbox.SafeWrite(build, manifestName, data, 0644); err != nil {
		return "", fmt.Errorf("writing manifest: %w", err)
	}

	if err := os.Rename(build, dest); err != nil {
		return "", fmt.Errorf("publishing snapshot %s: %w", id, err)
	}
	if err := sandbox.SyncDir(root); err != nil {
		return "", err
	}

	log.Info("snapshot created", logging.Meta("snapshotId", id, "artifactCount", m.ArtifactCount))
	return id, nil
}

func (w *Writer) capture(build string, a lock.Artifact) (Entry, error) {
	final, err := w.Layout.FinalPath(a)
	if err != nil {
		return Entry{}, err
	}
	dst, err := sandbox.ValidatePath(filepath.Join(build, filesDir), filepath.FromSlash(a.Path))
	if err != nil {
		return Entry{}, err
	}
	if err := sandbox.CopyFileAtomic(final, dst, 0644); err != nil {
		return Entry{}, err
	}
	obs, err := checksum.Verify(dst, a.Checksum.Algorithm, a.Checksum.Value, a.Size)
	if err != nil {
		return Entry{}, err
	}
	return Entry{
		LogicalName:  a.Name,
		Kind:         a.Kind,
		RelativePath: a.Path,
		Checksum:     a.Checksum,
		Size:         obs.Size,
	}, nil
}

// Store reads the snapshots of one instance.
type Store struct {
	Layout layout.Layout
}

// List returns snapshot ids oldest first. In-progress builds are skipped.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.Layout.RollbackRoot())
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading snapshots: %w", err)
	}
	var ids []string
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		ids = append(ids, e.Name())
	}
	sort.Strings(ids)
	return ids, nil
}

// Load reads and validates the manifest of snapshot id.
func (s *Store) Load(id string) (*Manifest, error) {
	dir, err := s.dir(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(dir, manifestName))
	if err != nil {
		return nil, fmt.Errorf("reading snapshot %s: %w", id, err)
	}
	m, err := Decode(id, data)
	if err != nil {
		return nil, err
	}
	for _, e := range m.Artifacts {
		if !filepath.IsLocal(filepath.FromSlash(e.RelativePath)) {
			return nil, fmt.Errorf("snapshot %s: entry '%s' has unsafe path '%s'", id, e.LogicalName, e.RelativePath)
		}
	}
	return m, nil
}

// Latest returns the newest snapshot whose manifest loads.
func (s *Store) Latest() (*Manifest, error) {
	ids, err := s.List()
	if err != nil {
		return nil, err
	}
	for i := len(ids) - 1; i >= 0; i-- {
		if m, err := s.Load(ids[i]); err == nil {
			return m, nil
		}
	}
	return nil, ErrNoSnapshots
}

// FilePath returns where snapshot id keeps its copy of relPath.
func (s *Store) FilePath(id, relPath string) (string, error) {
	dir, err := s.dir(id)
	if err != nil {
		return "", err
	}
	return sandbox.ValidatePath(filepath.Join(dir, filesDir), filepath.FromSlash(relPath))
}

func (s *Store) dir(id string) (string, error) {
	if id == "" || id != filepath.Base(id) || strings.HasPrefix(id, ".") {
		return "", fmt.Errorf("invalid snapshot id '%s'", id)
	}
	return filepath.Join(s.Layout.RollbackRoot(), id), nil
}
