// Package quarantine relocates corrupt files out of the live tree,
// keeping them and a JSON description as evidence. Entries are never
// deleted by this module.
package quarantine

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bianoble/packinstall/internal/layout"
	"github.com/bianoble/packinstall/internal/lock"
	"github.com/bianoble/packinstall/internal/sandbox"
)

// ReasonChecksumMismatch is recorded when a file's digest differs from the lockfile.
const ReasonChecksumMismatch = "checksum-mismatch"

const (
	timestampFormat = "20060102T150405.000000000Z"
	sidecarExt      = ".json"
)

// Entry describes one quarantined file.
type Entry struct {
	OriginalName   string    `json:"originalName"`
	OriginalPath   string    `json:"originalPath"`
	QuarantinePath string    `json:"quarantinePath"`
	Reason         string    `json:"reason"`
	QuarantinedAt  time.Time `json:"quarantinedAt"`
}

// SidecarError reports a file that was moved into quarantine but whose
// sidecar could not be written. The evidence is in place; only its
// description is missing.
type SidecarError struct {
	Path string
	Err  error
}

func (e *SidecarError) Error() string {
	return fmt.Sprintf("writing quarantine sidecar %s: %v", e.Path, e.Err)
}

func (e *SidecarError) Unwrap() error {
	return e.Err
}

// Moved reports whether a Quarantine call that returned err relocated the file.
func Moved(err error) bool {
	var se *SidecarError
	return err == nil || errors.As(err, &se)
}

// Store manages the .quarantine directory of one instance.
type Store struct {
	Dir string
	Now func() time.Time

	writeSidecar func(path string, data []byte, perm fs.FileMode) error
}

// New returns a store rooted at dir.
func New(dir string) *Store {
	return &Store{Dir: dir, Now: time.Now}
}

// ForLayout returns the store for an instance.
func ForLayout(l layout.Layout) *Store {
	return New(l.QuarantineRoot())
}

// Quarantine moves path into the store and writes its sidecar.
// The file is renamed when possible, otherwise copied and the source
// removed on a best-effort basis. A *SidecarError means the file was
// moved and the returned entry is valid.
func (s *Store) Quarantine(path string, a lock.Artifact, reason string) (Entry, error) {
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return Entry{}, fmt.Errorf("creating quarantine directory: %w", err)
	}

	now := s.now().UTC()
	dest, err := s.destination(now, a.Name)
	if err != nil {
		return Entry{}, err
	}

	if err := os.Rename(path, dest); err != nil {
		if cpErr := sandbox.CopyFileAtomic(path, dest, 0644); cpErr != nil {
			return Entry{}, fmt.Errorf("quarantining %s: %w", path, cpErr)
		}
		_ = os.Remove(path)
	}

	entry := Entry{
		OriginalName:   a.Name,
		OriginalPath:   path,
		QuarantinePath: dest,
		Reason:         reason,
		QuarantinedAt:  now,
	}
	sidecar := dest + sidecarExt
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return entry, &SidecarError{Path: sidecar, Err: err}
	}
	write := s.writeSidecar
	if write == nil {
		write = sandbox.WriteFileAtomic
	}
	if err := write(sidecar, append(data, '\n'), 0644); err != nil {
		return entry, &SidecarError{Path: sidecar, Err: err}
	}
	if err := sandbox.SyncDir(s.Dir); err != nil {
		return entry, &SidecarError{Path: sidecar, Err: err}
	}
	return entry, nil
}

// destination picks an unused <timestamp>-<name> path. Neither the path,
// its sidecar, nor the file it would be a sidecar of may exist.
func (s *Store) destination(now time.Time, name string) (string, error) {
	base := now.Format(timestampFormat) + "-" + layout.SanitizeName(name)
	candidate := filepath.Join(s.Dir, base)
	for i := 1; ; i++ {
		free, err := s.free(candidate)
		if err != nil {
			return "", err
		}
		if free {
			return candidate, nil
		}
		candidate = filepath.Join(s.Dir, fmt.Sprintf("%s.%d", base, i))
	}
}

func (s *Store) free(candidate string) (bool, error) {
	paths := []string{candidate, candidate + sidecarExt}
	if data, ok := strings.CutSuffix(candidate, sidecarExt); ok {
		paths = append(paths, data)
	}
	for _, p := range paths {
		_, err := os.Lstat(p)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return false, fmt.Errorf("checking quarantine path: %w", err)
		}
		return false, nil
	}
	return true, nil
}

// List returns the recorded entries sorted by quarantine file name.
// Files without a readable sidecar are reported with what can be inferred.
func (s *Store) List() ([]Entry, error) {
	dirEntries, err := os.ReadDir(s.Dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading quarantine directory: %w", err)
	}

	files := make(map[string]bool, len(dirEntries))
	for _, de := range dirEntries {
		if !de.IsDir() {
			files[de.Name()] = true
		}
	}

	var out []Entry
	for _, de := range dirEntries {
		name := de.Name()
		if de.IsDir() || strings.HasPrefix(name, ".") || isSidecar(name, files) {
			continue
		}
		path := filepath.Join(s.Dir, name)
		entry, err := readSidecar(path + sidecarExt)
		if err != nil {
			entry = Entry{QuarantinePath: path}
		}
		out = append(out, entry)
	}

	sort.Slice(out, func(i, j int) bool {
		return filepath.Base(out[i].QuarantinePath) < filepath.Base(out[j].QuarantinePath)
	})
	return out, nil
}

// isSidecar reports whether name describes another file in the directory.
// Quarantined artifacts may themselves be named *.json.
func isSidecar(name string, files map[string]bool) bool {
	data, ok := strings.CutSuffix(name, sidecarExt)
	return ok && files[data]
}

func readSidecar(path string) (Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Entry{}, err
	}
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return Entry{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	return e, nil
}

func (s *Store) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}
