// Package extract unpacks native bundles after promotion.
package extract

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bianoble/packinstall/internal/sandbox"
)

// Zip extracts zip archives. Entries that would land outside the
// destination are rejected. Extraction happens in a sibling directory
// that replaces destDir only once every entry is written.
type Zip struct {
	// Exclude drops entries whose path starts with any of these prefixes,
	// e.g. "META-INF/".
	Exclude []string
}

func (z Zip) Extract(ctx context.Context, archive, destDir string) error {
	r, err := zip.OpenReader(archive)
	if err != nil {
		return fmt.Errorf("opening archive %s: %w", archive, err)
	}
	defer r.Close()

	parent := filepath.Dir(destDir)
	if err := os.MkdirAll(parent, 0755); err != nil {
		return fmt.Errorf("creating directory %s: %w", parent, err)
	}
	tmp, err := os.MkdirTemp(parent, ".extract-*")
	if err != nil {
		return fmt.Errorf("creating extraction directory: %w", err)
	}
	success := false
	defer func() {
		if !success {
			_ = os.RemoveAll(tmp)
		}
	}()

	for _, f := range r.File {
		if err := ctx.Err(); err != nil {
			return err
		}
		if z.excluded(f.Name) {
			continue
		}
		if err := writeEntry(tmp, f); err != nil {
			return fmt.Errorf("extracting %s from %s: %w", f.Name, archive, err)
		}
	}

	if err := os.RemoveAll(destDir); err != nil {
		return fmt.Errorf("clearing %s: %w", destDir, err)
	}
	if err := os.Rename(tmp, destDir); err != nil {
		return fmt.Errorf("renaming extraction into %s: %w", destDir, err)
	}
	success = true
	return sandbox.SyncDir(parent)
}

func (z Zip) excluded(name string) bool {
	for _, p := range z.Exclude {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

func writeEntry(root string, f *zip.File) error {
	target, err := sandbox.ValidatePath(root, filepath.FromSlash(f.Name))
	if err != nil {
		return err
	}

	if f.FileInfo().IsDir() {
		return os.MkdirAll(target, 0755)
	}
	if f.Mode()&os.ModeSymlink != 0 {
		return fmt.Errorf("symlink entries are not supported")
	}

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}

	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	perm := f.Mode().Perm()
	if perm == 0 {
		perm = 0644
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
