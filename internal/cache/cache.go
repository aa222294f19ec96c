package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bianoble/packinstall/internal/checksum"
	"github.com/bianoble/packinstall/internal/config"
	"github.com/bianoble/packinstall/internal/sandbox"
)

// Cache provides content-addressed artifact storage shared across
// instances. Objects are keyed by algorithm and digest and verified on
// every retrieval.
type Cache struct {
	dir string
}

// New creates a Cache at the given directory.
// The directory is created if it does not exist.
func New(dir string) (*Cache, error) {
	objDir := filepath.Join(dir, "objects")
	if err := os.MkdirAll(objDir, 0755); err != nil {
		return nil, fmt.Errorf("creating cache directory %s: %w", objDir, err)
	}
	return &Cache{dir: dir}, nil
}

// DefaultDir returns the default cache directory.
// Uses XDG_CACHE_HOME if set, otherwise ~/.cache/packinstall.
func DefaultDir() string {
	return config.DefaultCacheDir()
}

// CopyTo copies a cached object into dest if present and still matching
// its key and size. A corrupt entry is removed and reported as a miss.
// Returns true on a verified hit.
func (c *Cache) CopyTo(algo checksum.Algorithm, digest string, size int64, dest string) (bool, error) {
	path := c.objectPath(algo, digest)
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return false, nil
	} else if err != nil {
		return false, fmt.Errorf("reading cache entry %s: %w", digest, err)
	}

	// Verified before use.
	if _, err := checksum.Verify(path, algo, digest, size); err != nil {
		var mm *checksum.MismatchError
		if errors.As(err, &mm) {
			// Self-healing: remove corrupt entry.
			_ = os.Remove(path)
			return false, nil
		}
		return false, fmt.Errorf("reading cache entry %s: %w", digest, err)
	}

	if err := sandbox.CopyFileAtomic(path, dest, 0644); err != nil {
		return false, fmt.Errorf("copying cache entry %s: %w", digest, err)
	}
	return true, nil
}

// PutFile stores the file at src under its digest.
// Verifies the content matches the digest before storing.
// No-op if already cached.
func (c *Cache) PutFile(algo checksum.Algorithm, digest, src string) error {
	if _, err := checksum.Verify(src, algo, digest, 0); err != nil {
		return fmt.Errorf("cache put: %w", err)
	}

	path := c.objectPath(algo, digest)

	// Already cached; objects are immutable.
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	if err := sandbox.CopyFileAtomic(src, path, 0644); err != nil {
		return fmt.Errorf("cache put %s: %w", digest, err)
	}
	return nil
}

// Has checks if a digest exists in the cache without reading content.
func (c *Cache) Has(algo checksum.Algorithm, digest string) bool {
	_, err := os.Stat(c.objectPath(algo, digest))
	return err == nil
}

// Size returns the total size of the cache in bytes.
func (c *Cache) Size() (int64, error) {
	var total int64
	err := filepath.Walk(c.dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			total += info.Size()
		}
		return nil
	})
	return total, err
}

// Path returns the cache directory path.
func (c *Cache) Path() string {
	return c.dir
}

func (c *Cache) objectPath(algo checksum.Algorithm, digest string) string {
	base := filepath.Join(c.dir, "objects", string(algo))
	if len(digest) < 2 {
		return filepath.Join(base, digest)
	}
	return filepath.Join(base, digest[:2], digest)
}
